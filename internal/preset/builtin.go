package preset

var builtin = []Preset{
	{
		Name:        "news",
		Title:       "News/Journalism Style",
		Description: "Professional news writing with objective reporting, inverted pyramid structure, and journalistic standards",
		Content: `Rewrite the article as a professional news report. Lead with the most
newsworthy facts (who, what, when, where, why) and follow the inverted pyramid:
essential information first, supporting detail after, background last. Keep the
tone objective and neutral, attribute claims to their sources, avoid editorial
commentary, and use short declarative sentences and concise paragraphs.`,
	},
	{
		Name:        "academic",
		Title:       "Academic Writing Style",
		Description: "Formal scholarly tone with citations, complex structure, and analytical approach",
		Content: `Rewrite the article in a formal academic register. Open with a framing of
the topic and its significance, develop the argument in structured sections,
and close with implications or open questions. Use precise terminology, hedge
claims appropriately, reference the sources of factual assertions in-text, and
prefer analysis over narration.`,
	},
	{
		Name:        "casual",
		Title:       "Casual/Conversational Style",
		Description: "Friendly, approachable writing with simple language and personal tone",
		Content: `Rewrite the article in a casual, conversational voice, as if explaining the
story to a friend. Use simple everyday words, short sentences, contractions,
and direct address ("you"). Keep it light and engaging without losing the
facts; drop jargon or explain it in plain terms.`,
	},
	{
		Name:        "pro_trump",
		Title:       "Pro-Trump Perspective",
		Description: "Supportive viewpoint emphasizing achievements, strength themes, and America First messaging",
		Content: `Rewrite the article from a perspective supportive of Donald Trump. Emphasize
achievements, decisiveness and strength, frame policies through America First
priorities, and present criticism as partisan opposition. Keep every factual
claim from the source articles intact; the reframing applies to emphasis,
framing and tone only.`,
	},
	{
		Name:        "con_trump",
		Title:       "Anti-Trump Perspective",
		Description: "Critical viewpoint focusing on accountability, democratic concerns, and institutional impacts",
		Content: `Rewrite the article from a perspective critical of Donald Trump. Emphasize
accountability, concerns about democratic norms and institutional impacts, and
scrutinize stated motives. Keep every factual claim from the source articles
intact; the reframing applies to emphasis, framing and tone only.`,
	},
}
