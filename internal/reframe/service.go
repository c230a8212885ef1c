// Package reframe runs the rewriting pipeline: it assembles the prompt from
// the template, the instruction and the task's articles, calls the model and
// records the outcome on the task.
package reframe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/article"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/gemini"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/preset"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/task"
)

var ErrNoArticles = errors.New("no readable articles to process")

const imagePromptLimit = 600

type Deps struct {
	Gemini     gemini.Client
	Tasks      task.Store
	Articles   *article.Manager
	Presets    *preset.Registry
	Logger     *slog.Logger
	Prompt     string
	TextModel  string
	ImageModel string
}

type Service struct {
	gemini     gemini.Client
	tasks      task.Store
	articles   *article.Manager
	presets    *preset.Registry
	logger     *slog.Logger
	prompt     string
	textModel  string
	imageModel string
}

func NewService(deps Deps) *Service {
	return &Service{
		gemini:     deps.Gemini,
		tasks:      deps.Tasks,
		articles:   deps.Articles,
		presets:    deps.Presets,
		logger:     deps.Logger,
		prompt:     deps.Prompt,
		textModel:  deps.TextModel,
		imageModel: deps.ImageModel,
	}
}

// Process runs the pipeline for the task and returns it in its final state.
// The task moves to processing first, then to completed or failed; a task
// already in processing is rejected with task.ErrProcessing.
func (s *Service) Process(ctx context.Context, t task.Task) (task.Task, error) {
	if t.Status == task.StatusProcessing {
		return t, task.ErrProcessing
	}

	// The store rejects a second processing claim, so a stale snapshot
	// cannot start the pipeline twice.
	if err := s.tasks.UpdateStatus(ctx, t.ID, task.StatusProcessing, task.Outcome{}); err != nil {
		if errors.Is(err, task.ErrProcessing) {
			return t, task.ErrProcessing
		}
		return t, fmt.Errorf("mark processing: %w", err)
	}

	result, images, err := s.run(ctx, t)
	if err != nil {
		s.logger.Error("task failed",
			slog.String("task_id", t.ID),
			slog.String("error", err.Error()))
		if updErr := s.tasks.UpdateStatus(ctx, t.ID, task.StatusFailed, task.Outcome{Error: err.Error()}); updErr != nil {
			s.logger.Error("mark failed", slog.String("task_id", t.ID), slog.String("error", updErr.Error()))
		}
		return s.reload(ctx, t), err
	}

	if err := s.tasks.UpdateStatus(ctx, t.ID, task.StatusCompleted, task.Outcome{Result: result, Images: images}); err != nil {
		return t, fmt.Errorf("mark completed: %w", err)
	}

	s.logger.Info("task completed",
		slog.String("task_id", t.ID),
		slog.Int("result_chars", len(result)),
		slog.Int("images", len(images)))
	return s.reload(ctx, t), nil
}

func (s *Service) run(ctx context.Context, t task.Task) (string, []string, error) {
	instruction, err := s.resolveInstruction(t)
	if err != nil {
		return "", nil, err
	}

	payloads, skipped := s.articles.LoadPayloads(t.SessionID, t.Articles)
	for _, skip := range skipped {
		s.logger.Warn("skipping article",
			slog.String("task_id", t.ID),
			slog.String("reason", skip.Error()))
	}
	if len(payloads) == 0 {
		return "", nil, ErrNoArticles
	}

	parts := s.buildParts(instruction, payloads)
	result, err := s.gemini.GenerateContent(ctx, s.textModel, parts)
	if err != nil {
		return "", nil, fmt.Errorf("generate content: %w", err)
	}

	var images []string
	if t.GenerateImage {
		images = s.generateImages(ctx, t, result)
	}
	return result, images, nil
}

// buildParts orders the request the way the model expects it: template and
// instruction first, then text articles, then attached PDFs.
func (s *Service) buildParts(instruction string, payloads []article.Payload) []gemini.Part {
	parts := []gemini.Part{gemini.TextPart(s.prompt)}
	if instruction != "" {
		parts = append(parts, gemini.TextPart(instruction))
	}
	for _, p := range payloads {
		if p.Text != "" {
			parts = append(parts, gemini.TextPart(p.Text))
		}
	}
	for _, p := range payloads {
		if p.PDF != nil {
			parts = append(parts, gemini.PDFPart(p.PDF))
		}
	}
	return parts
}

func (s *Service) resolveInstruction(t task.Task) (string, error) {
	if t.Preset != "" {
		content, err := s.presets.Content(t.Preset)
		if err != nil {
			return "", err
		}
		return content, nil
	}
	if t.Instruction != "" {
		return t.Instruction, nil
	}
	// The session folder may still carry instruction.txt when the snapshot
	// has none.
	return s.articles.LoadInstruction(t.SessionID)
}

// generateImages illustrates the rewritten article. Image failures never fail
// the task; the text result stands on its own.
func (s *Service) generateImages(ctx context.Context, t task.Task, result string) []string {
	imgs, err := s.gemini.GenerateImage(ctx, s.imageModel, imagePrompt(result))
	if err != nil {
		s.logger.Warn("image generation failed",
			slog.String("task_id", t.ID),
			slog.String("error", err.Error()))
		return nil
	}

	var names []string
	for _, img := range imgs {
		name, err := s.articles.SaveImage(t.SessionID, img.Data)
		if err != nil {
			s.logger.Warn("save image failed",
				slog.String("task_id", t.ID),
				slog.String("error", err.Error()))
			continue
		}
		names = append(names, name)
	}
	return names
}

// imagePrompt derives an illustration prompt from the article's opening.
func imagePrompt(result string) string {
	opening := []rune(result)
	if len(opening) > imagePromptLimit {
		opening = opening[:imagePromptLimit]
	}
	return "Create a single illustrative news photograph for the following article. " +
		"Photorealistic, editorial style, no text or captions in the image.\n\n" +
		strings.TrimSpace(string(opening))
}

func (s *Service) reload(ctx context.Context, t task.Task) task.Task {
	fresh, err := s.tasks.Get(ctx, t.ID)
	if err != nil {
		return t
	}
	return fresh
}
