// Package gemini is a minimal client for the Google Gemini generateContent
// API, covering text rewriting with mixed text/PDF input and image
// generation.
package gemini

import "context"

// Part is one piece of generateContent input: either text or inline binary
// data such as a PDF.
type Part struct {
	Text   string
	Inline *Blob
}

// Blob is inline binary data with its mime type.
type Blob struct {
	MIMEType string
	Data     []byte
}

// TextPart wraps plain text as a Part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// PDFPart wraps raw PDF bytes as an inline Part.
func PDFPart(data []byte) Part {
	return Part{Inline: &Blob{MIMEType: "application/pdf", Data: data}}
}

// Image is one generated image.
type Image struct {
	MIMEType string
	Data     []byte
}

// Client is the surface the reframing pipeline needs from the model API.
type Client interface {
	// GenerateContent sends the parts to a text model and returns the
	// generated text.
	GenerateContent(ctx context.Context, model string, parts []Part) (string, error)

	// GenerateImage asks an image model for illustrations of the prompt.
	GenerateImage(ctx context.Context, model string, prompt string) ([]Image, error)
}
