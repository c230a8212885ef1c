// Package article handles source article intake: pasted text, PDF uploads
// and fetched URLs, all stored as sequentially numbered files in a
// per-session upload folder.
package article

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	KindText = "text"
	KindPDF  = "pdf"
	KindURL  = "url"

	instructionFile = "instruction.txt"
	previewLimit    = 50
)

var (
	ErrEmptyText  = errors.New("article text is empty")
	ErrInvalidPDF = errors.New("file is not a valid PDF")
	ErrTooLarge   = errors.New("file exceeds the upload size limit")
)

// Article describes one source article attached to a draft or task.
type Article struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Filename string `json:"filename"`
	Source   string `json:"source"`
	Preview  string `json:"preview"`
}

// Payload is an article's content loaded back for processing: either text or
// raw PDF bytes.
type Payload struct {
	Filename string
	Text     string
	PDF      []byte
}

// Manager owns the upload folder layout. Each session gets its own
// subfolder; articles are stored as input<N>.txt / input<N>.pdf and
// generated illustrations as output<N>.png.
type Manager struct {
	uploadDir string
	maxBytes  int64
}

func NewManager(uploadDir string, maxBytes int64) *Manager {
	return &Manager{uploadDir: uploadDir, maxBytes: maxBytes}
}

// SessionDir returns the session's upload folder, creating it if needed.
func (m *Manager) SessionDir(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session id is empty")
	}
	dir := filepath.Join(m.uploadDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	return dir, nil
}

// SaveText stores pasted article text as the next input<N>.txt.
func (m *Manager) SaveText(sessionID, text string) (Article, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Article{}, ErrEmptyText
	}

	dir, err := m.SessionDir(sessionID)
	if err != nil {
		return Article{}, err
	}

	filename := fmt.Sprintf("input%d.txt", nextNumber(dir, "input", ".txt", ".pdf"))
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(text), 0o644); err != nil {
		return Article{}, fmt.Errorf("write text article: %w", err)
	}

	return Article{
		ID:       uuid.NewString(),
		Kind:     KindText,
		Filename: filename,
		Source:   "Text Input",
		Preview:  preview(text),
	}, nil
}

// SavePDF stores an uploaded PDF as the next input<N>.pdf. The payload must
// carry the %PDF magic and stay under the configured size cap.
func (m *Manager) SavePDF(sessionID string, r io.Reader) (Article, error) {
	data, err := io.ReadAll(io.LimitReader(r, m.maxBytes+1))
	if err != nil {
		return Article{}, fmt.Errorf("read pdf upload: %w", err)
	}
	if int64(len(data)) > m.maxBytes {
		return Article{}, ErrTooLarge
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return Article{}, ErrInvalidPDF
	}

	dir, err := m.SessionDir(sessionID)
	if err != nil {
		return Article{}, err
	}

	filename := fmt.Sprintf("input%d.pdf", nextNumber(dir, "input", ".txt", ".pdf"))
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return Article{}, fmt.Errorf("write pdf article: %w", err)
	}

	return Article{
		ID:       uuid.NewString(),
		Kind:     KindPDF,
		Filename: filename,
		Source:   "PDF Upload",
		Preview:  fmt.Sprintf("PDF file: %s", filename),
	}, nil
}

// SaveFetched stores text extracted from a web page as the next input<N>.txt,
// recording the URL as the source.
func (m *Manager) SaveFetched(sessionID, pageURL, text string) (Article, error) {
	art, err := m.SaveText(sessionID, text)
	if err != nil {
		return Article{}, err
	}
	art.Kind = KindURL
	art.Source = pageURL
	return art, nil
}

// Remove deletes the article's backing file. A file that is already gone is
// not an error.
func (m *Manager) Remove(sessionID string, art Article) error {
	if art.Filename == "" {
		return nil
	}
	path := filepath.Join(m.uploadDir, sessionID, filepath.Base(art.Filename))
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove article file: %w", err)
	}
	return nil
}

// RemoveSession deletes the whole session folder with every input, the
// instruction file and any generated images.
func (m *Manager) RemoveSession(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := os.RemoveAll(filepath.Join(m.uploadDir, sessionID)); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}
	return nil
}

// SaveInstruction writes the custom instruction to instruction.txt.
func (m *Manager) SaveInstruction(sessionID, text string) error {
	dir, err := m.SessionDir(sessionID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, instructionFile), []byte(text), 0o644); err != nil {
		return fmt.Errorf("write instruction: %w", err)
	}
	return nil
}

// DeleteInstruction removes instruction.txt if present.
func (m *Manager) DeleteInstruction(sessionID string) error {
	path := filepath.Join(m.uploadDir, sessionID, instructionFile)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete instruction: %w", err)
	}
	return nil
}

// LoadInstruction reads instruction.txt; a missing file yields "".
func (m *Manager) LoadInstruction(sessionID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(m.uploadDir, sessionID, instructionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read instruction: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadPayloads reads the listed articles back from the session folder in
// order. Unreadable or empty files are skipped; the caller decides whether an
// empty result is fatal.
func (m *Manager) LoadPayloads(sessionID string, articles []Article) ([]Payload, []error) {
	dir := filepath.Join(m.uploadDir, sessionID)

	var payloads []Payload
	var skipped []error
	for _, art := range articles {
		path := filepath.Join(dir, filepath.Base(art.Filename))
		data, err := os.ReadFile(path)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("read %s: %w", art.Filename, err))
			continue
		}
		if art.Kind == KindPDF {
			if !bytes.HasPrefix(data, []byte("%PDF")) {
				skipped = append(skipped, fmt.Errorf("%s: %w", art.Filename, ErrInvalidPDF))
				continue
			}
			payloads = append(payloads, Payload{Filename: art.Filename, PDF: data})
			continue
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			skipped = append(skipped, fmt.Errorf("%s: %w", art.Filename, ErrEmptyText))
			continue
		}
		payloads = append(payloads, Payload{Filename: art.Filename, Text: text})
	}
	return payloads, skipped
}

// SaveImage stores generated image bytes as the next output<N>.png and
// returns the filename.
func (m *Manager) SaveImage(sessionID string, data []byte) (string, error) {
	dir, err := m.SessionDir(sessionID)
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("output%d.png", nextNumber(dir, "output", ".png"))
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return filename, nil
}

// ImagePath resolves a generated image name inside the session folder. Only
// output<N>.png names are served.
func (m *Manager) ImagePath(sessionID, name string) (string, error) {
	base := filepath.Base(name)
	if base != name || !strings.HasPrefix(base, "output") || !strings.HasSuffix(base, ".png") {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	path := filepath.Join(m.uploadDir, sessionID, base)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat image: %w", err)
	}
	return path, nil
}

// nextNumber scans the folder for <prefix><N><ext> names and returns the next
// free sequential number, starting at 1.
func nextNumber(dir, prefix string, exts ...string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 1
	}

	max := 0
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		if !hasExt(ext, exts) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		if !strings.HasPrefix(stem, prefix) {
			continue
		}
		num, err := strconv.Atoi(strings.TrimPrefix(stem, prefix))
		if err != nil {
			continue
		}
		if num > max {
			max = num
		}
	}
	return max + 1
}

func hasExt(ext string, exts []string) bool {
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "..."
}
