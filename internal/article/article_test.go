package article

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveTextAssignsSequentialNames(t *testing.T) {
	m := NewManager(t.TempDir(), 16<<20)

	first, err := m.SaveText("s1", "First article body")
	if err != nil {
		t.Fatalf("save text: %v", err)
	}
	if first.Filename != "input1.txt" {
		t.Fatalf("expected input1.txt, got %s", first.Filename)
	}
	if first.Kind != KindText || first.Source != "Text Input" {
		t.Fatalf("unexpected article metadata: %+v", first)
	}

	second, err := m.SaveText("s1", "Second article body")
	if err != nil {
		t.Fatalf("save text: %v", err)
	}
	if second.Filename != "input2.txt" {
		t.Fatalf("expected input2.txt, got %s", second.Filename)
	}

	// Other sessions start their own numbering.
	other, err := m.SaveText("s2", "Unrelated")
	if err != nil {
		t.Fatalf("save text: %v", err)
	}
	if other.Filename != "input1.txt" {
		t.Fatalf("expected input1.txt in other session, got %s", other.Filename)
	}
}

func TestSaveTextRejectsEmpty(t *testing.T) {
	m := NewManager(t.TempDir(), 16<<20)
	if _, err := m.SaveText("s1", "   \n"); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestPreviewTruncation(t *testing.T) {
	m := NewManager(t.TempDir(), 16<<20)

	long := strings.Repeat("x", 80)
	art, err := m.SaveText("s1", long)
	if err != nil {
		t.Fatalf("save text: %v", err)
	}
	if art.Preview != strings.Repeat("x", 50)+"..." {
		t.Fatalf("unexpected preview: %q", art.Preview)
	}

	short, err := m.SaveText("s1", "brief")
	if err != nil {
		t.Fatalf("save text: %v", err)
	}
	if short.Preview != "brief" {
		t.Fatalf("short text should not be truncated: %q", short.Preview)
	}
}

func TestSavePDFValidatesMagicAndSize(t *testing.T) {
	m := NewManager(t.TempDir(), 64)

	if _, err := m.SavePDF("s1", bytes.NewReader([]byte("not a pdf"))); !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("expected ErrInvalidPDF, got %v", err)
	}

	big := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("a"), 100)...)
	if _, err := m.SavePDF("s1", bytes.NewReader(big)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	art, err := m.SavePDF("s1", bytes.NewReader([]byte("%PDF-1.7 tiny")))
	if err != nil {
		t.Fatalf("save pdf: %v", err)
	}
	if art.Filename != "input1.pdf" || art.Kind != KindPDF {
		t.Fatalf("unexpected pdf article: %+v", art)
	}
}

func TestNumberingIsSharedAcrossKinds(t *testing.T) {
	m := NewManager(t.TempDir(), 16<<20)

	_, _ = m.SaveText("s1", "text one")
	pdf, err := m.SavePDF("s1", bytes.NewReader([]byte("%PDF-1.7")))
	if err != nil {
		t.Fatalf("save pdf: %v", err)
	}
	if pdf.Filename != "input2.pdf" {
		t.Fatalf("expected input2.pdf, got %s", pdf.Filename)
	}
}

func TestSaveFetchedRecordsURL(t *testing.T) {
	m := NewManager(t.TempDir(), 16<<20)

	art, err := m.SaveFetched("s1", "https://example.com/story", "Extracted article text")
	if err != nil {
		t.Fatalf("save fetched: %v", err)
	}
	if art.Kind != KindURL {
		t.Fatalf("expected url kind, got %s", art.Kind)
	}
	if art.Source != "https://example.com/story" {
		t.Fatalf("unexpected source: %s", art.Source)
	}
	if art.Filename != "input1.txt" {
		t.Fatalf("unexpected filename: %s", art.Filename)
	}
}

func TestLoadPayloadsSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 16<<20)

	text, _ := m.SaveText("s1", "Readable body")
	pdf, _ := m.SavePDF("s1", bytes.NewReader([]byte("%PDF-1.7 body")))

	missing := Article{ID: "gone", Kind: KindText, Filename: "input9.txt"}

	// An article whose file was later corrupted to non-PDF content.
	corrupt, _ := m.SavePDF("s1", bytes.NewReader([]byte("%PDF-1.7 ok")))
	if err := os.WriteFile(filepath.Join(dir, "s1", corrupt.Filename), []byte("junk"), 0o644); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}

	payloads, skipped := m.LoadPayloads("s1", []Article{text, pdf, missing, corrupt})
	if len(payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(payloads))
	}
	if payloads[0].Text != "Readable body" {
		t.Fatalf("unexpected text payload: %+v", payloads[0])
	}
	if !bytes.HasPrefix(payloads[1].PDF, []byte("%PDF")) {
		t.Fatalf("expected pdf payload bytes")
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped, got %d: %v", len(skipped), skipped)
	}
}

func TestInstructionFileRoundTrip(t *testing.T) {
	m := NewManager(t.TempDir(), 16<<20)

	if err := m.SaveInstruction("s1", "rewrite casually"); err != nil {
		t.Fatalf("save instruction: %v", err)
	}
	got, err := m.LoadInstruction("s1")
	if err != nil {
		t.Fatalf("load instruction: %v", err)
	}
	if got != "rewrite casually" {
		t.Fatalf("unexpected instruction: %q", got)
	}

	if err := m.DeleteInstruction("s1"); err != nil {
		t.Fatalf("delete instruction: %v", err)
	}
	got, err = m.LoadInstruction("s1")
	if err != nil {
		t.Fatalf("load after delete: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty instruction after delete, got %q", got)
	}

	// Deleting twice is fine.
	if err := m.DeleteInstruction("s1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestInstructionFileDoesNotAffectNumbering(t *testing.T) {
	m := NewManager(t.TempDir(), 16<<20)

	_ = m.SaveInstruction("s1", "style notes")
	art, err := m.SaveText("s1", "body")
	if err != nil {
		t.Fatalf("save text: %v", err)
	}
	if art.Filename != "input1.txt" {
		t.Fatalf("instruction.txt should not consume input numbers, got %s", art.Filename)
	}
}

func TestSaveImageAndImagePath(t *testing.T) {
	m := NewManager(t.TempDir(), 16<<20)

	name, err := m.SaveImage("s1", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("save image: %v", err)
	}
	if name != "output1.png" {
		t.Fatalf("expected output1.png, got %s", name)
	}

	path, err := m.ImagePath("s1", name)
	if err != nil {
		t.Fatalf("image path: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected image data: %q", data)
	}

	if _, err := m.ImagePath("s1", "../secrets.png"); err == nil {
		t.Fatalf("expected traversal name to be rejected")
	}
	if _, err := m.ImagePath("s1", "input1.txt"); err == nil {
		t.Fatalf("expected non-image name to be rejected")
	}
}

func TestRemoveArticleFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 16<<20)

	art, _ := m.SaveText("s1", "body")
	if err := m.Remove("s1", art); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "s1", art.Filename)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file should be deleted")
	}

	// Removing again must not error.
	if err := m.Remove("s1", art); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}
