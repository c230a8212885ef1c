package reframe

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed prompt.txt
var defaultPrompt string

// LoadPrompt returns the prompt template: the file at path when given,
// otherwise the embedded default.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return strings.TrimSpace(defaultPrompt), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt template %s is empty", path)
	}
	return prompt, nil
}
