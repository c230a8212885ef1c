// Package preset holds the named rewriting styles a task can use instead of
// a custom instruction.
package preset

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Preset is one named rewriting style.
type Preset struct {
	Name        string `yaml:"name" json:"name"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Content     string `yaml:"content" json:"-"`
}

// displayOrder fixes how the built-in presets are listed; unknown names sort
// after them alphabetically.
var displayOrder = []string{"news", "academic", "casual", "pro_trump", "con_trump"}

// Registry resolves preset names to instruction content.
type Registry struct {
	presets map[string]Preset
}

// NewRegistry returns a registry with the built-in presets. If path is
// non-empty, the YAML file there is loaded on top: entries with a known name
// override the built-in, new names are added.
func NewRegistry(path string) (*Registry, error) {
	presets := make(map[string]Preset, len(builtin))
	for _, p := range builtin {
		presets[p.Name] = p
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read presets file: %w", err)
		}

		var file struct {
			Presets []Preset `yaml:"presets"`
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse presets file: %w", err)
		}
		for _, p := range file.Presets {
			if p.Name == "" || p.Content == "" {
				return nil, fmt.Errorf("preset entry needs both name and content")
			}
			if p.Title == "" {
				p.Title = fmt.Sprintf("Preset %s", p.Name)
			}
			presets[p.Name] = p
		}
	}

	return &Registry{presets: presets}, nil
}

// Has reports whether the preset is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.presets[name]
	return ok
}

// Content returns the instruction content of a preset.
func (r *Registry) Content(name string) (string, error) {
	p, ok := r.presets[name]
	if !ok {
		return "", fmt.Errorf("unknown preset: %s", name)
	}
	return p.Content, nil
}

// List returns all presets in display order.
func (r *Registry) List() []Preset {
	out := make([]Preset, 0, len(r.presets))
	for _, p := range r.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := orderRank(out[i].Name), orderRank(out[j].Name)
		if ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func orderRank(name string) int {
	for i, n := range displayOrder {
		if n == name {
			return i
		}
	}
	return len(displayOrder)
}
