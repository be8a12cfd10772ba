package keys

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Overlay is the on-disk shape of an alias extension file.
type Overlay struct {
	Aliases   map[string][]string `yaml:"aliases"`
	Ambiguous map[string][]string `yaml:"ambiguous"`
}

// LoadOverlay reads an alias overlay from a YAML file.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alias file: %w", err)
	}
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing alias file %s: %w", path, err)
	}
	return &o, nil
}

// Apply merges the overlay into t in a deterministic order.
func (o *Overlay) Apply(t *Table) {
	if o == nil {
		return
	}
	for _, canon := range sortedKeys(o.Aliases) {
		t.Add(canon, o.Aliases[canon]...)
	}
	for _, alias := range sortedKeys(o.Ambiguous) {
		t.AddAmbiguous(alias, o.Ambiguous[alias]...)
	}
}

// LoadTable returns the built-in table, extended by the overlay at path
// when path is non-empty.
func LoadTable(path string) (*Table, error) {
	t := DefaultTable()
	if path == "" {
		return t, nil
	}
	o, err := LoadOverlay(path)
	if err != nil {
		return nil, err
	}
	o.Apply(t)
	return t, nil
}

func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
