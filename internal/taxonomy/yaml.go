package taxonomy

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlRule is one rule in a YAML rules file. Keywords and brands accept
// either a YAML list or a single delimited string, matching the cell
// format of the tabular source.
type yamlRule struct {
	Main     string   `yaml:"main"`
	Sub      string   `yaml:"sub"`
	Keywords listCell `yaml:"keywords"`
	Notes    string   `yaml:"notes"`
	Brands   listCell `yaml:"brands"`
}

type listCell []string

func (l *listCell) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = SplitList(s)
		return nil
	default:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
}

// LoadYAML reads a YAML rules file: a top-level list of
// {main, sub, keywords, notes, brands} entries.
func LoadYAML(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy file: %w", err)
	}
	defer func() { _ = f.Close() }()

	store, err := ParseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("parse taxonomy file %s: %w", path, err)
	}
	return store, nil
}

// ParseYAML parses YAML rules from r.
func ParseYAML(r io.Reader) (*Store, error) {
	var rules []yamlRule
	if err := yaml.NewDecoder(r).Decode(&rules); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	store := newStore()
	for _, rule := range rules {
		if rule.Main == "" || rule.Sub == "" {
			continue
		}
		store.add(Entry{
			Main:     rule.Main,
			Sub:      rule.Sub,
			Keywords: rule.Keywords,
			Notes:    rule.Notes,
			Brands:   rule.Brands,
		})
	}

	return store.finish()
}
