package reviews

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

//go:embed templates.toml
var templatesTOML string

// GeneralCategory is the template used when a category has none of its own.
const GeneralCategory = "general"

// Template holds reviewer names and comments grouped by sentiment.
type Template struct {
	Names    []string `toml:"names"`
	Positive []string `toml:"positive"`
	Neutral  []string `toml:"neutral"`
	Negative []string `toml:"negative"`
}

// Templates maps a category to its template.
type Templates map[string]Template

// ParseTemplates decodes a TOML template catalogue. A [general] table with
// at least one name and one comment per sentiment is required.
func ParseTemplates(data string) (Templates, error) {
	var ts Templates
	if _, err := toml.Decode(data, &ts); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	g, ok := ts[GeneralCategory]
	if !ok {
		return nil, errors.New("templates: missing [general]")
	}
	if len(g.Names) == 0 || len(g.Positive) == 0 || len(g.Neutral) == 0 || len(g.Negative) == 0 {
		return nil, errors.New("templates: [general] must define names and every sentiment")
	}
	return ts, nil
}

// DefaultTemplates returns the embedded catalogue.
func DefaultTemplates() Templates {
	ts, err := ParseTemplates(templatesTOML)
	if err != nil {
		panic(err)
	}
	return ts
}

// names returns the reviewer names for category.
func (ts Templates) names(category string) []string {
	if t, ok := ts[category]; ok && len(t.Names) > 0 {
		return t.Names
	}
	return ts[GeneralCategory].Names
}

// comments returns the comment bucket for a rating in category.
func (ts Templates) comments(category string, rating int) []string {
	pick := func(t Template) []string {
		switch {
		case rating >= 4:
			return t.Positive
		case rating == 3:
			return t.Neutral
		default:
			return t.Negative
		}
	}
	if t, ok := ts[category]; ok {
		if c := pick(t); len(c) > 0 {
			return c
		}
	}
	return pick(ts[GeneralCategory])
}
