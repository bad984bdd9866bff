package ruleset

import (
	"embed"
	"fmt"
)

//go:embed docs/*.yaml
var embeddedDocs embed.FS

// LoadEmbedded returns the rule documents compiled into the binary. These
// cover the stock single-subject portrait taxonomy and serve as the default
// when no rules directory is configured.
func LoadEmbedded() (*Documents, error) {
	docs := &Documents{
		Taxonomy: &TaxonomyDoc{},
		Graph:    &GraphDoc{},
		Policy:   &PolicyDoc{},
	}

	for name, out := range map[string]any{
		TaxonomyBase + ".yaml": docs.Taxonomy,
		GraphBase + ".yaml":    docs.Graph,
		PolicyBase + ".yaml":   docs.Policy,
	} {
		data, err := embeddedDocs.ReadFile("docs/" + name)
		if err != nil {
			return nil, fmt.Errorf("embedded document %s: %w", name, err)
		}
		if err := decodeStrict(data, out, name); err != nil {
			return nil, err
		}
	}

	return docs, nil
}
