package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Document base names. Each resolves against the extensions below, in order.
const (
	TaxonomyBase = "taxonomy.v1"
	GraphBase    = "applicability_graph.v1"
	PolicyBase   = "policy.v1"
)

// Extensions tried when resolving a document, in preference order.
// JSON is a YAML subset, so a single decoder covers all three.
var extensions = []string{".yaml", ".yml", ".json"}

// Documents is one loaded rule set. Taxonomy and Graph are always present;
// Policy is nil when the rules directory carries no policy document, in
// which case every missing-required finding falls back to error severity.
type Documents struct {
	Taxonomy *TaxonomyDoc
	Graph    *GraphDoc
	Policy   *PolicyDoc

	// Dir is the directory the documents were loaded from, empty for the
	// embedded defaults.
	Dir string
}

// Load reads the rule documents from dir. The taxonomy and graph documents
// are required; the policy document is optional.
func Load(dir string) (*Documents, error) {
	docs := &Documents{Dir: dir}

	var tax TaxonomyDoc
	if err := loadDocument(dir, TaxonomyBase, &tax); err != nil {
		return nil, err
	}
	docs.Taxonomy = &tax

	var graph GraphDoc
	if err := loadDocument(dir, GraphBase, &graph); err != nil {
		return nil, err
	}
	docs.Graph = &graph

	var pol PolicyDoc
	err := loadDocument(dir, PolicyBase, &pol)
	switch {
	case err == nil:
		docs.Policy = &pol
	case errors.As(err, new(*NotFoundError)):
		// Policy is optional.
	default:
		return nil, err
	}

	return docs, nil
}

// loadDocument resolves base against the known extensions under dir and
// strictly decodes the first match into out.
func loadDocument(dir, base string, out any) error {
	for _, ext := range extensions {
		path := filepath.Join(dir, base+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		return decodeStrict(data, out, path)
	}
	return &NotFoundError{Document: base, Dir: dir}
}

// decodeStrict decodes YAML rejecting unknown fields. Unknown keys in a rule
// document are almost always typos, so they fail loudly instead of silently
// changing behavior.
func decodeStrict(data []byte, out any, name string) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &ParseError{File: name, Message: "empty document"}
		}
		return &ParseError{File: name, Message: err.Error()}
	}
	return nil
}
