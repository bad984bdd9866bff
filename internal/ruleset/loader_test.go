package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const minimalTaxonomy = `taxonomy_version: "1.0.0"
categories:
  - id: framing
    tier: tier_1
    cardinality: {min: 0, max: 1}
    applicability: {when: always}
    allowed_values: [full body, portrait]
`

const minimalGraph = `graph_version: "1.0.0"
signals:
  face_visible:
    type: derived
    derivation:
      op: tag_present
      args: {tag: portrait}
constraints: []
`

func TestLoadEmbedded(t *testing.T) {
	docs, err := LoadEmbedded()
	require.NoError(t, err)

	require.NotNil(t, docs.Taxonomy)
	require.NotNil(t, docs.Graph)
	require.NotNil(t, docs.Policy)

	assert.Equal(t, "1.0.0", docs.Taxonomy.TaxonomyVersion)
	assert.Equal(t, "1.0.0", docs.Graph.GraphVersion)
	assert.Equal(t, "1.0.0", docs.Policy.PolicyVersion)
	assert.Equal(t, docs.Taxonomy.TaxonomyVersion, docs.Policy.TaxonomyVersion)
	assert.Equal(t, docs.Graph.GraphVersion, docs.Policy.GraphVersion)

	assert.NotEmpty(t, docs.Taxonomy.Categories)
	assert.Contains(t, docs.Graph.Signals, "face_visible")
	assert.NotEmpty(t, docs.Graph.Constraints)
}

func TestLoad_PolicyOptional(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "taxonomy.v1.yaml", minimalTaxonomy)
	writeDoc(t, dir, "applicability_graph.v1.yaml", minimalGraph)

	docs, err := Load(dir)
	require.NoError(t, err)
	assert.Nil(t, docs.Policy)
	assert.Equal(t, dir, docs.Dir)
	require.Len(t, docs.Taxonomy.Categories, 1)
	assert.Equal(t, "framing", docs.Taxonomy.Categories[0].ID)
}

func TestLoad_MissingTaxonomy(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "applicability_graph.v1.yaml", minimalGraph)

	_, err := Load(dir)
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, TaxonomyBase, nfe.Document)
}

func TestLoad_YmlFallback(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "taxonomy.v1.yml", minimalTaxonomy)
	writeDoc(t, dir, "applicability_graph.v1.yml", minimalGraph)

	docs, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", docs.Taxonomy.TaxonomyVersion)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "taxonomy.v1.yaml", minimalTaxonomy+"surprise_field: true\n")
	writeDoc(t, dir, "applicability_graph.v1.yaml", minimalGraph)

	_, err := Load(dir)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.File, "taxonomy.v1.yaml")
}

func TestLoad_RejectsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "taxonomy.v1.yaml", "")
	writeDoc(t, dir, "applicability_graph.v1.yaml", minimalGraph)

	_, err := Load(dir)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "empty")
}

func TestExprDoc_Unmarshal(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		check func(t *testing.T, e *ExprDoc)
	}{
		{
			name: "tag_present",
			yaml: `{op: tag_present, args: {tag: close up}}`,
			check: func(t *testing.T, e *ExprDoc) {
				assert.Equal(t, OpTagPresent, e.Op)
				assert.Equal(t, "close up", e.Tag)
			},
		},
		{
			name: "not",
			yaml: `{op: not, args: {op: tag_present, args: {tag: from behind}}}`,
			check: func(t *testing.T, e *ExprDoc) {
				assert.Equal(t, OpNot, e.Op)
				require.NotNil(t, e.Child)
				assert.Equal(t, "from behind", e.Child.Tag)
			},
		},
		{
			name: "all_of",
			yaml: `{op: all_of, args: [{op: tag_present, args: {tag: a}}, {op: tag_present, args: {tag: b}}]}`,
			check: func(t *testing.T, e *ExprDoc) {
				assert.Equal(t, OpAllOf, e.Op)
				require.Len(t, e.Children, 2)
				assert.Equal(t, "b", e.Children[1].Tag)
			},
		},
		{
			name: "any_of",
			yaml: `{op: any_of, args: [{op: tag_present, args: {tag: a}}]}`,
			check: func(t *testing.T, e *ExprDoc) {
				assert.Equal(t, OpAnyOf, e.Op)
				require.Len(t, e.Children, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e ExprDoc
			require.NoError(t, yaml.Unmarshal([]byte(tt.yaml), &e))
			tt.check(t, &e)
		})
	}
}

func TestExprDoc_UnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown op", `{op: xor, args: {tag: a}}`},
		{"missing args", `{op: tag_present}`},
		{"empty tag", `{op: tag_present, args: {tag: ""}}`},
		{"empty all_of", `{op: all_of, args: []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e ExprDoc
			assert.Error(t, yaml.Unmarshal([]byte(tt.yaml), &e))
		})
	}
}

func TestLoad_ConstraintShapes(t *testing.T) {
	docs, err := LoadEmbedded()
	require.NoError(t, err)

	for _, c := range docs.Graph.Constraints {
		payloads := 0
		if len(c.Require) > 0 {
			payloads++
		}
		if len(c.ForbidTags) > 0 {
			payloads++
		}
		if len(c.Relax) > 0 {
			payloads++
		}
		assert.Equal(t, 1, payloads, "constraint on %s carries %d payloads", c.When.Signal, payloads)
		assert.NotEmpty(t, c.When.Signal)
	}
}
