package ontology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
)

func TestImportCycles(t *testing.T) {
	adjacency := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"e"},
		"e": {"d", "f"},
		"f": {"fmt"},
	}
	nodes := []string{"a", "b", "c", "d", "e", "f", "fmt", "g"}

	assert.Equal(t, [][]string{{"a", "b", "c"}, {"d", "e"}}, importCycles(nodes, adjacency))
	assert.Empty(t, importCycles(nodes, map[string][]string{"a": {"b"}}))
}

func TestValidateOntology(t *testing.T) {
	graph := new(MockGraphStore)
	graph.On("ListPaths", mock.Anything).Return([]string{"/w/a.go", "/w/b.go", "/w/lonely.md", "fmt"}, nil)
	graph.On("ListRelations", mock.Anything, domainOntology.RelImports).Return([]domainOntology.Relationship{
		{Source: "/w/a.go", Target: "/w/b.go", Relation: domainOntology.RelImports},
		{Source: "/w/b.go", Target: "/w/a.go", Relation: domainOntology.RelImports},
		{Source: "/w/b.go", Target: "fmt", Relation: domainOntology.RelImports},
	}, nil)
	graph.On("ListRelations", mock.Anything, domainOntology.RelSimilarTo).Return([]domainOntology.Relationship{}, nil)

	env := newTestEnv(t, withGraph(graph))

	report, err := env.orch.ValidateOntology(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"/w/a.go", "/w/b.go"}}, report.Cycles)
	assert.Equal(t, []string{"/w/lonely.md"}, report.Orphans)
	assert.Equal(t, 4, report.Checked)
	graph.AssertExpectations(t)
}

func TestValidateOntology_Empty(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.orch.ValidateOntology(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Cycles)
	assert.Empty(t, report.Orphans)
	assert.Equal(t, 0, report.Checked)
}
