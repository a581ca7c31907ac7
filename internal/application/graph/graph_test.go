package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoes-index-api/internal/domain/entity"
)

func testGraph() *Graph {
	alice := entity.NewStoryEntity("s1", "Alice", entity.EntityTypeCharacter)
	bob := entity.NewStoryEntity("s1", "Bob", entity.EntityTypeCharacter)
	lighthouse := entity.NewStoryEntity("s1", "Il Faro", entity.EntityTypeLocation)

	loves := entity.NewRelation("s1", "Alice", "Bob", entity.RelationLoves)
	loves.Weight = 0.9
	lives := entity.NewRelation("s1", "Bob", "Il Faro", entity.RelationLivesIn)

	return &Graph{
		Nodes: []*entity.StoryEntity{alice, bob, lighthouse},
		Edges: []*entity.Relation{loves, lives},
	}
}

func TestFilterGraphNoFilters(t *testing.T) {
	g := testGraph()
	filtered := FilterGraph(g, FilterOptions{})

	assert.Len(t, filtered.Nodes, 3)
	assert.Len(t, filtered.Edges, 2)
}

func TestFilterGraphByEntityType(t *testing.T) {
	g := testGraph()
	filtered := FilterGraph(g, FilterOptions{
		EntityTypes: []entity.StoryEntityType{entity.EntityTypeCharacter},
	})

	require.Len(t, filtered.Nodes, 2)
	// 指向被移除地点节点的边一并删除
	require.Len(t, filtered.Edges, 1)
	assert.Equal(t, entity.RelationLoves, filtered.Edges[0].Type)
}

func TestFilterGraphByCharacter(t *testing.T) {
	g := testGraph()
	filtered := FilterGraph(g, FilterOptions{Characters: []string{"Alice"}})

	require.Len(t, filtered.Nodes, 1)
	assert.Equal(t, "Alice", filtered.Nodes[0].Name)
	// Bob 被移除，Alice->Bob 成为悬挂边，一并删除
	assert.Empty(t, filtered.Edges)
}

func TestFilterGraphByRelationType(t *testing.T) {
	g := testGraph()
	filtered := FilterGraph(g, FilterOptions{
		RelationTypes: []entity.RelationType{entity.RelationLivesIn},
	})

	assert.Len(t, filtered.Nodes, 3)
	require.Len(t, filtered.Edges, 1)
	assert.Equal(t, entity.RelationLivesIn, filtered.Edges[0].Type)
}

func TestExportMermaid(t *testing.T) {
	out := ExportMermaid(testGraph())

	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, `Alice["Alice"]`)
	// 名称中的非标识符字符被替换
	assert.Contains(t, out, `Il_Faro["Il Faro"]`)
	assert.Contains(t, out, "Alice -->|LOVES| Bob")
	assert.Contains(t, out, "Bob -->|LIVES_IN| Il_Faro")
}

func TestExportDOT(t *testing.T) {
	out := ExportDOT(testGraph())

	assert.Contains(t, out, "digraph story {")
	assert.Contains(t, out, `Alice [label="Alice", shape=ellipse];`)
	assert.Contains(t, out, `Il_Faro [label="Il Faro", shape=box];`)
	assert.Contains(t, out, `Alice -> Bob [label="LOVES"];`)
	assert.Contains(t, out, "}\n")
}

func TestExportD3(t *testing.T) {
	out := ExportD3(testGraph())

	require.Len(t, out.Nodes, 3)
	require.Len(t, out.Links, 2)

	assert.Equal(t, "Alice", out.Nodes[0].ID)
	assert.Equal(t, 1, out.Nodes[0].Group)
	assert.Equal(t, 2, out.Nodes[2].Group)

	assert.Equal(t, "Alice", out.Links[0].Source)
	assert.Equal(t, "Bob", out.Links[0].Target)
	assert.Equal(t, 0.9, out.Links[0].Weight)
}

func TestExportEmptyGraph(t *testing.T) {
	g := &Graph{}

	assert.Equal(t, "graph TD\n", ExportMermaid(g))
	assert.Equal(t, "digraph story {\n}\n", ExportDOT(g))

	d3 := ExportD3(g)
	assert.Empty(t, d3.Nodes)
	assert.Empty(t, d3.Links)
}
