package graph

import (
	"fmt"
	"regexp"
	"strings"

	"echoes-index-api/internal/domain/entity"
)

var identSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// sanitizeID 将实体名转为图标识符
func sanitizeID(name string) string {
	id := identSanitizer.ReplaceAllString(name, "_")
	if id == "" {
		id = "node"
	}
	return id
}

// ExportMermaid 导出 Mermaid 有向图
func ExportMermaid(g *Graph) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range g.Nodes {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", sanitizeID(node.Name), node.Name)
	}
	for _, edge := range g.Edges {
		fmt.Fprintf(&sb, "    %s -->|%s| %s\n",
			sanitizeID(edge.SourceEntity), edge.Type, sanitizeID(edge.TargetEntity))
	}

	return sb.String()
}

// D3Node 节点的 node/link JSON 编码
type D3Node struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Group int    `json:"group"`
}

// D3Link 边的 node/link JSON 编码
type D3Link struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// D3Graph node/link JSON 图编码
type D3Graph struct {
	Nodes []D3Node `json:"nodes"`
	Links []D3Link `json:"links"`
}

// entityGroup 实体类型到分组编号的映射
func entityGroup(t entity.StoryEntityType) int {
	switch t {
	case entity.EntityTypeCharacter:
		return 1
	case entity.EntityTypeLocation:
		return 2
	default:
		return 3
	}
}

// ExportD3 导出 D3 node/link JSON 结构
func ExportD3(g *Graph) *D3Graph {
	out := &D3Graph{
		Nodes: make([]D3Node, 0, len(g.Nodes)),
		Links: make([]D3Link, 0, len(g.Edges)),
	}

	for _, node := range g.Nodes {
		out.Nodes = append(out.Nodes, D3Node{
			ID:    node.Name,
			Name:  node.Name,
			Type:  string(node.Type),
			Group: entityGroup(node.Type),
		})
	}
	for _, edge := range g.Edges {
		out.Links = append(out.Links, D3Link{
			Source: edge.SourceEntity,
			Target: edge.TargetEntity,
			Type:   string(edge.Type),
			Weight: edge.Weight,
		})
	}

	return out
}

// entityShape 实体类型到 DOT 节点形状的映射
func entityShape(t entity.StoryEntityType) string {
	switch t {
	case entity.EntityTypeCharacter:
		return "ellipse"
	case entity.EntityTypeLocation:
		return "box"
	default:
		return "diamond"
	}
}

// ExportDOT 导出 Graphviz DOT 有向图
func ExportDOT(g *Graph) string {
	var sb strings.Builder
	sb.WriteString("digraph story {\n")

	for _, node := range g.Nodes {
		fmt.Fprintf(&sb, "    %s [label=\"%s\", shape=%s];\n",
			sanitizeID(node.Name), node.Name, entityShape(node.Type))
	}
	for _, edge := range g.Edges {
		fmt.Fprintf(&sb, "    %s -> %s [label=\"%s\"];\n",
			sanitizeID(edge.SourceEntity), sanitizeID(edge.TargetEntity), edge.Type)
	}

	sb.WriteString("}\n")
	return sb.String()
}
