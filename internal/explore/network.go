package explore

import "github.com/TobiSchelling/refexplorer/internal/catalog"

// GraphNode is an item or a creator in the co-authorship graph.
type GraphNode struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	IsItem bool   `json:"isItem"`
}

// GraphEdge links an item (Source) to one of its creators (Target).
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the bipartite item/creator graph.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Network builds the item/creator graph. Creators are identified by display
// name, so two people sharing a name become one node. Nodes appear in first
// seen order; edges are one per creator entry and are not deduplicated.
func Network(items []catalog.Item) Graph {
	g := Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	seen := make(map[string]struct{})

	addNode := func(n GraphNode) {
		if _, ok := seen[n.ID]; ok {
			return
		}
		seen[n.ID] = struct{}{}
		g.Nodes = append(g.Nodes, n)
	}

	for _, it := range items {
		addNode(GraphNode{ID: it.Key, Title: it.Title, IsItem: true})
		for _, c := range it.Creators {
			name := c.DisplayName()
			if name == "" {
				continue
			}
			addNode(GraphNode{ID: name})
			g.Edges = append(g.Edges, GraphEdge{Source: it.Key, Target: name})
		}
	}
	return g
}
