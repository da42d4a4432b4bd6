package domain

// HierarchyRoot is the sentinel parent at the top of the reference gene
// hierarchy.
const HierarchyRoot = "AMR"

// GeneHierarchy maps a hierarchy node to its parent node.
type GeneHierarchy struct {
	parents map[string]string
}

// NewGeneHierarchy copies the node to parent mapping.
func NewGeneHierarchy(parents map[string]string) *GeneHierarchy {
	h := &GeneHierarchy{parents: make(map[string]string, len(parents))}
	for node, parent := range parents {
		h.parents[node] = parent
	}
	return h
}

// Parent returns the parent of node.
func (h *GeneHierarchy) Parent(node string) (string, bool) {
	if h == nil {
		return "", false
	}
	p, ok := h.parents[node]
	return p, ok
}

// Ancestors returns the parents of node, nearest first. The walk stops at
// the root sentinel, at a node without a known parent, or when a node
// repeats.
func (h *GeneHierarchy) Ancestors(node string) []string {
	if h == nil {
		return nil
	}
	var out []string
	seen := map[string]bool{node: true}
	for {
		parent, ok := h.parents[node]
		if !ok || IsUnset(parent) || parent == HierarchyRoot || seen[parent] {
			return out
		}
		out = append(out, parent)
		seen[parent] = true
		node = parent
	}
}

// Len returns the number of nodes with a recorded parent.
func (h *GeneHierarchy) Len() int {
	if h == nil {
		return 0
	}
	return len(h.parents)
}
