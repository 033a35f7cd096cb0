package comments

import "devstudio/internal/models"

// RemoveSubtree returns a copy of nodes without the node whose ID is id and
// without everything below it. Every surviving node has its replies filtered
// the same way, so the result is correct at any depth. The input is not
// modified. removed reports whether id was found.
func RemoveSubtree(nodes []models.Comment, id string) (out []models.Comment, removed bool) {
	out = make([]models.Comment, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == id {
			removed = true
			continue
		}
		if len(n.Replies) > 0 {
			replies, r := RemoveSubtree(n.Replies, id)
			n.Replies = replies
			removed = removed || r
		}
		out = append(out, n)
	}
	return out, removed
}

// SubtreeIDs lists id and every descendant id found in nodes.
func SubtreeIDs(nodes []models.Comment, id string) []string {
	for _, n := range nodes {
		if n.ID == id {
			return collectIDs([]models.Comment{n}, nil)
		}
		if ids := SubtreeIDs(n.Replies, id); ids != nil {
			return ids
		}
	}
	return nil
}

func collectIDs(nodes []models.Comment, acc []string) []string {
	for _, n := range nodes {
		acc = append(acc, n.ID)
		acc = collectIDs(n.Replies, acc)
	}
	return acc
}

// Count returns the number of nodes in the forest.
func Count(nodes []models.Comment) int {
	total := 0
	for _, n := range nodes {
		total += 1 + Count(n.Replies)
	}
	return total
}

// index maps every comment id in the tree to its parent id ("" for top level).
type index map[string]string

func buildIndex(nodes []models.Comment) index {
	idx := make(index)
	var walk func(nodes []models.Comment, parent string)
	walk = func(nodes []models.Comment, parent string) {
		for _, n := range nodes {
			idx[n.ID] = parent
			walk(n.Replies, n.ID)
		}
	}
	walk(nodes, "")
	return idx
}

func (idx index) has(id string) bool {
	_, ok := idx[id]
	return ok
}

// cloneTree deep-copies nodes so callers never share backing arrays with the
// controller.
func cloneTree(nodes []models.Comment) []models.Comment {
	if nodes == nil {
		return nil
	}
	out := make([]models.Comment, len(nodes))
	for i, n := range nodes {
		n.Replies = cloneTree(n.Replies)
		out[i] = n
	}
	return out
}
