// Trace tree reconstruction from flat span lists
// Links children to parents via span IDs and orders siblings by start time
package tracetree

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Node wraps a Span with its children in the trace tree.
type Node struct {
	Span     Span
	Children []*Node
}

// Tree is the reconstructed hierarchy of one trace. Orphans holds spans whose
// parent is not in the dataset or whose parent references form a cycle, each
// with its own intact subtree; they are kept so that every supplied span
// still appears in rendered output.
type Tree struct {
	TraceID string
	Root    *Node
	Orphans []*Node
}

// ErrNoSpans is returned by Build when the input is empty.
var ErrNoSpans = errors.New("no spans to build a trace from")

// TopologyError reports a trace whose root count is not exactly one.
type TopologyError struct {
	TraceID string
	Roots   []string // span IDs with no parent reference
}

func (e *TopologyError) Error() string {
	if len(e.Roots) == 0 {
		return fmt.Sprintf("trace %s has no root span (every span names a parent)", e.TraceID)
	}
	return fmt.Sprintf("trace %s has %d root spans: %s", e.TraceID, len(e.Roots), strings.Join(e.Roots, ", "))
}

// Build reconstructs the trace tree from a flat, unordered span list.
// All spans must belong to one trace; filtering is the caller's job.
//
// Exactly one span must have no parent, otherwise Build returns a
// *TopologyError. Spans whose parent is missing from the dataset are not
// dropped: each becomes an orphan root on the returned tree, and a warning
// is written to w (may be nil). Spans caught in a parent-reference cycle are
// likewise promoted to orphans, with the cycle edge removed so the subtree
// stays walkable. Children are sorted by start time, so sibling order is
// deterministic and reflects temporal sequence.
func Build(spans []Span, w io.Writer) (*Tree, error) {
	if len(spans) == 0 {
		return nil, ErrNoSpans
	}

	// Index nodes by span ID
	nodes := make(map[string]*Node, len(spans))
	allNodes := make([]*Node, 0, len(spans))
	for _, s := range spans {
		node := &Node{Span: s}
		nodes[s.SpanID] = node
		allNodes = append(allNodes, node)
	}

	// Link children to parents
	var roots []*Node
	var orphans []*Node
	traceID := spans[0].TraceID
	for _, node := range allNodes {
		if node.Span.ParentSpanID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*node.Span.ParentSpanID]
		if !ok {
			// Broken parent reference: keep the subtree as an orphan
			if w != nil {
				_, _ = fmt.Fprintf(w, "warning: span %s in trace %s has parent %s not found in dataset, keeping as orphan\n",
					node.Span.SpanID, traceID, *node.Span.ParentSpanID)
			}
			orphans = append(orphans, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	if len(roots) != 1 {
		ids := make([]string, len(roots))
		for i, r := range roots {
			ids[i] = r.Span.SpanID
		}
		return nil, &TopologyError{TraceID: traceID, Roots: ids}
	}

	root := roots[0]

	// Anything not reachable from the root or an orphan sits in a parent
	// cycle. Promote the first such span (input order) to an orphan and cut
	// its parent edge, then re-mark; repeat until every span is reachable.
	reachable := make(map[*Node]bool, len(allNodes))
	markReachable(root, reachable)
	for _, o := range orphans {
		markReachable(o, reachable)
	}
	for _, node := range allNodes {
		if reachable[node] {
			continue
		}
		parent := nodes[*node.Span.ParentSpanID]
		parent.Children = slices.DeleteFunc(parent.Children, func(n *Node) bool { return n == node })
		if w != nil {
			_, _ = fmt.Fprintf(w, "warning: span %s in trace %s is in a parent cycle, keeping as orphan\n",
				node.Span.SpanID, traceID)
		}
		orphans = append(orphans, node)
		markReachable(node, reachable)
	}

	tree := &Tree{TraceID: traceID, Root: root, Orphans: orphans}
	sortChildren(tree.Root)
	for _, o := range tree.Orphans {
		sortChildren(o)
	}
	return tree, nil
}

// markReachable marks node and its subtree as seen. The guard also stops the
// walk on not-yet-broken cycle edges.
func markReachable(node *Node, seen map[*Node]bool) {
	if seen[node] {
		return
	}
	seen[node] = true
	for _, child := range node.Children {
		markReachable(child, seen)
	}
}

// sortChildren orders each node's children by start time, recursively.
func sortChildren(node *Node) {
	slices.SortStableFunc(node.Children, func(a, b *Node) int {
		return a.Span.StartTime.Time().Compare(b.Span.StartTime.Time())
	})
	for _, child := range node.Children {
		sortChildren(child)
	}
}

// spanCount returns the number of nodes in the subtree rooted at node.
func spanCount(node *Node) int {
	n := 1
	for _, child := range node.Children {
		n += spanCount(child)
	}
	return n
}

// SpanCount returns the total number of spans in the tree, orphans included.
func (t *Tree) SpanCount() int {
	n := spanCount(t.Root)
	for _, o := range t.Orphans {
		n += spanCount(o)
	}
	return n
}
