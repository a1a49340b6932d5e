// ASCII tree rendering of a reconstructed trace
package tracetree

import (
	"fmt"
	"io"
)

// WriteTree renders the trace as an indented ASCII tree, one line per span in
// pre-order. Each line has the form <indent><connector>[span_id] <detail>,
// where detail comes from format. Orphan subtrees are rendered after the root
// so every span in the dataset appears.
func WriteTree(w io.Writer, tree *Tree, format func(s *Span) string) {
	if tree == nil {
		return
	}
	writeNode(w, tree.Root, "", true, format)
	for _, orphan := range tree.Orphans {
		_, _ = fmt.Fprintf(w, "(orphaned: parent %s not reachable)\n", *orphan.Span.ParentSpanID)
		writeNode(w, orphan, "", true, format)
	}
}

func writeNode(w io.Writer, node *Node, indent string, isLast bool, format func(s *Span) string) {
	if node == nil {
		return
	}

	connector := "├── "
	if isLast {
		connector = "└── "
	}
	if indent == "" {
		connector = "" // root prints flush
	}

	_, _ = fmt.Fprintf(w, "%s%s[%s] %s\n", indent, connector, node.Span.SpanID, format(&node.Span))

	childIndent := indent + "│ "
	if isLast {
		childIndent = indent + "  "
	}
	for i, child := range node.Children {
		writeNode(w, child, childIndent, i == len(node.Children)-1, format)
	}
}
