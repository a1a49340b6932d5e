// YAML export of a reconstructed trace tree
package tracetree

import (
	"time"

	"gopkg.in/yaml.v3"
)

// ExportNode is the YAML-facing shape of one span and its children.
type ExportNode struct {
	SpanID   string       `yaml:"span_id"`
	Task     string       `yaml:"task"`
	Start    string       `yaml:"start"`
	Duration string       `yaml:"duration"`
	Error    string       `yaml:"error,omitempty"`
	Labels   string       `yaml:"labels,omitempty"`
	Children []ExportNode `yaml:"children,omitempty"`
}

type exportDoc struct {
	TraceID string       `yaml:"trace_id"`
	Spans   int          `yaml:"spans"`
	Root    ExportNode   `yaml:"root"`
	Orphans []ExportNode `yaml:"orphans,omitempty"`
}

// MarshalYAML serialises the tree as a nested YAML document, children in the
// same sorted order the renderers use.
func MarshalYAML(tree *Tree) ([]byte, error) {
	doc := exportDoc{
		TraceID: tree.TraceID,
		Spans:   tree.SpanCount(),
		Root:    exportNode(tree.Root),
	}
	for _, o := range tree.Orphans {
		doc.Orphans = append(doc.Orphans, exportNode(o))
	}
	return yaml.Marshal(doc)
}

func exportNode(node *Node) ExportNode {
	out := ExportNode{
		SpanID:   node.Span.SpanID,
		Task:     node.Span.Task,
		Start:    node.Span.StartTime.Time().Format(time.RFC3339Nano),
		Duration: FormatDistribution([]time.Duration{time.Duration(node.Span.ExecutionDurationMs * float64(time.Millisecond))}),
	}
	if node.Span.IsError() {
		out.Error = *node.Span.ErrorMessage
	}
	if len(node.Span.Labels) > 0 {
		out.Labels = FormatLabels(node.Span.Labels)
	}
	for _, child := range node.Children {
		out.Children = append(out.Children, exportNode(child))
	}
	return out
}
