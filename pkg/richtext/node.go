// Package richtext converts Manifold rich-text documents (TipTap/ProseMirror
// JSON trees) into plain readable text.
//
// Comment bodies on Manifold are nested node trees:
//
//	{"type": "doc", "content": [
//		{"type": "paragraph", "content": [
//			{"type": "mention", "attrs": {"label": "vluzko"}},
//			{"type": "text", "text": " hi"}
//		]}
//	]}
//
// Extraction is best effort. Unknown node types and malformed fields never
// produce an error; they degrade to empty text.
package richtext

import (
	"encoding/json"
	"fmt"
)

// Node is one element of a rich-text tree. The concrete type is always one
// of Text, Sequence, *Element or Other.
type Node interface {
	isNode()
}

// Text is a bare string in the tree, rendered verbatim.
type Text string

// Sequence is an ordered list of nodes rendered back to back.
type Sequence []Node

// Element is a structured node carrying a type tag.
type Element struct {
	// Type is the node tag ("doc", "paragraph", "text", "mention", ...).
	// The vocabulary is open; unknown tags are expected.
	Type string

	// Text is the literal text of "text" nodes.
	Text string

	// Content holds child nodes. A nil slice means the node has no content
	// field; an empty non-nil slice means the field is present but empty.
	Content []Node

	// Attrs holds node attributes such as mention labels and image sources.
	Attrs map[string]any
}

// Other is any value that is not a string, list or object (numbers, booleans,
// nulls nested inside the tree).
type Other struct{}

func (Text) isNode()     {}
func (Sequence) isNode() {}
func (*Element) isNode() {}
func (Other) isNode()    {}

// attr returns attrs[key] if it is a string, "" otherwise.
func (e *Element) attr(key string) string {
	if e.Attrs == nil {
		return ""
	}
	s, _ := e.Attrs[key].(string)
	return s
}

// FromValue converts a value decoded by encoding/json into a Node.
// A nil value yields a nil Node.
func FromValue(v any) Node {
	if v == nil {
		return nil
	}
	return fromValue(v)
}

func fromValue(v any) Node {
	switch val := v.(type) {
	case string:
		return Text(val)
	case []any:
		seq := make(Sequence, len(val))
		for i, child := range val {
			seq[i] = fromValue(child)
		}
		return seq
	case map[string]any:
		return elementFromMap(val)
	default:
		return Other{}
	}
}

func elementFromMap(m map[string]any) *Element {
	el := &Element{}
	el.Type, _ = m["type"].(string)
	el.Text, _ = m["text"].(string)
	el.Attrs, _ = m["attrs"].(map[string]any)

	switch content := m["content"].(type) {
	case nil:
		// absent or null
	case []any:
		el.Content = make([]Node, len(content))
		for i, child := range content {
			el.Content[i] = fromValue(child)
		}
	default:
		el.Content = []Node{fromValue(content)}
	}
	return el
}

// Parse decodes a JSON document into a Node. A JSON null yields a nil Node.
func Parse(data []byte) (Node, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode rich text: %w", err)
	}
	return FromValue(v), nil
}

// Document is a rich-text field embedded in an API object.
type Document struct {
	Root Node
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	root, err := Parse(data)
	if err != nil {
		return err
	}
	d.Root = root
	return nil
}

// Text returns the plain text of the document.
func (d Document) Text() string {
	return Extract(d.Root)
}

// IsEmpty reports whether the document has no root node.
func (d Document) IsEmpty() bool {
	return d.Root == nil
}
