package richtext

import (
	"strings"
)

// Node type tags with dedicated rendering rules.
const (
	TypeDoc         = "doc"
	TypeText        = "text"
	TypeMention     = "mention"
	TypeImage       = "image"
	TypeHardBreak   = "hardBreak"
	TypeBulletList  = "bulletList"
	TypeOrderedList = "orderedList"
	TypeListItem    = "listItem"
)

// BulletMarker prefixes every rendered list item.
const BulletMarker = "• "

// Extract renders root as plain text with surrounding whitespace trimmed.
// A nil root yields "".
func Extract(root Node) string {
	if root == nil {
		return ""
	}
	return strings.TrimSpace(walk(root))
}

// ExtractJSON decodes data and renders it. Invalid JSON yields "".
func ExtractJSON(data []byte) string {
	root, err := Parse(data)
	if err != nil {
		return ""
	}
	return Extract(root)
}

func walk(node Node) string {
	switch n := node.(type) {
	case Text:
		return string(n)
	case Sequence:
		var b strings.Builder
		for _, child := range n {
			b.WriteString(walk(child))
		}
		return b.String()
	case *Element:
		if n == nil {
			return ""
		}
		return walkElement(n)
	case Other:
		return ""
	default:
		return ""
	}
}

func walkElement(el *Element) string {
	switch el.Type {
	case TypeText:
		return el.Text
	case TypeMention:
		return "@" + el.attr("label")
	case TypeImage:
		return "[image: " + el.attr("src") + "]"
	case TypeHardBreak:
		return "\n"
	}

	// Links carry no text of their own. Their text lives on child text nodes
	// with link marks, so "link" is rendered as a plain container.
	if el.Content == nil {
		return ""
	}

	parts := make([]string, len(el.Content))
	for i, child := range el.Content {
		parts[i] = walk(child)
	}

	switch el.Type {
	case TypeDoc, TypeBulletList, TypeOrderedList:
		return strings.Join(parts, "\n")
	case TypeListItem:
		return BulletMarker + strings.Join(parts, " ")
	default:
		return strings.Join(parts, " ")
	}
}
