package driver

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/nihei9/rulegen/source"
)

type NodeType int

const (
	NodeTypeTerminal    = NodeType(1)
	NodeTypeNonTerminal = NodeType(2)
)

// Node is a node of a concrete syntax tree.
type Node struct {
	Type     NodeType
	KindName string
	Text     string
	Span     *source.Span
	Children []*Node
}

func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.Type {
	case NodeTypeTerminal:
		return json.Marshal(struct {
			Type     NodeType     `json:"type"`
			KindName string       `json:"kind_name"`
			Text     string       `json:"text"`
			Span     *source.Span `json:"span,omitempty"`
		}{
			Type:     n.Type,
			KindName: n.KindName,
			Text:     n.Text,
			Span:     n.Span,
		})
	case NodeTypeNonTerminal:
		return json.Marshal(struct {
			Type     NodeType `json:"type"`
			KindName string   `json:"kind_name"`
			Children []*Node  `json:"children"`
		}{
			Type:     n.Type,
			KindName: n.KindName,
			Children: n.Children,
		})
	default:
		return nil, fmt.Errorf("invalid node type: %v", n.Type)
	}
}

// TreeHandler builds a syntax tree instead of a domain value. Bound to every
// nonterminal, it makes the start symbol's value the root *Node.
func TreeHandler(nonterminal string, alt int, names []string, values []any) (any, error) {
	children := make([]*Node, len(values))
	for i, v := range values {
		switch c := v.(type) {
		case *Node:
			children[i] = c
		case source.Token:
			span := c.Span
			children[i] = &Node{
				Type:     NodeTypeTerminal,
				KindName: names[i],
				Text:     c.Text,
				Span:     &span,
			}
		case string:
			children[i] = &Node{
				Type:     NodeTypeTerminal,
				KindName: names[i],
				Text:     c,
			}
		default:
			return nil, fmt.Errorf("%v is not a tree node: %T", names[i], v)
		}
	}
	return &Node{
		Type:     NodeTypeNonTerminal,
		KindName: nonterminal,
		Children: children,
	}, nil
}

// PrintTree prints a syntax tree whose root is `node`.
func PrintTree(w io.Writer, node *Node) {
	printTree(w, node, "", "")
}

func printTree(w io.Writer, node *Node, ruledLine string, childRuledLinePrefix string) {
	if node == nil {
		return
	}

	switch node.Type {
	case NodeTypeTerminal:
		fmt.Fprintf(w, "%v%v %v\n", ruledLine, node.KindName, strconv.Quote(node.Text))
	case NodeTypeNonTerminal:
		fmt.Fprintf(w, "%v%v\n", ruledLine, node.KindName)

		num := len(node.Children)
		for i, child := range node.Children {
			var line string
			if num > 1 && i < num-1 {
				line = "├─ "
			} else {
				line = "└─ "
			}

			var prefix string
			if i >= num-1 {
				prefix = "   "
			} else {
				prefix = "│  "
			}

			printTree(w, child, childRuledLinePrefix+line, childRuledLinePrefix+prefix)
		}
	}
}
