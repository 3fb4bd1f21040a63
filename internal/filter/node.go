// Package filter decides which regions and dates of a forecast are kept.
//
// A region filter is a tree of Nodes walked level by level along the
// administrative path province, city, district. A Leaf node ends the walk
// (its labels cover the whole subtree below them), a Branch node recurses
// into a child node per label and an Unbounded node matches everything from
// its level down.
package filter

import (
	"fmt"
	"sort"
)

// Kind tells the three node shapes apart. The zero Kind is invalid so that a
// Node built by hand without a constructor is reported instead of silently
// matching.
type Kind uint8

const (
	kindInvalid Kind = iota
	KindUnbounded
	KindLeaf
	KindBranch
)

func (k Kind) String() string {
	switch k {
	case KindUnbounded:
		return "unbounded"
	case KindLeaf:
		return "leaf"
	case KindBranch:
		return "branch"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Node is one level of a region filter. A nil *Node is Unbounded.
type Node struct {
	kind   Kind
	leaf   map[string]struct{}
	branch map[string]*Node
}

// Unbounded returns a node matching every label at its level and below.
func Unbounded() *Node {
	return &Node{kind: KindUnbounded}
}

// Leaf returns a node matching exactly the given labels, with no finer
// structure below them.
func Leaf(labels ...string) *Node {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return &Node{kind: KindLeaf, leaf: set}
}

// Branch returns a node matching the keys of children and recursing into the
// node stored under each key. A nil child is Unbounded.
func Branch(children map[string]*Node) *Node {
	branch := make(map[string]*Node, len(children))
	for k, v := range children {
		branch[k] = v
	}
	return &Node{kind: KindBranch, branch: branch}
}

// Kind returns the shape of n.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindUnbounded
	}
	return n.kind
}

// Empty reports whether n is a Leaf or Branch without any label.
func (n *Node) Empty() bool {
	switch n.Kind() {
	case KindLeaf:
		return len(n.leaf) == 0
	case KindBranch:
		return len(n.branch) == 0
	default:
		return false
	}
}

// lookup reports whether label is present in n and returns the node to
// continue the walk with. The child is only meaningful for Branch nodes.
func (n *Node) lookup(label string) (child *Node, ok bool) {
	switch n.Kind() {
	case KindLeaf:
		_, ok = n.leaf[label]
		return nil, ok
	case KindBranch:
		child, ok = n.branch[label]
		return child, ok
	default:
		return nil, false
	}
}

// Labels returns the labels present at this level, sorted.
func (n *Node) Labels() []string {
	var labels []string
	switch n.Kind() {
	case KindLeaf:
		for l := range n.leaf {
			labels = append(labels, l)
		}
	case KindBranch:
		for l := range n.branch {
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)
	return labels
}

// Validate walks the whole tree and returns a *FilterSpecError for the first
// node that has no valid shape.
func (n *Node) Validate() error {
	return n.validate(nil)
}

func (n *Node) validate(path []string) error {
	switch n.Kind() {
	case KindUnbounded, KindLeaf:
		return nil
	case KindBranch:
		for _, label := range n.Labels() {
			if err := n.branch[label].validate(append(path, label)); err != nil {
				return err
			}
		}
		return nil
	default:
		return &FilterSpecError{Path: append([]string(nil), path...), Reason: "node has no shape, build it with Unbounded, Leaf or Branch"}
	}
}

// ParseNode converts a generic decoded value (from YAML or JSON) into a Node.
// nil becomes Unbounded, a list of strings becomes a Leaf and a string-keyed
// mapping becomes a Branch. Any other value is a *FilterSpecError.
func ParseNode(v any) (*Node, error) {
	return parseNode(v, nil)
}

func parseNode(v any, path []string) (*Node, error) {
	switch val := v.(type) {
	case nil:
		return Unbounded(), nil
	case []string:
		return Leaf(val...), nil
	case []any:
		labels := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, &FilterSpecError{
					Path:   append([]string(nil), path...),
					Reason: fmt.Sprintf("set member %d is %T, want string", i, item),
				}
			}
			labels = append(labels, s)
		}
		return Leaf(labels...), nil
	case map[string]any:
		children := make(map[string]*Node, len(val))
		for key, raw := range val {
			child, err := parseNode(raw, append(path, key))
			if err != nil {
				return nil, err
			}
			children[key] = child
		}
		return Branch(children), nil
	case map[any]any:
		children := make(map[string]*Node, len(val))
		for rawKey, raw := range val {
			key, ok := rawKey.(string)
			if !ok {
				return nil, &FilterSpecError{
					Path:   append([]string(nil), path...),
					Reason: fmt.Sprintf("mapping key %v is %T, want string", rawKey, rawKey),
				}
			}
			child, err := parseNode(raw, append(path, key))
			if err != nil {
				return nil, err
			}
			children[key] = child
		}
		return Branch(children), nil
	default:
		return nil, &FilterSpecError{
			Path:   append([]string(nil), path...),
			Reason: fmt.Sprintf("value %v is %T, want null, a list or a mapping", v, v),
		}
	}
}
