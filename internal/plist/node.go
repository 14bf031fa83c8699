package plist

// Kind identifies the variant of a Node.
type Kind int

const (
	KindDict Kind = iota
	KindArray
	KindString
	KindOther
)

// Pair is one key/value entry of a dict node. Keys are always strings and
// the pairing is structural, so document order survives decode and encode.
type Pair struct {
	Key   string
	Value *Node
}

// Node is one element of a decoded property-list tree.
type Node struct {
	Kind  Kind
	Pairs []Pair  // KindDict
	Items []*Node // KindArray
	Value string  // KindString text; KindOther raw text
	Tag   string  // KindOther element name (integer, real, data, date, true, false)
}

// Get returns the value for a direct key of a dict node, or nil.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != KindDict {
		return nil
	}
	for _, p := range n.Pairs {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// Has reports whether a dict node has a direct key.
func (n *Node) Has(key string) bool {
	return n.Get(key) != nil
}

// Walk visits n and every descendant in document order.
func (n *Node) Walk(visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	switch n.Kind {
	case KindDict:
		for _, p := range n.Pairs {
			p.Value.Walk(visit)
		}
	case KindArray:
		for _, item := range n.Items {
			item.Walk(visit)
		}
	}
}

// StringValue returns the text of a string node, or "" for any other kind.
func (n *Node) StringValue() string {
	if n == nil || n.Kind != KindString {
		return ""
	}
	return n.Value
}
