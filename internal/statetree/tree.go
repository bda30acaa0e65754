package statetree

import "strings"

// NodeID addresses a node inside one Tree. IDs are not stable across
// compaction and must not be held outside the owner's lock.
type NodeID int

const NoNode NodeID = -1

// Detached slots are reclaimed once more than this many accumulate and they
// outnumber the attached nodes.
const compactThreshold = 4096

type node struct {
	tag      string
	attrs    []Attr
	children []NodeID
	parent   NodeID
	attached bool
}

type nodeKey struct {
	tag  string
	uuid string
}

// Tree is an arena-backed element tree indexed by (tag, uuid). Nodes without
// a uuid attribute are not indexed. Tree is not safe for concurrent use.
type Tree struct {
	nodes    []node
	root     NodeID
	index    map[nodeKey][]NodeID
	detached int
}

// NewTree copies root into a fresh arena.
func NewTree(root *Fragment) *Tree {
	t := &Tree{root: NoNode, index: make(map[nodeKey][]NodeID)}
	if root != nil {
		t.root = t.add(NoNode, root)
	}
	return t
}

// NewTreeFromSnapshot parses a full-state snapshot and roots the tree at its
// first source_state element.
func NewTreeFromSnapshot(raw string) (*Tree, error) {
	f, err := ParseFragment(raw)
	if err != nil {
		return nil, err
	}
	state := f.Find("source_state")
	if state == nil {
		return nil, ErrNoSourceState
	}
	return NewTree(state), nil
}

func (t *Tree) add(parent NodeID, f *Fragment) NodeID {
	id := NodeID(len(t.nodes))
	attrs := make([]Attr, len(f.Attrs))
	copy(attrs, f.Attrs)
	t.nodes = append(t.nodes, node{tag: f.Tag, attrs: attrs, parent: parent, attached: true})
	t.indexNode(id)
	children := make([]NodeID, 0, len(f.Children))
	for _, c := range f.Children {
		children = append(children, t.add(id, c))
	}
	t.nodes[id].children = children
	return id
}

func (t *Tree) uuidOf(id NodeID) string {
	for _, a := range t.nodes[id].attrs {
		if a.Name == "uuid" {
			return a.Value
		}
	}
	return ""
}

func (t *Tree) indexNode(id NodeID) {
	uuid := t.uuidOf(id)
	if uuid == "" {
		return
	}
	k := nodeKey{tag: t.nodes[id].tag, uuid: uuid}
	t.index[k] = append(t.index[k], id)
}

func (t *Tree) unindexNode(id NodeID) {
	uuid := t.uuidOf(id)
	if uuid == "" {
		return
	}
	k := nodeKey{tag: t.nodes[id].tag, uuid: uuid}
	ids := t.index[k]
	for i, v := range ids {
		if v == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(t.index, k)
		return
	}
	t.index[k] = ids
}

func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes) && t.nodes[id].attached
}

// Root returns the root node, or NoNode for an empty tree.
func (t *Tree) Root() NodeID {
	return t.root
}

// Len returns the number of attached nodes.
func (t *Tree) Len() int {
	return len(t.nodes) - t.detached
}

func (t *Tree) Tag(id NodeID) string {
	if !t.valid(id) {
		return ""
	}
	return t.nodes[id].tag
}

// Attr returns the named attribute; name is matched case-insensitively.
func (t *Tree) Attr(id NodeID, name string) (string, bool) {
	if !t.valid(id) {
		return "", false
	}
	name = strings.ToLower(name)
	for _, a := range t.nodes[id].attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or appends an attribute, keeping the uuid index current.
func (t *Tree) SetAttr(id NodeID, name, value string) {
	if !t.valid(id) {
		return
	}
	name = strings.ToLower(name)
	if name == "uuid" {
		t.unindexNode(id)
		defer t.indexNode(id)
	}
	n := &t.nodes[id]
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Name: name, Value: value})
}

func (t *Tree) Children(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	out := make([]NodeID, len(t.nodes[id].children))
	copy(out, t.nodes[id].children)
	return out
}

func (t *Tree) Parent(id NodeID) NodeID {
	if !t.valid(id) {
		return NoNode
	}
	return t.nodes[id].parent
}

// Lookup returns every attached node with the given tag and uuid.
func (t *Tree) Lookup(tag, uuid string) []NodeID {
	if uuid == "" {
		return nil
	}
	ids := t.index[nodeKey{tag: strings.ToLower(tag), uuid: uuid}]
	out := make([]NodeID, len(ids))
	copy(out, ids)
	return out
}

// FindAll returns the descendants of from with the given tag in document
// order. from itself is not included.
func (t *Tree) FindAll(from NodeID, tag string) []NodeID {
	if !t.valid(from) {
		return nil
	}
	var out []NodeID
	t.walk(from, func(id NodeID) {
		if id != from && t.nodes[id].tag == tag {
			out = append(out, id)
		}
	})
	return out
}

// FindFirst returns the first descendant of from with the given tag.
func (t *Tree) FindFirst(from NodeID, tag string) (NodeID, bool) {
	found := t.FindAll(from, tag)
	if len(found) == 0 {
		return NoNode, false
	}
	return found[0], true
}

func (t *Tree) walk(id NodeID, fn func(NodeID)) {
	fn(id)
	for _, c := range t.nodes[id].children {
		t.walk(c, fn)
	}
}

// Insert copies f under parent at index. A negative or out-of-range index
// appends.
func (t *Tree) Insert(parent NodeID, index int, f *Fragment) NodeID {
	if !t.valid(parent) || f == nil {
		return NoNode
	}
	id := t.add(parent, f)
	p := &t.nodes[parent]
	if index < 0 || index >= len(p.children) {
		p.children = append(p.children, id)
		return id
	}
	p.children = append(p.children, NoNode)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = id
	return id
}

// Detach removes id and its subtree. The root cannot be detached.
func (t *Tree) Detach(id NodeID) bool {
	if !t.valid(id) || id == t.root {
		return false
	}
	parent := t.nodes[id].parent
	if t.valid(parent) {
		siblings := t.nodes[parent].children
		for i, c := range siblings {
			if c == id {
				t.nodes[parent].children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	t.walk(id, func(n NodeID) {
		t.unindexNode(n)
		t.nodes[n].attached = false
		t.detached++
	})
	t.nodes[id].parent = NoNode
	if t.detached > compactThreshold && t.detached > t.Len() {
		t.compact()
	}
	return true
}

func (t *Tree) compact() {
	fresh := NewTree(t.Fragment(t.root))
	*t = *fresh
}

// Fragment copies the subtree rooted at id out of the arena.
func (t *Tree) Fragment(id NodeID) *Fragment {
	if !t.valid(id) {
		return nil
	}
	n := t.nodes[id]
	f := &Fragment{Tag: n.tag, Attrs: make([]Attr, len(n.attrs))}
	copy(f.Attrs, n.attrs)
	for _, c := range n.children {
		f.Children = append(f.Children, t.Fragment(c))
	}
	return f
}

// Equal compares the attached trees structurally.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Fragment(t.root).Equal(other.Fragment(other.root))
}

func (t *Tree) String() string {
	f := t.Fragment(t.root)
	if f == nil {
		return ""
	}
	return f.String()
}
