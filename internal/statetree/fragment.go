package statetree

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrEmptyFragment     = errors.New("statetree: empty fragment")
	ErrMultipleRoots     = errors.New("statetree: fragment has more than one root element")
	ErrMalformedFragment = errors.New("statetree: malformed fragment")
	ErrNoSourceState     = errors.New("statetree: snapshot has no source_state element")
)

// Attr is one element attribute. Names are lower-cased at parse time.
type Attr struct {
	Name  string
	Value string
}

// Fragment is a detached element subtree, the unit carried on the wire by
// addedChild updates and full-state snapshots.
type Fragment struct {
	Tag      string
	Attrs    []Attr
	Children []*Fragment
}

// ParseFragment parses a single-root XML element. Tag and attribute names are
// lower-cased; an XML prolog and surrounding whitespace are accepted.
func ParseFragment(raw string) (*Fragment, error) {
	dec := xml.NewDecoder(strings.NewReader(raw))
	var (
		root  *Fragment
		stack []*Fragment
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFragment, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			f := &Fragment{Tag: strings.ToLower(t.Name.Local)}
			for _, a := range t.Attr {
				f.setAttr(strings.ToLower(a.Name.Local), a.Value)
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, ErrMultipleRoots
				}
				root = f
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, f)
			}
			stack = append(stack, f)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, ErrMalformedFragment
			}
			stack = stack[:len(stack)-1]
		}
	}
	if root == nil {
		return nil, ErrEmptyFragment
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: unclosed element %q", ErrMalformedFragment, stack[len(stack)-1].Tag)
	}
	return root, nil
}

// Attr returns the value of the named attribute.
func (f *Fragment) Attr(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range f.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (f *Fragment) setAttr(name, value string) {
	for i := range f.Attrs {
		if f.Attrs[i].Name == name {
			f.Attrs[i].Value = value
			return
		}
	}
	f.Attrs = append(f.Attrs, Attr{Name: name, Value: value})
}

// Find returns the first element with tag in f's subtree, f included.
func (f *Fragment) Find(tag string) *Fragment {
	if f.Tag == tag {
		return f
	}
	for _, c := range f.Children {
		if found := c.Find(tag); found != nil {
			return found
		}
	}
	return nil
}

// Equal reports structural equality, attribute order included.
func (f *Fragment) Equal(other *Fragment) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Tag != other.Tag || len(f.Attrs) != len(other.Attrs) || len(f.Children) != len(other.Children) {
		return false
	}
	for i := range f.Attrs {
		if f.Attrs[i] != other.Attrs[i] {
			return false
		}
	}
	for i := range f.Children {
		if !f.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// String renders f as single-line XML.
func (f *Fragment) String() string {
	var b strings.Builder
	f.render(&b)
	return b.String()
}

func (f *Fragment) render(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(f.Tag)
	for _, a := range f.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		_ = xml.EscapeText(b, []byte(a.Value))
		b.WriteByte('"')
	}
	if len(f.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, c := range f.Children {
		c.render(b)
	}
	b.WriteString("</")
	b.WriteString(f.Tag)
	b.WriteByte('>')
}
