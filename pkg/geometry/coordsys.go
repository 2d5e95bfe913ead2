package geometry

import (
	"errors"
	"fmt"
)

// ErrUnrelated is returned when two coordinate systems share no root
var ErrUnrelated = errors.New("geometry: coordinate systems are not related")

// CoordSys is a node in a tree of coordinate systems. Each node knows the
// transformation from its own coordinates to its parent's.
type CoordSys struct {
	parent   *CoordSys
	toParent Transfo
}

// NewRootCoordSys creates a coordinate system without a parent
func NewRootCoordSys() *CoordSys {
	return &CoordSys{}
}

// NewCoordSys creates a coordinate system related to parent by toParent
func NewCoordSys(toParent Transfo, parent *CoordSys) *CoordSys {
	return &CoordSys{parent: parent, toParent: toParent}
}

// Parent returns the reference coordinate system, nil for a root
func (c *CoordSys) Parent() *CoordSys {
	return c.parent
}

// ToParent returns the transformation into the parent coordinate system
func (c *CoordSys) ToParent() Transfo {
	return c.toParent
}

// Derive returns a coordinate system whose coordinates map through t into
// the coordinates of c. The result is a sibling of c sharing its parent,
// so repeated edits never deepen the tree. A root gets a child.
func (c *CoordSys) Derive(t Transfo) *CoordSys {
	if c.parent == nil {
		return NewCoordSys(t, c)
	}
	return NewCoordSys(t.Compose(c.toParent), c.parent)
}

func (c *CoordSys) toRoot() (*CoordSys, Transfo) {
	t := Identity()
	node := c
	for node.parent != nil {
		t = t.Compose(node.toParent)
		node = node.parent
	}
	return node, t
}

// TransfoTo returns the transformation mapping coordinates of c into dst
func (c *CoordSys) TransfoTo(dst *CoordSys) (Transfo, error) {
	if c == dst {
		return Identity(), nil
	}
	srcRoot, srcT := c.toRoot()
	dstRoot, dstT := dst.toRoot()
	if srcRoot != dstRoot {
		return Transfo{}, ErrUnrelated
	}
	inv, err := dstT.Inverse()
	if err != nil {
		return Transfo{}, fmt.Errorf("transfo to destination: %w", err)
	}
	return srcT.Compose(inv), nil
}
