package table

import (
	"fmt"

	"litetable/pager"
)

// Cursor positions within the tree as a (leaf offset, cell index) pair.
// endOfTable becomes true once the cursor steps past the last cell of the
// last leaf.
type Cursor struct {
	tree       *BTree
	offset     uint32
	cell       int
	endOfTable bool
}

// Start returns a cursor at the first row in key order, or one already at
// end of table if the tree is empty.
func (t *BTree) Start() (*Cursor, error) {
	offset := rootOffset
	for {
		n, err := t.node(offset)
		if err != nil {
			return nil, err
		}
		if !n.isLeaf() {
			offset = n.children[0]
			continue
		}
		return &Cursor{
			tree:       t,
			offset:     offset,
			endOfTable: len(n.cells) == 0,
		}, nil
	}
}

// EndOfTable reports whether the cursor has moved past the last row.
func (c *Cursor) EndOfTable() bool { return c.endOfTable }

// Key returns the key at the cursor position.
func (c *Cursor) Key() (uint32, error) {
	cell, err := c.current()
	if err != nil {
		return 0, err
	}
	return cell.Key, nil
}

// Value returns the row at the cursor position.
func (c *Cursor) Value() (Row, error) {
	cell, err := c.current()
	if err != nil {
		return Row{}, err
	}
	return cell.Value, nil
}

func (c *Cursor) current() (LeafCell, error) {
	if c.endOfTable {
		return LeafCell{}, fmt.Errorf("%w: cursor is past the last row", ErrInvariant)
	}
	n, err := c.tree.node(c.offset)
	if err != nil {
		return LeafCell{}, err
	}
	if !n.isLeaf() || c.cell >= len(n.cells) {
		return LeafCell{}, fmt.Errorf("%w: cursor points at page %d cell %d", ErrInvariant, c.offset, c.cell)
	}
	return n.cells[c.cell], nil
}

// Advance steps to the next row in key order, following the leaf chain
// across page boundaries.
func (c *Cursor) Advance() error {
	if c.endOfTable {
		return nil
	}
	n, err := c.tree.node(c.offset)
	if err != nil {
		return err
	}
	c.cell++
	if c.cell < len(n.cells) {
		return nil
	}
	if n.nextLeaf == pager.NoOffset {
		c.endOfTable = true
		return nil
	}
	c.offset = n.nextLeaf
	c.cell = 0
	return nil
}

// Seek repositions the cursor at the first key >= target, or at end of
// table if no such key exists.
func (c *Cursor) Seek(target uint32) error {
	pos, _, err := c.tree.Find(target)
	if err != nil {
		return err
	}
	*c = *pos
	if c.endOfTable {
		return nil
	}
	n, err := c.tree.node(c.offset)
	if err != nil {
		return err
	}
	// Find may leave the position one past the last cell of a leaf whose
	// successor holds the first qualifying key.
	if c.cell >= len(n.cells) {
		if n.nextLeaf == pager.NoOffset {
			c.endOfTable = true
			return nil
		}
		c.offset = n.nextLeaf
		c.cell = 0
	}
	return nil
}
