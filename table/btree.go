package table

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"litetable/pager"
)

// rootOffset is where the root node always lives. Root growth re-homes the
// old root to a fresh page so this stays true.
const rootOffset = uint32(0)

var (
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvariant    = errors.New("tree invariant violated")
)

// BTree implements point lookup, insertion with splits, and ordered
// traversal over pager-owned nodes. The tree never holds node state of its
// own: every node access goes through the pager cache, and mutations are
// made in place on the cached instances.
type BTree struct {
	pager *pager.Pager
}

// splitEntry is the result of an overflowing child: the separator to
// insert into the parent and the offset of the new right subtree.
type splitEntry struct {
	separator uint32
	right     uint32
}

// NewBTree opens the tree rooted at page 0, creating an empty root leaf if
// the file has no pages yet.
func NewBTree(p *pager.Pager) (*BTree, error) {
	t := &BTree{pager: p}
	if p.NumPages() == 0 {
		root := newLeaf(rootOffset)
		root.isRoot = true
		p.Commit(root)
		return t, nil
	}
	root, err := t.node(rootOffset)
	if err != nil {
		return nil, err
	}
	if !root.isRoot {
		return nil, fmt.Errorf("%w: page 0 is not marked root", pager.ErrCorruptFile)
	}
	return t, nil
}

// Close flushes all cached pages through the pager.
func (t *BTree) Close() error {
	return t.pager.Close()
}

// IsEmpty reports whether the tree holds no rows.
func (t *BTree) IsEmpty() (bool, error) {
	root, err := t.node(rootOffset)
	if err != nil {
		return false, err
	}
	return root.isLeaf() && len(root.cells) == 0, nil
}

// node fetches the page at offset through the pager and asserts it decodes
// to a tree node.
func (t *BTree) node(offset uint32) (*Node, error) {
	pn, err := t.pager.Fetch(offset)
	if err != nil {
		return nil, err
	}
	n, ok := pn.(*Node)
	if !ok {
		return nil, fmt.Errorf("%w: page %d is not a tree node", ErrInvariant, offset)
	}
	return n, nil
}

// Find locates key. It returns a cursor at the matching cell and true if
// the key is present, or a cursor at the position where the key would be
// inserted and false if it is not. An equal separator routes right, since
// keys equal to a separator live in the right child.
func (t *BTree) Find(key uint32) (*Cursor, bool, error) {
	offset := rootOffset
	for {
		n, err := t.node(offset)
		if err != nil {
			return nil, false, err
		}
		if !n.isLeaf() {
			idx := sort.Search(len(n.separators), func(i int) bool { return key < n.separators[i] })
			offset = n.children[idx]
			continue
		}
		idx := sort.Search(len(n.cells), func(i int) bool { return n.cells[i].Key >= key })
		c := &Cursor{tree: t, offset: offset, cell: idx}
		if idx < len(n.cells) && n.cells[idx].Key == key {
			return c, true, nil
		}
		c.endOfTable = n.nextLeaf == pager.NoOffset && idx == len(n.cells)
		return c, false, nil
	}
}

// Insert adds key with its row. It returns ErrDuplicateKey if the key is
// already present and pager.ErrTableFull if the pager cannot supply the
// pages a split would need.
func (t *BTree) Insert(key uint32, row Row) error {
	// Find routes an equal separator right, so it also catches a key that
	// equals a separator, which the left-routing descent below would miss.
	if _, found, err := t.Find(key); err != nil {
		return err
	} else if found {
		return ErrDuplicateKey
	}
	if err := t.ensureCapacity(key); err != nil {
		return err
	}
	split, err := t.insertInto(rootOffset, key, row)
	if err != nil {
		return err
	}
	if split == nil {
		return nil
	}
	return t.growRoot(split)
}

// ensureCapacity walks the descent path for key and checks that the pager
// can supply every page the insert could allocate, so a full table is
// reported before any node is touched.
func (t *BTree) ensureCapacity(key uint32) error {
	var path []*Node
	offset := rootOffset
	for {
		n, err := t.node(offset)
		if err != nil {
			return err
		}
		path = append(path, n)
		if n.isLeaf() {
			break
		}
		idx := sort.Search(len(n.separators), func(i int) bool { return key <= n.separators[i] })
		offset = n.children[idx]
	}
	leaf := path[len(path)-1]
	idx := sort.Search(len(leaf.cells), func(i int) bool { return leaf.cells[i].Key >= key })
	if idx < len(leaf.cells) && leaf.cells[idx].Key == key {
		return nil // duplicate; the insert allocates nothing
	}
	if len(leaf.cells) < LeafMaxCells {
		return nil
	}
	needed := uint32(1)
	i := len(path) - 2
	for ; i >= 0 && len(path[i].separators) >= InternalMaxKeys; i-- {
		needed++
	}
	if i < 0 {
		needed++ // root splits too: one extra page to re-home it
	}
	if t.pager.Available() < needed {
		return pager.ErrTableFull
	}
	return nil
}

// insertInto descends from offset and inserts key/row at the responsible
// leaf. A nil splitEntry means the subtree absorbed the insert; otherwise
// the caller must place the returned separator and right subtree in its
// own node. An equal separator routes left; such a key already lives in
// the right child, and Insert rejects it as a duplicate before descending.
func (t *BTree) insertInto(offset uint32, key uint32, row Row) (*splitEntry, error) {
	n, err := t.node(offset)
	if err != nil {
		return nil, err
	}
	if n.isLeaf() {
		return t.insertLeaf(n, key, row)
	}
	idx := sort.Search(len(n.separators), func(i int) bool { return key <= n.separators[i] })
	split, err := t.insertInto(n.children[idx], key, row)
	if err != nil {
		return nil, err
	}
	if split == nil {
		return nil, nil
	}
	return t.absorbSplit(n, split)
}

// insertLeaf places key/row in the leaf, splitting it when it overflows.
func (t *BTree) insertLeaf(n *Node, key uint32, row Row) (*splitEntry, error) {
	idx := sort.Search(len(n.cells), func(i int) bool { return n.cells[i].Key >= key })
	if idx < len(n.cells) && n.cells[idx].Key == key {
		return nil, ErrDuplicateKey
	}
	if len(n.cells) < LeafMaxCells {
		n.cells = slices.Insert(n.cells, idx, LeafCell{Key: key, Value: row})
		t.pager.Commit(n)
		return nil, nil
	}

	newOff, err := t.pager.NewPage()
	if err != nil {
		return nil, err
	}
	n.cells = slices.Insert(n.cells, idx, LeafCell{Key: key, Value: row})
	mid := (len(n.cells) + 1) / 2

	right := newLeaf(newOff)
	right.parent = n.parent
	right.cells = append(right.cells, n.cells[mid:]...)
	right.prevLeaf = n.offset
	right.nextLeaf = n.nextLeaf

	// splice the new leaf into the sibling chain
	if n.nextLeaf != pager.NoOffset {
		next, err := t.node(n.nextLeaf)
		if err != nil {
			return nil, err
		}
		next.prevLeaf = newOff
		t.pager.Commit(next)
	}
	n.cells = n.cells[:mid]
	n.nextLeaf = newOff

	t.pager.Commit(n)
	t.pager.Commit(right)
	return &splitEntry{separator: right.cells[0].Key, right: newOff}, nil
}

// absorbSplit places a child's separator and new right subtree into n,
// splitting n itself when it overflows.
func (t *BTree) absorbSplit(n *Node, split *splitEntry) (*splitEntry, error) {
	idx := sort.Search(len(n.separators), func(i int) bool { return n.separators[i] >= split.separator })
	if idx < len(n.separators) && n.separators[idx] == split.separator {
		return nil, fmt.Errorf("%w: child split proposed existing separator %d", ErrInvariant, split.separator)
	}
	n.separators = slices.Insert(n.separators, idx, split.separator)
	n.children = slices.Insert(n.children, idx+1, split.right)

	r, err := t.node(split.right)
	if err != nil {
		return nil, err
	}
	r.parent = n.offset
	t.pager.Commit(r)

	if len(n.separators) <= InternalMaxKeys {
		t.pager.Commit(n)
		return nil, nil
	}

	newOff, err := t.pager.NewPage()
	if err != nil {
		return nil, err
	}
	mid := len(n.separators)/2 - 1
	promoted := n.separators[mid]

	right := newInternal(newOff)
	right.parent = n.parent
	right.separators = append(right.separators, n.separators[mid+1:]...)
	right.children = append(right.children, n.children[mid+1:]...)

	n.separators = n.separators[:mid]
	n.children = n.children[:mid+1]

	t.pager.Commit(n)
	t.pager.Commit(right)
	return &splitEntry{separator: promoted, right: newOff}, nil
}

// growRoot handles a split that unwound all the way to the root: the old
// root moves to a fresh page and a new internal root with a single
// separator takes its place at offset 0.
func (t *BTree) growRoot(split *splitEntry) error {
	oldRoot, err := t.node(rootOffset)
	if err != nil {
		return err
	}
	movedOff, err := t.pager.NewPage()
	if err != nil {
		return err
	}
	oldRoot.offset = movedOff
	oldRoot.isRoot = false
	oldRoot.parent = rootOffset
	t.pager.Commit(oldRoot)

	right, err := t.node(split.right)
	if err != nil {
		return err
	}
	right.parent = rootOffset
	if right.isLeaf() && right.prevLeaf == rootOffset {
		right.prevLeaf = movedOff
	}
	t.pager.Commit(right)

	newRoot := newInternal(rootOffset)
	newRoot.isRoot = true
	newRoot.separators = []uint32{split.separator}
	newRoot.children = []uint32{movedOff, split.right}
	t.pager.Commit(newRoot)
	return nil
}
