package table

import (
	"encoding/binary"
	"fmt"

	"litetable/pager"
)

// On-disk page layout. Both node kinds share the first 10 header bytes:
//
//	[0]     kind: 0 = leaf, 1 = internal
//	[1]     isRoot: 0/1
//	[2:6)   parent offset, NoOffset if absent
//	[6:10)  cell count (leaf: key/value pairs, internal: separators)
//
// Leaves continue with sibling links and densely packed cells:
//
//	[10:14) prev leaf offset, NoOffset if absent
//	[14:18) next leaf offset, NoOffset if absent
//	[18:)   cells, each [key u32][row RowSize bytes]
//
// Internal nodes continue with the separator count again and an
// interleaved child/key sequence, adjacent entries sharing their child:
//
//	[10:14) separator count S (child count - 1)
//	[14:)   [child0][key0][child1][key1]...[childS]
const (
	kindOffset     = 0
	isRootOffset   = 1
	parentOffset   = 2
	numCellsOffset = 6

	leafPrevOffset  = 10
	leafNextOffset  = 14
	leafCellsOffset = 18
	leafCellSize    = 4 + RowSize

	internalCountOffset = 10
	internalCellsOffset = 14

	nodeKindLeaf     = 0
	nodeKindInternal = 1

	// LeafMaxCells is the most key/value pairs a leaf holds before it
	// must split. A full leaf uses 18 + 12*295 = 3558 bytes of its page.
	LeafMaxCells = 12

	// InternalMaxKeys is the most separators an internal node holds
	// before it must split. 509 is the largest count whose encoding
	// (header, S+1 children, S keys) still fits a page.
	InternalMaxKeys = 509
)

// LeafCell is one key/value pair in a leaf.
type LeafCell struct {
	Key   uint32
	Value Row
}

// Node is the in-memory form of one page: either a leaf holding ordered
// key/value cells with sibling links, or an internal node holding ordered
// separators with one more child offset than separators.
type Node struct {
	kind   uint8
	isRoot bool
	parent uint32
	offset uint32

	// leaf fields
	cells    []LeafCell
	prevLeaf uint32
	nextLeaf uint32

	// internal fields
	separators []uint32
	children   []uint32
}

func newLeaf(offset uint32) *Node {
	return &Node{
		kind:     nodeKindLeaf,
		parent:   pager.NoOffset,
		offset:   offset,
		prevLeaf: pager.NoOffset,
		nextLeaf: pager.NoOffset,
	}
}

func newInternal(offset uint32) *Node {
	return &Node{
		kind:   nodeKindInternal,
		parent: pager.NoOffset,
		offset: offset,
	}
}

// Offset reports the page slot this node lives at.
func (n *Node) Offset() uint32 { return n.offset }

func (n *Node) isLeaf() bool { return n.kind == nodeKindLeaf }

// numCells is the cell count recorded in the node header: key/value pairs
// for a leaf, separators for an internal node.
func (n *Node) numCells() int {
	if n.isLeaf() {
		return len(n.cells)
	}
	return len(n.separators)
}

// Encode writes the node into page, which must be PageSize bytes and is
// assumed zeroed.
func (n *Node) Encode(page []byte) error {
	if len(page) != pager.PageSize {
		return fmt.Errorf("encode node %d: page length %d, expected %d", n.offset, len(page), pager.PageSize)
	}
	page[kindOffset] = n.kind
	if n.isRoot {
		page[isRootOffset] = 1
	}
	binary.LittleEndian.PutUint32(page[parentOffset:], n.parent)
	binary.LittleEndian.PutUint32(page[numCellsOffset:], uint32(n.numCells()))

	if n.isLeaf() {
		if len(n.cells) > LeafMaxCells {
			return fmt.Errorf("encode node %d: %d cells exceed leaf capacity", n.offset, len(n.cells))
		}
		binary.LittleEndian.PutUint32(page[leafPrevOffset:], n.prevLeaf)
		binary.LittleEndian.PutUint32(page[leafNextOffset:], n.nextLeaf)
		off := leafCellsOffset
		for _, c := range n.cells {
			binary.LittleEndian.PutUint32(page[off:], c.Key)
			if err := SerializeRow(c.Value, page[off+4:off+leafCellSize]); err != nil {
				return fmt.Errorf("encode node %d: %w", n.offset, err)
			}
			off += leafCellSize
		}
		return nil
	}

	if len(n.separators) > InternalMaxKeys {
		return fmt.Errorf("encode node %d: %d separators exceed internal capacity", n.offset, len(n.separators))
	}
	if len(n.children) != len(n.separators)+1 {
		return fmt.Errorf("encode node %d: %d children for %d separators", n.offset, len(n.children), len(n.separators))
	}
	binary.LittleEndian.PutUint32(page[internalCountOffset:], uint32(len(n.separators)))
	off := internalCellsOffset
	binary.LittleEndian.PutUint32(page[off:], n.children[0])
	off += 4
	for i, sep := range n.separators {
		binary.LittleEndian.PutUint32(page[off:], sep)
		binary.LittleEndian.PutUint32(page[off+4:], n.children[i+1])
		off += 8
	}
	return nil
}

// DecodeNode is the inverse of Encode. It is handed to the pager as its
// Decoder so fetched pages materialize as nodes.
func DecodeNode(offset uint32, page []byte) (pager.Node, error) {
	if len(page) != pager.PageSize {
		return nil, fmt.Errorf("decode page %d: length %d, expected %d", offset, len(page), pager.PageSize)
	}
	isRoot := page[isRootOffset] == 1
	parent := binary.LittleEndian.Uint32(page[parentOffset:])
	count := binary.LittleEndian.Uint32(page[numCellsOffset:])

	switch page[kindOffset] {
	case nodeKindLeaf:
		if count > LeafMaxCells {
			return nil, fmt.Errorf("%w: page %d: leaf cell count %d", pager.ErrCorruptFile, offset, count)
		}
		n := newLeaf(offset)
		n.isRoot = isRoot
		n.parent = parent
		n.prevLeaf = binary.LittleEndian.Uint32(page[leafPrevOffset:])
		n.nextLeaf = binary.LittleEndian.Uint32(page[leafNextOffset:])
		n.cells = make([]LeafCell, count)
		off := leafCellsOffset
		for i := range n.cells {
			key := binary.LittleEndian.Uint32(page[off:])
			row, err := DeserializeRow(page[off+4 : off+leafCellSize])
			if err != nil {
				return nil, fmt.Errorf("%w: page %d: %v", pager.ErrCorruptFile, offset, err)
			}
			n.cells[i] = LeafCell{Key: key, Value: row}
			off += leafCellSize
		}
		return n, nil

	case nodeKindInternal:
		numKeys := binary.LittleEndian.Uint32(page[internalCountOffset:])
		if numKeys > InternalMaxKeys || numKeys != count {
			return nil, fmt.Errorf("%w: page %d: internal separator count %d/%d", pager.ErrCorruptFile, offset, count, numKeys)
		}
		n := newInternal(offset)
		n.isRoot = isRoot
		n.parent = parent
		n.separators = make([]uint32, numKeys)
		n.children = make([]uint32, numKeys+1)
		off := internalCellsOffset
		n.children[0] = binary.LittleEndian.Uint32(page[off:])
		off += 4
		for i := range n.separators {
			n.separators[i] = binary.LittleEndian.Uint32(page[off:])
			n.children[i+1] = binary.LittleEndian.Uint32(page[off+4:])
			off += 8
		}
		return n, nil

	default:
		return nil, fmt.Errorf("%w: page %d: unknown node kind %d", pager.ErrCorruptFile, offset, page[kindOffset])
	}
}
