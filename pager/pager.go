package pager

import (
	"container/heap"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// PageSize is the fixed size of every on-disk page and cache slot.
	PageSize = 4096

	// DefaultMaxPages caps how many pages a table may allocate.
	DefaultMaxPages = 100

	// NoOffset marks an absent page reference in node headers.
	NoOffset = uint32(0xFFFFFFFF)
)

var (
	ErrCorruptFile = errors.New("corrupt database file")
	ErrTableFull   = errors.New("table full")
	ErrClosed      = errors.New("pager is closed")
)

// Node is what the pager caches: a decoded page that knows its own offset
// and how to write itself back into a 4096-byte image.
type Node interface {
	Offset() uint32
	Encode(page []byte) error
}

// Decoder turns a raw page image into a Node. Supplied by the tree layer
// so the pager stays ignorant of the node layout.
type Decoder func(offset uint32, page []byte) (Node, error)

// Pager owns the backing file and an in-memory cache of decoded nodes
// keyed by page offset. Cached nodes are handed out by pointer, so a
// caller mutating a fetched node mutates the cached copy; every cached
// node is written back at Close.
type Pager struct {
	file     *os.File
	numPages uint32
	cache    map[uint32]Node
	free     offsetHeap
	decode   Decoder
	closed   bool

	// MaxPages bounds allocation. Defaults to DefaultMaxPages.
	MaxPages uint32
}

// Open opens or creates the backing file. The file length must be a whole
// number of pages.
func Open(path string, decode Decoder) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open pager: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open pager: %w", err)
	}
	if fi.Size()%PageSize != 0 {
		f.Close()
		return nil, fmt.Errorf("%w: size %d is not a whole number of pages", ErrCorruptFile, fi.Size())
	}
	return &Pager{
		file:     f,
		numPages: uint32(fi.Size() / PageSize),
		cache:    make(map[uint32]Node),
		decode:   decode,
		MaxPages: DefaultMaxPages,
	}, nil
}

// NumPages reports how many pages are allocated, including pages that only
// exist in the cache so far.
func (p *Pager) NumPages() uint32 { return p.numPages }

// FileSize reports the current length of the backing file.
func (p *Pager) FileSize() (int64, error) {
	fi, err := p.file.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Fetch returns the node at offset, reading and decoding it from disk on a
// cache miss. The returned node is the cached instance: mutations made by
// the caller are visible to later fetches and are flushed at Close.
func (p *Pager) Fetch(offset uint32) (Node, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if n, ok := p.cache[offset]; ok {
		return n, nil
	}
	if offset >= p.numPages {
		return nil, fmt.Errorf("fetch page %d: beyond allocated pages (%d)", offset, p.numPages)
	}
	buf := make([]byte, PageSize)
	if _, err := p.file.ReadAt(buf, int64(offset)*PageSize); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read page %d: %w", offset, err)
	}
	n, err := p.decode(offset, buf)
	if err != nil {
		return nil, err
	}
	p.cache[offset] = n
	return n, nil
}

// NewPage reserves a fresh offset, preferring the smallest recycled one.
// The caller is expected to Commit a node at the returned offset.
func (p *Pager) NewPage() (uint32, error) {
	if p.closed {
		return 0, ErrClosed
	}
	if p.free.Len() > 0 {
		return heap.Pop(&p.free).(uint32), nil
	}
	if p.numPages >= p.MaxPages {
		return 0, ErrTableFull
	}
	offset := p.numPages
	p.numPages++
	return offset, nil
}

// Available reports how many more pages NewPage can hand out before the
// table is full.
func (p *Pager) Available() uint32 {
	avail := uint32(p.free.Len())
	if p.numPages < p.MaxPages {
		avail += p.MaxPages - p.numPages
	}
	return avail
}

// Commit places the node in the cache at its own offset, replacing any
// node already cached there. Cached nodes are considered dirty.
func (p *Pager) Commit(n Node) {
	p.cache[n.Offset()] = n
	if n.Offset() >= p.numPages {
		p.numPages = n.Offset() + 1
	}
}

// Recycle evicts the node at offset and makes the offset available to
// future NewPage calls. The insert path never recycles; this exists for
// deletion support.
func (p *Pager) Recycle(offset uint32) {
	delete(p.cache, offset)
	heap.Push(&p.free, offset)
}

// Close writes every cached page back to its slot in the file and syncs.
// Pages never fetched or committed keep their on-disk bytes. The pager
// must not be used afterwards.
func (p *Pager) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	buf := make([]byte, PageSize)
	for i := uint32(0); i < p.numPages; i++ {
		n, ok := p.cache[i]
		if !ok {
			continue
		}
		for j := range buf {
			buf[j] = 0
		}
		if err := n.Encode(buf); err != nil {
			return fmt.Errorf("encode page %d: %w", i, err)
		}
		if _, err := p.file.WriteAt(buf, int64(i)*PageSize); err != nil {
			return fmt.Errorf("write page %d: %w", i, err)
		}
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("sync pager: %w", err)
	}
	return p.file.Close()
}

// offsetHeap is a min-heap of recycled page offsets.
type offsetHeap []uint32

func (h offsetHeap) Len() int            { return len(h) }
func (h offsetHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h offsetHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *offsetHeap) Push(x interface{}) { *h = append(*h, x.(uint32)) }
func (h *offsetHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
