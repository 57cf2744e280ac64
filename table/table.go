package table

import (
	"errors"

	"litetable/pager"
)

// ExecuteResult classifies the outcome of a statement against the table.
type ExecuteResult int

const (
	ExecuteSuccess ExecuteResult = iota
	ExecuteDuplicateKey
	ExecuteTableFull
)

func (r ExecuteResult) String() string {
	switch r {
	case ExecuteSuccess:
		return "success"
	case ExecuteDuplicateKey:
		return "duplicate key"
	case ExecuteTableFull:
		return "table full"
	default:
		return "unknown"
	}
}

// Table is the thin facade over the B+-tree: it turns statements into tree
// calls and maps tree errors to statement outcomes.
type Table struct {
	pager  *pager.Pager
	tree   *BTree
	closed bool
}

// Open opens or creates the single table stored at path.
func Open(path string) (*Table, error) {
	p, err := pager.Open(path, DecodeNode)
	if err != nil {
		return nil, err
	}
	tree, err := NewBTree(p)
	if err != nil {
		p.Close()
		return nil, err
	}
	return &Table{pager: p, tree: tree}, nil
}

// Pager exposes the table's pager, mainly so callers can inspect file
// growth or raise the page cap before loading.
func (t *Table) Pager() *pager.Pager { return t.pager }

// Insert adds the row, keyed by its id.
func (t *Table) Insert(row Row) (ExecuteResult, error) {
	if t.closed {
		return 0, pager.ErrClosed
	}
	_, found, err := t.tree.Find(row.ID)
	if err != nil {
		return 0, err
	}
	if found {
		return ExecuteDuplicateKey, nil
	}
	switch err := t.tree.Insert(row.ID, row); {
	case err == nil:
		return ExecuteSuccess, nil
	case errors.Is(err, ErrDuplicateKey):
		return ExecuteDuplicateKey, nil
	case errors.Is(err, pager.ErrTableFull):
		return ExecuteTableFull, nil
	default:
		return 0, err
	}
}

// Select returns every row in ascending key order.
func (t *Table) Select() ([]Row, error) {
	if t.closed {
		return nil, pager.ErrClosed
	}
	var rows []Row
	c, err := t.tree.Start()
	if err != nil {
		return nil, err
	}
	for !c.EndOfTable() {
		row, err := c.Value()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if err := c.Advance(); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Find locates a row by key.
func (t *Table) Find(key uint32) (Row, bool, error) {
	if t.closed {
		return Row{}, false, pager.ErrClosed
	}
	c, found, err := t.tree.Find(key)
	if err != nil || !found {
		return Row{}, false, err
	}
	row, err := c.Value()
	if err != nil {
		return Row{}, false, err
	}
	return row, true, nil
}

// Close flushes all buffered pages and releases the backing file. The
// table must not be used afterwards.
func (t *Table) Close() error {
	if t.closed {
		return pager.ErrClosed
	}
	t.closed = true
	return t.tree.Close()
}
