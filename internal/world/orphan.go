package world

import (
	"sync"

	"github.com/l1jgo/islands/internal/grid"
)

// Availability is what the orphan pool asks before handing a cell out.
type Availability interface {
	IsAvailable(cell grid.Cell) bool
}

// OrphanPool is a FIFO of abandoned island cells awaiting reuse.
type OrphanPool struct {
	mu    sync.Mutex
	cells []grid.Cell
	index map[string]struct{}
}

func NewOrphanPool() *OrphanPool {
	return &OrphanPool{index: make(map[string]struct{})}
}

// Add queues a cell. Duplicates are ignored.
func (p *OrphanPool) Add(cell grid.Cell) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.index[cell.Name()]; ok {
		return
	}
	p.index[cell.Name()] = struct{}{}
	p.cells = append(p.cells, cell)
}

// NextOrphan pops cells until one is available and returns it.
// Unavailable cells encountered on the way are discarded.
func (p *OrphanPool) NextOrphan(avail Availability) (grid.Cell, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.cells) > 0 {
		cell := p.cells[0]
		p.cells = p.cells[1:]
		delete(p.index, cell.Name())
		if avail.IsAvailable(cell) {
			return cell, true
		}
	}
	return grid.Cell{}, false
}

func (p *OrphanPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cells)
}

// Cells returns a copy of the queued cells in order.
func (p *OrphanPool) Cells() []grid.Cell {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]grid.Cell, len(p.cells))
	copy(out, p.cells)
	return out
}
