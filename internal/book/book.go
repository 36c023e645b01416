// Package book provides the authoritative store of open positions.
package book

import (
	"sync"

	"papertrader/internal/errors"
	"papertrader/internal/models"
)

// Book owns the set of open positions. All mutations pass through it;
// callers only ever receive copies, never live references.
type Book struct {
	mu        sync.RWMutex
	positions map[string]*models.Position
	order     []string // insertion order of position IDs
}

// New creates an empty position book.
func New() *Book {
	return &Book{
		positions: make(map[string]*models.Position),
	}
}

// Open adds a position to the book. The position ID must be unique.
func (b *Book) Open(pos models.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.positions[pos.ID]; exists {
		return errors.ErrDuplicatePosition
	}
	pos.Status = models.StatusOpen
	b.positions[pos.ID] = &pos
	b.order = append(b.order, pos.ID)
	return nil
}

// Get returns a copy of the position with the given ID.
func (b *Book) Get(id string) (models.Position, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	pos, ok := b.positions[id]
	if !ok {
		return models.Position{}, errors.ErrPositionNotFound
	}
	return *pos, nil
}

// ListOpen returns a point-in-time snapshot of all open positions in
// insertion order.
func (b *Book) ListOpen() []models.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	open := make([]models.Position, 0, len(b.positions))
	for _, id := range b.order {
		if pos, ok := b.positions[id]; ok {
			open = append(open, *pos)
		}
	}
	return open
}

// Count returns the number of open positions.
func (b *Book) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.positions)
}

// RefreshPrices recomputes current price and unrealized PnL for every
// open position whose symbol appears in the price map.
func (b *Book) RefreshPrices(prices map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, pos := range b.positions {
		if price, ok := prices[pos.Symbol]; ok {
			pos.MarkPrice(price)
		}
	}
}

// Remove deletes a position from the book and returns it. It is used
// only as the first half of a close transaction; a missing ID means the
// position was already closed.
func (b *Book) Remove(id string) (models.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[id]
	if !ok {
		return models.Position{}, errors.ErrPositionNotFound
	}
	delete(b.positions, id)

	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return *pos, nil
}
