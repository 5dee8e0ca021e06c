package aggregate

import (
	"sort"
	"sync"
)

// Favorites is an in-memory set of favourite Pokémon ids. It is never
// persisted.
type Favorites struct {
	mu  sync.RWMutex
	ids map[int]struct{}
}

// NewFavorites creates an empty set.
func NewFavorites() *Favorites {
	return &Favorites{ids: make(map[int]struct{})}
}

// Toggle flips id and reports whether it is now a favourite.
func (f *Favorites) Toggle(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[id]; ok {
		delete(f.ids, id)
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

// Contains reports whether id is a favourite.
func (f *Favorites) Contains(id int) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.ids[id]
	return ok
}

// IDs returns the favourites in ascending order.
func (f *Favorites) IDs() []int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]int, 0, len(f.ids))
	for id := range f.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Mark sets IsFavorite on every card in items.
func (f *Favorites) Mark(items []Item[Card]) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i := range items {
		_, ok := f.ids[items[i].Payload.ID]
		items[i].Payload.IsFavorite = ok
	}
}
