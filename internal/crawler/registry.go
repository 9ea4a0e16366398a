package crawler

import (
	"iter"
	"slices"
	"sync"

	"github.com/nao1215/sitescore/internal/model"
)

// Registry is the deduplicated, ordered set of pages found by a crawl.
// Pages are keyed by their normalized URL and are never removed.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	capacity int
	pages    map[string]*model.Page
	order    []*model.Page
}

// NewRegistry creates a registry that admits at most capacity pages.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		pages:    make(map[string]*model.Page, capacity),
		order:    make([]*model.Page, 0, capacity),
	}
}

// Has reports whether a page with the same normalized key is registered.
func (r *Registry) Has(rawURL string) bool {
	key := Normalize(rawURL)

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pages[key]
	return ok
}

// Register admits the URL as a new page and returns it.
// It returns nil without changing the registry when the URL is ineligible,
// its key is already registered, or the registry is full.
func (r *Registry) Register(rawURL string) *model.Page {
	if IsIneligible(rawURL) {
		return nil
	}
	key := Normalize(rawURL)

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.order) >= r.capacity {
		return nil
	}
	if _, ok := r.pages[key]; ok {
		return nil
	}

	page := model.NewPage(key, rawURL)
	r.pages[key] = page
	r.order = append(r.order, page)
	return page
}

// Pages returns a snapshot of the registered pages in discovery order.
func (r *Registry) Pages() []*model.Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// All iterates over the registered pages in discovery order.
// Each call starts from the first page.
func (r *Registry) All() iter.Seq[*model.Page] {
	return func(yield func(*model.Page) bool) {
		for _, page := range r.Pages() {
			if !yield(page) {
				return
			}
		}
	}
}

// Len returns the number of registered pages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Capacity returns the maximum number of pages the registry admits.
func (r *Registry) Capacity() int {
	return r.capacity
}

// Full reports whether the registry has reached its capacity.
func (r *Registry) Full() bool {
	return r.Len() >= r.capacity
}
