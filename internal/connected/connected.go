// Package connected holds the lazily built collections of objects related to
// one document: children, links, culture versions, tags, categories and the
// like. Each collection is described up front and queried on first access.
package connected

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownCollection is returned for a name the repository does not describe.
	ErrUnknownCollection = errors.New("unknown connected collection")
)

type Kind int

const (
	// Objects are plain related rows such as tags or categories.
	Objects Kind = iota
	// Documents are tree nodes, selected with culture and publication policy.
	Documents
)

// Descriptor declares one collection.
type Descriptor struct {
	Name string
	Kind Kind
	// Target names the entity type, e.g. "tag" or "node".
	Target  string
	Where   string
	Args    []any
	OrderBy string

	// Document collections only.
	Culture                   string
	CombineWithDefaultCulture bool
	PublishedOnly             bool
}

// Collection is the materialized result of one descriptor.
type Collection struct {
	Descriptor Descriptor
	Items      []any
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Loader executes a descriptor.
type Loader func(ctx context.Context, d Descriptor) ([]any, error)

// pending is a load in progress; done is closed once c or err is set.
type pending struct {
	done chan struct{}
	c    *Collection
	err  error
}

// Resolver describes a collection by name on demand. It reports false for
// names it does not know.
type Resolver func(name string) (Descriptor, bool)

// Repository maps names to collections. Each collection is loaded at most once
// for the lifetime of the repository.
type Repository struct {
	mu          sync.RWMutex
	collections map[string]*Collection
	inflight    map[string]*pending
	generation  int

	descriptors map[string]Descriptor
	resolve     Resolver
	names       func() []string
	load        Loader
}

// New creates a repository over a fixed set of descriptors.
func New(load Loader, descriptors ...Descriptor) *Repository {
	r := &Repository{
		collections: make(map[string]*Collection),
		inflight:    make(map[string]*pending),
		descriptors: make(map[string]Descriptor, len(descriptors)),
		load:        load,
	}
	for _, d := range descriptors {
		r.descriptors[d.Name] = d
	}

	return r
}

// NewDynamic creates a repository whose valid names are computed on demand.
// names enumerates the currently valid names; resolve describes one of them.
func NewDynamic(load Loader, names func() []string, resolve Resolver) *Repository {
	return &Repository{
		collections: make(map[string]*Collection),
		inflight:    make(map[string]*pending),
		descriptors: make(map[string]Descriptor),
		resolve:     resolve,
		names:       names,
		load:        load,
	}
}

// Names lists the collection names the repository can serve, sorted.
func (r *Repository) Names() []string {
	var names []string
	if r.names != nil {
		names = r.names()
	} else {
		names = make([]string, 0, len(r.descriptors))
		for name := range r.descriptors {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names
}

// Contains reports whether name is a valid collection name.
func (r *Repository) Contains(name string) bool {
	_, ok := r.describe(name)
	return ok
}

// Loaded reports whether the collection has already been built.
func (r *Repository) Loaded(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.collections[name]
	return ok
}

// Get returns the named collection, building it on first access.
func (r *Repository) Get(ctx context.Context, name string) (*Collection, error) {
	r.mu.RLock()
	c, ok := r.collections[name]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	d, ok := r.describe(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}

	r.mu.Lock()
	// another caller may have built it while we waited for the lock
	if c, ok = r.collections[name]; ok {
		r.mu.Unlock()
		return c, nil
	}
	if p, ok := r.inflight[name]; ok {
		r.mu.Unlock()
		select {
		case <-p.done:
			return p.c, p.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p := &pending{done: make(chan struct{})}
	r.inflight[name] = p
	generation := r.generation
	r.mu.Unlock()

	items, err := r.load(ctx, d)
	if err == nil {
		p.c = &Collection{Descriptor: d, Items: items}
	}
	p.err = err

	r.mu.Lock()
	if r.generation == generation {
		delete(r.inflight, name)
		if err == nil {
			r.collections[name] = p.c
		}
	}
	r.mu.Unlock()
	close(p.done)

	return p.c, p.err
}

// Reset drops every built collection so the next access queries again.
func (r *Repository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.collections = make(map[string]*Collection)
	r.inflight = make(map[string]*pending)
	r.generation++
}

func (r *Repository) describe(name string) (Descriptor, bool) {
	if d, ok := r.descriptors[name]; ok {
		return d, true
	}
	if r.resolve != nil {
		d, ok := r.resolve(name)
		if ok && d.Name == "" {
			d.Name = name
		}
		return d, ok
	}

	return Descriptor{}, false
}
