package resource

import (
	"strings"
	"sync"
)

// BindingType is the binding class a shader sees.
type BindingType uint8

const (
	BindUniform BindingType = iota
	BindStorage
	BindReadOnlyStorage
)

// Stage is the shader stage a binding is visible to.
type Stage uint8

const (
	StageCompute Stage = iota
	StageFragment
)

// Entry is one binding of a layout.
type Entry struct {
	Binding    uint32
	Type       BindingType
	Visibility Stage
}

// Layout is the binding layout of a pass over a buffer list.
type Layout struct {
	Entries   []Entry
	Signature string
}

// NewLayout derives the layout a pass of the given kind needs for bufs.
// Binding i is bufs[i]. Render passes see storage buffers read-only from
// the fragment stage.
func NewLayout(kind PassKind, bufs []Buffer) Layout {
	entries := make([]Entry, len(bufs))
	for i, b := range bufs {
		e := Entry{Binding: uint32(i)}
		switch {
		case b.Kind == Uniform && kind == Render:
			e.Type, e.Visibility = BindUniform, StageFragment
		case b.Kind == Uniform:
			e.Type, e.Visibility = BindUniform, StageCompute
		case kind == Render:
			e.Type, e.Visibility = BindReadOnlyStorage, StageFragment
		default:
			e.Type, e.Visibility = BindStorage, StageCompute
		}
		entries[i] = e
	}
	return Layout{Entries: entries, Signature: Signature(kind, bufs)}
}

// Signature identifies the layout of kind over bufs by buffer types only;
// labels and sizes do not matter.
func Signature(kind PassKind, bufs []Buffer) string {
	var sb strings.Builder
	sb.WriteString(kind.String())
	sb.WriteByte(':')
	for _, b := range bufs {
		if b.Kind == Uniform {
			sb.WriteByte('u')
		} else {
			sb.WriteByte('s')
		}
	}
	return sb.String()
}

// LayoutCache memoises layouts by signature. Backends store their device
// layout next to the entry with Put, so identical buffer lists share one
// device object.
type LayoutCache[T any] struct {
	mu      sync.Mutex
	entries map[string]T
	misses  int
}

// Get returns the cached value for the layout of kind over bufs, calling
// build on a miss.
func (c *LayoutCache[T]) Get(kind PassKind, bufs []Buffer, build func(Layout) (T, error)) (T, error) {
	sig := Signature(kind, bufs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries[sig]; ok {
		return v, nil
	}
	v, err := build(NewLayout(kind, bufs))
	if err != nil {
		var zero T
		return zero, err
	}
	if c.entries == nil {
		c.entries = make(map[string]T)
	}
	c.entries[sig] = v
	c.misses++
	return v, nil
}

// Len returns the number of cached layouts.
func (c *LayoutCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Builds returns how many times a layout was built.
func (c *LayoutCache[T]) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}

// Drain calls fn for every cached value and empties the cache.
func (c *LayoutCache[T]) Drain(fn func(T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.entries {
		fn(v)
		delete(c.entries, k)
	}
}
