// Package view derives a filtered, sorted, paginated materialized list from
// the latest snapshot plus local, ephemeral view state. The engine is pure
// local computation: it never performs I/O, and it belongs to a single owning
// session which must serialize access.
package view

import (
	"sort"
	"strings"
	"time"
)

// Binding adapts a domain type to the engine: identity, sort timestamp, and
// search matching against an already lower-cased term.
type Binding[T any] struct {
	ID        func(T) string
	Timestamp func(T) time.Time
	Match     func(item T, term string) bool
}

// View is a materialized projection of the latest snapshot.
type View[T any] struct {
	Items         []T
	Page          int
	PageCount     int
	TotalFiltered int
	Seq           uint64
}

// Engine holds a collection's local view state. Page size 0 disables
// pagination: Materialize then returns the full filtered set.
type Engine[T any] struct {
	binding  Binding[T]
	pageSize int

	lastSeq    uint64
	items      []T
	searchTerm string
	dateFilter *time.Time
	page       int
	selected   map[string]struct{}
}

// NewEngine creates a view engine for one collection.
func NewEngine[T any](b Binding[T], pageSize int) *Engine[T] {
	return &Engine[T]{
		binding:  b,
		pageSize: pageSize,
		page:     1,
		selected: make(map[string]struct{}),
	}
}

// Apply replaces the snapshot if seq is strictly newer than the last applied
// one, re-sorts newest first, and prunes the selection to surviving ids.
// Returns false for stale or duplicate snapshots, which must have no effect.
func (e *Engine[T]) Apply(seq uint64, items []T) bool {
	if seq <= e.lastSeq {
		return false
	}
	e.lastSeq = seq
	e.items = make([]T, len(items))
	copy(e.items, items)
	sort.SliceStable(e.items, func(i, j int) bool {
		return e.binding.Timestamp(e.items[i]).After(e.binding.Timestamp(e.items[j]))
	})
	e.pruneSelection()
	return true
}

// LastSeq returns the sequence number of the last applied snapshot.
func (e *Engine[T]) LastSeq() uint64 {
	return e.lastSeq
}

// SetSearch updates the search term and resets to the first page.
func (e *Engine[T]) SetSearch(term string) {
	e.searchTerm = strings.ToLower(strings.TrimSpace(term))
	e.page = 1
	e.pruneSelection()
}

// SetDateFilter filters to records on the same local calendar day, or clears
// the filter when day is nil. Resets to the first page.
func (e *Engine[T]) SetDateFilter(day *time.Time) {
	if day == nil {
		e.dateFilter = nil
	} else {
		d := *day
		e.dateFilter = &d
	}
	e.page = 1
	e.pruneSelection()
}

// SetPage moves to the requested page, clamped to the valid range.
func (e *Engine[T]) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	if count := e.pageCount(); n > count {
		n = count
	}
	e.page = n
}

// Select marks an id if it is present in the current filtered set.
func (e *Engine[T]) Select(id string) bool {
	for _, item := range e.filtered() {
		if e.binding.ID(item) == id {
			e.selected[id] = struct{}{}
			return true
		}
	}
	return false
}

// Deselect removes an id from the selection.
func (e *Engine[T]) Deselect(id string) {
	delete(e.selected, id)
}

// ClearSelection empties the selection.
func (e *Engine[T]) ClearSelection() {
	e.selected = make(map[string]struct{})
}

// Selected returns the selected ids in view order.
func (e *Engine[T]) Selected() []string {
	out := make([]string, 0, len(e.selected))
	for _, item := range e.filtered() {
		id := e.binding.ID(item)
		if _, ok := e.selected[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Materialize computes the current view: filter, then fixed newest-first
// order, then pagination. The page is clamped if filtering shrank the list.
func (e *Engine[T]) Materialize() View[T] {
	filtered := e.filtered()
	count := pageCountFor(len(filtered), e.pageSize)
	if e.page > count {
		e.page = count
	}

	items := filtered
	if e.pageSize > 0 {
		start := (e.page - 1) * e.pageSize
		if start > len(filtered) {
			start = len(filtered)
		}
		end := start + e.pageSize
		if end > len(filtered) {
			end = len(filtered)
		}
		items = filtered[start:end]
	}

	return View[T]{
		Items:         items,
		Page:          e.page,
		PageCount:     count,
		TotalFiltered: len(filtered),
		Seq:           e.lastSeq,
	}
}

// Filtered returns the full filtered set ignoring pagination, in view order.
// Export targets (CSV, print) render from this.
func (e *Engine[T]) Filtered() []T {
	return e.filtered()
}

// All returns the full snapshot ignoring filters, in view order. Aggregates
// recompute from this so an active search never skews them.
func (e *Engine[T]) All() []T {
	return e.items
}

func (e *Engine[T]) filtered() []T {
	out := make([]T, 0, len(e.items))
	for _, item := range e.items {
		if e.searchTerm != "" && !e.binding.Match(item, e.searchTerm) {
			continue
		}
		if e.dateFilter != nil && !sameLocalDay(e.binding.Timestamp(item), *e.dateFilter) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// pruneSelection keeps the invariant that selected ids are a subset of the
// ids present in the current filtered view.
func (e *Engine[T]) pruneSelection() {
	if len(e.selected) == 0 {
		return
	}
	visible := make(map[string]struct{})
	for _, item := range e.filtered() {
		visible[e.binding.ID(item)] = struct{}{}
	}
	for id := range e.selected {
		if _, ok := visible[id]; !ok {
			delete(e.selected, id)
		}
	}
}

func (e *Engine[T]) pageCount() int {
	return pageCountFor(len(e.filtered()), e.pageSize)
}

func pageCountFor(total, pageSize int) int {
	if pageSize <= 0 || total == 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

func sameLocalDay(a, b time.Time) bool {
	al, bl := a.Local(), b.Local()
	return al.Year() == bl.Year() && al.YearDay() == bl.YearDay()
}

// MatchFields reports whether any field contains the lower-cased term.
// Helper for bindings: matching is case-insensitive substring.
func MatchFields(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
