package view

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	id    string
	name  string
	email string
	at    time.Time
}

var binding = Binding[record]{
	ID:        func(r record) string { return r.id },
	Timestamp: func(r record) time.Time { return r.at },
	Match: func(r record, term string) bool {
		return MatchFields(term, r.name, r.email)
	},
}

func day(d int) time.Time {
	return time.Date(2025, 6, d, 10, 0, 0, 0, time.UTC)
}

func records(n int) []record {
	out := make([]record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, record{
			id:    fmt.Sprintf("r%d", i),
			name:  fmt.Sprintf("Person %d", i),
			email: fmt.Sprintf("p%d@x.com", i),
			at:    day(1).Add(time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestApplyRejectsStaleSnapshots(t *testing.T) {
	e := NewEngine(binding, 10)

	require.True(t, e.Apply(2, records(3)))
	assert.False(t, e.Apply(2, records(1)), "equal sequence is a no-op")
	assert.False(t, e.Apply(1, records(1)), "older sequence is a no-op")

	v := e.Materialize()
	assert.Equal(t, 3, v.TotalFiltered, "view still reflects seq 2")
	assert.Equal(t, uint64(2), v.Seq)

	require.True(t, e.Apply(3, records(4)))
	assert.Equal(t, 4, e.Materialize().TotalFiltered)
}

func TestSortNewestFirst(t *testing.T) {
	e := NewEngine(binding, 0)
	items := []record{
		{id: "old", at: day(1)},
		{id: "new", at: day(3)},
		{id: "mid", at: day(2)},
	}
	require.True(t, e.Apply(1, items))

	v := e.Materialize()
	require.Len(t, v.Items, 3)
	assert.Equal(t, "new", v.Items[0].id)
	assert.Equal(t, "mid", v.Items[1].id)
	assert.Equal(t, "old", v.Items[2].id)
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	e := NewEngine(binding, 0)
	require.True(t, e.Apply(1, []record{
		{id: "r1", name: "Jane Doe", email: "jane@mail.com", at: day(1)},
		{id: "r2", name: "Marc", email: "marc@mail.com", at: day(2)},
	}))

	e.SetSearch("JANE@MAIL")
	v := e.Materialize()
	require.Len(t, v.Items, 1)
	assert.Equal(t, "r1", v.Items[0].id)

	e.SetSearch("doe")
	require.Len(t, e.Materialize().Items, 1)
}

func TestFilterChangeResetsPage(t *testing.T) {
	e := NewEngine(binding, 10)
	require.True(t, e.Apply(1, records(25)))

	e.SetPage(3)
	assert.Equal(t, 3, e.Materialize().Page)

	e.SetSearch("person")
	assert.Equal(t, 1, e.Materialize().Page, "search change resets to page 1")

	e.SetPage(2)
	d := day(1)
	e.SetDateFilter(&d)
	assert.Equal(t, 1, e.Materialize().Page, "date filter change resets to page 1")
}

func TestSameFilterTwiceIsIdempotent(t *testing.T) {
	e := NewEngine(binding, 10)
	require.True(t, e.Apply(1, records(25)))

	e.SetSearch("person 1")
	first := e.Materialize()
	e.SetSearch("person 1")
	second := e.Materialize()
	assert.Equal(t, first, second)
}

func TestPageClampsWhenFilteringShrinksList(t *testing.T) {
	e := NewEngine(binding, 10)
	require.True(t, e.Apply(1, records(35)))

	e.SetPage(4)
	require.Equal(t, 4, e.Materialize().Page)

	// A smaller snapshot arrives: 12 records leave only 2 pages.
	require.True(t, e.Apply(2, records(12)))
	v := e.Materialize()
	assert.Equal(t, 2, v.Page, "page clamped to last valid page")
	assert.Equal(t, 2, v.PageCount)
	assert.Len(t, v.Items, 2)
}

func TestDateFilterMatchesLocalCalendarDay(t *testing.T) {
	e := NewEngine(binding, 0)
	require.True(t, e.Apply(1, []record{
		{id: "r1", at: time.Date(2025, 6, 1, 0, 30, 0, 0, time.Local)},
		{id: "r2", at: time.Date(2025, 6, 1, 23, 30, 0, 0, time.Local)},
		{id: "r3", at: time.Date(2025, 6, 2, 0, 10, 0, 0, time.Local)},
	}))

	d := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	e.SetDateFilter(&d)
	v := e.Materialize()
	require.Len(t, v.Items, 2)

	e.SetDateFilter(nil)
	assert.Len(t, e.Materialize().Items, 3)
}

func TestPaginationBoundaries(t *testing.T) {
	e := NewEngine(binding, 10)
	require.True(t, e.Apply(1, records(21)))

	v := e.Materialize()
	assert.Equal(t, 3, v.PageCount)
	assert.Len(t, v.Items, 10)

	e.SetPage(3)
	v = e.Materialize()
	assert.Len(t, v.Items, 1, "last page holds the remainder")

	e.SetPage(99)
	assert.Equal(t, 3, e.Materialize().Page, "set page clamps high")
	e.SetPage(-1)
	assert.Equal(t, 1, e.Materialize().Page, "set page clamps low")
}

func TestUnpaginatedEngineReturnsFullFilteredSet(t *testing.T) {
	e := NewEngine(binding, 0)
	require.True(t, e.Apply(1, records(25)))

	v := e.Materialize()
	assert.Equal(t, 1, v.PageCount)
	assert.Len(t, v.Items, 25)
}

func TestSelectionPrunedOnSnapshot(t *testing.T) {
	e := NewEngine(binding, 0)
	require.True(t, e.Apply(1, records(3)))

	require.True(t, e.Select("r1"))
	require.True(t, e.Select("r3"))
	assert.False(t, e.Select("ghost"), "cannot select an id outside the view")

	// r3 disappears from the next snapshot.
	require.True(t, e.Apply(2, records(2)))
	assert.Equal(t, []string{"r1"}, e.Selected())
}

func TestSelectionPrunedOnFilterChange(t *testing.T) {
	e := NewEngine(binding, 0)
	require.True(t, e.Apply(1, []record{
		{id: "r1", name: "Jane", at: day(1)},
		{id: "r2", name: "Marc", at: day(2)},
	}))

	require.True(t, e.Select("r1"))
	require.True(t, e.Select("r2"))

	e.SetSearch("jane")
	assert.Equal(t, []string{"r1"}, e.Selected(), "selection stays a subset of the visible view")

	e.ClearSelection()
	assert.Empty(t, e.Selected())
}

func TestFilteredIgnoresPagination(t *testing.T) {
	e := NewEngine(binding, 10)
	require.True(t, e.Apply(1, records(25)))

	assert.Len(t, e.Filtered(), 25)
	assert.Len(t, e.Materialize().Items, 10)
}
