// Package layout holds the presentation rules shared by the HTML pages and the JSON API:
// masonry column counts, the detail modal's lifecycle and icon lookup.
package layout

// Breakpoints in CSS pixels. A width below Breakpoints[i] yields i+1 columns.
var Breakpoints = [...]int{640, 768, 1024, 1280}

// MaxColumns is the column count at or above the last breakpoint.
const MaxColumns = len(Breakpoints) + 1

// Columns returns the masonry column count for a viewport width.
// Non-positive widths are treated as the narrowest viewport.
func Columns(width int) int {
	for i, bp := range Breakpoints {
		if width < bp {
			return i + 1
		}
	}
	return MaxColumns
}

// Distribute deals items round-robin into n columns, preserving order within each column.
// n below 1 is treated as 1. Every item lands in exactly one column.
func Distribute[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	cols := make([][]T, n)
	for i := range cols {
		cols[i] = make([]T, 0, (len(items)+n-1)/n)
	}
	for i, it := range items {
		cols[i%n] = append(cols[i%n], it)
	}
	return cols
}

// Grid is a masonry arrangement that is recomputed on resize.
type Grid[T any] struct {
	items   []T
	width   int
	columns [][]T
}

// NewGrid lays items out for width.
func NewGrid[T any](items []T, width int) *Grid[T] {
	g := &Grid[T]{items: items}
	g.Resize(width)
	return g
}

// Resize recomputes the columns when the count changes. It reports whether it did.
func (g *Grid[T]) Resize(width int) bool {
	g.width = width
	n := Columns(width)
	if g.columns != nil && len(g.columns) == n {
		return false
	}
	g.columns = Distribute(g.items, n)
	return true
}

// Columns returns the current arrangement.
func (g *Grid[T]) Columns() [][]T { return g.columns }

// Width is the width passed to the last Resize.
func (g *Grid[T]) Width() int { return g.width }

// Len counts the items across all columns.
func (g *Grid[T]) Len() int {
	n := 0
	for _, c := range g.columns {
		n += len(c)
	}
	return n
}
