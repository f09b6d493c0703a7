package core

import (
	"slices"
	"strings"
)

// CategoryNames returns a copy of the registered names for t.
func (g *Group) CategoryNames(t TxType) []string {
	return append([]string{}, g.Categories[t]...)
}

// HasCategory reports whether name is registered for t.
func (g *Group) HasCategory(t TxType, name string) bool {
	return slices.Contains(g.Categories[t], name)
}

// AddCategory appends name to the list for t. Empty and duplicate names are
// rejected without touching the list.
func (g *Group) AddCategory(t TxType, name string) error {
	if !t.Valid() {
		return invalid("type", ErrInvalidType)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("name", ErrEmptyCategory)
	}
	if g.HasCategory(t, name) {
		return invalid("name", ErrDuplicateCategory)
	}
	if g.Categories == nil {
		g.Categories = Categories{}
	}
	g.Categories[t] = append(g.Categories[t], name)
	return nil
}

// RemoveCategory drops the first entry equal to the trimmed name.
// Transactions that reference the name keep it.
func (g *Group) RemoveCategory(t TxType, name string) error {
	if !t.Valid() {
		return invalid("type", ErrInvalidType)
	}
	idx := slices.Index(g.Categories[t], strings.TrimSpace(name))
	if idx < 0 {
		return invalid("name", ErrCategoryNotFound)
	}
	g.Categories[t] = slices.Delete(g.Categories[t], idx, idx+1)
	return nil
}
