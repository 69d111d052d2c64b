package f

import (
	"cmp"
	"slices"
)

type Set[T comparable] struct {
	items map[T]struct{}
}

func NewSet[T comparable](items ...T) Set[T] {
	s := Set[T]{items: make(map[T]struct{}, len(items))}
	for _, item := range items {
		s.items[item] = struct{}{}
	}
	return s
}

// Add is a no-op for values already in the set
func (s *Set[T]) Add(item T) {
	if s.items == nil {
		s.items = make(map[T]struct{})
	}
	s.items[item] = struct{}{}
}

func (s Set[T]) Remove(item T) {
	delete(s.items, item)
}

// Contains is safe on the zero value
func (s Set[T]) Contains(item T) bool {
	_, ok := s.items[item]
	return ok
}

func (s Set[T]) Len() int {
	return len(s.items)
}

// Items returns the members in no particular order
func (s Set[T]) Items() []T {
	items := make([]T, 0, len(s.items))
	for item := range s.items {
		items = append(items, item)
	}
	return items
}

// SortedItems returns the members in ascending order
func SortedItems[T cmp.Ordered](s Set[T]) []T {
	items := s.Items()
	slices.Sort(items)
	return items
}

func Map[T, U any](ts []T, fn func(T) U) []U {
	us := make([]U, len(ts))
	for i, t := range ts {
		us[i] = fn(t)
	}
	return us
}

func Filtered[T any](ts []T, keep func(T) bool) []T {
	out := make([]T, 0, len(ts))
	for _, t := range ts {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// RemoveDuplicates keeps the first occurrence of every value
func RemoveDuplicates[T comparable](ts []T) []T {
	seen := make(map[T]struct{}, len(ts))
	out := make([]T, 0, len(ts))
	for _, t := range ts {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SlicesItemsMatch reports whether both slices hold the same items with the same multiplicity, ignoring order
func SlicesItemsMatch[T comparable](s1, s2 []T) bool {
	if len(s1) != len(s2) {
		return false
	}
	counts := make(map[T]int, len(s1))
	for _, t := range s1 {
		counts[t]++
	}
	for _, t := range s2 {
		counts[t]--
		if counts[t] < 0 {
			return false
		}
	}
	return true
}
