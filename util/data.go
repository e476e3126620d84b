package util

import (
	"slices"

	"golang.org/x/exp/constraints"
)

func CopySlice[T any](src []T) []T {
	dst := make([]T, len(src))
	copy(dst, src)
	return dst
}

func Filter[T any](ss []T, test func(T) bool) (ret []T) {
	for _, s := range ss {
		if test(s) {
			ret = append(ret, s)
		}
	}
	return
}

func FindInSlice[T any](slice []T, checker func(T) bool) *T {
	index := slices.IndexFunc(slice, checker)
	if index == -1 {
		return nil
	}
	return &slice[index]
}

func Map[T1 any, T2 any](ss []T1, mapper func(T1) T2) (ret []T2) {
	for _, s := range ss {
		ret = append(ret, mapper(s))
	}
	return
}

// Return de-duplicated slice, preserving the order of first occurrences.
func UniqueSlice[T comparable](slice []T) []T {
	keys := map[T]bool{}
	list := []T{}
	for _, entry := range slice {
		if !keys[entry] {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// Split slice into consecutive chunks, each of which has at most size elements.
// The last chunk may be smaller. Return nil if slice is empty.
func Chunk[T any](slice []T, size int) (chunks [][]T) {
	if size <= 0 {
		size = len(slice)
	}
	for len(slice) > 0 {
		n := min(size, len(slice))
		chunks = append(chunks, slice[:n:n])
		slice = slice[n:]
	}
	return
}

func MapKeys[T constraints.Ordered, TV any](input map[T]TV) []T {
	keys := make([]T, 0, len(input))
	for key := range input {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
