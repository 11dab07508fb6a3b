// Package utils holds small helpers with no domain knowledge.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a valid int. No trimming is done.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageBounds returns the half-open slice range [from, to) of the 1-based
// page of size pageSize over total items, and the number of pages.
// Pages past the end yield an empty range.
func PageBounds(total, page, pageSize int) (from, to, pages int) {
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}
	pages = (total + pageSize - 1) / pageSize
	from = min(total, (page-1)*pageSize)
	to = min(total, from+pageSize)
	return from, to, pages
}
