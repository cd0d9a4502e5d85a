package pagination

// Merge combines a page with the items loaded so far.
// With reset the result is exactly the page items; otherwise the page is
// appended in order. Items are not de-duplicated: the request offset is
// trusted to avoid overlap. The result never shares storage with existing.
func Merge[T any](existing []T, page Page[T], reset bool) []T {
	if reset {
		existing = nil
	}

	merged := make([]T, 0, len(existing)+len(page.Items))
	merged = append(merged, existing...)
	merged = append(merged, page.Items...)
	return merged
}

// HasMore reports whether further pages exist.
// A short page does not mean the end of the collection; only total does.
func HasMore(loaded, total int) bool {
	return loaded < total
}
