// Package scroll decides when a scrolled list has approached the end of its
// rendered content.
package scroll

// DefaultThreshold is the distance from the end of the content at which the
// next page should be requested.
const DefaultThreshold = 200.0

// Metrics describes a scrollable surface in one distance unit (usually pixels).
type Metrics struct {
	ViewportHeight float64
	ContentHeight  float64
	ScrollOffset   float64
}

// IsNearEnd reports whether the bottom of the viewport is within threshold
// of the end of the content.
func IsNearEnd(viewportHeight, contentHeight, scrollOffset, threshold float64) bool {
	return scrollOffset+viewportHeight >= contentHeight-threshold
}

// NearEnd applies IsNearEnd to m. A negative threshold falls back to DefaultThreshold.
func (m Metrics) NearEnd(threshold float64) bool {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return IsNearEnd(m.ViewportHeight, m.ContentHeight, m.ScrollOffset, threshold)
}
