package render

import "strings"

const wordsPerMinute = 200

// ReadingTime estimates minutes to read: word count over 200, rounded
// up, never below 1.
func ReadingTime(text string) int {
	words := len(strings.Fields(text))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Progress converts a scroll offset into a 0-100 percentage of the
// maximum scrollable distance.
func Progress(offset, max float64) float64 {
	if max <= 0 {
		return 0
	}
	p := offset / max * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
