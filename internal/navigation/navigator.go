// Package navigation tracks the current question of an attempt.
package navigation

import "math"

// Navigator holds a question pointer that always addresses a valid position
// of an immutable question list. Out-of-range requests are clamped.
type Navigator struct {
	index int
	total int
}

// New creates a Navigator over total questions, positioned at the first one.
func New(total int) *Navigator {
	if total < 0 {
		total = 0
	}
	return &Navigator{total: total}
}

// Index returns the current position.
func (n *Navigator) Index() int { return n.index }

// Total returns the number of questions.
func (n *Navigator) Total() int { return n.total }

// Next moves forward one question; no-op at the last question.
func (n *Navigator) Next() int { return n.GoTo(n.index + 1) }

// Previous moves back one question; no-op at the first question.
func (n *Navigator) Previous() int { return n.GoTo(n.index - 1) }

// GoTo jumps to i, clamped to [0, total-1].
func (n *Navigator) GoTo(i int) int {
	last := n.total - 1
	if i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	n.index = i
	return n.index
}

// IsFirst reports whether the pointer is on the first question.
func (n *Navigator) IsFirst() bool { return n.index == 0 }

// IsLast reports whether the pointer is on the last question.
func (n *Navigator) IsLast() bool { return n.total == 0 || n.index == n.total-1 }

// ProgressPercent returns round((index+1)/total*100).
func (n *Navigator) ProgressPercent() int {
	if n.total == 0 {
		return 0
	}
	return int(math.Round(float64(n.index+1) / float64(n.total) * 100))
}
