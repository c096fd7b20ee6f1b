// Package token wraps the tiktoken cl100k_base encoding used for all
// chunk sizing and batch budgeting decisions.
package token

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens with a fixed tiktoken encoding. Counting is
// pure: the same text always yields the same count.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter returns a Counter using the cl100k_base encoding.
func NewCounter() (*Counter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &Counter{encoding: encoding}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if c.encoding == nil {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}
