// Package staleguard drops responses to requests that have been superseded
// by a newer one.
package staleguard

import "sync/atomic"

// Token identifies one triggered request.
type Token uint64

// Generation hands out monotonically increasing tokens. The zero value is
// ready to use and safe for concurrent callers.
type Generation struct {
	current atomic.Uint64
}

// Next starts a new generation and invalidates every earlier token.
func (g *Generation) Next() Token {
	return Token(g.current.Add(1))
}

// IsCurrent reports whether tok is still the latest generation.
func (g *Generation) IsCurrent(tok Token) bool {
	return g.current.Load() == uint64(tok)
}
