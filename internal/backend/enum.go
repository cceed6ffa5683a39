package backend

import (
	"gowinmd/internal/token"
)

// Enumerator is an open cursor over a token collection. Next returns ok ==
// false once the collection is exhausted. Close must be called exactly once;
// Collect and Each do so on every path.
type Enumerator interface {
	Next() (t token.Token, ok bool, err error)
	Close() error
}

// Collect opens a cursor, drains it and closes it.
func Collect(open func() (Enumerator, error)) ([]token.Token, error) {
	var tokens []token.Token
	err := Each(open, func(t token.Token) (bool, error) {
		tokens = append(tokens, t)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Each opens a cursor and calls fn for every token until fn returns false or
// an error. The cursor is closed before Each returns.
func Each(open func() (Enumerator, error), fn func(token.Token) (bool, error)) (err error) {
	e, err := open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := e.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for {
		t, ok, err := e.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		more, err := fn(t)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// SliceEnumerator walks a fixed token list.
type SliceEnumerator struct {
	tokens  []token.Token
	pos     int
	closed  bool
	onClose func()
}

func NewSliceEnumerator(tokens []token.Token) *SliceEnumerator {
	return &SliceEnumerator{tokens: tokens}
}

func (e *SliceEnumerator) Next() (token.Token, bool, error) {
	if e.closed {
		return 0, false, fail("Next", 0, ErrClosed)
	}
	if e.pos >= len(e.tokens) {
		return 0, false, nil
	}
	t := e.tokens[e.pos]
	e.pos++
	return t, true, nil
}

func (e *SliceEnumerator) Close() error {
	if e.closed {
		return fail("Close", 0, ErrClosed)
	}
	e.closed = true
	if e.onClose != nil {
		e.onClose()
	}
	return nil
}
