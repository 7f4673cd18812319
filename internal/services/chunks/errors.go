package chunks

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnordered        = errors.New("chunks: metadata is not in ascending order")
	ErrInvalidChunkSize = errors.New("chunks: chunk size must be positive")
	ErrPackMismatch     = errors.New("chunks: rows do not match the chunk header")
	ErrChunkLength      = errors.New("chunks: only the last chunk may be incomplete")
)

// OrderingError reports the first pair of chunk start times that are not ascending.
type OrderingError struct {
	First  time.Time
	Second time.Time
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("chunk dates should be in ascending order, got %s => %s",
		e.First.Format(time.RFC3339), e.Second.Format(time.RFC3339))
}

func (e *OrderingError) Is(target error) bool { return target == ErrUnordered }

// PackMismatchError reports the row and field that failed strict validation.
type PackMismatchError struct {
	Row   int
	Field string
	Want  any
	Got   any
}

func (e *PackMismatchError) Error() string {
	if e.Want == nil && e.Got == nil {
		return fmt.Sprintf("row %d: missing field %q", e.Row, e.Field)
	}
	return fmt.Sprintf("row %d: %s mismatch: want %v, got %v", e.Row, e.Field, e.Want, e.Got)
}

func (e *PackMismatchError) Is(target error) bool { return target == ErrPackMismatch }

// ChunkLengthError lists the item counts of every chunk when a non-trailing chunk is short.
type ChunkLengthError struct {
	ChunkSize int
	Lengths   []int
}

func (e *ChunkLengthError) Error() string {
	return fmt.Sprintf("only the last chunk should have fewer than %d items, lengths: %v", e.ChunkSize, e.Lengths)
}

func (e *ChunkLengthError) Is(target error) bool { return target == ErrChunkLength }
