package services

import (
	"context"
	"errors"
	"fmt"
)

// ChunkError records a chunk that failed to write: items[Start:End].
type ChunkError struct {
	Start int
	End   int
	Err   error
}

func (e ChunkError) Error() string {
	return fmt.Sprintf("items %d-%d: %v", e.Start, e.End, e.Err)
}

func (e ChunkError) Unwrap() error {
	return e.Err
}

// BatchReport summarises a [WriteBatches] run.
type BatchReport struct {
	Calls   int
	Written int
	Failed  []ChunkError
}

// Err joins the chunk errors, or returns nil when every chunk was written.
func (r BatchReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// WriteBatches writes items in chunks of size, strictly in order and one call at a time.
//
// A failed chunk is recorded and the next chunk is still written. When ctx is cancelled the
// remaining range is recorded as failed without further calls. A size of zero or less writes
// everything in one call.
func WriteBatches[T any](ctx context.Context, items []T, size int, write func(ctx context.Context, chunk []T) error) BatchReport {
	var report BatchReport
	if size <= 0 {
		size = len(items)
	}

	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, ChunkError{Start: start, End: len(items), Err: err})
			break
		}

		end := min(start+size, len(items))
		report.Calls++
		if err := write(ctx, items[start:end]); err != nil {
			report.Failed = append(report.Failed, ChunkError{Start: start, End: end, Err: err})
			continue
		}
		report.Written += end - start
	}

	return report
}
