package embed

import (
	"context"
	"errors"
	"time"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
)

// EmbedWithTimeout runs one Embed call bounded by d (DefaultTimeout if
// d <= 0). An expired deadline yields ErrEmbeddingTimeout; cancellation of
// ctx itself is returned unchanged.
func EmbedWithTimeout(ctx context.Context, e Embedder, text string, d time.Duration) ([]float32, error) {
	if d <= 0 {
		d = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		vec []float32
		err error
	}
	done := make(chan result, 1)
	go func() {
		vec, err := e.Embed(callCtx, text)
		done <- result{vec, err}
	}()

	// Providers that ignore ctx must not hold the caller past the deadline.
	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(r.err, context.DeadlineExceeded) {
			return nil, timeoutError(e, d)
		}
		return r.vec, r.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, timeoutError(e, d)
	}
}

func timeoutError(e Embedder, d time.Duration) error {
	return fserrors.New(fserrors.ErrCodeEmbeddingTimeout, "embedding call timed out", context.DeadlineExceeded).
		WithDetail("model", e.ModelName()).
		WithDetail("timeout", d.String())
}
