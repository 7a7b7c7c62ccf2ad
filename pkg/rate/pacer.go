package rate

import (
	"context"
	"time"
)

// Pacer smooths outbound request bursts with a token bucket: limit
// tokens per second are minted, init tokens are available immediately.
type Pacer struct {
	ctx context.Context
	q   chan struct{}
}

// NewPacer allocates limit tokens per second with init pre-filled.
func NewPacer(ctx context.Context, limit, init int) *Pacer {
	return &Pacer{ctx: ctx, q: spawnTokenProvider(ctx, limit, init)}
}

// Take blocks until a token is available or ctx is done.
func (p *Pacer) Take(ctx context.Context) bool {
	if ctx == nil {
		ctx = p.ctx
	}
	select {
	case <-ctx.Done():
		return false
	case <-p.q:
		return true
	}
}

func spawnTokenProvider(ctx context.Context, limit, init int) chan struct{} {
	if init > limit {
		init = limit
	}
	q := make(chan struct{}, limit)
	for i := 0; i < init; i++ {
		q <- struct{}{}
	}

	go func() {
		defer close(q)
		ticker := time.NewTicker(time.Duration(float64(time.Second) / float64(limit)))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case q <- struct{}{}:
				default:
				}
			}
		}
	}()

	return q
}
