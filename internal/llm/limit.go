package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limited wraps a Provider with a request rate limit and a per-call timeout.
// A zero rps disables the limiter; a zero timeout leaves the caller's
// deadline in charge.
type Limited struct {
	next    Provider
	limiter *rate.Limiter
	timeout time.Duration
}

func NewLimited(next Provider, rps float64, timeout time.Duration) *Limited {
	l := &Limited{next: next, timeout: timeout}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return l
}

func (l *Limited) Chat(ctx context.Context, req Request) (ChatResponse, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return ChatResponse{}, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return l.next.Chat(ctx, req)
}
