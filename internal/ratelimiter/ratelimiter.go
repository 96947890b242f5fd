package ratelimiter

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// RateLimiter throttles byte streams using the token bucket algorithm.
//
// One token is one byte. Tokens are added at the configured rate and the
// bucket holds at most burst tokens, so short reads go through immediately
// while sustained transfers settle at the limit.
//
// Thread safety:
// All methods are safe for concurrent use. Readers sharing a RateLimiter
// share its bandwidth.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing bytesPerSecond with the given burst.
//
// A zero rate means unlimited. A zero burst defaults to one second of
// traffic, capped to 1 MiB.
func New(bytesPerSecond, burst uint) *RateLimiter {
	if bytesPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = min(bytesPerSecond, 1<<20)
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), int(burst)),
	}
}

// Unlimited reports whether the limiter never blocks.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// WaitN blocks until n bytes may pass or ctx is done. Requests larger than
// the burst are split.
func (r *RateLimiter) WaitN(ctx context.Context, n int) error {
	if r.Unlimited() {
		return ctx.Err()
	}
	burst := r.limiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := r.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// Reader returns a reader that waits for tokens after every read.
func (r *RateLimiter) Reader(ctx context.Context, src io.Reader) io.Reader {
	if r.Unlimited() {
		return src
	}
	return &reader{ctx: ctx, src: src, limiter: r}
}

// ReadSeeker is like Reader but keeps the source seekable, which signed S3
// uploads need to rewind the body.
func (r *RateLimiter) ReadSeeker(ctx context.Context, src io.ReadSeeker) io.ReadSeeker {
	if r.Unlimited() {
		return src
	}
	return &readSeeker{reader: reader{ctx: ctx, src: src, limiter: r}, seeker: src}
}

type reader struct {
	ctx     context.Context
	src     io.Reader
	limiter *RateLimiter
}

func (r *reader) Read(p []byte) (int, error) {
	// Never read more than one bucket at a time.
	if burst := r.limiter.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := r.src.Read(p)
	if n > 0 {
		if werr := r.limiter.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

type readSeeker struct {
	reader
	seeker io.Seeker
}

func (r *readSeeker) Seek(offset int64, whence int) (int64, error) {
	return r.seeker.Seek(offset, whence)
}
