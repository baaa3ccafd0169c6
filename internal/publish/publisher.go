package publish

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/aakash-taneja/miles/internal/domain"
)

// DefaultChunkSize caps how many uploads run at once. The hosted artifact
// store rate-limits aggressively, so the ceiling is conservative.
const DefaultChunkSize = 3

// Uploader stores one payload and returns its content identifier and URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (domain.Variant, error)
}

// ProgressFunc receives the cumulative number of published payloads after
// each chunk completes. done never exceeds total and never decreases.
type ProgressFunc func(done, total int)

// Publisher pushes generated payloads to the artifact store in fixed-size
// chunks: all uploads within a chunk run concurrently, and the next chunk
// starts only once the whole chunk has finished. Any single failure fails the
// entire batch; nothing is reported as published.
type Publisher struct {
	uploader  Uploader
	chunkSize int
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithChunkSize overrides the concurrency ceiling.
func WithChunkSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// NewPublisher creates a Publisher over the given uploader.
func NewPublisher(uploader Uploader, opts ...Option) *Publisher {
	p := &Publisher{uploader: uploader, chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish uploads every payload and returns the variants in input order.
// Items are named <prefix>_<n>.jpg, 1-based. Intra-chunk completion order is
// not deterministic, so results are placed positionally rather than appended.
func (p *Publisher) Publish(ctx context.Context, prefix string, payloads [][]byte, progress ProgressFunc) ([]domain.Variant, error) {
	if p == nil || p.uploader == nil {
		return nil, errors.New("publish: no uploader configured")
	}
	total := len(payloads)
	if total == 0 {
		return nil, errors.New("publish: no payloads")
	}

	results := make([]domain.Variant, total)
	for start := 0; start < total; start += p.chunkSize {
		end := start + p.chunkSize
		if end > total {
			end = total
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				name := fmt.Sprintf("%s_%d.jpg", prefix, i+1)
				variant, err := p.uploader.Upload(gctx, name, payloads[i])
				if err != nil {
					return fmt.Errorf("publish: payload %d: %w", i+1, err)
				}
				results[i] = variant
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if progress != nil {
			done := end
			if done > total {
				done = total
			}
			progress(done, total)
		}
	}
	return results, nil
}
