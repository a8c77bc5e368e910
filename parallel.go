package flowsig

import (
	"context"
	"errors"

	"github.com/hupe1980/flowsig/discretize"
	"github.com/hupe1980/flowsig/fingerprint"
	"golang.org/x/sync/errgroup"
)

// forEachChunk runs fn over contiguous row ranges [lo, hi) of rows on a
// bounded errgroup. chunk is the index of the range in row order.
//
// The context is checked between chunks. fn errors are not used to stop
// the batch; callers record them per chunk so the lowest failing row wins.
func (m *Model) forEachChunk(ctx context.Context, rows int, fn func(chunk, lo, hi int)) error {
	size := m.opts.chunkSize
	rc := m.opts.controller

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.workers)

	var err error
	for chunk, lo := 0, 0; lo < rows; chunk, lo = chunk+1, lo+size {
		if err = gctx.Err(); err != nil {
			break
		}
		hi := min(lo+size, rows)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer rc.ReleaseWorker()

			fn(chunk, lo, hi)
			return nil
		})
	}

	if werr := g.Wait(); werr != nil {
		return werr
	}
	return err
}

func numChunks(rows, size int) int {
	return (rows + size - 1) / size
}

// rowPipeline holds the per-worker scratch state of the signature pipeline.
type rowPipeline struct {
	disc   *discretize.Discretizer
	hasher *fingerprint.Hasher
	codes  discretize.CodeVector
}

func newRowPipeline(d *discretize.Discretizer, features int) *rowPipeline {
	return &rowPipeline{
		disc:   d,
		hasher: fingerprint.NewHasher(),
		codes:  make(discretize.CodeVector, 0, features),
	}
}

// signature runs one row through discretize and fingerprint.
// undefined reports whether any feature had no finite bucket.
func (p *rowPipeline) signature(row int, v []float64) (sig fingerprint.Signature, undefined bool, err error) {
	codes, bad, err := p.disc.Discretize(p.codes, v)
	if err != nil {
		var ue *discretize.UndefinedError
		if errors.As(err, &ue) {
			return 0, true, &DomainError{Row: row, Column: ue.Index, Value: ue.Value}
		}
		return 0, false, err
	}
	p.codes = codes
	return p.hasher.Sum(codes), len(bad) > 0, nil
}

// chunkResult collects what one chunk produced besides its main output.
type chunkResult struct {
	warnings []int
	err      error
}

// reduce concatenates chunk warnings in row order and returns the first
// chunk error.
func reduce(results []chunkResult) ([]int, error) {
	var warnings []int
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		warnings = append(warnings, r.warnings...)
	}
	return warnings, nil
}
