package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers = 1
	maxWorkers     = 8
)

// ReleaseFetcher loads one release. [services.CollectionAccessor] satisfies it.
type ReleaseFetcher interface {
	GetRelease(ctx context.Context, id int) (models.Release, error)
}

// ExportOpts tunes how releases are fetched.
type ExportOpts struct {
	Workers           int     // Concurrent fetches (default: 1)
	RequestsPerSecond float64 // Pacing; zero or less disables it
}

func (o ExportOpts) withDefaults() ExportOpts {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.Workers > maxWorkers {
		o.Workers = maxWorkers
	}
	return o
}

// FailedRelease is a selected release that could not be fetched.
type FailedRelease struct {
	ID  int
	Err error
}

// FetchResult holds fetched releases in selection order and the ones that
// were skipped.
type FetchResult struct {
	Releases []models.Release
	Failed   []FailedRelease
}

// SkippedIDs lists the ids of failed releases in selection order.
func (r *FetchResult) SkippedIDs() []int {
	ids := make([]int, 0, len(r.Failed))
	for _, f := range r.Failed {
		ids = append(ids, f.ID)
	}
	return ids
}

// FetchReleases fetches ids with at most opts.Workers requests in flight.
// Individual failures are skipped. When every id fails the error wraps
// [shared.ErrNotFound]; a cancelled ctx returns ctx.Err().
func FetchReleases(
	ctx context.Context,
	fetcher ReleaseFetcher,
	ids []int,
	opts ExportOpts,
	prog chan<- ProgressUpdate,
	logger *log.Logger,
) (*FetchResult, error) {
	if logger == nil {
		logger = log.Default()
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no releases selected", shared.ErrValidation)
	}
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	releases := make([]*models.Release, len(ids))
	errs := make([]error, len(ids))

	var (
		mu        sync.Mutex
		completed int
	)
	done := func(i int) {
		mu.Lock()
		defer mu.Unlock()
		completed++
		if errs[i] != nil {
			sendProgress(prog, releaseFailedUpdate(completed, len(ids), ids[i], errs[i]))
		} else {
			sendProgress(prog, releaseFetchedUpdate(completed, len(ids), *releases[i]))
		}
	}

	sendProgress(prog, fetchingReleasesUpdate(len(ids)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, id := range ids {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}
			if err := gctx.Err(); err != nil {
				return err
			}

			r, err := fetcher.GetRelease(gctx, id)
			if err != nil {
				logger.Warn("skipping release", "id", id, "error", err)
				errs[i] = err
			} else {
				releases[i] = &r
			}
			done(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &FetchResult{Releases: make([]models.Release, 0, len(ids))}
	for i, id := range ids {
		if releases[i] != nil {
			result.Releases = append(result.Releases, *releases[i])
			continue
		}
		result.Failed = append(result.Failed, FailedRelease{ID: id, Err: errs[i]})
	}

	if len(result.Releases) == 0 {
		return result, fmt.Errorf("%w: none of the %d selected releases could be fetched", shared.ErrNotFound, len(ids))
	}
	return result, nil
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
