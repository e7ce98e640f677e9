package quotes

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"remit-scout/quotes/types"

	"github.com/armon/go-metrics"
	"github.com/rs/zerolog"
)

const (
	// maxWorkers caps the fan-out pool regardless of configuration.
	maxWorkers = 32

	// overallSlack is added on top of the per-provider timeout to form the
	// whole fan-out's deadline, covering scheduling and collection overhead.
	overallSlack = 1500 * time.Millisecond

	// drainTimeout bounds how long the executor waits for in-flight workers
	// after the overall deadline fires.
	drainTimeout = 2 * time.Second

	defaultProviderTimeout = 30 * time.Second
)

type (
	// Executor fans a quote request out over the active providers with a
	// bounded worker pool and returns results in registry order. Every
	// provider slot is filled: adapters that do not answer before the
	// overall deadline are reported as Timeout failures, and their late
	// results are discarded.
	Executor struct {
		registry *Registry
		logger   zerolog.Logger
	}

	indexedResult struct {
		idx int
		res types.RawResult
	}
)

func NewExecutor(registry *Registry, logger zerolog.Logger) *Executor {
	return &Executor{
		registry: registry,
		logger:   logger.With().Str("module", "executor").Logger(),
	}
}

// Execute runs the request against ids, honoring the request's per-provider
// timeout and worker count. The parent context cancels the whole fan-out.
func (e *Executor) Execute(ctx context.Context, ids []string, req types.QuoteRequest) []types.RawResult {
	if len(ids) == 0 {
		return nil
	}

	perProvider := req.Options.PerProviderTimeout
	if perProvider <= 0 {
		perProvider = defaultProviderTimeout
	}
	workers := req.Options.MaxWorkers
	if workers <= 0 || workers > len(ids) {
		workers = len(ids)
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}

	overall, cancel := context.WithTimeout(ctx, perProvider+overallSlack)
	defer cancel()

	jobs := make(chan int)
	resultCh := make(chan indexedResult, len(ids))

	for w := 0; w < workers; w++ {
		go func() {
			for idx := range jobs {
				resultCh <- indexedResult{idx: idx, res: e.quoteOne(overall, ids[idx], perProvider, req)}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for idx := range ids {
			select {
			case jobs <- idx:
			case <-overall.Done():
				return
			}
		}
	}()

	results := make([]types.RawResult, len(ids))
	pending := make(map[int]struct{}, len(ids))
	for idx := range ids {
		pending[idx] = struct{}{}
	}

	deadline := time.NewTimer(perProvider + overallSlack)
	defer deadline.Stop()

collect:
	for len(pending) > 0 {
		select {
		case ir := <-resultCh:
			results[ir.idx] = ir.res
			delete(pending, ir.idx)
		case <-deadline.C:
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	if len(pending) > 0 {
		cancel()
		e.drain(resultCh, results, pending)
	}
	for idx := range pending {
		metrics.IncrCounterWithLabels([]string{"executor", "discarded"}, 1,
			[]metrics.Label{{Name: "provider", Value: ids[idx]}})
		results[idx] = types.NewRawFailure(ids[idx], types.ErrTimeout,
			"provider did not answer before the aggregation deadline")
	}
	return results
}

// drain gives cancelled workers a short grace window to hand over results
// that were already computed.
func (e *Executor) drain(resultCh <-chan indexedResult, results []types.RawResult, pending map[int]struct{}) {
	grace := time.NewTimer(drainTimeout)
	defer grace.Stop()

	for len(pending) > 0 {
		select {
		case ir := <-resultCh:
			if _, ok := pending[ir.idx]; ok {
				results[ir.idx] = ir.res
				delete(pending, ir.idx)
			}
		case <-grace.C:
			return
		}
	}
}

// quoteOne runs a single provider under its own deadline, converting panics
// into Internal failures so one adapter cannot take the fan-out down.
func (e *Executor) quoteOne(ctx context.Context, id string, timeout time.Duration, req types.QuoteRequest) (res types.RawResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("provider", id).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("provider panicked")
			metrics.IncrCounterWithLabels([]string{"executor", "panic"}, 1,
				[]metrics.Label{{Name: "provider", Value: id}})
			res = types.NewRawFailure(id, types.ErrInternal, fmt.Sprintf("provider panicked: %v", r))
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res = e.registry.Quote(callCtx, id, req)
	elapsed := time.Since(start)

	metrics.MeasureSinceWithLabels([]string{"executor", "provider_latency"}, start,
		[]metrics.Label{{Name: "provider", Value: id}})
	if res.Success {
		metrics.IncrCounterWithLabels([]string{"executor", "success"}, 1,
			[]metrics.Label{{Name: "provider", Value: id}})
	} else {
		metrics.IncrCounterWithLabels([]string{"executor", "failure"}, 1,
			[]metrics.Label{
				{Name: "provider", Value: id},
				{Name: "kind", Value: res.ErrorKind.String()},
			})
	}
	e.logger.Debug().
		Str("provider", id).
		Bool("success", res.Success).
		Dur("elapsed", elapsed).
		Msg("provider answered")
	return res
}
