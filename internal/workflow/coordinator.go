// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// AggregateResult maps subject URIs to the facts retained for them. Boring
// subjects are present with an empty list.
type AggregateResult map[string][]types.Fact

// Subjects returns the subject URIs in sorted order.
func (a AggregateResult) Subjects() []string {
	out := make([]string, 0, len(a))
	for s := range a {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Len returns the total number of facts.
func (a AggregateResult) Len() int {
	n := 0
	for _, fs := range a {
		n += len(fs)
	}
	return n
}

// All returns every fact, grouped by sorted subject.
func (a AggregateResult) All() []types.Fact {
	var out []types.Fact
	for _, s := range a.Subjects() {
		out = append(out, a[s]...)
	}
	return out
}

// Failure records an input whose dispatch was aborted.
type Failure struct {
	// Index is the position of the input in the discovered list.
	Index   int
	Type    types.InputType
	Subject string
	Err     error
}

// RunResult is the outcome of one coordinator run.
type RunResult struct {
	Facts    AggregateResult
	Boring   []string
	Failures []Failure
	Stats    types.RunStats
}

// Coordinator discovers inputs and fans their dispatch out over a bounded
// worker pool.
type Coordinator struct {
	Registry   *Registry
	Dispatcher *Dispatcher

	// Workers bounds concurrent dispatches (default 1).
	Workers int

	Logger *zap.SugaredLogger
}

// NewCoordinator builds a coordinator whose dispatcher applies policy and
// timeout to every input.
func NewCoordinator(reg *Registry, policy BoringPolicy, workers int, timeout time.Duration) *Coordinator {
	return &Coordinator{
		Registry:   reg,
		Dispatcher: &Dispatcher{Registry: reg, Policy: policy, Timeout: timeout},
		Workers:    workers,
	}
}

func (c *Coordinator) logger() *zap.SugaredLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return c.Registry.Logger()
}

// Run discovers inputs of the given types and dispatches all of them.
func (c *Coordinator) Run(ctx context.Context, inputTypes []types.InputType, maxInputs int) (RunResult, error) {
	start := time.Now()
	items, err := c.Registry.Discover(ctx, inputTypes, maxInputs)
	if err != nil {
		return RunResult{Facts: AggregateResult{}}, errors.Wrap(err, "discovering inputs")
	}
	res, err := c.RunItems(ctx, items)
	res.Stats.Elapsed = time.Since(start)
	return res, err
}

type outcome struct {
	index int
	item  types.InputItem
	res   ItemResult
	err   error
}

// RunItems dispatches items over the worker pool. A failing item is recorded
// in Failures and does not stop the others. The merge happens in the caller
// by input index, so the result does not depend on completion order. The
// returned error is the context's, if it was cancelled.
func (c *Coordinator) RunItems(ctx context.Context, items []types.InputItem) (RunResult, error) {
	log := c.logger()
	start := time.Now()

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	log.Infow("dispatching", "inputs", len(items), "workers", workers)

	results := make(chan outcome, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			o := outcome{index: i, item: item}
			func() {
				defer func() {
					if p := recover(); p != nil {
						o.err = errors.Newf("dispatch panicked: %v", p)
					}
				}()
				o.res, o.err = c.Dispatcher.Dispatch(gctx, item)
			}()
			results <- o
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	outcomes := make([]outcome, 0, len(items))
	for o := range results {
		outcomes = append(outcomes, o)
	}
	slices.SortFunc(outcomes, func(a, b outcome) int { return a.index - b.index })

	run := RunResult{Facts: AggregateResult{}}
	run.Stats.Inputs = len(items)
	for _, o := range outcomes {
		if o.err != nil {
			subject := o.res.Subject
			var xe *ExtractorError
			if errors.As(o.err, &xe) {
				subject = xe.Subject
			}
			log.Warnw("input failed", "index", o.index, "type", o.item.Type, "subject", subject, "error", o.err)
			run.Failures = append(run.Failures, Failure{Index: o.index, Type: o.item.Type, Subject: subject, Err: o.err})
			run.Stats.Failed++
			continue
		}
		c.merge(&run, o.res)
	}

	run.Stats.Facts = run.Facts.Len()
	run.Stats.Elapsed = time.Since(start)
	log.Infow("dispatch done",
		"inputs", run.Stats.Inputs,
		"retained", run.Stats.Retained,
		"boring", run.Stats.Boring,
		"failed", run.Stats.Failed,
		"facts", run.Stats.Facts,
		"elapsed", run.Stats.Elapsed)

	return run, ctx.Err()
}

// merge folds one item into run. Two inputs resolving to the same subject
// share its fact list.
func (c *Coordinator) merge(run *RunResult, res ItemResult) {
	if res.Boring {
		run.Stats.Boring++
		run.Boring = append(run.Boring, res.Subject)
		if _, ok := run.Facts[res.Subject]; !ok {
			run.Facts[res.Subject] = []types.Fact{}
		}
		return
	}
	run.Stats.Retained++
	run.Facts[res.Subject] = append(run.Facts[res.Subject], res.Facts...)
}
