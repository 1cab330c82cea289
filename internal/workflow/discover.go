// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// Discover runs every producer whose output type is in inputTypes, in
// registration order, and collects what they yield. maxInputs > 0 caps the
// total across all producers; discovery stops as soon as the cap is reached.
//
// A producer that fails or panics is logged and skipped; the inputs it
// yielded before failing are kept. The only error returned is the context's.
func (r *Registry) Discover(ctx context.Context, inputTypes []types.InputType, maxInputs int) ([]types.InputItem, error) {
	r.logger.Infow("searching for input list", "types", inputTypes, "max_inputs", maxInputs)
	start := time.Now()

	var items []types.InputItem
	for _, d := range r.Producers(inputTypes...) {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		if maxInputs > 0 && len(items) >= maxInputs {
			r.logger.Warnw("selecting only", "max_inputs", maxInputs)
			break
		}

		r.logger.Infow("valid input generator", "producer", d.Name, "type", d.Produces)

		budget := 0
		if maxInputs > 0 {
			budget = maxInputs - len(items)
		}
		got, err := collect(ctx, d, budget)
		items = append(items, got...)
		if err != nil {
			r.logger.Warnw("producer failed, skipping", "producer", d.Name, "collected", len(got), "error", err)
		}

		r.logger.Infow("collected arguments", "producer", d.Name, "count", len(got), "total", len(items))
	}

	r.logger.Infow("inputs search done", "inputs", len(items), "elapsed", time.Since(start))
	return items, ctx.Err()
}

// collect drains one producer, stopping after budget items when budget > 0.
func collect(ctx context.Context, d Descriptor, budget int) (items []types.InputItem, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("producer %s panicked: %v", d.Name, p)
		}
	}()

	for v, yieldErr := range d.Produce(ctx) {
		if yieldErr != nil {
			return items, yieldErr
		}
		if v == nil {
			continue
		}
		if v.InputType() != d.Produces {
			return items, errors.Newf("producer %s declared %s but yielded %s", d.Name, d.Produces, v.InputType())
		}
		items = append(items, types.NewInputItem(v))
		if budget > 0 && len(items) >= budget {
			break
		}
	}
	return items, nil
}
