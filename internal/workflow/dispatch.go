// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// Dispatcher runs every extractor registered for an input's type and turns
// their findings into facts.
type Dispatcher struct {
	Registry *Registry

	// Policy classifies the facts of each input. Nil means MentionsPolicy.
	Policy BoringPolicy

	// Timeout bounds one Dispatch call. Zero disables it.
	Timeout time.Duration

	// Logger defaults to the registry's logger.
	Logger *zap.SugaredLogger
}

// ItemResult is the outcome of dispatching one input.
type ItemResult struct {
	// Subject is the full subject URI.
	Subject string

	// SubjectID is the local id after the namespace.
	SubjectID string

	Type  types.InputType
	Facts []types.Fact

	// Boring is set when the policy judged Facts not worth keeping.
	Boring bool
}

// Retained returns the facts to keep: none for a boring item.
func (r ItemResult) Retained() []types.Fact {
	if r.Boring {
		return nil
	}
	return r.Facts
}

func (d *Dispatcher) logger() *zap.SugaredLogger {
	if d.Logger != nil {
		return d.Logger
	}
	return d.Registry.Logger()
}

func (d *Dispatcher) policy() BoringPolicy {
	if d.Policy != nil {
		return d.Policy
	}
	return MentionsPolicy{}
}

// Dispatch resolves the subject of item, runs the matching extractors in
// registration order and collects their facts.
//
// Extractors reporting ErrNoMatch or empty findings are skipped. Any other
// extractor error, a panic, or the per-item timeout aborts the item and is
// returned as *ExtractorError. The timeout covers identity resolution too.
func (d *Dispatcher) Dispatch(ctx context.Context, item types.InputItem) (ItemResult, error) {
	log := d.logger()

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	subject, err := bounded(ctx, func() (string, error) {
		return d.Registry.ResolveIdentity(ctx, item), nil
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		name := "identity"
		if idx, ok := d.Registry.IdentityFor(item.Type); ok {
			name = idx.Name
		}
		placeholder := Placeholder(item)
		_, id := SplitURI(placeholder)
		return ItemResult{Subject: placeholder, SubjectID: id, Type: item.Type}, d.abort(name, placeholder, err)
	}
	_, id := SplitURI(subject)
	res := ItemResult{Subject: subject, SubjectID: id, Type: item.Type}

	for _, ex := range d.Registry.ForInput(item.Type) {
		if err := ctx.Err(); err != nil {
			return res, d.abort(ex.Name, subject, err)
		}

		findings, err := d.run(ctx, ex, item.Value)
		if err != nil {
			if errors.Is(err, ErrNoMatch) {
				log.Debugw("no finding", "subject", id, "extractor", ex.Name, "reason", err)
				continue
			}
			return res, d.abort(ex.Name, subject, err)
		}

		if len(findings) == 0 {
			log.Debugw("empty", "subject", id, "extractor", ex.Name)
			continue
		}
		log.Debugw("found", "subject", id, "extractor", ex.Name, "findings", len(findings))

		res.Facts = append(res.Facts, Normalize(subject, findings)...)
	}

	res.Boring = d.policy().IsBoring(res.Facts)
	log.Infow("facts", "subject", id, "count", len(res.Facts), "boring", res.Boring)
	return res, nil
}

func (d *Dispatcher) abort(extractor, subject string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = errors.Wrapf(ErrTimeout, "after %s", d.Timeout)
	}
	return &ExtractorError{Extractor: extractor, Subject: subject, Err: err}
}

// run calls one extractor, turning a panic into an error.
func (d *Dispatcher) run(ctx context.Context, ex Descriptor, in types.Input) (types.Findings, error) {
	return bounded(ctx, func() (types.Findings, error) {
		return callExtract(ctx, ex, in)
	})
}

// bounded calls fn. When ctx carries a deadline the call runs in its own
// goroutine so a hung callee cannot hold the worker past the deadline.
func bounded[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	if _, ok := ctx.Deadline(); !ok {
		return fn()
	}

	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn()
		ch <- outcome{v, err}
	}()

	select {
	case o := <-ch:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func callExtract(ctx context.Context, ex Descriptor, in types.Input) (f types.Findings, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf("panic: %v", p)
		}
	}()
	return ex.Extract(ctx, in)
}
