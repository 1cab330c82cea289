// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow registers typed extractors, discovers their inputs,
// dispatches every applicable extractor over each input, and turns the
// findings into facts.
//
// A Registry is built once at startup by the source packages and is only
// read afterwards, so discovery, identity resolution and dispatch may share
// it across goroutines.
package workflow

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// markerPrefix is stripped from registration names to form public names.
const markerPrefix = "_"

// ExtractFunc maps one input to zero or more named findings. Return
// ErrNoMatch (or nil findings) when the input does not carry what the
// extractor looks for; any other error aborts the dispatch of the input.
type ExtractFunc func(ctx context.Context, in types.Input) (types.Findings, error)

// ProduceFunc yields candidate inputs lazily. A non-nil error ends the
// sequence.
type ProduceFunc func(ctx context.Context) iter.Seq2[types.Input, error]

// IdentifyFunc computes the subject URI of an input.
type IdentifyFunc func(ctx context.Context, in types.Input) (string, error)

// Descriptor describes one registered function. Exactly one of Extract,
// Produce or Identify is set.
type Descriptor struct {
	Name string

	// Accepts lists the input types an extractor or identity function takes.
	Accepts []types.InputType

	// Produces is the input type a producer yields.
	Produces types.InputType

	// Identity marks the identity extractor for the Accepts types.
	Identity bool

	Extract  ExtractFunc
	Produce  ProduceFunc
	Identify IdentifyFunc
}

// PublicName is the name the descriptor is reachable under.
func (d Descriptor) PublicName() string {
	return strings.TrimPrefix(d.Name, markerPrefix)
}

// IsProducer reports whether the descriptor yields inputs.
func (d Descriptor) IsProducer() bool { return d.Produce != nil }

// AcceptsType reports whether the descriptor takes inputs of type t.
func (d Descriptor) AcceptsType(t types.InputType) bool {
	return slices.Contains(d.Accepts, t)
}

// Kind returns "producer", "identity" or "extractor".
func (d Descriptor) Kind() string {
	switch {
	case d.Produce != nil:
		return "producer"
	case d.Identify != nil:
		return "identity"
	default:
		return "extractor"
	}
}

func (d Descriptor) validate() error {
	if d.PublicName() == "" {
		return errors.Wrap(ErrInvalidDescriptor, "empty name")
	}

	set := 0
	for _, ok := range []bool{d.Extract != nil, d.Produce != nil, d.Identify != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return errors.Wrapf(ErrInvalidDescriptor, "%s: exactly one of extract, produce or identify must be set", d.Name)
	}

	switch {
	case d.Produce != nil:
		if d.Produces == "" {
			return errors.Wrapf(ErrInvalidDescriptor, "%s: producer without output type", d.Name)
		}
		if len(d.Accepts) > 0 || d.Identity {
			return errors.Wrapf(ErrInvalidDescriptor, "%s: producers take no input", d.Name)
		}
	case d.Identify != nil:
		if !d.Identity {
			return errors.Wrapf(ErrInvalidDescriptor, "%s: identity function not marked as identity", d.Name)
		}
		if len(d.Accepts) == 0 {
			return errors.Wrapf(ErrInvalidDescriptor, "%s: identity without input type", d.Name)
		}
	default:
		if d.Identity {
			return errors.Wrapf(ErrInvalidDescriptor, "%s: extractor marked as identity", d.Name)
		}
		if len(d.Accepts) == 0 {
			return errors.Wrapf(ErrInvalidDescriptor, "%s: extractor without input type", d.Name)
		}
	}
	return nil
}

// Registry holds descriptors in registration order.
type Registry struct {
	mu          sync.RWMutex
	descriptors []Descriptor
	byName      map[string]int
	identities  map[types.InputType]int
	logger      *zap.SugaredLogger
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(logger *zap.SugaredLogger) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Registry{
		byName:     make(map[string]int),
		identities: make(map[types.InputType]int),
		logger:     logger,
	}
}

// Logger returns the registry's logger.
func (r *Registry) Logger() *zap.SugaredLogger { return r.logger }

// Register validates d and appends it. Registration fails on a public-name
// collision or on a second identity extractor for the same input type.
func (r *Registry) Register(d Descriptor) (Descriptor, error) {
	if err := d.validate(); err != nil {
		return Descriptor{}, err
	}
	d.Accepts = slices.Clone(d.Accepts)

	r.mu.Lock()
	defer r.mu.Unlock()

	name := d.PublicName()
	if _, exists := r.byName[name]; exists {
		return Descriptor{}, errors.Wrapf(ErrDuplicateName, "%s", name)
	}
	if d.Identity {
		for _, t := range d.Accepts {
			if i, exists := r.identities[t]; exists {
				return Descriptor{}, errors.Wrapf(ErrDuplicateIdentity,
					"%s: %s already identifies %s", name, r.descriptors[i].Name, t)
			}
		}
	}

	idx := len(r.descriptors)
	r.descriptors = append(r.descriptors, d)
	r.byName[name] = idx
	if d.Identity {
		for _, t := range d.Accepts {
			r.identities[t] = idx
		}
	}

	r.logger.Debugw("registered", "name", d.Name, "kind", d.Kind(), "accepts", d.Accepts, "produces", d.Produces)
	return d, nil
}

// MustRegister is Register that panics on error, for static wiring.
func (r *Registry) MustRegister(d Descriptor) Descriptor {
	d, err := r.Register(d)
	if err != nil {
		panic(err)
	}
	return d
}

// Extractor registers fn as an extractor for the given input types.
func (r *Registry) Extractor(name string, fn ExtractFunc, accepts ...types.InputType) error {
	_, err := r.Register(Descriptor{Name: name, Accepts: accepts, Extract: fn})
	return err
}

// Producer registers fn as a producer of inputs of type t.
func (r *Registry) Producer(name string, t types.InputType, fn ProduceFunc) error {
	_, err := r.Register(Descriptor{Name: name, Produces: t, Produce: fn})
	return err
}

// Identity registers fn as the identity extractor for the given input types.
func (r *Registry) Identity(name string, fn IdentifyFunc, accepts ...types.InputType) error {
	_, err := r.Register(Descriptor{Name: name, Accepts: accepts, Identity: true, Identify: fn})
	return err
}

// Lookup finds a descriptor by registration or public name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byName[strings.TrimPrefix(name, markerPrefix)]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}

// Descriptors returns all descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.descriptors)
}

// ForInput returns the extractors that accept t, in registration order.
// Producers and identity functions are excluded.
func (r *Registry) ForInput(t types.InputType) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Descriptor
	for _, d := range r.descriptors {
		if d.Extract != nil && d.AcceptsType(t) {
			out = append(out, d)
		}
	}
	return out
}

// Producers returns the producers yielding any of ts, in registration order.
func (r *Registry) Producers(ts ...types.InputType) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Descriptor
	for _, d := range r.descriptors {
		if d.Produce != nil && slices.Contains(ts, d.Produces) {
			out = append(out, d)
		}
	}
	return out
}

// IdentityFor returns the identity extractor registered for t.
func (r *Registry) IdentityFor(t types.InputType) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.identities[t]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}
