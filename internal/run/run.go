// Package run sequences one authorization run: advisory note, attribute
// collection, optional provisioning, validation and the last-run record.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ppiankov/hostpin/internal/authz"
	"github.com/ppiankov/hostpin/internal/identity"
	"github.com/ppiankov/hostpin/internal/model"
	"github.com/ppiankov/hostpin/internal/runlog"
)

// Collector gathers live host attributes.
type Collector interface {
	Collect(ctx context.Context) identity.Result
}

// Store is the reference profile surface a run needs.
type Store interface {
	authz.ReferenceLoader
	Provision(variants map[string]model.Attributes) error
	ActivePath() string
}

// Options wires a Runner.
type Options struct {
	Collector Collector
	Store     Store
	Recorder  runlog.Recorder
	// Variants maps a variant id to the overrides applied on top of the
	// live attributes when provisioning.
	Variants       map[string]map[string]string
	ProvisionOnRun bool
	Clock          func() time.Time
	Logger         *slog.Logger
	// Progress receives one short line per step. Nil discards them.
	Progress func(step string)
}

// Outcome is the result of one run. Failures holds the non-fatal
// persistence errors met along the way; the decision is always set.
type Outcome struct {
	Decision    model.Decision
	Collected   identity.Result
	Provisioned []string
	Failures    []error
}

// Runner executes runs. It holds no state between runs.
type Runner struct {
	collector      Collector
	store          Store
	recorder       runlog.Recorder
	variants       map[string]map[string]string
	provisionOnRun bool
	now            func() time.Time
	logger         *slog.Logger
	progress       func(step string)
	validator      *authz.Validator
}

// New creates a Runner.
func New(opts Options) *Runner {
	r := &Runner{
		collector:      opts.Collector,
		store:          opts.Store,
		recorder:       opts.Recorder,
		variants:       opts.Variants,
		provisionOnRun: opts.ProvisionOnRun,
		now:            opts.Clock,
		logger:         opts.Logger,
		progress:       opts.Progress,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.progress == nil {
		r.progress = func(string) {}
	}
	r.validator = authz.NewValidator(r.store, authz.WithClock(r.now), authz.WithLogger(r.logger))
	return r
}

// Run performs one full run. The advisory note is written first and
// unconditionally. Provisioning, when enabled, completes before the
// active reference is read.
func (r *Runner) Run(ctx context.Context) Outcome {
	return r.run(ctx, r.provisionOnRun)
}

// Check performs one run without provisioning. The advisory note and the
// last-run record are still written.
func (r *Runner) Check(ctx context.Context) Outcome {
	return r.run(ctx, false)
}

func (r *Runner) run(ctx context.Context, provision bool) Outcome {
	var out Outcome

	if err := r.recorder.Advise(r.now()); err != nil {
		r.logger.Warn("advisory note not written", "error", err)
		out.Failures = append(out.Failures, err)
		r.progress("advisory note failed")
	} else {
		r.progress("advisory note logged")
	}

	r.progress("collecting attributes")
	out.Collected = r.collect(ctx)

	if provision {
		r.progress(fmt.Sprintf("provisioning %d variant(s)", len(r.variants)))
		ids, err := r.provision(out.Collected.Attributes)
		if err != nil {
			r.logger.Warn("provisioning failed", "error", err)
			out.Failures = append(out.Failures, err)
		}
		out.Provisioned = ids
	}

	r.progress("validating against " + r.store.ActivePath())
	out.Decision = r.validator.Validate(out.Collected.Attributes)
	out.Failures = append(out.Failures, r.record(out.Decision)...)
	return out
}

// Provision collects live attributes and rewrites every configured
// variant. It returns the provisioned ids in sorted order.
func (r *Runner) Provision(ctx context.Context) (identity.Result, []string, error) {
	res := r.collect(ctx)
	ids, err := r.provision(res.Attributes)
	return res, ids, err
}

// Variants builds each configured variant from live.
func (r *Runner) Variants(live model.Attributes) map[string]model.Attributes {
	out := make(map[string]model.Attributes, len(r.variants))
	for id, overrides := range r.variants {
		out[id] = live.With(overrides)
	}
	return out
}

func (r *Runner) collect(ctx context.Context) identity.Result {
	res := r.collector.Collect(ctx)
	for _, f := range res.Failures {
		r.logger.Info("attribute unavailable", "field", f.Field, "value", res.Attributes[f.Field], "error", f.Err)
	}
	return res
}

func (r *Runner) provision(live model.Attributes) ([]string, error) {
	variants := r.Variants(live)
	if err := r.store.Provision(variants); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(variants))
	for id := range variants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	r.logger.Debug("variants provisioned", "ids", ids)
	return ids, nil
}

func (r *Runner) record(d model.Decision) []error {
	if err := r.recorder.Record(d); err != nil {
		r.logger.Warn("last-run record not written", "error", err)
		return []error{err}
	}
	return nil
}
