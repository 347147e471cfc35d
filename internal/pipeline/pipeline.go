// Package pipeline drives one request from the DHIS2 collection to the FHIR
// bundle: pages are fetched by a producer goroutine and split, converted and
// folded in fetch order by a single consumer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hisp/dhis2-fhir/internal/mapping"
	"github.com/hisp/dhis2-fhir/internal/platform/dhis2"
	"github.com/hisp/dhis2-fhir/internal/platform/fhir"
)

// DefaultPrefetch is how many fetched pages may wait for the consumer.
const DefaultPrefetch = 2

// Source yields one page of source records at a time. dhis2.Collection
// implements it.
type Source[S any] interface {
	Name() string
	FetchPage(ctx context.Context, page int) (dhis2.Page[S], error)
}

// Mapper converts one source record. The only error it reports is a missing
// required field.
type Mapper[S any] func(S, mapping.ConversionContext) (fhir.Resource, error)

// Policy decides what happens to a record that cannot be converted.
type Policy int

const (
	// PolicySkip logs the record and leaves it out of the bundle.
	PolicySkip Policy = iota
	// PolicyAbort fails the whole request.
	PolicyAbort
)

func (p Policy) String() string {
	if p == PolicyAbort {
		return "abort"
	}
	return "skip"
}

// ParsePolicy accepts "skip" or "abort".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "skip":
		return PolicySkip, nil
	case "abort":
		return PolicyAbort, nil
	}
	return PolicySkip, fmt.Errorf("unknown record policy %q", s)
}

// RecordError identifies the source record that failed conversion.
type RecordError struct {
	Entity string
	Index  int
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s record %d: %v", e.Entity, e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Recorder receives pipeline outcomes. The metrics package implements it.
type Recorder interface {
	ObserveRun(resourceType string, elapsed time.Duration, entries int, err error)
	RecordSkipped(resourceType string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(string, time.Duration, int, error) {}
func (nopRecorder) RecordSkipped(string)                         {}

// Options tune a pipeline run.
type Options struct {
	Policy   Policy
	Prefetch int
	Logger   zerolog.Logger
	Recorder Recorder
	Now      func() time.Time
}

// Runner executes one request.
type Runner interface {
	Run(ctx context.Context) (*fhir.Bundle, error)
}

// Pipeline converts every record of a source into one resource type.
type Pipeline[S any] struct {
	resourceType string
	source       Source[S]
	mapper       Mapper[S]
	conv         mapping.ConversionContext
	opts         Options
}

func New[S any](resourceType string, source Source[S], mapper Mapper[S], conv mapping.ConversionContext, opts Options) *Pipeline[S] {
	if opts.Prefetch <= 0 {
		opts.Prefetch = DefaultPrefetch
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline[S]{
		resourceType: resourceType,
		source:       source,
		mapper:       mapper,
		conv:         conv,
		opts:         opts,
	}
}

// Run fetches every page, converts the records in order and returns the
// searchset bundle. A fetch failure discards everything converted so far. A
// source with no records yields an empty bundle.
func (p *Pipeline[S]) Run(ctx context.Context) (*fhir.Bundle, error) {
	start := time.Now()
	bundle, err := p.run(ctx)
	entries := 0
	if bundle != nil {
		entries = bundle.Total()
	}
	p.opts.Recorder.ObserveRun(p.resourceType, time.Since(start), entries, err)
	return bundle, err
}

func (p *Pipeline[S]) run(ctx context.Context) (*fhir.Bundle, error) {
	g, gctx := errgroup.WithContext(ctx)
	pages := make(chan dhis2.Page[S], p.opts.Prefetch)

	g.Go(func() error {
		defer close(pages)
		for n := 1; ; n++ {
			page, err := p.source.FetchPage(gctx, n)
			if err != nil {
				return err
			}
			select {
			case pages <- page:
			case <-gctx.Done():
				return gctx.Err()
			}
			if page.Last {
				return nil
			}
		}
	})

	acc := fhir.NewAccumulatorWithClock(p.opts.Now)
	g.Go(func() error {
		index := 0
		for page := range pages {
			if err := gctx.Err(); err != nil {
				return err
			}
			for _, record := range page.Items {
				res, err := p.mapper(record, p.conv)
				if err != nil {
					if err := p.reject(index, err); err != nil {
						return err
					}
				} else {
					acc.Append(res)
				}
				index++
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s pipeline: %w", p.resourceType, err)
	}

	bundle, ok := acc.Bundle()
	if !ok {
		return fhir.NewEmptySearchBundle(p.opts.Now()), nil
	}
	return bundle, nil
}

func (p *Pipeline[S]) reject(index int, err error) error {
	rerr := &RecordError{Entity: p.source.Name(), Index: index, Err: err}
	if p.opts.Policy == PolicyAbort || !errors.Is(err, mapping.ErrMissingRequiredField) {
		return rerr
	}
	p.opts.Logger.Warn().
		Err(err).
		Str("resource_type", p.resourceType).
		Str("collection", p.source.Name()).
		Int("index", index).
		Msg("skipping record")
	p.opts.Recorder.RecordSkipped(p.resourceType)
	return nil
}
