// Package search drives a resource search across every session of a scope.
package search

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/opsharness/harness/internal/emitter"
	"github.com/opsharness/harness/internal/fetch"
	"github.com/opsharness/harness/internal/session"
	"github.com/opsharness/harness/internal/telemetry"
	"github.com/opsharness/harness/pkg/resource"
)

// Enumerator produces the sessions of a scope.
type Enumerator interface {
	Enumerate(ctx context.Context, scope session.Scope) iter.Seq[session.Candidate]
}

// Searcher runs one fetcher against every session and emits the results.
type Searcher struct {
	Sessions Enumerator
	Emitter  emitter.Emitter

	// Telemetry is optional.
	Telemetry *telemetry.Provider

	// Concurrency bounds parallel fetches. Values below 1 mean sequential.
	Concurrency int

	// SweepID tags log lines and spans, optional.
	SweepID string
}

// slot carries one candidate from enumeration to emission.
type slot struct {
	candidate session.Candidate
	raw       resource.Raw
	err       error
	done      chan struct{}
}

// Search fetches f from every session of scope. Results are emitted in
// enumeration order regardless of Concurrency. Per-session failures do not
// fail the search; they are reported in the Summary. The returned error is
// an emitter failure or context cancellation.
func (s *Searcher) Search(ctx context.Context, scope session.Scope, f fetch.Fetcher) (Summary, error) {
	var summary Summary

	limit := max(s.Concurrency, 1)
	slots := make(chan *slot, limit)

	var emitErr error
	emitted := make(chan struct{})
	go func() {
		defer close(emitted)
		for sl := range slots {
			<-sl.done
			if emitErr != nil {
				continue
			}
			outcome, err := s.finish(ctx, sl)
			if err != nil {
				emitErr = err
				continue
			}
			summary.add(outcome)
		}
	}()

	var g errgroup.Group
	g.SetLimit(limit)

	for c := range s.Sessions.Enumerate(ctx, scope) {
		if ctx.Err() != nil {
			break
		}

		sl := &slot{candidate: c, done: make(chan struct{})}
		slots <- sl

		if c.Skipped() {
			close(sl.done)
			continue
		}
		g.Go(func() error {
			defer close(sl.done)
			sl.raw, sl.err = s.fetch(ctx, c, f)
			return nil
		})
	}

	_ = g.Wait()
	close(slots)
	<-emitted

	if emitErr != nil {
		return summary, emitErr
	}
	return summary, ctx.Err()
}

func (s *Searcher) fetch(ctx context.Context, c session.Candidate, f fetch.Fetcher) (resource.Raw, error) {
	if s.Telemetry == nil {
		return f.Fetch(ctx, c.Session.Clients)
	}

	ctx, span := s.Telemetry.StartSpan(ctx, "search.session",
		attribute.String("profile", c.Profile),
		attribute.String("region", c.Region),
		attribute.String("fetcher", f.Name),
		attribute.String("sweep_id", s.SweepID),
	)
	start := time.Now()
	raw, err := f.Fetch(ctx, c.Session.Clients)
	s.Telemetry.RecordFetch(ctx, c.Profile, c.Region, f.Name, time.Since(start))
	telemetry.EndSpan(span, err)

	return raw, err
}

// finish classifies a slot, emitting its records when the fetch succeeded.
func (s *Searcher) finish(ctx context.Context, sl *slot) (SessionOutcome, error) {
	c := sl.candidate
	logger := log.With().
		Str("sweep_id", s.SweepID).
		Str("profile", c.Profile).
		Str("region", c.Region).
		Logger()

	outcome := SessionOutcome{Profile: c.Profile, Region: c.Region}
	switch {
	case c.Skipped():
		outcome.Outcome = Skipped
		outcome.Err = c.Err
		logger.Debug().Err(c.Err).Msg("session skipped")
	case sl.err != nil:
		outcome.Outcome = Failed
		outcome.Err = sl.err
		logger.Debug().Err(sl.err).Msg("fetch failed")
	default:
		records := resource.Sort(resource.Deserialize(sl.raw), resource.SortKeyFor(sl.raw.Kind))
		err := s.Emitter.Emit(ctx, emitter.Result{
			Profile: c.Profile,
			Region:  c.Region,
			Kind:    sl.raw.Kind,
			Records: records,
		})
		if err != nil {
			return outcome, fmt.Errorf("emit %s/%s: %w", c.Profile, c.Region, err)
		}
		outcome.Records = len(records)
		outcome.Outcome = Succeeded
		if len(records) == 0 {
			outcome.Outcome = Empty
		}
		logger.Debug().Int("records", len(records)).Msg("session done")
	}

	if s.Telemetry != nil {
		s.Telemetry.RecordOutcome(ctx, string(outcome.Outcome))
	}
	return outcome, nil
}
