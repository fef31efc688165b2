// Package importer moves decoded dungeon catalogs from a Source into one or
// more Sinks.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Importer orchestrates one load followed by writes to every sink.
type Importer struct {
	source Source
	sinks  []Sink
	logger *zap.Logger
}

// New constructs an Importer backed by the given Source and Sinks.
//
// Precondition: source must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source Source, logger *zap.Logger, sinks ...Sink) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{source: source, sinks: sinks, logger: logger}
}

// Result reports what a Run did.
type Result struct {
	Dungeons int
	Floors   int
	Sinks    []string
}

// Run loads the dungeons once and writes them to each sink in order.
//
// Postcondition: on success every sink received the full catalog; on error
// the Result lists only the sinks that completed before the failure.
func (imp *Importer) Run(ctx context.Context) (Result, error) {
	if len(imp.sinks) == 0 {
		return Result{}, errors.New("importer: no sinks configured")
	}
	overall := time.Now()

	t0 := time.Now()
	dungeons, err := imp.source.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading source: %w", err)
	}
	res := Result{Dungeons: len(dungeons)}
	for _, dg := range dungeons {
		res.Floors += len(dg.Floors)
	}
	imp.logger.Info("loaded",
		zap.Int("dungeons", res.Dungeons),
		zap.Int("floors", res.Floors),
		zap.Duration("elapsed", time.Since(t0).Round(time.Millisecond)),
	)

	for _, sink := range imp.sinks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		t1 := time.Now()
		if err := sink.Write(ctx, dungeons); err != nil {
			return res, fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
		res.Sinks = append(res.Sinks, sink.Name())
		imp.logger.Info("wrote",
			zap.String("sink", sink.Name()),
			zap.Duration("elapsed", time.Since(t1).Round(time.Millisecond)),
		)
	}

	imp.logger.Info("import complete", zap.Duration("total", time.Since(overall).Round(time.Millisecond)))
	return res, nil
}
