// Package calibrate picks a PBKDF2 iteration count that costs roughly a fixed
// wall-clock budget on the current machine.
//
// One short probe derivation is timed and extrapolated linearly to the target
// budget. The result is rounded, clamped to the crypto package bounds and
// cached in the store for a week. Concurrent callers share one probe.
package calibrate

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/illarion/seedlock/internal/crypto"
	"github.com/illarion/seedlock/internal/logger"
)

const (
	ProbeIterations = 50_000
	Step            = 50_000
	DefaultTarget   = 250 * time.Millisecond
	FreshFor        = 7 * 24 * time.Hour

	// Probes faster than this are too coarse to extrapolate from
	minReliable = time.Millisecond

	probePassword = "seedlock-calibration-probe"

	// Iterations and Recalibrate share one key so probes never overlap
	flightKey = "calibrate"
)

// Record is the cached calibration result
type Record struct {
	Iterations uint32 `json:"iterations"`
	MeasuredAt int64  `json:"ts"` // Unix milliseconds
}

// Store persists the raw calibration record.
// LoadCalibration returns nil, nil when nothing is cached.
type Store interface {
	LoadCalibration() ([]byte, error)
	SaveCalibration(record []byte) error
}

// ProbeFunc runs one probe derivation and reports how long it took
type ProbeFunc func() (time.Duration, error)

// Calibrator resolves the iteration count used for new envelopes
type Calibrator struct {
	store  Store
	now    func() time.Time
	probe  ProbeFunc
	target time.Duration
	log    *logger.Logger

	flight singleflight.Group
}

type Option func(*Calibrator)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Calibrator) { c.now = now }
}

// WithProbe replaces the PBKDF2 probe
func WithProbe(probe ProbeFunc) Option {
	return func(c *Calibrator) { c.probe = probe }
}

// WithTarget sets the derivation budget; non-positive values keep the default
func WithTarget(target time.Duration) Option {
	return func(c *Calibrator) {
		if target > 0 {
			c.target = target
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Calibrator) { c.log = l }
}

// New creates a calibrator backed by store
func New(store Store, opts ...Option) *Calibrator {
	c := &Calibrator{
		store:  store,
		now:    time.Now,
		probe:  Probe,
		target: DefaultTarget,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Iterations returns the cached iteration count, probing if the cache is
// missing, stale or invalid. A cancelled ctx abandons the wait; the probe
// itself runs to completion and still updates the cache.
func (c *Calibrator) Iterations(ctx context.Context) (uint32, error) {
	ch := c.flight.DoChan(flightKey, func() (any, error) {
		return c.resolve(false), nil
	})
	return wait(ctx, ch)
}

// Recalibrate ignores the cache and always probes. A probe already in flight
// is waited out first, so two probes never run at once.
func (c *Calibrator) Recalibrate(ctx context.Context) (uint32, error) {
	for {
		var ran bool
		ch := c.flight.DoChan(flightKey, func() (any, error) {
			ran = true
			return c.resolve(true), nil
		})

		n, err := wait(ctx, ch)
		if err != nil || ran {
			return n, err
		}
		// Joined someone else's call; go again for a fresh measurement
	}
}

func wait(ctx context.Context, ch <-chan singleflight.Result) (uint32, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		return res.Val.(uint32), nil
	}
}

// Cached returns the stored record if it is usable
func (c *Calibrator) Cached() (Record, bool) {
	data, err := c.store.LoadCalibration()
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to read calibration cache")
		return Record{}, false
	}
	if data == nil {
		return Record{}, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		c.log.Warn().Err(err).Msg("discarding malformed calibration cache")
		return Record{}, false
	}
	if !crypto.ValidIterations(rec.Iterations) {
		c.log.Warn().Uint32("iterations", rec.Iterations).Msg("discarding out-of-bounds calibration cache")
		return Record{}, false
	}

	// A timestamp in the future is treated as stale
	age := c.now().Sub(time.UnixMilli(rec.MeasuredAt))
	if age < 0 || age >= FreshFor {
		c.log.Debug().Dur("age", age).Msg("calibration cache is stale")
		return Record{}, false
	}

	return rec, true
}

func (c *Calibrator) resolve(force bool) uint32 {
	if !force {
		if rec, ok := c.Cached(); ok {
			c.log.Debug().Uint32("iterations", rec.Iterations).Msg("using cached calibration")
			return rec.Iterations
		}
	}

	elapsed, err := c.probe()
	if err != nil {
		// Not cached, so the next call probes again
		c.log.Warn().Err(err).Msg("calibration probe failed, using minimum iterations")
		return crypto.MinIterations
	}
	iterations := IterationsFor(elapsed, c.target)

	c.log.Info().
		Dur("probe", elapsed).
		Dur("target", c.target).
		Uint32("iterations", iterations).
		Msg("calibrated key derivation")

	rec := Record{Iterations: iterations, MeasuredAt: c.now().UnixMilli()}
	data, err := json.Marshal(rec)
	if err == nil {
		err = c.store.SaveCalibration(data)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to cache calibration")
	}

	return iterations
}

// IterationsFor extrapolates a probe duration to the target budget.
// The result is a multiple of Step within the crypto bounds; probes at or
// below one millisecond yield the minimum.
func IterationsFor(elapsed, target time.Duration) uint32 {
	if elapsed <= minReliable {
		return crypto.MinIterations
	}

	raw := float64(ProbeIterations) * (float64(target) / float64(elapsed))
	rounded := math.Round(raw/Step) * Step

	switch {
	case rounded < crypto.MinIterations:
		return crypto.MinIterations
	case rounded > crypto.MaxIterations:
		return crypto.MaxIterations
	default:
		return uint32(rounded)
	}
}

// Probe times one PBKDF2 derivation of ProbeIterations rounds
func Probe() (time.Duration, error) {
	salt, err := crypto.GenerateRandom(crypto.SaltSize)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	key, err := crypto.DeriveKey([]byte(probePassword), salt, ProbeIterations)
	elapsed := time.Since(start)
	if err != nil {
		return 0, err
	}
	crypto.ClearBytes(key)

	return elapsed, nil
}
