// SPDX-License-Identifier: MIT

package recon

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/katalvlaran/supereeg/brain"
	"github.com/katalvlaran/supereeg/internal/logging"
	"github.com/katalvlaran/supereeg/locs"
	"github.com/katalvlaran/supereeg/matrix"
	"github.com/katalvlaran/supereeg/metrics"
	"github.com/katalvlaran/supereeg/model"
)

var (
	// ErrSingularMatrix is returned when the ridge-regularized known-known
	// block still cannot be solved. Increase the ridge or reject the subject.
	ErrSingularMatrix = errors.New("recon: known-known covariance is singular")

	// ErrInsufficientData is model.ErrInsufficientData.
	ErrInsufficientData = model.ErrInsufficientData

	// ErrDimensionMismatch is matrix.ErrDimensionMismatch.
	ErrDimensionMismatch = matrix.ErrDimensionMismatch
)

// DefaultRidge is the λ added to the known-known diagonal.
const DefaultRidge = 1e-6

// Engine performs reconstructions. It holds configuration only and is safe
// for concurrent use as long as the models it reads are not being folded.
type Engine struct {
	ridge   float64
	log     *slog.Logger
	observe bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRidge sets λ. Negative or non-finite values are rejected by New.
func WithRidge(eps float64) Option { return func(e *Engine) { e.ridge = eps } }

// WithLogger sets the logger; nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = logging.OrDiscard(l) } }

// WithMetrics enables Prometheus prediction observations.
func WithMetrics(on bool) Option { return func(e *Engine) { e.observe = on } }

// New returns an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{ridge: DefaultRidge, log: logging.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	if e.ridge < 0 || math.IsNaN(e.ridge) || math.IsInf(e.ridge, 0) {
		return nil, fmt.Errorf("recon.New: ridge %g: %w", e.ridge, matrix.ErrNaNInf)
	}

	return e, nil
}

// Ridge returns λ.
func (e *Engine) Ridge() float64 { return e.ridge }

// system is the solved kriging problem for one (model, subject) pair.
type system struct {
	al      locs.Alignment
	known   []int
	unknown []int
	sigma   *matrix.Dense // mean correlation over the model
	weights *matrix.Dense // (Σ_kk + λI)⁻¹ Σ_ku, |known|×|unknown|
}

// solve runs steps 1–4: alignment, Σ, blocks, and the regularized solve.
func (e *Engine) solve(m *model.Model, b *brain.Brain) (*system, error) {
	if m == nil {
		return nil, fmt.Errorf("nil model: %w", ErrInsufficientData)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	al, err := locs.Expand(b.Locs, m.Locs, locs.Strict)
	if err != nil {
		return nil, err
	}
	known, unknown := al.Known(), al.Unknown()
	if len(known) == 0 {
		return nil, fmt.Errorf("subject observes no model location: %w", ErrInsufficientData)
	}
	sigma, err := m.MeanCorrelation()
	if err != nil {
		return nil, err
	}

	kk, err := sigma.Induced(known, known)
	if err != nil {
		return nil, err
	}
	if err = matrix.AddDiagonal(kk, e.ridge); err != nil {
		return nil, err
	}
	ku, err := sigma.Induced(known, unknown)
	if err != nil {
		return nil, err
	}
	w, err := matrix.SolveSymmetric(kk, ku)
	if err != nil {
		return nil, classifySolve(err)
	}

	return &system{al: al, known: known, unknown: unknown, sigma: sigma, weights: w}, nil
}

// Predict reconstructs b over every location of m.
//
// Implementation:
//   - Stage 1: Strict-align b.Locs into m.Locs; split known/unknown indices.
//   - Stage 2: Σ = m.MeanCorrelation(); W = (Σ_kk + λI)⁻¹ Σ_ku.
//   - Stage 3: Ŷ_u = Y_k · W, with Y_k the subject columns in known order.
//   - Stage 4: Assemble a Reconstructed Brain over m.Locs; known columns are
//     the input values, bit for bit.
//
// The result carries b's sample rate, sessions and metadata plus
// brain.MetaEstimate = "true", and a fresh ID.
func (e *Engine) Predict(m *model.Model, b *brain.Brain) (*brain.Brain, error) {
	start := time.Now()
	out, err := e.predict(m, b)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		e.log.Warn("prediction failed", "subject", subjectID(b), "error", err)
	}
	if e.observe {
		metrics.ObservePrediction(time.Since(start), outcome)
	}
	if err != nil {
		return nil, fmt.Errorf("Predict: %w", err)
	}

	return out, nil
}

func (e *Engine) predict(m *model.Model, b *brain.Brain) (*brain.Brain, error) {
	sys, err := e.solve(m, b)
	if err != nil {
		return nil, err
	}

	src := sys.al.Sources()
	kcols := make([]int, len(sys.known))
	for k, t := range sys.known {
		kcols[k] = src[t]
	}
	yk, err := locs.RestrictColumns(b.Data, kcols)
	if err != nil {
		return nil, err
	}
	yu, err := matrix.Mul(yk, sys.weights)
	if err != nil {
		return nil, err
	}

	samples, n := b.Samples(), m.Locs.Len()
	full, err := matrix.NewDense(samples, n)
	if err != nil {
		return nil, err
	}
	dst, obs, est := full.RawData(), b.Data.RawData(), yu.RawData()
	c, nu := b.Data.Cols(), len(sys.unknown)
	for i := 0; i < samples; i++ {
		row := dst[i*n : (i+1)*n]
		for j, t := range sys.al.Index {
			row[t] = obs[i*c+j]
		}
		for u, t := range sys.unknown {
			row[t] = est[i*nu+u]
		}
	}

	meta := maps.Clone(b.Meta)
	if meta == nil {
		meta = make(map[string]string)
	}
	meta[brain.MetaEstimate] = "true"
	meta["model_id"] = m.ID.String()
	meta["source_id"] = b.ID.String()

	out, err := brain.New(full, m.Locs,
		brain.WithID(uuid.New()),
		brain.WithSampleRate(b.SampleRate),
		brain.WithSessions(b.Sessions),
		brain.WithMeta(meta),
		brain.WithKind(brain.Reconstructed),
	)
	if err != nil {
		return nil, err
	}
	e.log.Debug("prediction done",
		"subject", b.ID, "model", m.ID, "known", len(sys.known), "unknown", nu, "samples", samples)

	return out, nil
}

// Posterior returns the conditional variance at every model location given
// b's electrodes: 0 at known locations and
// 1 − Σ_uk (Σ_kk + λI)⁻¹ Σ_ku at unknown ones, floored at 0. Values are in
// correlation units, so 1 means the subject carries no information there.
func (e *Engine) Posterior(m *model.Model, b *brain.Brain) ([]float64, error) {
	sys, err := e.solve(m, b)
	if err != nil {
		return nil, fmt.Errorf("Posterior: %w", err)
	}
	out := make([]float64, m.Locs.Len())
	n := m.Locs.Len()
	sigma, w := sys.sigma.RawData(), sys.weights.RawData()
	nu := len(sys.unknown)
	for u, t := range sys.unknown {
		explained := 0.0
		for k, s := range sys.known {
			explained += sigma[t*n+s] * w[k*nu+u]
		}
		v := sigma[t*n+t] - explained
		if v < 0 {
			v = 0
		}
		out[t] = v
	}

	return out, nil
}

// classifySolve tags singular-system failures with ErrSingularMatrix.
func classifySolve(err error) error {
	if errors.Is(err, matrix.ErrSingular) {
		return fmt.Errorf("%w: %w", ErrSingularMatrix, err)
	}

	return err
}

func subjectID(b *brain.Brain) string {
	if b == nil {
		return ""
	}

	return b.ID.String()
}
