// SPDX-License-Identifier: MIT

// Package brain holds a subject's recording: a samples × locations activity
// matrix bound to the locs.Set its columns refer to, with sample rate,
// per-sample session labels and free-form metadata.
//
// A Brain is either Observed (raw electrode data) or Reconstructed (an
// estimate produced by recon over a model's full location set). Helpers cover
// the preprocessing the model builder relies on: column restriction, the
// kurtosis electrode filter and per-session z-scoring.
package brain
