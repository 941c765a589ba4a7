// Package supereeg reconstructs full-brain activity from sparse intracranial
// recordings (ECoG / EEG).
//
// 🚀 What is supereeg?
//
//	A population model of how activity at every brain location covaries,
//	learned from many partially-covered subjects, plus a Gaussian-process
//	(kriging) step that fills in the locations a new patient never recorded:
//		• Correlations are Fisher z-transformed and pooled across subjects,
//		  weighted by sample count, so coverage grows with every recording
//		• Reconstruction conditions the pooled covariance on the observed
//		  electrodes and returns activity plus posterior variance everywhere
//
// Under the hood, everything is organized under these subpackages:
//
//	matrix/   — dense row-major matrices, correlation, Fisher z, SPD solves
//	locs/     — electrode location sets and alignment between them
//	brain/    — recordings (samples × electrodes) + preprocessing
//	model/    — Fisher-z aggregated correlation model, parallel Build
//	recon/    — kriging Engine: Predict and Posterior
//	codec/    — versioned, compressed binary format for all objects
//	storage/  — create-only blob stores: memory, fs, s3
//	catalog/  — SQLite index of stored objects
//	repo/     — Save*/Load* over storage + catalog
//	pipeline/ — BuildModel / Reconstruct over stored objects, from config
//	synth/    — synthetic covariances, subjects and cohorts
//
// Quick sketch:
//
//	subject A: ●●●○○        ┐
//	subject B: ●○○●●        ├─ fold ─→ model over ●●●●●
//	subject C: ○●○●●        ┘
//	patient:   ●●○○○  ── predict ──→ ●●◐◐◐
//
//	● observed  ○ not covered  ◐ reconstructed
//
//	go get github.com/katalvlaran/supereeg
package supereeg
