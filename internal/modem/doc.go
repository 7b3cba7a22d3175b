// Package modem computes continuous-phase FSK signals.
//
// Trajectory folds a bit sequence into per-bit phase records whose phase is
// continuous across bit boundaries, RenderFormulas turns those records into
// readable expressions, and Sample evaluates the waveform on a time grid.
// Everything here is a pure function of its arguments.
package modem
