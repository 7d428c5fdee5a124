// Package schedule detects changes to a routine's occurrence pattern and
// expands that pattern into concrete occurrence times.
//
// A routine's schedule is defined by three fields: frequency, start and end.
// Baseline captures them once, from the server copy, when editing begins.
// The working copy then drifts freely and is compared against that fixed
// snapshot. Resampling the baseline mid-session would make detection fire
// spuriously or not at all.
package schedule
