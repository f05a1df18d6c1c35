// Package config defines the desired-state parameters of one reconciliation
// invocation and the environment-driven poll and retry timings.
//
// [Params] is loaded from a YAML file with [Load] and overlaid by CLI flags.
// It is treated as an immutable value once [Params.Validate] has passed;
// components receive the pieces they need ([Params.LaunchSpec],
// [Params.Desired]) rather than the whole parameter set.
package config
