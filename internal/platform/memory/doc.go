// Package memory implements fleet.API as an in-process simulator.
//
// Instances move through transitional states (pending, stopping,
// shutting-down) one step per ListInstances call, and spot requests are
// fulfilled after a configurable number of ListSpotRequests calls. The
// simulator backs the --provider memory mode of the CLI and the engine
// convergence suite.
package memory
