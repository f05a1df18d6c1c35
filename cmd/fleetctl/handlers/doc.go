// Package handlers implements the business logic for CLI commands.
//
// Each handler loads parameters, builds the provider client for the
// selected backend and runs the reconciliation engine. Factory variables
// allow tests to replace the provider, the confirmation prompt and the
// report uploader.
package handlers
