package handlers

import (
	"fmt"
	"slices"
)

// Providers selectable with --provider.
const (
	ProviderEC2    = "ec2"
	ProviderHCloud = "hcloud"
	ProviderMemory = "memory"
)

// Output formats selectable with --output.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Options are the global flags shared by every command.
type Options struct {
	Provider    string
	Region      string
	Profile     string
	Endpoint    string
	Output      string
	Yes         bool
	MetricsFile string
	Report      string
}

// Validate checks the option values that cobra cannot.
func (o *Options) Validate() error {
	if !slices.Contains([]string{ProviderEC2, ProviderHCloud, ProviderMemory}, o.Provider) {
		return fmt.Errorf("unknown provider %q: must be ec2, hcloud or memory", o.Provider)
	}
	if o.Output != OutputText && o.Output != OutputJSON {
		return fmt.Errorf("unknown output format %q: must be text or json", o.Output)
	}
	return nil
}
