package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
)

// loadParams reads the parameters file. Replaceable in tests.
var loadParams = config.Load

// ApplyFlags are the apply command flags. Pointer fields are nil unless the
// flag was given, so unset flags never override the file.
type ApplyFlags struct {
	ParamsPath   string
	State        string
	Count        *int
	ExactCount   *int
	CountTag     string
	Wait         *bool
	WaitTimeout  *int
	Image        string
	InstanceType string
	Zone         string
	ClientToken  string
	Tags         map[string]string
}

// Apply handles the apply command.
//
// It loads the parameters file, overlays command line flags and reconciles
// the fleet towards the result.
func Apply(ctx context.Context, opts Options, flags ApplyFlags, out io.Writer) error {
	params := &config.Params{}
	if flags.ParamsPath != "" {
		p, err := loadParams(flags.ParamsPath)
		if err != nil {
			return err
		}
		params = p
	}
	if err := flags.overlay(params); err != nil {
		return err
	}
	return execute(ctx, opts, params, out)
}

func (f ApplyFlags) overlay(p *config.Params) error {
	if f.State != "" {
		p.State = config.State(f.State)
	}
	if f.Count != nil {
		p.Count = f.Count
	}
	if f.ExactCount != nil {
		p.ExactCount = f.ExactCount
	}
	if f.CountTag != "" {
		tag, err := fleet.ParseTagFilter(f.CountTag)
		if err != nil {
			return fmt.Errorf("invalid --count-tag: %w", err)
		}
		p.CountTag = tag
	}
	if f.Wait != nil {
		p.Wait = *f.Wait
	}
	if f.WaitTimeout != nil {
		p.WaitTimeout = *f.WaitTimeout
	}
	if f.Image != "" {
		p.Image = f.Image
	}
	if f.InstanceType != "" {
		p.InstanceType = f.InstanceType
	}
	if f.Zone != "" {
		p.Zone = f.Zone
	}
	if f.ClientToken != "" {
		p.ClientToken = f.ClientToken
	}
	if len(f.Tags) > 0 {
		if p.InstanceTags == nil {
			p.InstanceTags = make(map[string]string, len(f.Tags))
		}
		for k, v := range f.Tags {
			p.InstanceTags[k] = v
		}
	}
	return nil
}
