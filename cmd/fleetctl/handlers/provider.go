package handlers

import (
	"context"
	"fmt"
	"os"

	hcloudgo "github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/imamik/fleetctl/internal/platform/ec2"
	"github.com/imamik/fleetctl/internal/platform/hcloud"
	"github.com/imamik/fleetctl/internal/platform/memory"
	"github.com/imamik/fleetctl/internal/platform/s3"
)

// reportUploader stores run reports in object storage.
type reportUploader interface {
	UploadReport(ctx context.Context, loc s3.Location, report any) error
}

// Factory function variables - can be replaced in tests.
var (
	// newProvider builds the fleet client selected by --provider.
	newProvider = func(ctx context.Context, opts Options) (fleet.API, error) {
		switch opts.Provider {
		case ProviderEC2:
			return ec2.NewClient(ctx, ec2.Options{
				Region:   opts.Region,
				Profile:  opts.Profile,
				Endpoint: opts.Endpoint,
			})
		case ProviderHCloud:
			token := os.Getenv("HCLOUD_TOKEN")
			if token == "" {
				return nil, fmt.Errorf("HCLOUD_TOKEN is required for the hcloud provider")
			}
			clientOpts := []hcloud.ClientOption{hcloud.WithTimeouts(config.LoadTimeouts())}
			if opts.Endpoint != "" {
				clientOpts = append(clientOpts, hcloud.WithHCloudClient(hcloudgo.NewClient(
					hcloudgo.WithToken(token),
					hcloudgo.WithEndpoint(opts.Endpoint),
					hcloudgo.WithApplication("fleetctl", ""),
				)))
			}
			return hcloud.NewClient(token, clientOpts...), nil
		case ProviderMemory:
			return memory.New(), nil
		}
		return nil, fmt.Errorf("unknown provider %q", opts.Provider)
	}

	// newReportUploader builds the object storage client for --report.
	newReportUploader = func(ctx context.Context, opts Options) (reportUploader, error) {
		return s3.NewClient(ctx, s3.Options{
			Region:    opts.Region,
			Endpoint:  os.Getenv("FLEET_REPORT_ENDPOINT"),
			AccessKey: os.Getenv("FLEET_REPORT_ACCESS_KEY"),
			SecretKey: os.Getenv("FLEET_REPORT_SECRET_KEY"),
			PathStyle: os.Getenv("FLEET_REPORT_ENDPOINT") != "",
		})
	}
)
