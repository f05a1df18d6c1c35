package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/imamik/fleetctl/internal/platform/s3"
	"github.com/imamik/fleetctl/internal/reconcile"
)

// execute runs one reconciliation and publishes its outcome: metrics even
// on failure, then the report and the rendered result on success.
func execute(ctx context.Context, opts Options, params *config.Params, out io.Writer) error {
	logger := log.FromContext(ctx).WithValues("provider", opts.Provider)
	ctx = log.IntoContext(ctx, logger)

	if err := params.Validate(); err != nil {
		return err
	}

	var report s3.Location
	if opts.Report != "" {
		loc, err := s3.ParseURI(opts.Report)
		if err != nil {
			return err
		}
		report = loc
	}

	if params.State == config.StateAbsent {
		if err := confirmTermination(opts, params.InstanceIDs); err != nil {
			return err
		}
	}

	api, err := newProvider(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", opts.Provider, err)
	}

	if params.ExactCount != nil {
		if err := confirmScaleDown(ctx, opts, api, params); err != nil {
			return err
		}
	}

	engineOpts := []reconcile.Option{reconcile.WithTimeouts(config.LoadTimeouts())}
	var metrics *reconcile.Metrics
	if opts.MetricsFile != "" {
		metrics = reconcile.NewMetrics()
		engineOpts = append(engineOpts, reconcile.WithMetrics(metrics))
	}

	res, runErr := reconcile.New(api, engineOpts...).Run(ctx, params)

	if metrics != nil {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, metrics.Registry); err != nil {
			logger.Error(err, "failed to write metrics file", "path", opts.MetricsFile)
		}
	}
	if runErr != nil {
		logger.V(1).Info("reconciliation failed", "kind", fleet.KindOf(runErr), "providerCode", fleet.ProviderCode(runErr))
		if fleet.IsUnsupported(runErr) {
			return fmt.Errorf("the %s provider cannot perform this operation: %w", opts.Provider, runErr)
		}
		return runErr
	}

	if opts.Report != "" {
		uploader, err := newReportUploader(ctx, opts)
		if err != nil {
			return fmt.Errorf("failed to create report client: %w", err)
		}
		if err := uploader.UploadReport(ctx, report, res); err != nil {
			return fmt.Errorf("failed to upload report: %w", err)
		}
		logger.Info("uploaded report", "location", report.String())
	}

	state := string(params.State)
	if state == "" {
		state = string(config.StatePresent)
	}
	return writeResult(out, opts.Output, state, res)
}
