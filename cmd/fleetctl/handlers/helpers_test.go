package handlers

import (
	"context"
	"testing"

	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/imamik/fleetctl/internal/platform/memory"
	"github.com/imamik/fleetctl/internal/platform/s3"
)

// saveAndRestoreFactories restores every factory variable after the test.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origProvider := newProvider
	origUploader := newReportUploader
	origInteractive := isInteractive
	origConfirm := askConfirm
	origLoad := loadParams
	t.Cleanup(func() {
		newProvider = origProvider
		newReportUploader = origUploader
		isInteractive = origInteractive
		askConfirm = origConfirm
		loadParams = origLoad
	})
	isInteractive = func() bool { return false }
}

// useCloud routes every provider construction to cloud.
func useCloud(t *testing.T, cloud *memory.Cloud) {
	t.Helper()
	newProvider = func(context.Context, Options) (fleet.API, error) {
		return cloud, nil
	}
}

type fakeUploader struct {
	loc    s3.Location
	report any
	err    error
}

func (f *fakeUploader) UploadReport(_ context.Context, loc s3.Location, report any) error {
	f.loc = loc
	f.report = report
	return f.err
}

func textOptions() Options {
	return Options{Provider: ProviderMemory, Output: OutputText}
}

func jsonOptions() Options {
	return Options{Provider: ProviderMemory, Output: OutputJSON}
}
