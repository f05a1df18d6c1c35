package reconcile

import (
	"context"
	"time"

	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors on a dedicated registry. A nil
// *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	reconcileTotal    *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec
	instanceChanges   *prometheus.CounterVec
	waitPolls         *prometheus.CounterVec
	fleetDesired      prometheus.Gauge
	fleetObserved     prometheus.Gauge
	apiCallsTotal     *prometheus.CounterVec
	apiLatency        *prometheus.HistogramVec
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		reconcileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fleetctl",
				Subsystem: "engine",
				Name:      "reconcile_total",
				Help:      "Total number of reconciliations by requested state and result",
			},
			[]string{"state", "result"},
		),
		reconcileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fleetctl",
				Subsystem: "engine",
				Name:      "reconcile_duration_seconds",
				Help:      "Duration of reconciliation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
			},
			[]string{"state"},
		),
		instanceChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fleetctl",
				Subsystem: "engine",
				Name:      "instance_changes_total",
				Help:      "Total number of instances acted on by action",
			},
			[]string{"action"},
		),
		waitPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fleetctl",
				Subsystem: "engine",
				Name:      "wait_polls_total",
				Help:      "Total number of polls issued by waiters",
			},
			[]string{"waiter"},
		),
		fleetDesired: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fleetctl",
			Subsystem: "fleet",
			Name:      "desired_instances",
			Help:      "Desired number of running instances in exact count mode",
		}),
		fleetObserved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fleetctl",
			Subsystem: "fleet",
			Name:      "observed_instances",
			Help:      "Observed number of running instances before reconciliation",
		}),
		apiCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fleetctl",
				Subsystem: "api",
				Name:      "calls_total",
				Help:      "Total number of fleet API calls by operation and result",
			},
			[]string{"operation", "result"},
		),
		apiLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fleetctl",
				Subsystem: "api",
				Name:      "latency_seconds",
				Help:      "Latency of fleet API calls in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
			},
			[]string{"operation"},
		),
	}
	m.Registry.MustRegister(
		m.reconcileTotal,
		m.reconcileDuration,
		m.instanceChanges,
		m.waitPolls,
		m.fleetDesired,
		m.fleetObserved,
		m.apiCallsTotal,
		m.apiLatency,
	)
	return m
}

// recordReconcile records a reconciliation result.
func (m *Metrics) recordReconcile(state string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = string(fleet.KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	m.reconcileTotal.WithLabelValues(state, result).Inc()
	m.reconcileDuration.WithLabelValues(state).Observe(duration.Seconds())
}

func (m *Metrics) recordChange(action string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.instanceChanges.WithLabelValues(action).Add(float64(n))
}

func (m *Metrics) recordPoll(waiter string) {
	if m == nil {
		return
	}
	m.waitPolls.WithLabelValues(waiter).Inc()
}

func (m *Metrics) recordFleetSize(desired, observed int) {
	if m == nil {
		return
	}
	m.fleetDesired.Set(float64(desired))
	m.fleetObserved.Set(float64(observed))
}

// recordAPICall records a fleet API call.
func (m *Metrics) recordAPICall(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.apiCallsTotal.WithLabelValues(operation, result).Inc()
	m.apiLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// InstrumentAPI wraps api so every call is counted and timed. It returns api
// unchanged when m is nil.
func (m *Metrics) InstrumentAPI(api fleet.API) fleet.API {
	if m == nil {
		return api
	}
	return &instrumentedAPI{next: api, metrics: m}
}

type instrumentedAPI struct {
	next    fleet.API
	metrics *Metrics
}

func (a *instrumentedAPI) observe(op string, start time.Time, err error) {
	a.metrics.recordAPICall(op, err, time.Since(start))
}

func (a *instrumentedAPI) ListInstances(ctx context.Context, filter fleet.Filter) ([]fleet.Instance, error) {
	start := time.Now()
	out, err := a.next.ListInstances(ctx, filter)
	a.observe("ListInstances", start, err)
	return out, err
}

func (a *instrumentedAPI) CreateInstances(ctx context.Context, spec fleet.LaunchSpec) ([]fleet.Instance, error) {
	start := time.Now()
	out, err := a.next.CreateInstances(ctx, spec)
	a.observe("CreateInstances", start, err)
	return out, err
}

func (a *instrumentedAPI) RequestSpotInstances(ctx context.Context, bid fleet.SpotOptions, spec fleet.LaunchSpec) ([]fleet.SpotRequest, error) {
	start := time.Now()
	out, err := a.next.RequestSpotInstances(ctx, bid, spec)
	a.observe("RequestSpotInstances", start, err)
	return out, err
}

func (a *instrumentedAPI) ListSpotRequests(ctx context.Context) ([]fleet.SpotRequest, error) {
	start := time.Now()
	out, err := a.next.ListSpotRequests(ctx)
	a.observe("ListSpotRequests", start, err)
	return out, err
}

func (a *instrumentedAPI) TerminateInstance(ctx context.Context, id string) error {
	start := time.Now()
	err := a.next.TerminateInstance(ctx, id)
	a.observe("TerminateInstance", start, err)
	return err
}

func (a *instrumentedAPI) StartInstance(ctx context.Context, id string) error {
	start := time.Now()
	err := a.next.StartInstance(ctx, id)
	a.observe("StartInstance", start, err)
	return err
}

func (a *instrumentedAPI) StopInstance(ctx context.Context, id string) error {
	start := time.Now()
	err := a.next.StopInstance(ctx, id)
	a.observe("StopInstance", start, err)
	return err
}

func (a *instrumentedAPI) RebootInstance(ctx context.Context, id string) error {
	start := time.Now()
	err := a.next.RebootInstance(ctx, id)
	a.observe("RebootInstance", start, err)
	return err
}

func (a *instrumentedAPI) GetAttribute(ctx context.Context, id string, attr fleet.Attribute) (bool, error) {
	start := time.Now()
	v, err := a.next.GetAttribute(ctx, id, attr)
	a.observe("GetAttribute", start, err)
	return v, err
}

func (a *instrumentedAPI) ModifyAttribute(ctx context.Context, id string, attr fleet.Attribute, value bool) error {
	start := time.Now()
	err := a.next.ModifyAttribute(ctx, id, attr, value)
	a.observe("ModifyAttribute", start, err)
	return err
}

func (a *instrumentedAPI) ModifyInterfaceAttribute(ctx context.Context, interfaceID string, attr fleet.Attribute, value bool) error {
	start := time.Now()
	err := a.next.ModifyInterfaceAttribute(ctx, interfaceID, attr, value)
	a.observe("ModifyInterfaceAttribute", start, err)
	return err
}

func (a *instrumentedAPI) CreateTags(ctx context.Context, ids []string, tags map[string]string) error {
	start := time.Now()
	err := a.next.CreateTags(ctx, ids, tags)
	a.observe("CreateTags", start, err)
	return err
}

func (a *instrumentedAPI) SnapshotSize(ctx context.Context, snapshotID string) (int32, error) {
	start := time.Now()
	size, err := a.next.SnapshotSize(ctx, snapshotID)
	a.observe("SnapshotSize", start, err)
	return size, err
}

func (a *instrumentedAPI) Capabilities() fleet.Capabilities {
	return a.next.Capabilities()
}
