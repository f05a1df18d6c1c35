package reconcile_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/imamik/fleetctl/internal/platform/memory"
	"github.com/imamik/fleetctl/internal/reconcile"
	testutil "github.com/imamik/fleetctl/internal/testing"
)

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

func ids(instances []fleet.Instance) []string { return fleet.IDs(instances) }

var _ = Describe("Engine against a simulated fleet", func() {
	var (
		ctx    context.Context
		cloud  *memory.Cloud
		engine *reconcile.Engine
	)

	run := func(p config.Params) (*reconcile.Result, error) {
		return engine.Run(ctx, &p)
	}

	runningWith := func(key, value string) []fleet.Instance {
		var out []fleet.Instance
		for _, inst := range cloud.All() {
			if inst.State == fleet.StateRunning && inst.Tags[key] == value {
				out = append(out, inst)
			}
		}
		return out
	}

	BeforeEach(func() {
		ctx = logf.IntoContext(context.Background(), logf.Log.WithName("convergence"))
		clock := testutil.NewFakeClock()
		cloud = memory.New(
			memory.WithClock(clock),
			memory.WithTransitionSteps(2),
			memory.WithVisibilityDelay(2),
		)
		engine = reconcile.New(cloud,
			reconcile.WithClock(clock),
			reconcile.WithTimeouts(config.TestTimeouts()),
		)
	})

	Describe("present", func() {
		It("launches, tags and waits for running instances", func() {
			res, err := run(config.Params{
				Image:        "ami-1",
				InstanceType: "t3.micro",
				Count:        intPtr(3),
				Wait:         true,
				InstanceTags: map[string]string{"role": "web"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changed).To(BeTrue())
			Expect(res.InstanceIDs).To(HaveLen(3))
			for _, inst := range res.Instances {
				Expect(inst.State).To(Equal(fleet.StateRunning))
				Expect(inst.Tags).To(HaveKeyWithValue("role", "web"))
			}
			Expect(runningWith("role", "web")).To(HaveLen(3))
		})

		It("is idempotent under a client token", func() {
			p := config.Params{Image: "ami-1", Count: intPtr(2), Wait: true, ClientToken: "deploy-1"}

			first, err := run(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Changed).To(BeTrue())

			second, err := run(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Changed).To(BeFalse())
			Expect(second.InstanceIDs).To(ConsistOf(first.InstanceIDs))
			Expect(cloud.All()).To(HaveLen(2))
		})

		It("enables termination protection on new instances", func() {
			res, err := run(config.Params{Image: "ami-1", Wait: true, TerminationProtection: boolPtr(true)})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Instances).To(HaveLen(1))
			Expect(res.Instances[0].DisableAPITermination).To(BeTrue())

			_, err = run(config.Params{State: config.StateAbsent, InstanceIDs: res.InstanceIDs})
			Expect(err).To(HaveOccurred())
			Expect(fleet.IsKind(err, fleet.KindTermination)).To(BeTrue())
		})

		It("fulfills spot requests", func() {
			res, err := run(config.Params{Image: "ami-1", SpotPrice: "0.05", Wait: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.SpotRequestIDs).To(HaveLen(1))
			Expect(res.Instances).To(HaveLen(1))
			Expect(res.Instances[0].State).To(Equal(fleet.StateRunning))
		})

		It("rejects spot requests when the provider has no spot capacity", func() {
			cloud = memory.New(memory.WithCapabilities(fleet.Capabilities{}))
			engine = reconcile.New(cloud, reconcile.WithClock(testutil.NewFakeClock()), reconcile.WithTimeouts(config.TestTimeouts()))

			_, err := run(config.Params{Image: "ami-1", SpotPrice: "0.05"})
			Expect(fleet.IsKind(err, fleet.KindCapability)).To(BeTrue())
			Expect(cloud.All()).To(BeEmpty())
		})
	})

	Describe("exact_count", func() {
		countParams := func(n int) config.Params {
			return config.Params{
				Image:        "ami-1",
				ExactCount:   intPtr(n),
				CountTag:     fleet.Exists("role"),
				InstanceTags: map[string]string{"role": "web"},
				Wait:         true,
			}
		}

		It("converges up, holds, then converges down", func() {
			res, err := run(countParams(3))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changed).To(BeTrue())
			Expect(res.TaggedInstances).To(HaveLen(3))

			res, err = run(countParams(3))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changed).To(BeFalse())
			Expect(res.Instances).To(BeEmpty())
			Expect(res.TaggedInstances).To(HaveLen(3))

			before := ids(runningWith("role", "web"))
			res, err = run(countParams(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changed).To(BeTrue())
			Expect(res.InstanceIDs).To(HaveLen(2))
			Expect(res.TaggedInstances).To(HaveLen(1))
			Expect(runningWith("role", "web")).To(HaveLen(1))
			Expect(before).To(ContainElements(res.InstanceIDs))
			for _, inst := range res.Instances {
				Expect(inst.State).To(Equal(fleet.StateTerminated))
			}
		})
	})

	Describe("lifecycle", func() {
		BeforeEach(func() {
			cloud.Add(testutil.NewInstance("i-1").Running().WithTag("env", "prod").Build())
			cloud.Add(testutil.NewInstance("i-2").Running().WithTag("env", "prod").Build())
			cloud.Add(testutil.NewInstance("i-3").Running().WithTag("env", "dev").Build())
		})

		It("stops and restarts instances selected by tag", func() {
			res, err := run(config.Params{State: config.StateStopped, InstanceTags: map[string]string{"env": "prod"}, Wait: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changed).To(BeTrue())
			Expect(res.InstanceIDs).To(ConsistOf("i-1", "i-2"))

			inst, _ := cloud.Get("i-3")
			Expect(inst.State).To(Equal(fleet.StateRunning))

			res, err = run(config.Params{State: config.StateStopped, InstanceTags: map[string]string{"env": "prod"}, Wait: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changed).To(BeFalse())

			res, err = run(config.Params{State: config.StateRunning, InstanceIDs: []string{"i-1"}, Wait: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changed).To(BeTrue())
			inst, _ = cloud.Get("i-1")
			Expect(inst.State).To(Equal(fleet.StateRunning))
		})

		It("reboots instances without waiting", func() {
			res, err := run(config.Params{State: config.StateRestarted, InstanceIDs: []string{"i-3"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changed).To(BeTrue())
			Expect(res.InstanceIDs).To(Equal([]string{"i-3"}))
		})

		It("terminates and reports the final state", func() {
			res, err := run(config.Params{State: config.StateAbsent, InstanceIDs: []string{"i-1", "i-2"}, Wait: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changed).To(BeTrue())
			for _, inst := range res.Instances {
				Expect(inst.State).To(Equal(fleet.StateTerminated))
			}

			res, err = run(config.Params{State: config.StateAbsent, InstanceIDs: []string{"i-1", "i-2"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changed).To(BeFalse())
		})
	})

	Describe("safety attributes", func() {
		It("falls back to per-interface source/dest check", func() {
			cloud.Add(testutil.NewInstance("i-nat").Running().
				WithTag("role", "nat").
				InVPC("vpc-1").
				WithInterfaces("eni-1", "eni-2").
				Build())

			res, err := run(config.Params{
				State:           config.StateRunning,
				InstanceTags:    map[string]string{"role": "nat"},
				SourceDestCheck: boolPtr(false),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Changed).To(BeTrue())

			inst, _ := cloud.Get("i-nat")
			Expect(inst.SourceDestCheck).To(BeFalse())
			for _, ni := range inst.NetworkInterfaces {
				Expect(ni.SourceDestCheck).To(BeFalse())
			}
		})
	})
})
