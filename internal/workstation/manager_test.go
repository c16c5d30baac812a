package workstation_test

import (
	"context"

	"workstation/internal/config"
	"workstation/internal/provisioning"
	"workstation/internal/workstation"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/api/compute/v1"
)

const rule = "ssh-from-roaming-to-workstation"

var _ = Describe("Manager", func() {
	var (
		cloud   *MockCloud
		manager *workstation.Manager
		cfg     *config.Config
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		cloud = NewMockCloud()

		cfg = config.Default()
		cfg.ProjectID = "my-project"
		cfg.Region = "europe-west1"
		cfg.Zone = "europe-west1-b"

		manager = workstation.NewManager(cfg, &compute.Instance{Name: "centos8"}, cloud, cloud, cloud)
	})

	Context("provisioning when the instance does not exist", func() {
		It("creates the instance and opens the firewall to the caller only", func() {
			cloud.SourceRanges[rule] = []string{"192.0.2.10/32", "198.51.100.0/24"}

			ip, err := manager.Provision(ctx, "203.0.113.5")
			Expect(err).NotTo(HaveOccurred())
			Expect(ip).To(Equal("34.77.10.20"))

			Expect(cloud.Calls).To(Equal([]string{"create", "firewall", "wait", "get", "dns"}))
			Expect(cloud.SourceRanges[rule]).To(Equal([]string{"203.0.113.5/32"}))
			Expect(cloud.WaitedOn).To(ConsistOf(provisioning.Operation{Name: "op-create", Zone: "europe-west1-b"}))
		})

		It("publishes exactly one A record with the fresh address", func() {
			cloud.Records["centos8.my.project."] = []string{"35.0.0.1", "35.0.0.2"}

			_, err := manager.Provision(ctx, "203.0.113.5")
			Expect(err).NotTo(HaveOccurred())

			Expect(cloud.Records["centos8.my.project."]).To(Equal([]string{"34.77.10.20"}))
			Expect(cloud.TTLs["centos8.my.project."]).To(Equal(int64(30)))
		})
	})

	Context("provisioning when the instance already exists", func() {
		BeforeEach(func() {
			cloud.InstanceExists = true
		})

		It("falls back to starting it and still updates firewall and DNS", func() {
			ip, err := manager.Provision(ctx, "203.0.113.5")
			Expect(err).NotTo(HaveOccurred())
			Expect(ip).To(Equal("34.77.10.20"))

			Expect(cloud.Calls).To(Equal([]string{"create", "start", "firewall", "wait", "get", "dns"}))
			Expect(cloud.WaitedOn).To(ConsistOf(provisioning.Operation{Name: "op-start", Zone: "europe-west1-b"}))
			Expect(cloud.SourceRanges[rule]).To(Equal([]string{"203.0.113.5/32"}))
		})
	})

	Context("provisioning failures", func() {
		It("attempts a start on any create error", func() {
			cloud.CreateErr = errQuota
			cloud.InstanceExists = true

			_, err := manager.Provision(ctx, "203.0.113.5")
			Expect(err).NotTo(HaveOccurred())
			Expect(cloud.Calls[:2]).To(Equal([]string{"create", "start"}))
		})

		It("stops when the start fallback fails too", func() {
			cloud.CreateErr = errQuota

			_, err := manager.Provision(ctx, "203.0.113.5")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("start instance"))
			Expect(cloud.Calls).To(Equal([]string{"create", "start"}))
		})

		It("does not wait when the firewall update fails", func() {
			cloud.FirewallErr = errQuota

			_, err := manager.Provision(ctx, "203.0.113.5")
			Expect(err).To(MatchError(errQuota))
			Expect(cloud.Calls).NotTo(ContainElement("wait"))
		})

		It("does not touch DNS when the operation fails", func() {
			cloud.WaitErr = provisioning.ErrOperationFailed

			_, err := manager.Provision(ctx, "203.0.113.5")
			Expect(err).To(MatchError(provisioning.ErrOperationFailed))
			Expect(cloud.Calls).NotTo(ContainElement("dns"))
		})

		It("rejects an instance without an external address", func() {
			cloud.ExternalIP = ""

			_, err := manager.Provision(ctx, "203.0.113.5")
			Expect(err).To(MatchError(provisioning.ErrNoExternalIP))
			Expect(cloud.Calls).NotTo(ContainElement("dns"))
		})
	})

	Context("terminating", func() {
		It("deletes the instance without touching firewall or DNS", func() {
			cloud.InstanceExists = true
			cloud.SourceRanges[rule] = []string{"203.0.113.5/32"}
			cloud.Records["centos8.my.project."] = []string{"34.77.10.20"}

			Expect(manager.Terminate(ctx)).To(Succeed())

			Expect(cloud.Calls).To(Equal([]string{"delete"}))
			Expect(cloud.InstanceExists).To(BeFalse())
			Expect(cloud.SourceRanges[rule]).To(Equal([]string{"203.0.113.5/32"}))
			Expect(cloud.Records["centos8.my.project."]).To(Equal([]string{"34.77.10.20"}))
		})

		It("returns an error when the instance is already gone", func() {
			err := manager.Terminate(ctx)
			Expect(err).To(HaveOccurred())
			Expect(provisioning.IsNotFound(err)).To(BeTrue())
		})
	})
})
