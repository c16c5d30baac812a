package provisioning_test

import (
	"context"
	"net/http"
	"strings"
	"time"

	"workstation/internal/provisioning"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
)

var _ = Describe("GCPProvisioner", func() {
	var (
		api         *fakeGoogleAPI
		provisioner *provisioning.GCPProvisioner
		ctx         context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = newFakeGoogleAPI()

		var err error
		provisioner, err = provisioning.NewGCPProvisioner(ctx, "my-project", "europe-west1-b", "",
			option.WithEndpoint(api.URL()),
			option.WithoutAuthentication(),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		api.Close()
	})

	Context("creating an instance", func() {
		It("inserts the resource into the configured project and zone", func() {
			op, err := provisioner.Create(ctx, &compute.Instance{Name: "centos8"})
			Expect(err).NotTo(HaveOccurred())
			Expect(op).To(Equal(provisioning.Operation{Name: "op-insert", Zone: "europe-west1-b"}))

			call, found := api.FindCall(http.MethodPost, "/projects/my-project/zones/europe-west1-b/instances")
			Expect(found).To(BeTrue())
			Expect(call.Body["name"]).To(Equal("centos8"))
		})

		It("reports an already existing instance as a conflict", func() {
			api.instanceExists = true

			_, err := provisioner.Create(ctx, &compute.Instance{Name: "centos8"})
			Expect(err).To(HaveOccurred())
			Expect(provisioning.IsAlreadyExists(err)).To(BeTrue())
			Expect(provisioning.StatusCode(err)).To(Equal(http.StatusConflict))
		})
	})

	Context("starting an instance", func() {
		It("starts the instance by name", func() {
			op, err := provisioner.Start(ctx, "centos8")
			Expect(err).NotTo(HaveOccurred())
			Expect(op.Name).To(Equal("op-start"))

			_, found := api.FindCall(http.MethodPost, "/instances/centos8/start")
			Expect(found).To(BeTrue())
		})
	})

	Context("waiting for an operation", func() {
		It("returns after one provider wait when the operation is done", func() {
			err := provisioner.Wait(ctx, provisioning.Operation{Name: "op-insert", Zone: "europe-west1-b"})
			Expect(err).NotTo(HaveOccurred())

			_, found := api.FindCall(http.MethodPost, "/projects/my-project/zones/europe-west1-b/operations/op-insert/wait")
			Expect(found).To(BeTrue())
		})

		It("returns when the provider wait ends with the operation still running", func() {
			api.alwaysRunning = true
			done := make(chan error, 1)

			go func() {
				done <- provisioner.Wait(context.WithoutCancel(ctx), provisioning.Operation{Name: "op-insert"})
			}()

			Eventually(done, 2*time.Second).Should(Receive(BeNil()))
			waits := 0
			for _, c := range api.Calls() {
				if strings.HasSuffix(c.Path, "/operations/op-insert/wait") {
					waits++
				}
			}
			Expect(waits).To(Equal(1))
		})

		It("surfaces errors recorded on the finished operation", func() {
			api.waitResponses = []map[string]any{{
				"name":   "op-insert",
				"status": "DONE",
				"error": map[string]any{"errors": []any{
					map[string]any{"code": "QUOTA_EXCEEDED", "message": "Quota 'CPUS' exceeded"},
				}},
			}}

			err := provisioner.Wait(ctx, provisioning.Operation{Name: "op-insert"})
			Expect(err).To(MatchError(provisioning.ErrOperationFailed))
			Expect(err.Error()).To(ContainSubstring("QUOTA_EXCEEDED"))
		})

		It("stops when the context is cancelled", func() {
			api.waitResponses = []map[string]any{{"name": "op-insert", "status": "RUNNING"}}
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			err := provisioner.Wait(cancelled, provisioning.Operation{Name: "op-insert"})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("reading an instance", func() {
		It("returns the NAT address of the first interface", func() {
			api.instanceExists = true

			info, err := provisioner.Get(ctx, "centos8")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IP).To(Equal("34.77.10.20"))
			Expect(info.ID).To(Equal("4242"))
			Expect(info.Status).To(Equal("RUNNING"))
		})
	})

	Context("deleting an instance", func() {
		It("issues a delete and does not wait", func() {
			api.instanceExists = true

			op, err := provisioner.Delete(ctx, "centos8")
			Expect(err).NotTo(HaveOccurred())
			Expect(op.Name).To(Equal("op-delete"))

			_, waited := api.FindCall(http.MethodPost, "/wait")
			Expect(waited).To(BeFalse())
		})

		It("fails for a missing instance", func() {
			_, err := provisioner.Delete(ctx, "centos8")
			Expect(err).To(HaveOccurred())
			Expect(provisioning.IsNotFound(err)).To(BeTrue())
		})
	})

	Context("patching the firewall", func() {
		It("replaces the source ranges with the given list", func() {
			api.sourceRanges["ssh-from-roaming-to-workstation"] = []string{"192.0.2.1/32", "192.0.2.2/32"}

			err := provisioner.SetSourceRanges(ctx, "ssh-from-roaming-to-workstation", []string{"203.0.113.5/32"})
			Expect(err).NotTo(HaveOccurred())
			Expect(api.sourceRanges["ssh-from-roaming-to-workstation"]).To(Equal([]string{"203.0.113.5/32"}))

			call, found := api.FindCall(http.MethodPatch, "/projects/my-project/global/firewalls/ssh-from-roaming-to-workstation")
			Expect(found).To(BeTrue())
			Expect(call.Body["name"]).To(Equal("ssh-from-roaming-to-workstation"))
		})
	})
})

var _ = Describe("CloudDNS", func() {
	var (
		api     *fakeGoogleAPI
		records *provisioning.CloudDNS
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = newFakeGoogleAPI()

		var err error
		records, err = provisioning.NewCloudDNS(ctx, "my-project", "my-project", "",
			option.WithEndpoint(api.URL()),
			option.WithoutAuthentication(),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		api.Close()
	})

	It("replaces every record set for the name with a single A record", func() {
		api.rrsets = []map[string]any{
			{"name": "centos8.my.project.", "type": "A", "ttl": 30, "rrdatas": []any{"35.1.1.1"}},
			{"name": "centos8.my.project.", "type": "AAAA", "ttl": 30, "rrdatas": []any{"2001:db8::1"}},
		}

		err := records.ReplaceA(ctx, "centos8.my.project.", 30, "34.77.10.20")
		Expect(err).NotTo(HaveOccurred())

		Expect(api.rrsets).To(HaveLen(1))
		Expect(api.rrsets[0]["type"]).To(Equal("A"))
		Expect(api.rrsets[0]["rrdatas"]).To(Equal([]any{"34.77.10.20"}))
		Expect(api.rrsets[0]["ttl"]).To(BeNumerically("==", 30))

		list, found := api.FindCall(http.MethodGet, "/managedZones/my-project/rrsets")
		Expect(found).To(BeTrue())
		Expect(list.Query).To(ContainSubstring("name=centos8.my.project."))

		change, found := api.FindCall(http.MethodPost, "/managedZones/my-project/changes")
		Expect(found).To(BeTrue())
		Expect(change.Body["deletions"]).To(HaveLen(2))
		Expect(change.Body["additions"]).To(HaveLen(1))
	})

	It("adds the record when none exists yet", func() {
		err := records.ReplaceA(ctx, "centos8.my.project.", 30, "34.77.10.20")
		Expect(err).NotTo(HaveOccurred())
		Expect(api.rrsets).To(HaveLen(1))
	})

	It("does not submit a change when listing fails", func() {
		api.FailOn("/rrsets", http.StatusForbidden)

		err := records.ReplaceA(ctx, "centos8.my.project.", 30, "34.77.10.20")
		Expect(err).To(HaveOccurred())
		Expect(provisioning.StatusCode(err)).To(Equal(http.StatusForbidden))

		_, changed := api.FindCall(http.MethodPost, "/changes")
		Expect(changed).To(BeFalse())
	})
})
