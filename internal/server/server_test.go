package server_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"workstation/internal/auth"
	"workstation/internal/config"
	"workstation/internal/server"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/api/option"
)

var _ = Describe("HTTP Server", func() {
	Context("server lifecycle", func() {
		var (
			srv  *server.Server
			lis  net.Listener
			done chan error
		)

		BeforeEach(func() {
			ws := &MockWorkstation{IP: "34.77.10.20"}
			handler := server.NewHandler(ws, server.Options{ExpectedDigest: auth.Digest(apiKey)})

			var err error
			lis, err = net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())

			srv = server.New(lis.Addr().String(), handler)
			done = make(chan error, 1)
			go func() { done <- srv.Serve(lis) }()
		})

		AfterEach(func() {
			Expect(srv.Shutdown(context.Background(), time.Second)).To(Succeed())
			Eventually(done).Should(Receive(BeNil()))
		})

		It("serves the workstation endpoint", func() {
			req, err := http.NewRequest(http.MethodPost, "http://"+lis.Addr().String()+"/", strings.NewReader(`{"CURRENT_IP": "203.0.113.5"}`))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", apiKey)

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(Equal("34.77.10.20"))
		})
	})

	Context("wiring", func() {
		It("builds a handler from configuration without contacting the provider", func() {
			cfg := config.Default()
			cfg.ProjectID = "my-project"
			cfg.Region = "europe-west1"
			cfg.Zone = "europe-west1-b"
			cfg.User = "alice"
			cfg.SSHPublicKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIAABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4f alice@laptop"
			cfg.APIKeySHA256 = auth.Digest(apiKey)

			handler, err := server.NewWorkstationHandler(context.Background(), cfg,
				option.WithEndpoint("http://127.0.0.1:1/"),
				option.WithoutAuthentication(),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(handler).NotTo(BeNil())
		})
	})
})
