package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"workstation/internal/config"
	"workstation/internal/logging"
	"workstation/internal/provisioning"
	"workstation/internal/workstation"

	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Server wraps http.Server with graceful shutdown.
type Server struct {
	server *http.Server
}

// New creates an HTTP server for handler. The write timeout leaves room for a
// full provisioning sequence, which blocks on the instance start.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      10 * time.Minute,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start listens on the configured address and serves until shut down.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis. It returns nil after a clean shutdown.
func (s *Server) Serve(lis net.Listener) error {
	logging.Logger().Info("Starting HTTP server", zap.String("address", lis.Addr().String()))
	err := s.server.Serve(lis)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting at most timeout for
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context, timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// NewWorkstationHandler builds the provider clients, the instance descriptor and
// the Handler from cfg. Clients are created once here and shared by all requests.
func NewWorkstationHandler(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*Handler, error) {
	descriptor, err := provisioning.NewDescriptor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build instance descriptor: %w", err)
	}

	prov, err := provisioning.NewGCPProvisioner(ctx, cfg.ProjectID, cfg.Zone, cfg.CredentialsPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create provisioner: %w", err)
	}

	records, err := provisioning.NewCloudDNS(ctx, cfg.ProjectID, cfg.ManagedZone(), cfg.CredentialsPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create dns client: %w", err)
	}

	manager := workstation.NewManager(cfg, descriptor, prov, prov, records)

	return NewHandler(manager, Options{
		ExpectedDigest:    cfg.APIKeySHA256,
		UnauthorizedDelay: cfg.Server.UnauthorizedDelay,
		FailureDelay:      cfg.Server.FailureDelay,
	}), nil
}
