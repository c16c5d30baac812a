// Package server exposes the workstation endpoint over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"workstation/internal/auth"
	"workstation/internal/logging"
	"workstation/internal/provisioning"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TerminatedMessage is the body returned after a successful DELETE.
const TerminatedMessage = "Instance deleted"

const maxBodyBytes = 64 << 10

// Workstation is the provisioning surface the handler drives.
type Workstation interface {
	Provision(ctx context.Context, currentIP string) (string, error)
	Terminate(ctx context.Context) error
}

// Options configures a Handler.
type Options struct {
	// ExpectedDigest is the hex SHA-256 of the accepted API key.
	ExpectedDigest string
	// UnauthorizedDelay is slept before answering a request with a bad or missing key.
	UnauthorizedDelay time.Duration
	// FailureDelay is slept before answering a request whose provisioning failed.
	FailureDelay time.Duration
}

// Handler authenticates requests and dispatches POST to Provision and DELETE
// to Terminate. It keeps no state between requests.
type Handler struct {
	verifier          *auth.Verifier
	workstation       Workstation
	unauthorizedDelay time.Duration
	failureDelay      time.Duration
}

// NewHandler creates a Handler.
func NewHandler(ws Workstation, opts Options) *Handler {
	return &Handler{
		verifier:          auth.NewVerifier(opts.ExpectedDigest),
		workstation:       ws,
		unauthorizedDelay: opts.UnauthorizedDelay,
		failureDelay:      opts.FailureDelay,
	}
}

type provisionRequest struct {
	CurrentIP string `json:"CURRENT_IP"`
}

func (p provisionRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CurrentIP, validation.Required, is.IPv4),
	)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logging.Logger().With(
		zap.String("request_id", uuid.NewString()),
		zap.String("method", r.Method),
	)

	key, supplied := authorization(r)
	if !h.verifier.Verify(key, supplied) {
		log.Warn("Unauthenticated request, delaying response",
			zap.Bool("header_present", supplied),
			zap.Duration("delay", h.unauthorizedDelay))
		sleep(r.Context(), h.unauthorizedDelay)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.absorb(w, r, log, h.provision)
	case http.MethodDelete:
		h.absorb(w, r, log, h.terminate)
	default:
		log.Warn("Invalid method, aborting")
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	}
}

// absorb runs an authorized action. Errors and panics are logged and answered
// with a bare 500 after the failure delay; nothing escapes to the server.
func (h *Handler) absorb(w http.ResponseWriter, r *http.Request, log *zap.Logger, action func(context.Context, *http.Request, *zap.Logger) (string, error)) {
	var (
		body string
		err  error
	)
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
				log.Error("Request handler panicked", zap.Any("panic", rec), zap.Stack("stack"))
			}
		}()
		// Once accepted the request runs to completion even if the caller goes away.
		body, err = action(context.WithoutCancel(r.Context()), r, log)
	}()

	if err != nil {
		log.Error("Request failed",
			zap.Int("provider_status", provisioning.StatusCode(err)),
			zap.Duration("delay", h.failureDelay),
			zap.Error(err))
		sleep(r.Context(), h.failureDelay)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (h *Handler) provision(ctx context.Context, r *http.Request, log *zap.Logger) (string, error) {
	var req provisionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return "", fmt.Errorf("failed to decode request body: %w", err)
	}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("invalid request body: %w", err)
	}

	log.Info("Provisioning workstation", zap.String("current_ip", req.CurrentIP))
	ip, err := h.workstation.Provision(ctx, req.CurrentIP)
	if err != nil {
		return "", err
	}
	log.Info("Workstation ready", zap.String("ip", ip))
	return ip, nil
}

func (h *Handler) terminate(ctx context.Context, _ *http.Request, log *zap.Logger) (string, error) {
	if err := h.workstation.Terminate(ctx); err != nil {
		return "", err
	}
	log.Info("Workstation terminated")
	return TerminatedMessage, nil
}

// authorization returns the raw Authorization header and whether it was sent.
func authorization(r *http.Request) (string, bool) {
	values := r.Header.Values("Authorization")
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
