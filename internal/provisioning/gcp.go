package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workstation/internal/logging"

	"go.uber.org/zap"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
)

// ErrOperationFailed is returned when a zone operation finishes with errors.
var ErrOperationFailed = errors.New("operation failed")

// ErrNoExternalIP is returned when an instance has no NAT address.
var ErrNoExternalIP = errors.New("instance has no external IP")

// GCPProvisioner implements Provisioner and Firewall for Compute Engine
type GCPProvisioner struct {
	service   *compute.Service
	projectID string
	zone      string
}

// NewGCPProvisioner creates a new instance of GCPProvisioner. The underlying
// client is safe for concurrent use and meant to be created once per process.
func NewGCPProvisioner(ctx context.Context, projectID, zone, credentialsFile string, opts ...option.ClientOption) (*GCPProvisioner, error) {
	service, err := compute.NewService(ctx, clientOptions(credentialsFile, opts)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute service: %w", err)
	}

	return &GCPProvisioner{
		service:   service,
		projectID: projectID,
		zone:      zone,
	}, nil
}

// Create inserts a new VM from the given resource
func (p *GCPProvisioner) Create(ctx context.Context, instance *compute.Instance) (Operation, error) {
	op, err := p.service.Instances.Insert(p.projectID, p.zone, instance).Context(ctx).Do()
	if err != nil {
		return Operation{}, fmt.Errorf("failed to insert instance: %w", err)
	}
	return Operation{Name: op.Name, Zone: p.zone}, nil
}

// Start starts an existing, stopped VM by name
func (p *GCPProvisioner) Start(ctx context.Context, name string) (Operation, error) {
	op, err := p.service.Instances.Start(p.projectID, p.zone, name).Context(ctx).Do()
	if err != nil {
		return Operation{}, fmt.Errorf("failed to start instance: %w", err)
	}
	return Operation{Name: op.Name, Zone: p.zone}, nil
}

// Wait makes a single zone operation wait call. The provider returns when the
// operation is DONE or when its own wait deadline passes; an operation that is
// still running at that point is logged and the caller carries on.
func (p *GCPProvisioner) Wait(ctx context.Context, op Operation) error {
	zone := op.Zone
	if zone == "" {
		zone = p.zone
	}

	result, err := p.service.ZoneOperations.Wait(p.projectID, zone, op.Name).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to wait for operation %s: %w", op.Name, err)
	}
	if result.Status != "DONE" {
		logging.Logger().Warn("Operation not done when provider wait returned",
			zap.String("operation", op.Name),
			zap.String("status", result.Status))
		return nil
	}
	if result.Error != nil && len(result.Error.Errors) > 0 {
		return fmt.Errorf("%w: %s", ErrOperationFailed, describeOperationErrors(result.Error))
	}
	return nil
}

// Get returns the current state of a VM
func (p *GCPProvisioner) Get(ctx context.Context, name string) (*InstanceInfo, error) {
	instance, err := p.service.Instances.Get(p.projectID, p.zone, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	return &InstanceInfo{
		ID:     fmt.Sprintf("%d", instance.Id),
		IP:     findNatIP(instance),
		Name:   instance.Name,
		Zone:   p.zone,
		Status: instance.Status,
	}, nil
}

// Delete deletes a VM by name without waiting for the operation
func (p *GCPProvisioner) Delete(ctx context.Context, name string) (Operation, error) {
	op, err := p.service.Instances.Delete(p.projectID, p.zone, name).Context(ctx).Do()
	if err != nil {
		return Operation{}, fmt.Errorf("failed to delete instance: %w", err)
	}
	return Operation{Name: op.Name, Zone: p.zone}, nil
}

// SetSourceRanges patches a firewall rule so its source ranges are exactly ranges.
func (p *GCPProvisioner) SetSourceRanges(ctx context.Context, rule string, ranges []string) error {
	patch := &compute.Firewall{
		Name:         rule,
		SourceRanges: ranges,
	}
	if _, err := p.service.Firewalls.Patch(p.projectID, rule, patch).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to patch firewall %s: %w", rule, err)
	}
	return nil
}

// findNatIP returns the NAT address of the first access config on the first
// network interface, or an empty string when there is none.
func findNatIP(instance *compute.Instance) string {
	if instance == nil || len(instance.NetworkInterfaces) == 0 {
		return ""
	}
	configs := instance.NetworkInterfaces[0].AccessConfigs
	if len(configs) == 0 || configs[0] == nil {
		return ""
	}
	return configs[0].NatIP
}

func describeOperationErrors(opErr *compute.OperationError) string {
	msgs := make([]string, 0, len(opErr.Errors))
	for _, e := range opErr.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Code, e.Message))
	}
	return strings.Join(msgs, "; ")
}

func clientOptions(credentialsFile string, extra []option.ClientOption) []option.ClientOption {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}
	return append(opts, extra...)
}
