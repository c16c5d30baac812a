// Package workstation runs the provisioning and termination sequences for the
// single workstation instance.
package workstation

import (
	"context"
	"fmt"

	"workstation/internal/config"
	"workstation/internal/logging"
	"workstation/internal/provisioning"

	"go.uber.org/zap"
	"google.golang.org/api/compute/v1"
)

// Manager orchestrates compute, firewall and DNS calls for one named instance.
// It holds no mutable state and is safe for concurrent use.
type Manager struct {
	instances provisioning.Provisioner
	firewall  provisioning.Firewall
	records   provisioning.RecordSets

	descriptor   *compute.Instance
	instanceName string
	firewallRule string
	dnsName      string
	dnsTTL       int64
}

// NewManager creates a Manager for the instance described by cfg.
func NewManager(cfg *config.Config, descriptor *compute.Instance, instances provisioning.Provisioner, firewall provisioning.Firewall, records provisioning.RecordSets) *Manager {
	return &Manager{
		instances:    instances,
		firewall:     firewall,
		records:      records,
		descriptor:   descriptor,
		instanceName: cfg.Instance.Name,
		firewallRule: cfg.Instance.FirewallRule,
		dnsName:      cfg.DNSName(),
		dnsTTL:       cfg.DNS.TTL,
	}
}

// Provision creates the instance (or starts it when creation fails), opens the
// firewall to currentIP only, waits for the instance and points DNS at it.
// It returns the instance's external address.
func (m *Manager) Provision(ctx context.Context, currentIP string) (string, error) {
	log := logging.Logger().With(zap.String("instance", m.instanceName))

	log.Info("Creating preemptible instance from persistent disk")
	op, err := m.instances.Create(ctx, m.descriptor)
	if err != nil {
		// Any create failure falls back to a start, not only "already exists".
		log.Warn("Cannot create instance, attempting to start existing instance instead",
			zap.Bool("already_exists", provisioning.IsAlreadyExists(err)),
			zap.Error(err))
		op, err = m.instances.Start(ctx, m.instanceName)
		if err != nil {
			return "", fmt.Errorf("start instance: %w", err)
		}
	}

	sourceRange := currentIP + "/32"
	log.Info("Updating firewall to allow access from source IP",
		zap.String("rule", m.firewallRule),
		zap.String("source_range", sourceRange))
	if err := m.firewall.SetSourceRanges(ctx, m.firewallRule, []string{sourceRange}); err != nil {
		return "", fmt.Errorf("update firewall: %w", err)
	}

	log.Info("Waiting for instance to start", zap.String("operation", op.Name))
	if err := m.instances.Wait(ctx, op); err != nil {
		return "", fmt.Errorf("wait for instance: %w", err)
	}

	log.Info("Getting external IP address of instance")
	info, err := m.instances.Get(ctx, m.instanceName)
	if err != nil {
		return "", fmt.Errorf("get instance: %w", err)
	}
	if info.IP == "" {
		return "", fmt.Errorf("get instance: %w", provisioning.ErrNoExternalIP)
	}

	log.Info("Updating DNS to point at new instance IP",
		zap.String("dns_name", m.dnsName),
		zap.String("ip", info.IP))
	if err := m.records.ReplaceA(ctx, m.dnsName, m.dnsTTL, info.IP); err != nil {
		return "", fmt.Errorf("update dns: %w", err)
	}

	return info.IP, nil
}

// Terminate deletes the instance without waiting. Firewall and DNS are left as
// they are until the next Provision overwrites them.
func (m *Manager) Terminate(ctx context.Context) error {
	logging.Logger().Info("Terminating instance", zap.String("instance", m.instanceName))
	op, err := m.instances.Delete(ctx, m.instanceName)
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	logging.Logger().Debug("Delete submitted", zap.String("operation", op.Name))
	return nil
}
