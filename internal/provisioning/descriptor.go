package provisioning

import (
	"fmt"

	"workstation/internal/config"

	"google.golang.org/api/compute/v1"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// NewDescriptor builds the instance resource submitted on every create. The boot
// disk already exists and is attached with autoDelete disabled, so creating the
// instance restores the previous workstation.
func NewDescriptor(cfg *config.Config) (*compute.Instance, error) {
	startupScript, err := GenerateStartupScript(StartupScriptData{
		HostKeyDir: DefaultHostKeyDir,
		Delay:      DefaultStartupDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate startup script: %w", err)
	}
	sshKeys := SSHKeysValue(cfg.User, cfg.SSHPublicKey)
	automaticRestart := false

	return &compute.Instance{
		Kind:        "compute#instance",
		Name:        cfg.Instance.Name,
		Zone:        cfg.ZonePath(),
		MachineType: cfg.MachineTypePath(),
		DisplayDevice: &compute.DisplayDevice{
			EnableDisplay:   false,
			ForceSendFields: []string{"EnableDisplay"},
		},
		Metadata: &compute.Metadata{
			Kind: "compute#metadata",
			Items: []*compute.MetadataItems{
				{Key: "ssh-keys", Value: &sshKeys},
				{Key: "startup-script", Value: &startupScript},
			},
		},
		Tags: &compute.Tags{
			Items: append([]string(nil), cfg.Instance.Tags...),
		},
		Disks: []*compute.AttachedDisk{
			{
				Kind:            "compute#attachedDisk",
				Type:            "PERSISTENT",
				Boot:            true,
				Mode:            "READ_WRITE",
				AutoDelete:      false,
				DeviceName:      cfg.Instance.Name,
				Source:          cfg.BootDiskPath(),
				ForceSendFields: []string{"AutoDelete"},
			},
		},
		CanIpForward: false,
		NetworkInterfaces: []*compute.NetworkInterface{
			{
				Kind:       "compute#networkInterface",
				Subnetwork: cfg.SubnetworkPath(),
				AccessConfigs: []*compute.AccessConfig{
					{
						Kind:        "compute#accessConfig",
						Name:        "External NAT",
						Type:        "ONE_TO_ONE_NAT",
						NetworkTier: cfg.Instance.NetworkTier,
					},
				},
			},
		},
		ServiceAccounts: []*compute.ServiceAccount{
			{
				Email:  cfg.ServiceAccountEmail(),
				Scopes: []string{cloudPlatformScope},
			},
		},
		Scheduling: &compute.Scheduling{
			Preemptible:       true,
			OnHostMaintenance: "TERMINATE",
			AutomaticRestart:  &automaticRestart,
		},
		DeletionProtection: false,
		ReservationAffinity: &compute.ReservationAffinity{
			ConsumeReservationType: "ANY_RESERVATION",
		},
		ShieldedInstanceConfig: &compute.ShieldedInstanceConfig{
			EnableSecureBoot:          false,
			EnableVtpm:                true,
			EnableIntegrityMonitoring: true,
			ForceSendFields:           []string{"EnableSecureBoot"},
		},
		ForceSendFields: []string{"CanIpForward", "DeletionProtection"},
	}, nil
}
