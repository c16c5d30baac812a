package config

import (
	"fmt"
	"strings"
)

// Resource paths and names derived from the configuration. Every path embeds the
// same project, zone and region so all calls address the same resources.

func (c *Config) ZonePath() string {
	return fmt.Sprintf("projects/%s/zones/%s", c.ProjectID, c.Zone)
}

func (c *Config) MachineTypePath() string {
	return fmt.Sprintf("%s/machineTypes/%s", c.ZonePath(), c.Instance.MachineType)
}

// BootDiskName is the persistent disk that outlives the instance.
func (c *Config) BootDiskName() string {
	return "workstation-" + c.Instance.Name
}

func (c *Config) BootDiskPath() string {
	return fmt.Sprintf("%s/disks/%s", c.ZonePath(), c.BootDiskName())
}

func (c *Config) SubnetworkPath() string {
	return fmt.Sprintf("projects/%s/regions/%s/subnetworks/main-%s", c.ProjectID, c.Region, c.Region)
}

func (c *Config) ServiceAccountEmail() string {
	return fmt.Sprintf("workstation-instance@%s.iam.gserviceaccount.com", c.ProjectID)
}

// ManagedZone returns the Cloud DNS zone, named after the project unless configured.
func (c *Config) ManagedZone() string {
	if c.DNS.ManagedZone != "" {
		return c.DNS.ManagedZone
	}
	return c.ProjectID
}

// DNSName returns the fully qualified record name, e.g. "centos8.my.project." for project "my-project".
func (c *Config) DNSName() string {
	if c.DNS.Name != "" {
		return c.DNS.Name
	}
	return c.Instance.Name + "." + strings.ReplaceAll(c.ProjectID, "-", ".") + "."
}
