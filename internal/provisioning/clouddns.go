package provisioning

import (
	"context"
	"fmt"

	"google.golang.org/api/dns/v1"
	"google.golang.org/api/option"
)

// CloudDNS implements RecordSets on a Cloud DNS managed zone
type CloudDNS struct {
	service     *dns.Service
	projectID   string
	managedZone string
}

// NewCloudDNS creates a client bound to one managed zone
func NewCloudDNS(ctx context.Context, projectID, managedZone, credentialsFile string, opts ...option.ClientOption) (*CloudDNS, error) {
	service, err := dns.NewService(ctx, clientOptions(credentialsFile, opts)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create dns service: %w", err)
	}

	return &CloudDNS{
		service:     service,
		projectID:   projectID,
		managedZone: managedZone,
	}, nil
}

// ReplaceA deletes every record set currently published for name and adds a
// single A record in the same change, so the zone never serves two addresses.
func (d *CloudDNS) ReplaceA(ctx context.Context, name string, ttl int64, ip string) error {
	existing, err := d.service.ResourceRecordSets.List(d.projectID, d.managedZone).Name(name).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to list record sets for %s: %w", name, err)
	}

	change := &dns.Change{
		Deletions: existing.Rrsets,
		Additions: []*dns.ResourceRecordSet{
			{
				Name:    name,
				Type:    "A",
				Ttl:     ttl,
				Rrdatas: []string{ip},
			},
		},
	}

	if _, err := d.service.Changes.Create(d.projectID, d.managedZone, change).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update record sets for %s: %w", name, err)
	}
	return nil
}
