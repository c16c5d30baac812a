package provisioning

import (
	"context"

	"google.golang.org/api/compute/v1"
)

// Operation identifies a long-running zone operation returned by a create, start or delete call.
type Operation struct {
	Name string
	Zone string
}

// InstanceInfo contains information about an existing VM
type InstanceInfo struct {
	ID     string
	IP     string
	Name   string
	Zone   string
	Status string
}

// Provisioner manages the lifecycle of a named instance
type Provisioner interface {
	Create(ctx context.Context, instance *compute.Instance) (Operation, error)
	Start(ctx context.Context, name string) (Operation, error)
	// Wait blocks until the operation is done or the provider wait deadline passes.
	Wait(ctx context.Context, op Operation) error
	Get(ctx context.Context, name string) (*InstanceInfo, error)
	Delete(ctx context.Context, name string) (Operation, error)
}

// Firewall replaces the allowed source ranges of an existing rule
type Firewall interface {
	SetSourceRanges(ctx context.Context, rule string, ranges []string) error
}

// RecordSets rewrites the records published for a DNS name
type RecordSets interface {
	// ReplaceA removes every record set for name and publishes a single A record,
	// in one change.
	ReplaceA(ctx context.Context, name string, ttl int64, ip string) error
}
