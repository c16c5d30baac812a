package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"time"

	"workstation/internal/ssh"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v2"
)

const (
	DefaultConfigPath        = "workstation.yaml"
	DefaultInstanceName      = "centos8"
	DefaultMachineType       = "e2-small"
	DefaultFirewallRule      = "ssh-from-roaming-to-workstation"
	DefaultNetworkTier       = "STANDARD"
	DefaultNetworkTag        = "workstation"
	DefaultDNSTTL            = 30
	DefaultAddress           = ":8080"
	DefaultUnauthorizedDelay = 10 * time.Second
	DefaultFailureDelay      = 5 * time.Second
)

var projectIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{4,28}[a-z0-9]$`)

// InstanceConfig describes the workstation VM shape.
type InstanceConfig struct {
	Name         string   `yaml:"name"`
	MachineType  string   `yaml:"machine_type"`
	NetworkTier  string   `yaml:"network_tier"`
	Tags         []string `yaml:"tags"`
	FirewallRule string   `yaml:"firewall_rule"`
}

// DNSConfig holds the Cloud DNS zone and record parameters.
type DNSConfig struct {
	// ManagedZone defaults to the project id.
	ManagedZone string `yaml:"managed_zone"`
	// Name is the fully qualified record name; derived from the instance and project when empty.
	Name string `yaml:"name"`
	TTL  int64  `yaml:"ttl"`
}

// ServerConfig holds the HTTP endpoint settings.
type ServerConfig struct {
	Address           string        `yaml:"address"`
	UnauthorizedDelay time.Duration `yaml:"unauthorized_delay"`
	FailureDelay      time.Duration `yaml:"failure_delay"`
}

// Config contains application configuration. It is loaded once at startup and
// never mutated afterwards.
type Config struct {
	// Google Cloud identifiers
	ProjectID string `yaml:"project_id"`
	Region    string `yaml:"region"`
	Zone      string `yaml:"zone"`

	// Optional service account key file; application default credentials otherwise
	CredentialsPath string `yaml:"credentials_path"`

	// Login provisioned on the instance through the ssh-keys metadata item
	User         string `yaml:"user"`
	SSHPublicKey string `yaml:"ssh_public_key"`

	// Hex encoded SHA-256 of the API key accepted by the endpoint
	APIKeySHA256 string `yaml:"api_key_sha256"`

	Instance InstanceConfig `yaml:"instance"`
	DNS      DNSConfig      `yaml:"dns"`
	Server   ServerConfig   `yaml:"server"`

	LogLevel string `yaml:"log_level"`
}

// Default returns a configuration populated with every default value and no identifiers.
func Default() *Config {
	return &Config{
		Instance: InstanceConfig{
			Name:         DefaultInstanceName,
			MachineType:  DefaultMachineType,
			NetworkTier:  DefaultNetworkTier,
			Tags:         []string{DefaultNetworkTag},
			FirewallRule: DefaultFirewallRule,
		},
		DNS: DNSConfig{
			TTL: DefaultDNSTTL,
		},
		Server: ServerConfig{
			Address:           DefaultAddress,
			UnauthorizedDelay: DefaultUnauthorizedDelay,
			FailureDelay:      DefaultFailureDelay,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from the YAML file named by CONFIG_PATH (if present)
// and the environment, then validates it.
func Load() (*Config, error) {
	config := Default()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Expand environment variables in string fields
	config.ProjectID = os.ExpandEnv(config.ProjectID)
	config.Region = os.ExpandEnv(config.Region)
	config.Zone = os.ExpandEnv(config.Zone)
	config.CredentialsPath = os.ExpandEnv(config.CredentialsPath)
	config.User = os.ExpandEnv(config.User)
	config.SSHPublicKey = os.ExpandEnv(config.SSHPublicKey)
	config.APIKeySHA256 = os.ExpandEnv(config.APIKeySHA256)

	// Override with the variables the deployment provisions
	overrides := map[string]*string{
		"GCP_PROJECT":                    &config.ProjectID,
		"REGION":                         &config.Region,
		"ZONE":                           &config.Zone,
		"USER":                           &config.User,
		"SSH_PUBLIC_KEY":                 &config.SSHPublicKey,
		"API_KEY_SHA256":                 &config.APIKeySHA256,
		"GOOGLE_APPLICATION_CREDENTIALS": &config.CredentialsPath,
		"LOG_LEVEL":                      &config.LogLevel,
	}
	for key, field := range overrides {
		if value := os.Getenv(key); value != "" {
			*field = value
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		config.Server.Address = ":" + port
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks required identifiers and the shape of every value.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ProjectID, validation.Required, validation.Match(projectIDPattern)),
		validation.Field(&c.Region, validation.Required),
		validation.Field(&c.Zone, validation.Required),
		validation.Field(&c.User, validation.Required),
		validation.Field(&c.SSHPublicKey, validation.Required, validation.By(validateAuthorizedKey)),
		validation.Field(&c.APIKeySHA256, validation.Required, validation.Length(64, 64), is.Hexadecimal),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Instance),
		validation.Field(&c.DNS),
		validation.Field(&c.Server),
	)
}

func (i InstanceConfig) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required),
		validation.Field(&i.MachineType, validation.Required),
		validation.Field(&i.NetworkTier, validation.Required, validation.In("STANDARD", "PREMIUM")),
		validation.Field(&i.FirewallRule, validation.Required),
	)
}

func (d DNSConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.When(d.Name != "", validation.Match(regexp.MustCompile(`\.$`)))),
		validation.Field(&d.TTL, validation.Required, validation.Min(1)),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required, validation.By(validateHostPort)),
		validation.Field(&s.UnauthorizedDelay, validation.Required, validation.Min(time.Duration(1))),
		validation.Field(&s.FailureDelay, validation.Required, validation.Min(time.Duration(1))),
	)
}

func validateAuthorizedKey(value interface{}) error {
	key, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if _, err := ssh.ParsePublicKey(key); err != nil {
		return validation.NewError("validation_invalid_ssh_key", "must be an OpenSSH authorized key")
	}
	return nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}
	if port == "" {
		return validation.NewError("validation_invalid_port", "port can't be empty")
	}
	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}
	return nil
}
