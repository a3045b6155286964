// Package config handles YAML configuration for harness.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "harness.yaml"

// DefaultRegion is used when neither the flag nor the file names a region.
const DefaultRegion = "eu-central-1"

// RegistryPasswordFile holds the container registry password, if present.
const RegistryPasswordFile = ".registry_password.secrets"

// ErrMissingSetting is returned when a command needs a setting that is not configured.
var ErrMissingSetting = errors.New("missing required setting")

// Config is the root configuration structure.
type Config struct {
	AWS           AWSConfig     `yaml:"aws"`
	SSHPrivateKey string        `yaml:"ssh_private_key"`
	Docker        DockerConfig  `yaml:"docker"`
	Ansible       AnsibleConfig `yaml:"ansible"`
	OTEL          OTELConfig    `yaml:"otel"`
	Log           LogConfig     `yaml:"log"`

	// Source is the file the config was read from, empty when defaults only.
	Source string `yaml:"-"`
	// WorkDir is the directory harness was started in.
	WorkDir string `yaml:"-"`
	// RegistryPassword is read from RegistryPasswordFile in WorkDir.
	RegistryPassword string `yaml:"-"`
}

// AWSConfig holds AWS search settings.
type AWSConfig struct {
	Region      string `yaml:"region"`
	Concurrency int    `yaml:"concurrency"`
}

// DockerConfig holds settings for the docker tasks.
type DockerConfig struct {
	ImageName        string `yaml:"image_name"`
	ImageTag         string `yaml:"image_tag"`
	ContainerName    string `yaml:"container_name"`
	ContainerWorkdir string `yaml:"container_workdir"`
}

// AnsibleConfig holds settings for the ansible tasks.
type AnsibleConfig struct {
	InventoryFile string `yaml:"inventory_file"`
	PlaybooksDir  string `yaml:"playbooks_dir"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Insecure    bool          `yaml:"insecure"`
	ServiceName string        `yaml:"service_name"`
	Traces      TracesConfig  `yaml:"traces"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sample_rate"`
}

// MetricsConfig holds metrics settings. Textfile, when set, receives the
// sweep metrics in Prometheus text format on exit.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Source = path

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOptional is Load, but a missing file yields the defaults.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
		if err := cfg.finish(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return cfg, err
}

func (c *Config) finish() error {
	applyDefaults(c)

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	c.WorkDir = wd

	pw, err := readRegistryPassword(filepath.Join(wd, RegistryPasswordFile))
	if err != nil {
		return err
	}
	c.RegistryPassword = pw

	return c.Validate()
}

func applyDefaults(cfg *Config) {
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = DefaultRegion
	}
	if cfg.AWS.Concurrency == 0 {
		cfg.AWS.Concurrency = 1
	}
	if cfg.SSHPrivateKey == "" {
		cfg.SSHPrivateKey = "~/.ssh/id_rsa"
	}
	if cfg.Docker.ContainerWorkdir == "" {
		cfg.Docker.ContainerWorkdir = "/root"
	}
	if cfg.Ansible.PlaybooksDir == "" {
		cfg.Ansible.PlaybooksDir = "playbooks"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "harness"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func readRegistryPassword(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- fixed file name in the working directory
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read registry password: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.AWS.Concurrency < 1 {
		return fmt.Errorf("aws: concurrency must be at least 1 (got %d)", c.AWS.Concurrency)
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: invalid level %q", c.Log.Level)
	}
	return nil
}

func (c *Config) missing(key string) error {
	src := c.Source
	if src == "" {
		src = DefaultPath
	}
	return fmt.Errorf("%w: you must set %s in %s", ErrMissingSetting, key, src)
}

// ImageRef returns "name:tag" for the configured docker image.
func (c *Config) ImageRef() (string, error) {
	if c.Docker.ImageName == "" {
		return "", c.missing("docker.image_name")
	}
	if c.Docker.ImageTag == "" {
		return "", c.missing("docker.image_tag")
	}
	return c.Docker.ImageName + ":" + c.Docker.ImageTag, nil
}

// ContainerName returns the configured docker container name.
func (c *Config) ContainerName() (string, error) {
	if c.Docker.ContainerName == "" {
		return "", c.missing("docker.container_name")
	}
	return c.Docker.ContainerName, nil
}

// InventoryFile returns override when set, else the configured inventory.
func (c *Config) InventoryFile(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if c.Ansible.InventoryFile == "" {
		return "", fmt.Errorf("%w (or pass --inventory)", c.missing("ansible.inventory_file"))
	}
	return c.Ansible.InventoryFile, nil
}

// SSHPrivateKeyPath returns the SSH key path with ~ expanded.
func (c *Config) SSHPrivateKeyPath() string {
	return ExpandHome(c.SSHPrivateKey)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
