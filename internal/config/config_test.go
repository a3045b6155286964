package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	content := `
aws:
  region: us-east-1
  concurrency: 4
ssh_private_key: /keys/id_ed25519
docker:
  image_name: ops/ansible
  image_tag: "1.2"
  container_name: ops
  container_workdir: /ansible
ansible:
  inventory_file: inventory/hosts.yml
otel:
  endpoint: localhost:4317
  insecure: true
  traces:
    enabled: true
    sample_rate: 0.5
  metrics:
    enabled: true
    textfile: /var/lib/node_exporter/harness.prom
log:
  level: debug
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, 4, cfg.AWS.Concurrency)
	assert.Equal(t, "/keys/id_ed25519", cfg.SSHPrivateKeyPath())
	assert.Equal(t, "/ansible", cfg.Docker.ContainerWorkdir)
	assert.Equal(t, "inventory/hosts.yml", cfg.Ansible.InventoryFile)
	assert.True(t, cfg.OTEL.Traces.Enabled)
	assert.Equal(t, 0.5, cfg.OTEL.Traces.SampleRate)
	assert.Equal(t, "/var/lib/node_exporter/harness.prom", cfg.OTEL.Metrics.Textfile)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, path, cfg.Source)

	ref, err := cfg.ImageRef()
	require.NoError(t, err)
	assert.Equal(t, "ops/ansible:1.2", ref)
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeTempConfig(t, "docker:\n  container_name: ops\n")
	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, DefaultRegion, cfg.AWS.Region)
	assert.Equal(t, 1, cfg.AWS.Concurrency)
	assert.Equal(t, "/root", cfg.Docker.ContainerWorkdir)
	assert.Equal(t, "playbooks", cfg.Ansible.PlaybooksDir)
	assert.Equal(t, "harness", cfg.OTEL.ServiceName)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/harness.yaml")
	require.Error(t, err)
}

func TestLoadOptional_FileNotFound(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadOptional("/nonexistent/harness.yaml")

	require.NoError(t, err)
	assert.Equal(t, DefaultRegion, cfg.AWS.Region)
	assert.Empty(t, cfg.Source)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeTempConfig(t, "aws: [region\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RegistryPassword(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, RegistryPasswordFile), []byte("s3cret\n"), 0600))

	cfg, err := LoadOptional(filepath.Join(dir, "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.RegistryPassword)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"concurrency", func(c *Config) { c.AWS.Concurrency = -1 }, "concurrency"},
		{"sample rate", func(c *Config) { c.OTEL.Traces.SampleRate = 1.5 }, "sample_rate"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "invalid level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_MissingSettings(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	_, err := cfg.ImageRef()
	assert.ErrorIs(t, err, ErrMissingSetting)
	assert.Contains(t, err.Error(), "docker.image_name")
	assert.Contains(t, err.Error(), DefaultPath)

	cfg.Docker.ImageName = "img"
	_, err = cfg.ImageRef()
	assert.Contains(t, err.Error(), "docker.image_tag")

	_, err = cfg.ContainerName()
	assert.ErrorIs(t, err, ErrMissingSetting)

	_, err = cfg.InventoryFile("")
	assert.ErrorIs(t, err, ErrMissingSetting)
	assert.Contains(t, err.Error(), "--inventory")

	inv, err := cfg.InventoryFile("hosts.ini")
	require.NoError(t, err)
	assert.Equal(t, "hosts.ini", inv)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".ssh/id_rsa"), ExpandHome("~/.ssh/id_rsa"))
	assert.Equal(t, "/abs/key", ExpandHome("/abs/key"))
	assert.Equal(t, "~user/key", ExpandHome("~user/key"))
}

func TestLoadCredentials_EnvWins(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAENV")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "envsecret")

	creds := LoadCredentials("/nonexistent")

	assert.Equal(t, Credentials{AccessKeyID: "AKIAENV", SecretAccessKey: "envsecret"}, creds)
}

func TestLoadCredentials_FileFallback(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	path := filepath.Join(t.TempDir(), "credentials")
	content := "[default]\naws_access_key_id = AKIAFILE\naws_secret_access_key = filesecret\n\n[prod]\naws_access_key_id = AKIAPROD\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	creds := LoadCredentials(path)

	assert.Equal(t, "AKIAFILE", creds.AccessKeyID)
	assert.Equal(t, "filesecret", creds.SecretAccessKey)
}

func TestLoadCredentials_None(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	assert.True(t, LoadCredentials("/nonexistent").IsZero())
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "harness.yaml")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}
