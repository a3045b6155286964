package config

import (
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

// Credentials is a static AWS key pair handed to child processes.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// IsZero reports whether no key pair was found.
func (c Credentials) IsZero() bool {
	return c.AccessKeyID == "" && c.SecretAccessKey == ""
}

// SharedCredentialsFile returns the AWS shared credentials file path.
func SharedCredentialsFile() string {
	if p := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); p != "" {
		return p
	}
	return filepath.Join(ExpandHome("~"), ".aws", "credentials")
}

// SharedConfigFile returns the AWS shared config file path.
func SharedConfigFile() string {
	if p := os.Getenv("AWS_CONFIG_FILE"); p != "" {
		return p
	}
	return filepath.Join(ExpandHome("~"), ".aws", "config")
}

// LoadCredentials reads the key pair from the environment, falling back
// per key to the "default" section of the shared credentials file at path.
func LoadCredentials(path string) Credentials {
	creds := Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}
	if creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
		return creds
	}

	f, err := ini.Load(path)
	if err != nil {
		return creds
	}
	section := f.Section("default")
	if creds.AccessKeyID == "" {
		creds.AccessKeyID = section.Key("aws_access_key_id").String()
	}
	if creds.SecretAccessKey == "" {
		creds.SecretAccessKey = section.Key("aws_secret_access_key").String()
	}
	return creds
}
