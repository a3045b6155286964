package session

import (
	"strings"

	"github.com/go-ini/ini"

	"github.com/opsharness/harness/internal/config"
)

// SharedFileProfiles discovers profiles from the AWS shared config and
// credentials files. Missing files are ignored.
type SharedFileProfiles struct {
	CredentialsFile string
	ConfigFile      string
}

// Profiles returns profile names in discovery order, credentials file first.
func (s SharedFileProfiles) Profiles() ([]string, error) {
	credsPath := s.CredentialsFile
	if credsPath == "" {
		credsPath = config.SharedCredentialsFile()
	}
	cfgPath := s.ConfigFile
	if cfgPath == "" {
		cfgPath = config.SharedConfigFile()
	}

	seen := make(map[string]bool)
	var profiles []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			profiles = append(profiles, name)
		}
	}

	creds, err := ini.LooseLoad(credsPath)
	if err != nil {
		return nil, err
	}
	for _, name := range creds.SectionStrings() {
		if name != ini.DefaultSection {
			add(name)
		}
	}

	cfg, err := ini.LooseLoad(cfgPath)
	if err != nil {
		return nil, err
	}
	for _, name := range cfg.SectionStrings() {
		switch {
		case name == "default":
			add(name)
		case strings.HasPrefix(name, "profile "):
			add(strings.TrimSpace(strings.TrimPrefix(name, "profile ")))
		}
	}

	return profiles, nil
}
