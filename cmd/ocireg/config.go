package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ocireConfig is the optional ~/.ocireg.yaml config file's shape: a
// default registry prefixed onto any URI argument with no registry
// segment, and a default --insecure. Library code never reads this
// file; only the CLI layer does, via resolveURI (the credential
// resolver's own docker/finch config probes are a separate,
// domain-level concern, per SPEC_FULL.md §4.12).
type ocireConfig struct {
	DefaultRegistry string `yaml:"defaultRegistry"`
	Insecure        bool   `yaml:"insecure"`
}

var cliConfig ocireConfig

func loadConfigDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	data, err := os.ReadFile(filepath.Join(home, ".ocireg.yaml"))
	if err != nil {
		return
	}
	var cfg ocireConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.WithError(err).Debug("ignoring malformed ~/.ocireg.yaml")
		return
	}
	cliConfig = cfg
}
