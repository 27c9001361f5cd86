package search

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile tunes one retrieval source kind.
type Profile struct {
	Kind       string `yaml:"kind"` // web | academic
	BaseURL    string `yaml:"base_url"`
	MaxResults int    `yaml:"max_results"`
}

// Profiles is the on-disk source tuning file (config/sources.yaml).
type Profiles struct {
	Sources []Profile `yaml:"sources"`
}

// LoadProfiles reads a source profile file. A missing file is not an error;
// callers fall back to built-in defaults.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Profiles{}, nil
		}
		return nil, fmt.Errorf("read source profiles: %w", err)
	}
	var p Profiles
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse source profiles: %w", err)
	}
	return &p, nil
}

// Apply overlays profile values onto a Config.
func (p *Profiles) Apply(cfg Config) Config {
	for _, src := range p.Sources {
		switch src.Kind {
		case "web":
			if src.BaseURL != "" {
				cfg.WebBaseURL = src.BaseURL
			}
			if src.MaxResults > 0 {
				cfg.WebMaxResults = src.MaxResults
			}
		case "academic":
			if src.BaseURL != "" {
				cfg.AcademicBaseURL = src.BaseURL
			}
			if src.MaxResults > 0 {
				cfg.AcademicMaxResults = src.MaxResults
			}
		}
	}
	return cfg
}
