package pipeline

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/minho/rnd-harvester/internal/models"
)

//go:embed config/agency_rules.yaml
var agencyRulesYAML embed.FS

// AgencyRule short-circuits classification for a known agency or URL shape
// before any keyword matching runs.
type AgencyRule struct {
	Name        string `yaml:"name"`
	Agency      string `yaml:"agency,omitempty"`       // exact agency match, optional
	URLContains string `yaml:"url_contains,omitempty"` // substring of the announcement URL
	Category    string `yaml:"category"`
}

type agencyRegistry struct {
	Rules []AgencyRule `yaml:"rules"`
}

func loadAgencyRules() ([]AgencyRule, error) {
	data, err := agencyRulesYAML.ReadFile("config/agency_rules.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded agency rules: %w", err)
	}

	var reg agencyRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse agency rules: %w", err)
	}

	for i, r := range reg.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("agency rule %d has no name", i)
		}
		switch models.Category(r.Category) {
		case models.CategoryRDProject, models.CategorySurvey, models.CategoryEvent,
			models.CategoryNotice, models.CategoryUnknown:
		default:
			return nil, fmt.Errorf("agency rule %q has unknown category %q", r.Name, r.Category)
		}
		if r.Agency == "" && r.URLContains == "" {
			return nil, fmt.Errorf("agency rule %q matches nothing", r.Name)
		}
	}

	return reg.Rules, nil
}

func (r AgencyRule) matches(in ClassificationInput) bool {
	if r.Agency != "" && !strings.EqualFold(strings.TrimSpace(in.Agency), r.Agency) {
		return false
	}
	if r.URLContains != "" && !strings.Contains(in.URL, r.URLContains) {
		return false
	}
	return true
}
