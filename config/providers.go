package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProviderSpec describes one provider row of the routing table. The zero
// value of Availability means the provider is treated as always reachable.
type ProviderSpec struct {
	Name                 string           `yaml:"name"`
	MaxContextTokens     int              `yaml:"max_context_tokens"`
	OptimalContextTokens int              `yaml:"optimal_context_tokens"`
	CostTier             int              `yaml:"cost_tier"`
	SpeedTier            int              `yaml:"speed_tier"`
	QualityTier          int              `yaml:"quality_tier"`
	Availability         AvailabilitySpec `yaml:"availability"`
}

// AvailabilitySpec selects how a provider's reachability is checked.
// EnvKey checks a non-empty environment variable; ProbeURL issues an HTTP
// probe. When both are empty the provider is always considered available.
type AvailabilitySpec struct {
	EnvKey   string `yaml:"env_key,omitempty"`
	ProbeURL string `yaml:"probe_url,omitempty"`
}

// providersFile is the YAML document shape of PROVIDERS_FILE
type providersFile struct {
	Providers []ProviderSpec `yaml:"providers"`
}

// DefaultProviderSpecs returns the built-in provider table used when no
// PROVIDERS_FILE is configured.
func DefaultProviderSpecs() []ProviderSpec {
	return []ProviderSpec{
		{
			Name:                 "ollama",
			MaxContextTokens:     8192,
			OptimalContextTokens: 4096,
			CostTier:             0,
			SpeedTier:            3,
			QualityTier:          2,
			Availability:         AvailabilitySpec{ProbeURL: "http://localhost:11434/api/tags"},
		},
		{
			Name:                 "claude",
			MaxContextTokens:     200000,
			OptimalContextTokens: 100000,
			CostTier:             3,
			SpeedTier:            1,
			QualityTier:          5,
			Availability:         AvailabilitySpec{EnvKey: "ANTHROPIC_API_KEY"},
		},
		{
			Name:                 "gpt4",
			MaxContextTokens:     128000,
			OptimalContextTokens: 64000,
			CostTier:             2,
			SpeedTier:            2,
			QualityTier:          4,
			Availability:         AvailabilitySpec{EnvKey: "OPENAI_API_KEY"},
		},
		{
			Name:                 "gemini",
			MaxContextTokens:     32768,
			OptimalContextTokens: 16384,
			CostTier:             1,
			SpeedTier:            3,
			QualityTier:          3,
			Availability:         AvailabilitySpec{EnvKey: "GEMINI_API_KEY"},
		},
		{
			Name:                 "perplexity",
			MaxContextTokens:     32768,
			OptimalContextTokens: 16384,
			CostTier:             1,
			SpeedTier:            3,
			QualityTier:          3,
			Availability:         AvailabilitySpec{EnvKey: "PERPLEXITY_API_KEY"},
		},
	}
}

// LoadProviders reads the provider table from the given YAML file, falling
// back to the built-in defaults when path is empty.
func LoadProviders(path string) ([]ProviderSpec, error) {
	if path == "" {
		return DefaultProviderSpecs(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file %s: %w", path, err)
	}

	var doc providersFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse providers file %s: %w", path, err)
	}
	if len(doc.Providers) == 0 {
		return nil, fmt.Errorf("providers file %s defines no providers", path)
	}

	return doc.Providers, nil
}

// ValidateProviders checks the provider table for internal consistency
func ValidateProviders(specs []ProviderSpec) error {
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return fmt.Errorf("provider with empty name")
		}
		if seen[spec.Name] {
			return fmt.Errorf("duplicate provider %q", spec.Name)
		}
		seen[spec.Name] = true

		if spec.MaxContextTokens <= 0 {
			return fmt.Errorf("provider %q: max context tokens must be positive", spec.Name)
		}
		if spec.OptimalContextTokens <= 0 || spec.OptimalContextTokens > spec.MaxContextTokens {
			return fmt.Errorf("provider %q: optimal context tokens must be in (0, max]", spec.Name)
		}
		if spec.CostTier < 0 || spec.SpeedTier < 0 || spec.QualityTier < 0 {
			return fmt.Errorf("provider %q: tiers must be non-negative", spec.Name)
		}
		if spec.Availability.EnvKey != "" && spec.Availability.ProbeURL != "" {
			return fmt.Errorf("provider %q: env_key and probe_url are mutually exclusive", spec.Name)
		}
	}
	return nil
}
