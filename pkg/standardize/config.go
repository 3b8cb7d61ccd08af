package standardize

import (
	_ "embed"
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

// Config holds the word lists and scoring constants of a Standardizer.
type Config struct {
	TypeWords       []string          `yaml:"type_words" json:"type_words"`
	Abbreviations   map[string]string `yaml:"abbreviations" json:"abbreviations"`
	NoiseWords      []string          `yaml:"noise_words" json:"noise_words"`
	LargeCountries  []int             `yaml:"large_countries" json:"large_countries"`
	MediumCountries []int             `yaml:"medium_countries" json:"medium_countries"`

	LargeCountryLevelWeights  []float64 `yaml:"large_country_level_weights" json:"large_country_level_weights"`
	MediumCountryLevelWeights []float64 `yaml:"medium_country_level_weights" json:"medium_country_level_weights"`
	SmallCountryLevelWeights  []float64 `yaml:"small_country_level_weights" json:"small_country_level_weights"`
	PrimaryMatchWeight        float64   `yaml:"primary_match_weight" json:"primary_match_weight"`
	MaxLevels                 int       `yaml:"max_levels" json:"max_levels"`

	ReferenceCountry      int               `yaml:"reference_country" json:"reference_country"`
	CharacterReplacements map[string]string `yaml:"character_replacements" json:"character_replacements"`
}

// DefaultConfig returns a fresh copy of the built-in configuration.
func DefaultConfig() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfig, &cfg); err != nil {
		panic(fmt.Sprintf("standardize: embedded default config: %v", err))
	}
	return &cfg
}

// LoadConfig reads a YAML file over the built-in defaults and validates the
// result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the scoring tables and the replacement keys.
func (c *Config) Validate() error {
	if c.MaxLevels < 1 {
		return fmt.Errorf("%w: max_levels must be at least 1, got %d", ErrInvalidConfig, c.MaxLevels)
	}
	for name, w := range map[string][]float64{
		"large_country_level_weights":  c.LargeCountryLevelWeights,
		"medium_country_level_weights": c.MediumCountryLevelWeights,
		"small_country_level_weights":  c.SmallCountryLevelWeights,
	} {
		if len(w) != c.MaxLevels {
			return fmt.Errorf("%w: %s has %d entries, max_levels is %d", ErrInvalidConfig, name, len(w), c.MaxLevels)
		}
	}
	for _, id := range c.LargeCountries {
		for _, other := range c.MediumCountries {
			if id == other {
				return fmt.Errorf("%w: country %d is both large and medium", ErrInvalidConfig, id)
			}
		}
	}
	for k := range c.CharacterReplacements {
		if utf8.RuneCountInString(k) != 1 {
			return fmt.Errorf("%w: character_replacements key %q is not a single character", ErrInvalidConfig, k)
		}
	}
	return nil
}

func (c *Config) replacements() map[rune]string {
	out := make(map[rune]string, len(c.CharacterReplacements))
	for k, v := range c.CharacterReplacements {
		r, _ := utf8.DecodeRuneInString(k)
		out[r] = v
	}
	return out
}
