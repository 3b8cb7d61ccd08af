package standardize

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standardize.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.MaxLevels != 4 || cfg.ReferenceCountry != 1500 {
		t.Errorf("max_levels = %d, reference_country = %d", cfg.MaxLevels, cfg.ReferenceCountry)
	}
	if cfg.Abbreviations["st"] != "saint" {
		t.Errorf("abbreviation st = %q", cfg.Abbreviations["st"])
	}

	// Each call returns an independent copy.
	cfg.TypeWords = nil
	if len(DefaultConfig().TypeWords) == 0 {
		t.Error("DefaultConfig shares state between calls")
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
abbreviations:
  mtn: mountain
large_countries: [2000]
primary_match_weight: 8
character_replacements:
  "ö": oe
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	// Maps merge with the defaults, lists replace them.
	if cfg.Abbreviations["mtn"] != "mountain" || cfg.Abbreviations["st"] != "saint" {
		t.Errorf("abbreviations = %v", cfg.Abbreviations)
	}
	if !reflect.DeepEqual(cfg.LargeCountries, []int{2000}) {
		t.Errorf("large_countries = %v", cfg.LargeCountries)
	}
	if cfg.PrimaryMatchWeight != 8 {
		t.Errorf("primary_match_weight = %v", cfg.PrimaryMatchWeight)
	}
	if got := cfg.replacements()['ö']; got != "oe" {
		t.Errorf("replacement = %q", got)
	}
	if len(cfg.TypeWords) == 0 {
		t.Error("type_words lost")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"weights length", "max_levels: 3\n"},
		{"zero levels", "max_levels: 0\n"},
		{"large and medium", "medium_countries: [1500]\n"},
		{"replacement key", "character_replacements:\n  ae: e\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}
	if _, err := LoadConfig(writeConfig(t, "max_levels: [")); err == nil {
		t.Error("malformed yaml accepted")
	}
}
