package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

const configFileName = "mdport.yaml"

// Config represents the mdport.yaml configuration file at the vault root.
type Config struct {
	Exclude ExcludeConfig `yaml:"exclude"`
	Migrate MigrateConfig `yaml:"migrate"`
}

// ExcludeConfig holds glob patterns matched against vault-relative paths;
// matching files are excluded from every walk.
type ExcludeConfig struct {
	Paths []string `yaml:"paths"`
}

// MigrateConfig holds migration tuning.
type MigrateConfig struct {
	// SidecarKeys are extra annotation keys recognized in addition to the
	// built-in ls-type, hl-page and hl-color.
	SidecarKeys []string `yaml:"sidecar_keys"`
}

// LoadConfig reads and validates mdport.yaml from the vault root.
// Returns the zero Config and nil error if the file does not exist.
func LoadConfig(vaultPath string) (Config, error) {
	p := filepath.Join(vaultPath, configFileName)
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", configFileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", configFileName, err)
	}
	return cfg, nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Exclude),
		validation.Field(&c.Migrate),
	)
}

// Validate checks that exclusion patterns stay within the supported glob
// subset.
func (c ExcludeConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Paths, validation.Each(validation.By(checkGlobPattern))),
	)
}

// Validate checks the extra sidecar keys.
func (c MigrateConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SidecarKeys, validation.Each(validation.By(checkSidecarKey))),
	)
}

func checkGlobPattern(value interface{}) error {
	p, _ := value.(string)
	if strings.Contains(p, "[") {
		return fmt.Errorf("unsupported glob pattern (character class): %s", p)
	}
	return nil
}

func checkSidecarKey(value interface{}) error {
	k, _ := value.(string)
	k = strings.TrimSuffix(strings.TrimSpace(k), "::")
	if k == "" {
		return fmt.Errorf("empty sidecar key")
	}
	if strings.Contains(k, "::") || strings.ContainsAny(k, " \t") {
		return fmt.Errorf("invalid sidecar key: %s", k)
	}
	return nil
}

// filterExcluded removes files matching any of the given glob patterns.
func filterExcluded(files []string, patterns []string) []string {
	if len(patterns) == 0 {
		return files
	}
	result := make([]string, 0, len(files))
	for _, f := range files {
		excluded := false
		for _, p := range patterns {
			if globMatch(p, f) {
				excluded = true
				break
			}
		}
		if !excluded {
			result = append(result, f)
		}
	}
	return result
}

// globMatch implements SQLite GLOB semantics.
// '*' matches any sequence of characters (including '/').
// '?' matches exactly one character.
// '[' is treated as a literal character (character classes not supported).
func globMatch(pattern, s string) bool {
	return globMatchImpl([]rune(pattern), []rune(s))
}

func globMatchImpl(pattern, s []rune) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			// Skip consecutive '*'.
			for len(pattern) > 0 && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 0 {
				return true
			}
			// Try matching the rest of the pattern at every position.
			for i := 0; i <= len(s); i++ {
				if globMatchImpl(pattern, s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			pattern = pattern[1:]
			s = s[1:]
		default:
			if len(s) == 0 || pattern[0] != s[0] {
				return false
			}
			pattern = pattern[1:]
			s = s[1:]
		}
	}
	return len(s) == 0
}
