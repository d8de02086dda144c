// Package config loads .turnstile.yaml and supplies compiled defaults for
// every check. Thresholds here are config data, not logic: the checks share
// one scanner and one ratchet, and differ only in what this package feeds
// them. Command-line flags override loaded values field by field.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	yaml "go.yaml.in/yaml/v3"
)

// Filenames probed under the project root, in order.
var Filenames = []string{".turnstile.yaml", ".turnstile.yml", ".turnstile.json"}

// Config is the full project configuration.
type Config struct {
	Include     []string `yaml:"include" json:"include"`
	Exclude     []string `yaml:"exclude" json:"exclude"`
	BaselineDir string   `yaml:"baseline_dir" json:"baseline_dir"`
	DBPath      string   `yaml:"db_path" json:"db_path"`
	DiffBase    string   `yaml:"diff_base" json:"diff_base"`
	Checks      Checks   `yaml:"checks" json:"checks"`
}

// Checks groups the per-policy knobs.
type Checks struct {
	Coverage  Coverage  `yaml:"coverage" json:"coverage"`
	Cycles    Cycles    `yaml:"cycles" json:"cycles"`
	Holes     Holes     `yaml:"holes" json:"holes"`
	Unchecked Unchecked `yaml:"unchecked" json:"unchecked"`
	Suppress  Suppress  `yaml:"suppress" json:"suppress"`
	Skips     Skips     `yaml:"skips" json:"skips"`
	Mocks     Mocks     `yaml:"mocks" json:"mocks"`
	Size      Size      `yaml:"size" json:"size"`
	SRP       SRP       `yaml:"srp" json:"srp"`
	Orphans   Orphans   `yaml:"orphans" json:"orphans"`
	Deps      Deps      `yaml:"deps" json:"deps"`
	Dupes     Dupes     `yaml:"dupes" json:"dupes"`
	Mutation  Mutation  `yaml:"mutation" json:"mutation"`
	Security  Security  `yaml:"security" json:"security"`
	Pairing   Pairing   `yaml:"pairing" json:"pairing"`
	Watch     Watch     `yaml:"watch" json:"watch"`
	Health    Health    `yaml:"health" json:"health"`
}

// Coverage configures the per-file coverage ratchet.
type Coverage struct {
	Profile   string  `yaml:"profile" json:"profile"`
	GlobalMin float64 `yaml:"global_min" json:"global_min"`
	NewFloor  float64 `yaml:"new_floor" json:"new_floor"`
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`
}

// Cycles configures the import-cycle gate.
type Cycles struct {
	MaxDisplay int `yaml:"max_display" json:"max_display"`
}

// Holes configures the AST type-hole ratchet.
type Holes struct {
	// NewFileMax is the most holes a file absent from the baseline may carry.
	NewFileMax float64 `yaml:"new_file_max" json:"new_file_max"`
}

// Unchecked configures the pattern-category type-safety ratchet. It stays
// a separate policy from Holes with its own baseline and pattern list.
type Unchecked struct {
	Patterns map[string]string `yaml:"patterns" json:"patterns"` // category -> regex
}

// Suppress configures the forbidden-directive gate on changed files.
type Suppress struct {
	Directives []string `yaml:"directives" json:"directives"`
	Amnesty    string   `yaml:"amnesty" json:"amnesty"` // suffix marker granting legacy amnesty
}

// Skips configures the skipped-test ratio gate.
type Skips struct {
	MaxPercent float64 `yaml:"max_percent" json:"max_percent"`
}

// Mocks configures mock-discipline checks.
type Mocks struct {
	WarnRatio float64 `yaml:"warn_ratio" json:"warn_ratio"`
	FailRatio float64 `yaml:"fail_ratio" json:"fail_ratio"`
}

// Size configures the guardrail ratchet.
type Size struct {
	MaxSourceLines int `yaml:"max_source_lines" json:"max_source_lines"`
	MaxTestLines   int `yaml:"max_test_lines" json:"max_test_lines"`
	MaxFuncLines   int `yaml:"max_func_lines" json:"max_func_lines"`
	MaxComplexity  int `yaml:"max_complexity" json:"max_complexity"`
}

// SRP configures the hard size gate. Thresholds deliberately differ from
// Size: the two remain independent policies with independent state.
type SRP struct {
	MaxSourceLines int    `yaml:"max_source_lines" json:"max_source_lines"`
	MaxTestLines   int    `yaml:"max_test_lines" json:"max_test_lines"`
	MaxFuncLines   int    `yaml:"max_func_lines" json:"max_func_lines"`
	ExemptionsFile string `yaml:"exemptions_file" json:"exemptions_file"`
}

// Orphans configures dead-code detection.
type Orphans struct {
	// ExemptExports are globs whose exported identifiers are public API and
	// never counted as dead.
	ExemptExports []string `yaml:"exempt_exports" json:"exempt_exports"`
}

// Deps configures the module-registry verification check.
type Deps struct {
	ProxyURL       string   `yaml:"proxy_url" json:"proxy_url"`
	MinAgeDays     int      `yaml:"min_age_days" json:"min_age_days"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds"`
	CacheTTLHours  int      `yaml:"cache_ttl_hours" json:"cache_ttl_hours"`
	Trusted        []string `yaml:"trusted" json:"trusted"` // module path prefixes
	ExemptionsFile string   `yaml:"exemptions_file" json:"exemptions_file"`
}

// Dupes configures duplicate-block detection.
type Dupes struct {
	WindowLines int `yaml:"window_lines" json:"window_lines"`
	MaxClones   int `yaml:"max_clones" json:"max_clones"`
	MaxDisplay  int `yaml:"max_display" json:"max_display"`
}

// Mutation configures the mutation-score gate.
type Mutation struct {
	Report      string  `yaml:"report" json:"report"`
	MinScore    float64 `yaml:"min_score" json:"min_score"`
	AmnestyFile string  `yaml:"amnesty_file" json:"amnesty_file"`
}

// Security configures the security-review acknowledgment gate.
type Security struct {
	Marker         string   `yaml:"marker" json:"marker"`
	SensitiveGlobs []string `yaml:"sensitive_globs" json:"sensitive_globs"`
	AckEnv         string   `yaml:"ack_env" json:"ack_env"`
}

// Pairing configures I/O-adapter and route test pairing.
type Pairing struct {
	AdapterSuffixes []string `yaml:"adapter_suffixes" json:"adapter_suffixes"`
	IOImports       []string `yaml:"io_imports" json:"io_imports"`
}

// Watch configures the continuous mode.
type Watch struct {
	DebounceMillis int      `yaml:"debounce_ms" json:"debounce_ms"`
	Checks         []string `yaml:"checks" json:"checks"`
}

// Health configures metrics collection and reporting.
type Health struct {
	Dir     string `yaml:"dir" json:"dir"`
	History int    `yaml:"history" json:"history"`
}

// Default returns the compiled defaults. Loading merges file values over
// this, so absent keys keep their defaults.
func Default() *Config {
	return &Config{
		Include:     []string{"**/*.go"},
		Exclude:     []string{"vendor/**", "testdata/**"},
		BaselineDir: "", // resolved by baseline.Dir
		DBPath:      ".turnstile/turnstile.db",
		DiffBase:    "origin/main",
		Checks: Checks{
			Coverage: Coverage{GlobalMin: 70, NewFloor: 80, Tolerance: 0.2},
			Cycles:   Cycles{MaxDisplay: 5},
			Holes:    Holes{NewFileMax: 0},
			Unchecked: Unchecked{Patterns: map[string]string{
				"suppression":     `//nolint`,
				"empty_interface": `interface\{\}`,
				"bare_any":        `\bany\b`,
				"unsafe_pointer":  `unsafe\.Pointer`,
				"reflection":      `reflect\.(TypeOf|ValueOf)`,
			}},
			Suppress: Suppress{
				Directives: []string{`//nolint`, `//lint:ignore`, `#nosec`},
				Amnesty:    "-- LEGACY",
			},
			Skips: Skips{MaxPercent: 5},
			Mocks: Mocks{WarnRatio: 2, FailRatio: 3},
			Size:  Size{MaxSourceLines: 600, MaxTestLines: 300, MaxFuncLines: 50, MaxComplexity: 15},
			SRP: SRP{
				MaxSourceLines: 600,
				MaxTestLines:   300,
				MaxFuncLines:   75,
				ExemptionsFile: ".turnstile/srp-exemptions.json",
			},
			Orphans: Orphans{ExemptExports: []string{"pkg/**", "cmd/**"}},
			Deps: Deps{
				ProxyURL:       "https://proxy.golang.org",
				MinAgeDays:     30,
				TimeoutSeconds: 10,
				CacheTTLHours:  24,
				Trusted: []string{
					"golang.org/x/",
					"google.golang.org/",
					"github.com/golang/",
					"gopkg.in/",
					"go.yaml.in/",
					"modernc.org/",
				},
				ExemptionsFile: ".turnstile/deps-exemptions.json",
			},
			Dupes: Dupes{WindowLines: 7, MaxClones: 0, MaxDisplay: 10},
			Mutation: Mutation{
				MinScore:    70,
				AmnestyFile: ".turnstile/mutation-amnesty.json",
			},
			Security: Security{
				Marker: "security-critical",
				SensitiveGlobs: []string{
					"**/auth/**", "**/crypto/**", "**/secrets/**",
				},
				AckEnv: "TURNSTILE_SECURITY_ACK",
			},
			Pairing: Pairing{
				AdapterSuffixes: []string{"_store.go", "_client.go", "_gateway.go", "_repo.go"},
				IOImports:       []string{"database/sql", "os/exec", "net/http"},
			},
			Watch: Watch{
				DebounceMillis: 500,
				Checks:         []string{"cycles", "holes", "swallowed", "suppress", "size"},
			},
			Health: Health{Dir: ".turnstile/metrics", History: 50},
		},
	}
}

// Load reads the project config from root, merging over Default. A missing
// file is not an error: the defaults apply. Format is detected by extension
// (.yaml/.yml vs .json) or by content (leading '{').
func Load(root string) (*Config, error) {
	for _, name := range Filenames {
		path := filepath.Join(root, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		cfg, err := Parse(data, filepath.Ext(path))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return cfg, nil
	}
	return Default(), nil
}

// Parse parses config bytes over the defaults. ext is the file extension
// for a format hint; empty means detect from content.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	isJSON := ext == ".json"
	if ext == "" {
		isJSON = strings.HasPrefix(strings.TrimSpace(string(data)), "{")
	}
	if isJSON {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configs the checks cannot run with.
func (c *Config) Validate() error {
	for _, pat := range append(append([]string{}, c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("invalid glob pattern %q", pat)
		}
	}
	ck := &c.Checks
	if ck.Mocks.WarnRatio > ck.Mocks.FailRatio {
		return fmt.Errorf("mocks: warn_ratio %.1f exceeds fail_ratio %.1f", ck.Mocks.WarnRatio, ck.Mocks.FailRatio)
	}
	for name, v := range map[string]float64{
		"coverage.global_min": ck.Coverage.GlobalMin,
		"coverage.new_floor":  ck.Coverage.NewFloor,
		"skips.max_percent":   ck.Skips.MaxPercent,
		"mutation.min_score":  ck.Mutation.MinScore,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s: %.1f is not a percentage", name, v)
		}
	}
	if ck.Dupes.WindowLines < 2 {
		return fmt.Errorf("dupes.window_lines: %d is too small", ck.Dupes.WindowLines)
	}
	return nil
}

// WriteDefault writes a starter config file to root. Used by `turnstile init`.
func WriteDefault(root string) (string, error) {
	path := filepath.Join(root, Filenames[0])
	if _, err := os.Stat(path); err == nil {
		return path, os.ErrExist
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
