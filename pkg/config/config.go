package config

import (
	"fmt"
	"strings"

	"github.com/xplshn/exprc/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatFold Feature = iota
	FeatTrailing
	FeatCount
)

type Warning int

const (
	WarnOverflow Warning = iota
	WarnDivZero
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// DefaultMaxDepth bounds parenthesis nesting so hostile input cannot exhaust the stack.
const DefaultMaxDepth = 1000

const (
	BackendStack = "amd64"
	BackendQBE   = "qbe"
)

type Config struct {
	Features         map[Feature]Info
	Warnings         map[Warning]Info
	FeatureMap       map[string]Feature
	WarningMap       map[string]Warning
	WarningsAsErrors bool
	MaxDepth         int
	BackendName      string
	BackendTarget    string
	WordSize         int
	WordType         string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:    make(map[Feature]Info),
		Warnings:    make(map[Warning]Info),
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		MaxDepth:    DefaultMaxDepth,
		BackendName: BackendStack,
		WordSize:    8,
		WordType:    "l",
	}

	features := map[Feature]Info{
		FeatFold:     {"fold", false, "Fold constant subexpressions before code generation."},
		FeatTrailing: {"trailing", false, "Ignore tokens left over after a complete expression."},
	}

	warnings := map[Warning]Info{
		WarnOverflow: {"overflow", true, "Warn when an integer literal does not fit in 64 bits."},
		WarnDivZero:  {"div-zero", true, "Warn about division by a literal zero."},
		WarnExtra:    {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget selects the backend from a "backend[/target]" string such as
// "amd64", "qbe" or "qbe/arm64". A bare "qbe" uses the host's QBE target.
func (c *Config) SetTarget(goos, goarch, target string) error {
	backend, abi, _ := strings.Cut(target, "/")
	switch backend {
	case "", BackendStack:
		if abi != "" {
			return fmt.Errorf("backend '%s' takes no target, got '%s'", BackendStack, abi)
		}
		c.BackendName, c.BackendTarget = BackendStack, ""
	case BackendQBE:
		if abi == "" {
			abi = libqbe.DefaultTarget(goos, goarch)
		}
		switch abi {
		case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		default:
			return fmt.Errorf("unsupported QBE target '%s'", abi)
		}
		c.BackendName, c.BackendTarget = BackendQBE, abi
	default:
		return fmt.Errorf("unsupported backend '%s'", backend)
	}
	c.WordSize, c.WordType = 8, "l"
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyFlag applies one -W or -F style flag, e.g. "-Wno-overflow" or "-Ffold".
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	var isWarning bool
	switch {
	case strings.HasPrefix(trimmed, "W"):
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	name := trimmed[1:]
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	if isWarning {
		switch name {
		case "all":
			for i := Warning(0); i < WarnCount; i++ {
				c.SetWarning(i, enable)
			}
			return nil
		case "error":
			c.WarningsAsErrors = enable
			return nil
		}
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
			return nil
		}
		return fmt.Errorf("unknown warning '%s'", name)
	}
	if f, ok := c.FeatureMap[name]; ok {
		c.SetFeature(f, enable)
		return nil
	}
	return fmt.Errorf("unknown feature '%s'", name)
}

// SetupFlagGroups registers -W<warning>/-Wno-<warning> and -F<feature>/-Fno-<feature>
// on fs. The returned entries are read back by ApplyFlagGroups after parsing.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features []cli.FlagGroupEntry) {
	warnings = make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warnings[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	features = make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		features[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	fs.AddFlagGroup("Warning Flags", "Toggle compiler warnings.", "warning", "Available Warnings:", warnings)
	fs.AddFlagGroup("Feature Flags", "Toggle compiler features.", "feature", "Available Features:", features)
	return warnings, features
}

// ApplyFlagGroups copies the group flags that were given on the command line
// into the config, leaving untouched entries at their current value.
func (c *Config) ApplyFlagGroups(fs *cli.FlagSet, warnings, features []cli.FlagGroupEntry) {
	for i, entry := range warnings {
		if fs.Changed(entry.Prefix + entry.Name) {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if fs.Changed(entry.Prefix+"no-"+entry.Name) && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range features {
		if fs.Changed(entry.Prefix + entry.Name) {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if fs.Changed(entry.Prefix+"no-"+entry.Name) && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
