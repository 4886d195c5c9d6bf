// Copyright © 2024 The Mago authors

// Package config loads the mago.toml workspace configuration.
//
// Values are layered with viper: bound command line flags take precedence
// over MAGO_ prefixed environment variables, which take precedence over the
// configuration file, which takes precedence over the defaults.  An optional
// .env file in the workspace root populates the environment before it is
// read.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/magophp/mago/analysis"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/formatter"
	"github.com/magophp/mago/lint"
	"github.com/magophp/mago/pipeline"
	"github.com/magophp/mago/source"
)

// FileName is the configuration file looked up in the workspace root.
const FileName = "mago.toml"

// EnvPrefix prefixes every environment variable read as configuration.
const EnvPrefix = "MAGO"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the effective configuration of a run.
type Config struct {
	Source    SourceConfig    `mapstructure:"source" toml:"source"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer" toml:"analyzer"`
	Linter    LinterConfig    `mapstructure:"linter" toml:"linter"`
	Formatter FormatterConfig `mapstructure:"formatter" toml:"formatter"`
}

// SourceConfig selects the files of the workspace.
type SourceConfig struct {
	Workspace  string   `mapstructure:"workspace" toml:"workspace"`
	Paths      []string `mapstructure:"paths" toml:"paths"`
	Includes   []string `mapstructure:"includes" toml:"includes"`
	Excludes   []string `mapstructure:"excludes" toml:"excludes"`
	Extensions []string `mapstructure:"extensions" toml:"extensions"`
}

// AnalyzerConfig holds the analyzer switches and the resource limits of a
// run.
type AnalyzerConfig struct {
	FindUnusedExpressions bool `mapstructure:"find_unused_expressions" toml:"find_unused_expressions"`
	FindUnusedDefinitions bool `mapstructure:"find_unused_definitions" toml:"find_unused_definitions"`
	AnalyzeDeadCode       bool `mapstructure:"analyze_dead_code" toml:"analyze_dead_code"`
	MemoizeProperties     bool `mapstructure:"memoize_properties" toml:"memoize_properties"`
	AllowInclude          bool `mapstructure:"allow_include" toml:"allow_include"`
	AllowEval             bool `mapstructure:"allow_eval" toml:"allow_eval"`
	AllowEmpty            bool `mapstructure:"allow_empty" toml:"allow_empty"`
	PerformTaintAnalysis  bool `mapstructure:"perform_taint_analysis" toml:"perform_taint_analysis"`
	StackSize             int  `mapstructure:"stack_size" toml:"stack_size"`
	Threads               int  `mapstructure:"threads" toml:"threads"`
}

// LinterConfig configures individual lint rules by name.
type LinterConfig struct {
	Rules map[string]RuleConfig `mapstructure:"rules" toml:"rules"`
}

// RuleConfig configures one lint rule.  Keys other than enabled and level
// are rule options.
type RuleConfig struct {
	Enabled *bool          `mapstructure:"enabled"`
	Level   string         `mapstructure:"level"`
	Options map[string]any `mapstructure:",remain"`
}

// FormatterConfig mirrors formatter.Settings.
type FormatterConfig struct {
	MaxBlankLines          int  `mapstructure:"max_blank_lines" toml:"max_blank_lines"`
	LowercaseKeywords      bool `mapstructure:"lowercase_keywords" toml:"lowercase_keywords"`
	TrimTrailingWhitespace bool `mapstructure:"trim_trailing_whitespace" toml:"trim_trailing_whitespace"`
}

// Options locate the configuration sources.
type Options struct {
	// Workspace is the directory holding mago.toml and .env.  Empty means
	// the current directory.
	Workspace string
	// File overrides the configuration file.  Unlike the default file it
	// must exist.
	File string
	// Flags maps configuration keys, such as "analyzer.threads", to the
	// command line flags that override them.
	Flags map[string]*pflag.Flag
}

func setDefaults(v *viper.Viper, workspace string) {
	settings := analysis.DefaultSettings()
	fmtSettings := formatter.DefaultSettings()
	v.SetDefault("source.workspace", workspace)
	v.SetDefault("source.paths", []string{})
	v.SetDefault("source.includes", []string{})
	v.SetDefault("source.excludes", []string{})
	v.SetDefault("source.extensions", []string{"php"})
	v.SetDefault("analyzer.find_unused_expressions", settings.FindUnusedExpressions)
	v.SetDefault("analyzer.find_unused_definitions", settings.FindUnusedDefinitions)
	v.SetDefault("analyzer.analyze_dead_code", settings.AnalyzeDeadCode)
	v.SetDefault("analyzer.memoize_properties", settings.MemoizeProperties)
	v.SetDefault("analyzer.allow_include", settings.AllowInclude)
	v.SetDefault("analyzer.allow_eval", settings.AllowEval)
	v.SetDefault("analyzer.allow_empty", settings.AllowEmpty)
	v.SetDefault("analyzer.perform_taint_analysis", settings.PerformTaintAnalysis)
	v.SetDefault("analyzer.stack_size", pipeline.DefaultStackSize)
	v.SetDefault("analyzer.threads", 0)
	v.SetDefault("formatter.max_blank_lines", fmtSettings.MaxBlankLines)
	v.SetDefault("formatter.lowercase_keywords", fmtSettings.LowercaseKeywords)
	v.SetDefault("formatter.trim_trailing_whitespace", fmtSettings.TrimTrailingWhitespace)
}

// Load reads and validates the configuration described by opts.
func Load(opts Options) (*Config, error) {
	ws := opts.Workspace
	if ws == "" {
		ws = "."
	}
	if err := loadDotEnv(ws); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, ws)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	keys := make([]string, 0, len(opts.Flags))
	for key := range opts.Flags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := v.BindPFlag(key, opts.Flags[key]); err != nil {
			return nil, fmt.Errorf("bind flag for %s: %w", key, err)
		}
	}

	file := opts.File
	if file == "" {
		file = filepath.Join(ws, FileName)
		if _, err := os.Stat(file); err != nil {
			file = ""
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file %s: %w", file, err)
		}
	}

	// source.root is an alternate spelling of source.workspace.
	explicit := v.InConfig("source.workspace") || os.Getenv(EnvPrefix+"_SOURCE_WORKSPACE") != ""
	if root := v.GetString("source.root"); root != "" && !explicit {
		v.SetDefault("source.workspace", root)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	v := viper.New()
	setDefaults(v, ".")
	cfg, err := decode(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func loadDotEnv(workspace string) error {
	path := filepath.Join(workspace, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate reports the first invalid value of c, wrapping ErrInvalid.
func (c *Config) Validate() error {
	a := c.Analyzer
	if a.StackSize < pipeline.MinStackSize || a.StackSize > pipeline.MaxStackSize {
		return fmt.Errorf("%w: analyzer.stack_size %d must be between %d and %d",
			ErrInvalid, a.StackSize, pipeline.MinStackSize, pipeline.MaxStackSize)
	}
	if a.Threads < 0 {
		return fmt.Errorf("%w: analyzer.threads must not be negative", ErrInvalid)
	}
	if len(c.Source.Extensions) == 0 {
		return fmt.Errorf("%w: source.extensions must not be empty", ErrInvalid)
	}
	for _, ext := range c.Source.Extensions {
		if strings.TrimPrefix(ext, ".") == "" {
			return fmt.Errorf("%w: source.extensions contains an empty extension", ErrInvalid)
		}
	}
	if c.Formatter.MaxBlankLines < 0 {
		return fmt.Errorf("%w: formatter.max_blank_lines must not be negative", ErrInvalid)
	}
	for _, name := range c.ruleNames() {
		r := c.Linter.Rules[name]
		if _, ok := lint.Lookup(name); !ok {
			return fmt.Errorf("%w: linter.rules.%s: unknown rule", ErrInvalid, name)
		}
		if r.Level != "" {
			if _, err := diagnostic.ParseLevel(r.Level); err != nil {
				return fmt.Errorf("%w: linter.rules.%s.level: %v", ErrInvalid, name, err)
			}
		}
	}
	return nil
}

func (c *Config) ruleNames() []string {
	names := make([]string, 0, len(c.Linter.Rules))
	for name := range c.Linter.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoaderConfig returns the file selection of c.
func (c *Config) LoaderConfig() source.LoaderConfig {
	s := c.Source
	return source.LoaderConfig{
		Workspace:  s.Workspace,
		Paths:      s.Paths,
		Includes:   s.Includes,
		Excludes:   s.Excludes,
		Extensions: s.Extensions,
	}
}

// AnalysisSettings returns the analyzer switches of c.
func (c *Config) AnalysisSettings() analysis.Settings {
	a := c.Analyzer
	return analysis.Settings{
		FindUnusedExpressions: a.FindUnusedExpressions,
		FindUnusedDefinitions: a.FindUnusedDefinitions,
		AnalyzeDeadCode:       a.AnalyzeDeadCode,
		MemoizeProperties:     a.MemoizeProperties,
		AllowInclude:          a.AllowInclude,
		AllowEval:             a.AllowEval,
		AllowEmpty:            a.AllowEmpty,
		PerformTaintAnalysis:  a.PerformTaintAnalysis,
	}
}

// LintSettings returns the rule settings keyed by the short rule name.  c
// must be valid.
func (c *Config) LintSettings() map[string]lint.RuleSettings {
	settings := make(map[string]lint.RuleSettings, len(c.Linter.Rules))
	for _, name := range c.ruleNames() {
		r := c.Linter.Rules[name]
		a, _ := lint.Lookup(name)
		s := lint.RuleSettings{Enabled: r.Enabled == nil || *r.Enabled, Options: r.Options}
		if r.Level != "" {
			level, _ := diagnostic.ParseLevel(r.Level)
			s.Level = &level
		}
		settings[a.Name] = s
	}
	return settings
}

// NewLinter returns a linter running the default rules under c's settings.
func (c *Config) NewLinter() *lint.Linter {
	return lint.New(c.LintSettings())
}

// FormatterSettings returns the formatter options of c.
func (c *Config) FormatterSettings() formatter.Settings {
	f := c.Formatter
	return formatter.Settings{
		MaxBlankLines:          f.MaxBlankLines,
		LowercaseKeywords:      f.LowercaseKeywords,
		TrimTrailingWhitespace: f.TrimTrailingWhitespace,
	}
}

// PipelineConfig returns a pipeline configuration that analyzes and lints.
func (c *Config) PipelineConfig(log *zap.Logger) pipeline.Config {
	return pipeline.Config{
		Analyze:   true,
		Settings:  c.AnalysisSettings(),
		Linter:    c.NewLinter(),
		Threads:   c.Analyzer.Threads,
		StackSize: c.Analyzer.StackSize,
		Logger:    log,
	}
}

// WriteTOML writes c to w in the mago.toml format.
func (c *Config) WriteTOML(w io.Writer) error {
	rules := make(map[string]map[string]any, len(c.Linter.Rules))
	for _, name := range c.ruleNames() {
		r := c.Linter.Rules[name]
		table := make(map[string]any, len(r.Options)+2)
		for k, v := range r.Options {
			table[k] = v
		}
		table["enabled"] = r.Enabled == nil || *r.Enabled
		if r.Level != "" {
			table["level"] = r.Level
		}
		rules[name] = table
	}
	doc := struct {
		Source    SourceConfig    `toml:"source"`
		Analyzer  AnalyzerConfig  `toml:"analyzer"`
		Linter    map[string]any  `toml:"linter"`
		Formatter FormatterConfig `toml:"formatter"`
	}{
		Source:    c.Source,
		Analyzer:  c.Analyzer,
		Linter:    map[string]any{"rules": rules},
		Formatter: c.Formatter,
	}
	return toml.NewEncoder(w).Encode(doc)
}
