// Copyright 2015 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides configuration loading and management for cnvq.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nounverb/cnvq/triple/namespace"
)

// Config represents the complete cnvq configuration.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Ontology OntologyConfig `yaml:"ontology"`
	Log      LogConfig      `yaml:"log"`
}

// EngineConfig configures query planning and execution.
type EngineConfig struct {
	// Timeout is the deadline of a single query. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`
	// JoinThreshold is the estimated cardinality from which hash joins are used.
	JoinThreshold int `yaml:"join_threshold"`
	// MaxPathDepth bounds the expansion of transitive property paths.
	MaxPathDepth int `yaml:"max_path_depth"`
	// CacheCapacity is the number of cached query results.
	CacheCapacity int `yaml:"cache_capacity"`
	// BatchConcurrency is the number of queries of a batch run concurrently.
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// OntologyConfig configures where the command ontology is loaded from.
type OntologyConfig struct {
	// Sources are glob patterns of Turtle documents. "**" is supported.
	Sources []string `yaml:"sources"`
	// Prefixes are namespace declarations added to the defaults.
	Prefixes map[string]string `yaml:"prefixes,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is either text or json.
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Timeout:          30 * time.Second,
			JoinThreshold:    1000,
			MaxPathDepth:     64,
			CacheCapacity:    1000,
			BatchConcurrency: 4,
		},
		Ontology: OntologyConfig{
			Sources: []string{"ontology/**/*.ttl"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("engine.timeout must not be negative")
	}
	if c.Engine.JoinThreshold <= 0 {
		return fmt.Errorf("engine.join_threshold must be positive")
	}
	if c.Engine.MaxPathDepth <= 0 {
		return fmt.Errorf("engine.max_path_depth must be positive")
	}
	if c.Engine.CacheCapacity <= 0 {
		return fmt.Errorf("engine.cache_capacity must be positive")
	}
	if c.Engine.BatchConcurrency <= 0 {
		return fmt.Errorf("engine.batch_concurrency must be positive")
	}
	if _, ok := levels[strings.ToLower(c.Log.Level)]; !ok {
		return fmt.Errorf("log.level must be one of debug, info, warn or error")
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("log.format must be text or json")
	}
	if _, err := c.Namespaces(); err != nil {
		return fmt.Errorf("ontology.prefixes: %w", err)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	if l, ok := levels[strings.ToLower(c.Log.Level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// Namespaces returns the default namespaces extended with the configured
// prefixes, added in prefix order.
func (c *Config) Namespaces() (*namespace.Table, error) {
	t := namespace.Default()
	ps := make([]string, 0, len(c.Ontology.Prefixes))
	for p := range c.Ontology.Prefixes {
		ps = append(ps, p)
	}
	sort.Strings(ps)
	for _, p := range ps {
		if err := t.Add(p, c.Ontology.Prefixes[p]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge merges another config into this one. Non zero values of other take
// precedence; prefixes are added.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Engine.Timeout != 0 {
		c.Engine.Timeout = other.Engine.Timeout
	}
	if other.Engine.JoinThreshold != 0 {
		c.Engine.JoinThreshold = other.Engine.JoinThreshold
	}
	if other.Engine.MaxPathDepth != 0 {
		c.Engine.MaxPathDepth = other.Engine.MaxPathDepth
	}
	if other.Engine.CacheCapacity != 0 {
		c.Engine.CacheCapacity = other.Engine.CacheCapacity
	}
	if other.Engine.BatchConcurrency != 0 {
		c.Engine.BatchConcurrency = other.Engine.BatchConcurrency
	}

	if len(other.Ontology.Sources) > 0 {
		c.Ontology.Sources = other.Ontology.Sources
	}
	for p, iri := range other.Ontology.Prefixes {
		if c.Ontology.Prefixes == nil {
			c.Ontology.Prefixes = map[string]string{}
		}
		c.Ontology.Prefixes[p] = iri
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}
