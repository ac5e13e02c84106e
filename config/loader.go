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

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ProjectConfigFile is the name of the project level config file.
const ProjectConfigFile = "cnvq.yaml"

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. The explicit path if provided, otherwise cnvq.yaml in the current or
// parent directories
// 3. The overrides, usually built from command line flags
//
// The returned config is validated.
func (l *Loader) Load(path string, overrides *Config) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		path = l.findProjectConfig()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		file, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("loaded config", slog.String("path", path))
		config.Merge(file)
		// Relative sources are resolved against the config file.
		base := filepath.Dir(path)
		for i, s := range config.Ontology.Sources {
			if !filepath.IsAbs(s) {
				config.Ontology.Sources[i] = filepath.Join(base, s)
			}
		}
	} else {
		l.logger.Debug("no project config found")
	}

	config.Merge(overrides)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// findProjectConfig searches for cnvq.yaml in current and parent directories.
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		p := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		if filepath.Dir(dir) == dir {
			return ""
		}
	}
}
