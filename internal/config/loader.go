// Copyright 2025 ClipSpark Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	configFileBaseName  = ".env"
	configFileExtension = ".toml"
	configSeparator     = "."

	// EnvConfigFilePrefix names the environment variable that points at the
	// directory holding the config files.
	EnvConfigFilePrefix = "CLIPSPARK_CONFIG_PREFIX"
	// EnvConfigRuntime names the environment variable selecting the runtime
	// overlay, e.g. "local", "test", or "prod". Defaults to "local".
	EnvConfigRuntime = "CLIPSPARK_RUNTIME"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// Load populates cfg hierarchically: the base .env.toml first, then the
// runtime overlay .env.<runtime>.toml, whose values win. Missing files are
// skipped; a file that exists but fails to parse is an error.
func Load(cfg *Config) error {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix = prefix + string(os.PathSeparator)
	}

	runtime := os.Getenv(EnvConfigRuntime)
	if runtime == "" {
		runtime = "local"
	}

	baseFile := prefix + configFileBaseName + configFileExtension
	overlayFile := prefix + configFileBaseName + configSeparator + runtime + configFileExtension

	if fileExists(baseFile) {
		if _, err := toml.DecodeFile(baseFile, cfg); err != nil {
			return fmt.Errorf("failed to decode base configuration %s: %w", baseFile, err)
		}
	}
	if fileExists(overlayFile) {
		if _, err := toml.DecodeFile(overlayFile, cfg); err != nil {
			return fmt.Errorf("failed to decode runtime configuration %s: %w", overlayFile, err)
		}
	}
	return nil
}
