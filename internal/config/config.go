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

// Package config defines the application configuration structs, loaded from
// hierarchical TOML files: a base .env.toml overlaid with a runtime-specific
// .env.<runtime>.toml.
package config

// Application holds general service settings.
type Application struct {
	Name            string `toml:"name"`
	GoogleProjectID string `toml:"google_project_id"`
	GoogleLocation  string `toml:"location"`
	ListenAddr      string `toml:"listen_addr"`
}

// Telemetry controls the OpenTelemetry export pipeline. Logging is always
// structured regardless of this switch.
type Telemetry struct {
	Enabled bool `toml:"enabled"`
}

// Auth is the static bearer-token table mapping tokens to identities.
type Auth struct {
	Tokens map[string]AuthToken `toml:"tokens"`
}

// AuthToken is one entry in the static token table, keyed by the token
// string itself.
type AuthToken struct {
	UserID string `toml:"user_id"`
	Email  string `toml:"email"`
}

// Ledger tunes the credit system.
type Ledger struct {
	FreeCredits int `toml:"free_credits"`
}

// Storage selects the persistence backend. An empty DatabasePath keeps
// everything in memory; an empty UploadBucket routes uploads through the
// server's own mock sink instead of signed GCS URLs.
type Storage struct {
	DatabasePath              string `toml:"database_path"`
	UploadBucket              string `toml:"upload_bucket"`
	SignerServiceAccountEmail string `toml:"signer_service_account_email"`
	SignedURLTTLSeconds       int    `toml:"signed_url_ttl_seconds"`
}

// Jobs tunes the stale-job sweeper.
type Jobs struct {
	StaleAfterSeconds    int `toml:"stale_after_seconds"`
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// Provider tunes the Gemini analysis calls made by the client pipeline.
type Provider struct {
	Model             string  `toml:"model"`
	Prompt            string  `toml:"prompt"`
	Temperature       float32 `toml:"temperature"`
	MaxTokens         int32   `toml:"max_tokens"`
	RequestsPerSecond int     `toml:"requests_per_second"`
	MaxRetries        int     `toml:"max_retries"`
}

// Export locates the capture tooling and its output directory.
type Export struct {
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
	OutputDir   string `toml:"output_dir"`
}

// Config is the root of the application configuration.
type Config struct {
	Application Application `toml:"application"`
	Telemetry   Telemetry   `toml:"telemetry"`
	Auth        Auth        `toml:"auth"`
	Ledger      Ledger      `toml:"ledger"`
	Storage     Storage     `toml:"storage"`
	Jobs        Jobs        `toml:"jobs"`
	Provider    Provider    `toml:"provider"`
	Export      Export      `toml:"export"`
}

// NewConfig creates a Config with its maps initialized so the TOML decoder
// can populate them.
func NewConfig() *Config {
	return &Config{
		Auth: Auth{Tokens: make(map[string]AuthToken)},
	}
}
