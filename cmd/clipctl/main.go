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

// clipctl plays the uploader's role against a ClipSpark server: it
// requests admission for a video, streams the bytes, runs the analysis,
// posts the outcome back, and exports the resulting clips.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "clipctl",
		Short:        "Analyze videos and export viral clips via a ClipSpark server",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("server", getenvDefault("CLIPSPARK_SERVER", "http://localhost:8080"), "ClipSpark server base URL")
	root.PersistentFlags().String("token", os.Getenv("CLIPSPARK_TOKEN"), "Bearer token for the server")

	root.AddCommand(newAnalyzeCommand())
	root.AddCommand(newExportCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
