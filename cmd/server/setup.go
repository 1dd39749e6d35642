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

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"

	"github.com/clipspark/clipspark/internal/auth"
	"github.com/clipspark/clipspark/internal/config"
	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/services"
	"github.com/clipspark/clipspark/internal/core/store"
	"github.com/clipspark/clipspark/internal/core/workflow"
	"github.com/clipspark/clipspark/internal/payment"
	"github.com/clipspark/clipspark/internal/upload"
)

// StateManager holds the shared components for the application.
type StateManager struct {
	config       *config.Config
	store        store.Store
	ledger       *services.CreditLedger
	cache        *services.ResultCache
	registry     *services.JobRegistry
	orchestrator *workflow.Orchestrator
	verifier     auth.Verifier
	gateway      payment.Gateway
	gcsTarget    *upload.GCSTarget
}

var state = &StateManager{}

func SetupOS() (err error) {
	if os.Getenv(config.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(config.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(config.EnvConfigRuntime) == "" {
		err = os.Setenv(config.EnvConfigRuntime, "local")
	}
	return err
}

func GetConfig() *config.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment: %v\n", err)
		}
		cfg := config.NewConfig()
		if err := config.Load(cfg); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		state.config = cfg
	}
	return state.config
}

// InitState wires the stores, services, and adapters from the loaded
// configuration. A configured database path selects the durable sqlite
// backing; a configured upload bucket enables signed-URL uploads.
func InitState(ctx context.Context) {
	cfg := GetConfig()
	logger := slog.Default()

	var backing store.Store
	if cfg.Storage.DatabasePath != "" {
		s, err := store.OpenSQLite(cfg.Storage.DatabasePath)
		if err != nil {
			log.Fatalf("failed to open database %s: %v\n", cfg.Storage.DatabasePath, err)
		}
		backing = s
		slog.Info("using sqlite store", "path", cfg.Storage.DatabasePath)
	} else {
		backing = store.NewMemoryStore()
		slog.Info("using in-memory store")
	}
	state.store = backing

	freeCredits := cfg.Ledger.FreeCredits
	if freeCredits <= 0 {
		freeCredits = model.DefaultFreeCredits
	}
	state.ledger = services.NewCreditLedger(backing, freeCredits, logger)
	state.cache = services.NewResultCache(backing, logger)
	state.registry = services.NewJobRegistry(logger)
	state.gateway = payment.NewLoggingGateway(logger)

	tokens := make(map[string]auth.Identity, len(cfg.Auth.Tokens))
	for token, entry := range cfg.Auth.Tokens {
		tokens[token] = auth.Identity{UserID: entry.UserID, Email: entry.Email}
	}
	state.verifier = auth.NewStaticVerifier(tokens)

	if cfg.Storage.UploadBucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			log.Fatalf("failed to create storage client: %v\n", err)
		}
		iamClient, err := credentials.NewIamCredentialsClient(ctx)
		if err != nil {
			log.Fatalf("failed to create IAM credentials client: %v\n", err)
		}
		ttl := time.Duration(cfg.Storage.SignedURLTTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = 15 * time.Minute
		}
		state.gcsTarget = &upload.GCSTarget{
			StorageClient: storageClient,
			IAMClient:     iamClient,
			Bucket:        cfg.Storage.UploadBucket,
			SignerEmail:   cfg.Storage.SignerServiceAccountEmail,
			TTL:           ttl,
		}
		slog.Info("signed uploads enabled", "bucket", cfg.Storage.UploadBucket)
	}

	state.orchestrator = workflow.NewOrchestrator(
		state.ledger, state.cache, state.registry, state.uploadURL, logger)
}

// uploadURL resolves the byte sink for a job: a signed GCS PUT URL when a
// bucket is configured, the local mock sink otherwise.
func (s *StateManager) uploadURL(ctx context.Context, jobID string) (string, error) {
	if s.gcsTarget != nil {
		return s.gcsTarget.SignedPutURL(ctx, upload.UploadPrefix+jobID)
	}
	return "/mock-upload/" + jobID, nil
}
