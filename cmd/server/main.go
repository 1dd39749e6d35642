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

// The server binary hosts the credit-gated upload API: admission, mock
// uploads, job tracking, and plan upgrades.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/clipspark/clipspark/internal/auth"
	"github.com/clipspark/clipspark/internal/core/model"
	"github.com/clipspark/clipspark/internal/core/services"
	"github.com/clipspark/clipspark/internal/core/store"
	"github.com/clipspark/clipspark/internal/telemetry"
	"github.com/clipspark/clipspark/internal/upload"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := GetConfig()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, cfg)
		if err != nil {
			slog.Error("Failed to setup OpenTelemetry", "error", err)
			log.Fatal(err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				slog.Error("telemetry shutdown failed", "error", err)
			}
		}()
		slog.Info("Tracing initialized")
	}

	InitState(ctx)
	slog.Info("Initialized State")

	go runStaleJobSweeper(ctx)

	r := newRouter(state)

	addr := cfg.Application.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen", "error", err)
		}
	}()
	slog.Info("Server Ready", "addr", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}
	if err := state.store.Close(); err != nil {
		slog.Error("store close failed", "error", err)
	}

	log.Println("Server exiting")
}

// runStaleJobSweeper periodically fails jobs whose clients went away.
func runStaleJobSweeper(ctx context.Context) {
	cfg := GetConfig()
	staleAfter := time.Duration(cfg.Jobs.StaleAfterSeconds) * time.Second
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	interval := time.Duration(cfg.Jobs.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if expired := state.registry.ExpireStale(staleAfter); len(expired) > 0 {
				slog.Info("expired stale jobs", "count", len(expired))
			}
			if state.gcsTarget != nil {
				removed, err := state.gcsTarget.SweepStale(ctx, staleAfter)
				if err != nil {
					slog.Warn("upload sweep failed", "error", err)
				} else if removed > 0 {
					slog.Info("swept stale uploads", "count", removed)
				}
			}
		}
	}
}

// newRouter builds the full HTTP surface against the given state.
func newRouter(st *StateManager) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("clipspark-server"))
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	authorized := r.Group("/", auth.Middleware(st.verifier))
	{
		authorized.GET("/user/profile", st.handleProfile)
		authorized.POST("/user/upgrade", st.handleUpgrade)
		authorized.POST("/jobs/upload-url", st.handleUploadURL)
	}

	// Job ids are unguessable uuids handed out by the authorize step, so the
	// job routes take no token. One offered anyway is verified and scopes the
	// request to that caller's jobs.
	jobs := r.Group("/", auth.OptionalMiddleware(st.verifier))
	{
		jobs.PUT("/mock-upload/:jobId", st.handleMockUpload)
		jobs.GET("/jobs/:jobId", st.handleGetJob)
		jobs.POST("/jobs/:jobId/complete", st.handleCompleteJob)
		jobs.POST("/jobs/:jobId/fail", st.handleFailJob)
	}

	return r
}

// handleProfile returns the caller's account, creating it with the free
// grant on first contact.
func (s *StateManager) handleProfile(c *gin.Context) {
	identity, _ := auth.IdentityFrom(c)
	user, err := s.ledger.GetOrCreate(c.Request.Context(), identity.UserID, identity.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// handleUploadURL is the credit gate: cache check, debit, job creation.
func (s *StateManager) handleUploadURL(c *gin.Context) {
	identity, _ := auth.IdentityFrom(c)

	var body struct {
		FileName string `json:"fileName"`
		FileSize int64  `json:"fileSize"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.FileName == "" || body.FileSize <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileName and fileSize are required"})
		return
	}

	authz, err := s.orchestrator.AuthorizeUpload(c.Request.Context(), &services.AuthorizationRequest{
		UserID:   identity.UserID,
		Email:    identity.Email,
		FileName: body.FileName,
		FileSize: body.FileSize,
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientCredits) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient credits",
				"code":  "OUT_OF_CREDITS",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, authz)
}

// handleUpgrade settles a plan purchase and grants its credits. The
// Idempotency-Key header guards against replayed purchase events.
func (s *StateManager) handleUpgrade(c *gin.Context) {
	identity, _ := auth.IdentityFrom(c)

	var body struct {
		Plan model.Plan `json:"plan"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !body.Plan.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid plan is required"})
		return
	}

	// The account must exist before it can be credited.
	if _, err := s.ledger.GetOrCreate(c.Request.Context(), identity.UserID, identity.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	if err := s.gateway.SettleUpgrade(c.Request.Context(), identity.UserID, body.Plan); err != nil {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Payment failed"})
		return
	}

	user, err := s.ledger.Credit(c.Request.Context(), identity.UserID, body.Plan, c.GetHeader("Idempotency-Key"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"credits": user.Credits,
		"plan":    user.Plan,
	})
}

// ownedJob loads the job. Anonymous callers get it by id alone; when the
// request carries a verified identity, jobs owned by someone else read as
// missing rather than forbidden.
func (s *StateManager) ownedJob(c *gin.Context) (*model.Job, bool) {
	job, err := s.registry.Get(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return nil, false
	}
	if identity, ok := auth.IdentityFrom(c); ok && job.OwnerID != identity.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return nil, false
	}
	return job, true
}

// handleMockUpload drains the raw upload stream. The bytes are discarded;
// the transfer moves the job to PROCESSING so the client can hand off to
// the analysis step.
func (s *StateManager) handleMockUpload(c *gin.Context) {
	job, ok := s.ownedJob(c)
	if !ok {
		return
	}

	if err := s.registry.BeginUpload(job.ID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Job is not awaiting an upload"})
		return
	}

	result, err := upload.Drain(c.Request.Body)
	if err != nil {
		_, _ = s.orchestrator.Fail(c.Request.Context(), job.ID, "upload stream aborted")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Upload aborted"})
		return
	}

	if err := s.registry.UploadFinished(job.ID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Job is not awaiting an upload"})
		return
	}

	slog.InfoContext(c.Request.Context(), "upload drained",
		"job", job.ID, "bytes", result.Bytes, "mediaType", result.MediaType.MIME.Value)
	c.Status(http.StatusOK)
}

// handleGetJob returns the job, including any attached result.
func (s *StateManager) handleGetJob(c *gin.Context) {
	job, ok := s.ownedJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleCompleteJob attaches the analysis result and settles the job.
func (s *StateManager) handleCompleteJob(c *gin.Context) {
	job, ok := s.ownedJob(c)
	if !ok {
		return
	}

	var result model.AnalysisResult
	if err := c.ShouldBindJSON(&result); err != nil || len(result.Clips) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "an analysis result with clips is required"})
		return
	}

	if _, err := s.orchestrator.Complete(c.Request.Context(), job.ID, &result); err != nil {
		if errors.Is(err, services.ErrTerminalState) {
			c.JSON(http.StatusConflict, gin.H{"error": "Job already settled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleFailJob records a client-reported analysis failure. The admission
// credit stays spent.
func (s *StateManager) handleFailJob(c *gin.Context) {
	job, ok := s.ownedJob(c)
	if !ok {
		return
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Error == "" {
		body.Error = "analysis failed"
	}

	failed, err := s.orchestrator.Fail(c.Request.Context(), job.ID, body.Error)
	if err != nil {
		if errors.Is(err, services.ErrTerminalState) {
			c.JSON(http.StatusConflict, gin.H{"error": "Job already settled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, failed)
}
