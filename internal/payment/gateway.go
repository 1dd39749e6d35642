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

// Package payment is the boundary to whatever processes plan purchases.
// The server only needs a yes or no before it grants credits; charging the
// card, webhooks, and refunds all live behind this interface.
package payment

import (
	"context"
	"log/slog"

	"github.com/clipspark/clipspark/internal/core/model"
)

// Gateway settles a plan purchase for a user. A nil error means the payment
// cleared and the caller may grant the plan's credits.
type Gateway interface {
	SettleUpgrade(ctx context.Context, userID string, plan model.Plan) error
}

// LoggingGateway approves every purchase and records it. It stands in for a
// real processor in development and test deployments.
type LoggingGateway struct {
	logger *slog.Logger
}

// NewLoggingGateway returns a gateway that approves everything.
func NewLoggingGateway(logger *slog.Logger) *LoggingGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingGateway{logger: logger}
}

// SettleUpgrade logs the purchase and approves it.
func (g *LoggingGateway) SettleUpgrade(ctx context.Context, userID string, plan model.Plan) error {
	g.logger.InfoContext(ctx, "settled plan upgrade",
		slog.String("user_id", userID),
		slog.String("plan", string(plan)))
	return nil
}
