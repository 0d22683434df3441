// internal/storage/storage.go

// Package storage persists the launchpad's history: launched tokens, executed
// trades, and graduations. The engine itself never reads the journal; it
// exists for operators and the websocket feed's catch-up queries.
package storage

import (
	"context"

	"github.com/jugheadddd/launchpad-contracts/internal/storage/models"
)

// Storage is the journal interface.
type Storage interface {
	// Tokens
	SaveToken(ctx context.Context, token *models.TokenRecord) error
	GetToken(ctx context.Context, address string) (*models.TokenRecord, error)
	ListTokens(ctx context.Context, limit, offset int) ([]*models.TokenRecord, error)

	// Trades
	SaveTrade(ctx context.Context, trade *models.TradeRecord) error
	// ListTrades pages through trades, oldest first. An empty token matches
	// every token.
	ListTrades(ctx context.Context, token string, limit, offset int) ([]*models.TradeRecord, error)

	// Graduations
	SaveGraduation(ctx context.Context, grad *models.GraduationRecord) error
	GetGraduation(ctx context.Context, token string) (*models.GraduationRecord, error)

	Close() error
}
