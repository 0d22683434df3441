// internal/storage/models/models.go

// Package models holds the journal's row types. Amounts are 18-decimal
// fixed-point integers stored as decimal strings; SQLite has no integer type
// wide enough for them.
package models

import "time"

// TokenRecord is one launched token.
type TokenRecord struct {
	Address     string     `json:"address"`
	Pair        string     `json:"pair"`
	Creator     string     `json:"creator"`
	BaseAsset   string     `json:"base_asset"`
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	Supply      string     `json:"supply"`
	LaunchedAt  time.Time  `json:"launched_at"`
	GraduatedAt *time.Time `json:"graduated_at,omitempty"`
}

// TradeRecord is one executed buy or sell.
type TradeRecord struct {
	ID         int64     `json:"id"`
	Token      string    `json:"token"`
	Trader     string    `json:"trader"`
	Side       string    `json:"side"`
	AmountIn   string    `json:"amount_in"`
	AmountOut  string    `json:"amount_out"`
	Price      string    `json:"price"`
	ExecutedAt time.Time `json:"executed_at"`
}

// GraduationRecord is a token's one-way move to the external exchange.
type GraduationRecord struct {
	Token       string    `json:"token"`
	Pool        string    `json:"pool"`
	TokenSeeded string    `json:"token_seeded"`
	AssetSeeded string    `json:"asset_seeded"`
	GraduatedAt time.Time `json:"graduated_at"`
}
