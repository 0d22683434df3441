// internal/events/types.go
package events

import (
	"time"

	"github.com/jugheadddd/launchpad-contracts/internal/types"
)

// EventType represents the type of event.
type EventType string

const (
	// Lifecycle events
	TokenLaunched  EventType = "token.launched"
	PairCreated    EventType = "pair.created"
	TokenGraduated EventType = "token.graduated"

	// Trading events
	TradeExecuted EventType = "trade.executed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	EventTime time.Time `json:"time"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// Now stamps a BaseEvent for the given type.
func Now(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// TokenLaunchedEvent is emitted when a token launches on the curve.
// Amounts are 18-decimal strings.
type TokenLaunchedEvent struct {
	BaseEvent
	Token          types.Address `json:"token"`
	Pair           types.Address `json:"pair"`
	Creator        types.Address `json:"creator"`
	BaseAsset      types.Address `json:"base_asset"`
	Name           string        `json:"name"`
	Symbol         string        `json:"symbol"`
	Supply         string        `json:"supply"`
	PurchaseAmount string        `json:"purchase_amount"`
}

// PairCreatedEvent is emitted when the factory creates a curve ledger.
type PairCreatedEvent struct {
	BaseEvent
	Token     types.Address `json:"token"`
	BaseAsset types.Address `json:"base_asset"`
	Pair      types.Address `json:"pair"`
}

// TradeExecutedEvent is emitted after every successful buy or sell.
type TradeExecutedEvent struct {
	BaseEvent
	Token     types.Address `json:"token"`
	Trader    types.Address `json:"trader"`
	Side      types.Side    `json:"side"`
	AmountIn  string        `json:"amount_in"`
	AmountOut string        `json:"amount_out"`
	Price     string        `json:"price"` // spot price after the trade, 1e18-scaled
}

// TokenGraduatedEvent is emitted when a token leaves the curve for the
// external exchange. Terminal: the token never trades here again.
type TokenGraduatedEvent struct {
	BaseEvent
	Token       types.Address `json:"token"`
	Pool        string        `json:"pool"`
	TokenSeeded string        `json:"token_seeded"`
	AssetSeeded string        `json:"asset_seeded"`
}
