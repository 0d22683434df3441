// internal/storage/recorder.go
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jugheadddd/launchpad-contracts/internal/events"
	"github.com/jugheadddd/launchpad-contracts/internal/storage/models"
)

// Recorder subscribes to the event bus and journals launches, trades, and
// graduations. Journal failures are logged, never propagated into trades.
type Recorder struct {
	logger *zap.Logger
	store  Storage
	subs   []events.Subscription
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(logger *zap.Logger, store Storage) *Recorder {
	return &Recorder{logger: logger.Named("recorder"), store: store}
}

// Attach subscribes the recorder to the bus.
func (r *Recorder) Attach(bus *events.Bus) {
	r.subs = append(r.subs,
		bus.SubscribeFunc(events.TokenLaunched, r.onTokenLaunched),
		bus.SubscribeFunc(events.TradeExecuted, r.onTradeExecuted),
		bus.SubscribeFunc(events.TokenGraduated, r.onTokenGraduated),
	)
}

// Detach removes the recorder's subscriptions.
func (r *Recorder) Detach() {
	for _, sub := range r.subs {
		sub.Unsubscribe()
	}
	r.subs = nil
}

func (r *Recorder) onTokenLaunched(ctx context.Context, e events.Event) error {
	ev, ok := e.(*events.TokenLaunchedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", e)
	}
	err := r.store.SaveToken(ctx, &models.TokenRecord{
		Address:    ev.Token.String(),
		Pair:       ev.Pair.String(),
		Creator:    ev.Creator.String(),
		BaseAsset:  ev.BaseAsset.String(),
		Name:       ev.Name,
		Symbol:     ev.Symbol,
		Supply:     ev.Supply,
		LaunchedAt: ev.Timestamp(),
	})
	if err != nil {
		r.logger.Error("Failed to journal launch",
			zap.String("token", ev.Token.String()), zap.Error(err))
	}
	return err
}

func (r *Recorder) onTradeExecuted(ctx context.Context, e events.Event) error {
	ev, ok := e.(*events.TradeExecutedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", e)
	}
	err := r.store.SaveTrade(ctx, &models.TradeRecord{
		Token:      ev.Token.String(),
		Trader:     ev.Trader.String(),
		Side:       string(ev.Side),
		AmountIn:   ev.AmountIn,
		AmountOut:  ev.AmountOut,
		Price:      ev.Price,
		ExecutedAt: ev.Timestamp(),
	})
	if err != nil {
		r.logger.Error("Failed to journal trade",
			zap.String("token", ev.Token.String()), zap.Error(err))
	}
	return err
}

func (r *Recorder) onTokenGraduated(ctx context.Context, e events.Event) error {
	ev, ok := e.(*events.TokenGraduatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", e)
	}
	err := r.store.SaveGraduation(ctx, &models.GraduationRecord{
		Token:       ev.Token.String(),
		Pool:        ev.Pool,
		TokenSeeded: ev.TokenSeeded,
		AssetSeeded: ev.AssetSeeded,
		GraduatedAt: ev.Timestamp(),
	})
	if err != nil {
		r.logger.Error("Failed to journal graduation",
			zap.String("token", ev.Token.String()), zap.Error(err))
	}
	return err
}
