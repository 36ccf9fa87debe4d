package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TransactionEventChannel is the pub/sub channel notification
// collaborators subscribe to. The engine publishes and moves on; delivery
// to end users is not its concern.
const TransactionEventChannel = "ledger:transaction-events"

// TransactionEvent announces a transaction reaching a terminal state.
type TransactionEvent struct {
	TransactionNumber string    `json:"transaction_number"`
	WalletID          uint      `json:"wallet_id"`
	OwnerID           uint      `json:"owner_id"`
	Type              string    `json:"type"`
	Status            string    `json:"status"`
	Amount            string    `json:"amount"`
	Currency          string    `json:"currency"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// PublishTransactionEvent emits a terminal-state event over Redis pub/sub.
func (s *CacheService) PublishTransactionEvent(ctx context.Context, event TransactionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode transaction event: %w", err)
	}
	return s.client.Publish(ctx, TransactionEventChannel, data).Err()
}
