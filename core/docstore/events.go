package docstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a mutation lifecycle event. Reads are pure loads and
// emit nothing.
type EventType string

const (
	DocumentInsertStart   EventType = "document:insert:start"
	DocumentInsertSuccess EventType = "document:insert:success"
	DocumentInsertFailed  EventType = "document:insert:failed"
	DocumentUpdateStart   EventType = "document:update:start"
	DocumentUpdateSuccess EventType = "document:update:success"
	DocumentUpdateFailed  EventType = "document:update:failed"
	DocumentDeleteStart   EventType = "document:delete:start"
	DocumentDeleteSuccess EventType = "document:delete:success"
	DocumentDeleteFailed  EventType = "document:delete:failed"
)

// DocumentEvent is emitted on the database's event bus around every mutating
// operation.
type DocumentEvent struct {
	Type       EventType `json:"type"`
	Operation  string    `json:"operation"`            // "insert", "update" or "delete"
	Collection string    `json:"collection"`           // collection the operation targets
	Count      int       `json:"count"`                // documents affected (success events only)
	Error      *string   `json:"error,omitempty"`      // failure reason (failed events only)
	Timestamp  int64     `json:"timestamp"`            // Unix milliseconds
	Duration   *int64    `json:"duration,omitempty"`   // operation duration in milliseconds
}

// EventCallback is invoked for every event of the subscribed type.
type EventCallback func(ctx context.Context, event DocumentEvent) error

// SubscriptionInfo describes an active subscription.
type SubscriptionInfo struct {
	ID          string    `json:"id"`
	Event       EventType `json:"event"`
	Label       *string   `json:"label,omitempty"`
	Description *string   `json:"description,omitempty"`
	unsubscribe func()
}

// RegisterSubscriptionOptions configures a new subscription.
type RegisterSubscriptionOptions struct {
	Event       EventType
	Callback    EventCallback
	Label       *string
	Description *string
}

// RegisterSubscription registers a callback for a specific event type and
// returns an id usable with UnregisterSubscription.
func (db *Database) RegisterSubscription(options RegisterSubscriptionOptions) string {
	db.subMu.Lock()
	defer db.subMu.Unlock()

	unsubscribe := db.bus.Subscribe(string(options.Event), options.Callback)
	id := uuid.New().String()
	db.subscriptions[id] = &SubscriptionInfo{
		ID:          id,
		Event:       options.Event,
		Label:       options.Label,
		Description: options.Description,
		unsubscribe: unsubscribe,
	}
	return id
}

// UnregisterSubscription removes a subscription by its id.
func (db *Database) UnregisterSubscription(id string) {
	db.subMu.Lock()
	defer db.subMu.Unlock()

	if info, ok := db.subscriptions[id]; ok {
		info.unsubscribe()
		delete(db.subscriptions, id)
	}
}

// Subscriptions returns all currently active subscriptions.
func (db *Database) Subscriptions() []SubscriptionInfo {
	db.subMu.RLock()
	defer db.subMu.RUnlock()

	subs := make([]SubscriptionInfo, 0, len(db.subscriptions))
	for _, sub := range db.subscriptions {
		subs = append(subs, *sub)
	}
	return subs
}

func (db *Database) emit(event DocumentEvent) {
	if db.bus != nil {
		db.bus.Emit(string(event.Type), event)
	}
}

// withEvents wraps a mutation with start, success and failure events. The
// returned count is the number of documents the operation affected.
func (db *Database) withEvents(operation, collection string, fn func() (int, error)) (int, error) {
	start := time.Now()
	db.emit(DocumentEvent{
		Type:       EventType("document:" + operation + ":start"),
		Operation:  operation,
		Collection: collection,
		Timestamp:  start.UnixMilli(),
	})

	count, err := fn()
	duration := time.Since(start).Milliseconds()

	if err != nil {
		errStr := err.Error()
		db.emit(DocumentEvent{
			Type:       EventType("document:" + operation + ":failed"),
			Operation:  operation,
			Collection: collection,
			Error:      &errStr,
			Timestamp:  time.Now().UnixMilli(),
			Duration:   &duration,
		})
		return 0, err
	}

	db.emit(DocumentEvent{
		Type:       EventType("document:" + operation + ":success"),
		Operation:  operation,
		Collection: collection,
		Count:      count,
		Timestamp:  time.Now().UnixMilli(),
		Duration:   &duration,
	})
	return count, nil
}
