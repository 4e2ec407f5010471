package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/recap/internal/core/domain"
)

// SaveMessage stores a delivered summary so a later postback can reuse
// it. Entries expire after 24 hours.
func (c *Client) SaveMessage(ctx context.Context, msg domain.StoredMessage) error {
	if c.rdb == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.pruneLocked(time.Now())
		c.messages[msg.ID] = memEntry{msg: msg, expiresAt: time.Now().Add(messageTTL)}
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal stored message: %w", err)
	}
	if err := c.rdb.Set(ctx, messageKey(msg.ID), payload, messageTTL).Err(); err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// GetMessage retrieves a stored summary by message ID.
func (c *Client) GetMessage(ctx context.Context, id string) (domain.StoredMessage, bool, error) {
	if c.rdb == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		entry, ok := c.messages[id]
		if !ok || time.Now().After(entry.expiresAt) {
			return domain.StoredMessage{}, false, nil
		}
		return entry.msg, true, nil
	}

	payload, err := c.rdb.Get(ctx, messageKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.StoredMessage{}, false, nil
	}
	if err != nil {
		return domain.StoredMessage{}, false, fmt.Errorf("get message: %w", err)
	}

	var msg domain.StoredMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return domain.StoredMessage{}, false, fmt.Errorf("unmarshal stored message: %w", err)
	}
	return msg, true, nil
}

// pruneLocked drops expired fallback entries. Caller must hold c.mu.
func (c *Client) pruneLocked(now time.Time) {
	for id, entry := range c.messages {
		if now.After(entry.expiresAt) {
			delete(c.messages, id)
		}
	}
}
