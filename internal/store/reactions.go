// internal/store/reactions.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mfjones/chatter/internal/db"
)

// ReactionGroup is the aggregate view of one emoji on a message.
type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

type ReactionStore struct {
	db *db.DB
}

func NewReactionStore(database *db.DB) *ReactionStore {
	return &ReactionStore{db: database}
}

// Toggle adds the (user, message, emoji) reaction if absent and removes it if
// present, in one transaction. Returns true when the reaction was added.
// The UNIQUE(user_id, message_id, emoji) constraint backs up the check-then-act
// sequence; the mutation coordinator additionally serializes per message id.
func (s *ReactionStore) Toggle(ctx context.Context, messageID, userID, emoji string) (added bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM reactions WHERE message_id = ? AND user_id = ? AND emoji = ?
	`, messageID, userID, emoji).Scan(&existingID)

	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reactions (message_id, user_id, emoji, created_at) VALUES (?, ?, ?, ?)
		`, messageID, userID, emoji, nowUTC()); err != nil {
			return false, fmt.Errorf("failed to add reaction: %w", err)
		}
		added = true
	case err != nil:
		return false, fmt.Errorf("failed to look up reaction: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `DELETE FROM reactions WHERE id = ?`, existingID); err != nil {
			return false, fmt.Errorf("failed to remove reaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return added, nil
}

// Remove deletes the (user, message, emoji) reaction if present. Returns true
// when a row was actually removed; removing an absent reaction is a no-op.
func (s *ReactionStore) Remove(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND emoji = ?
	`, messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("failed to remove reaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ListByRoom returns every live message's reaction groups in one query,
// keyed by message id. Used to hydrate history without a query per message.
func (s *ReactionStore) ListByRoom(ctx context.Context, roomID string) (map[string][]ReactionGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.message_id, r.emoji, r.user_id
		FROM reactions r JOIN messages m ON m.id = r.message_id
		WHERE m.room_id = ? AND m.deleted_at IS NULL
		ORDER BY r.created_at, r.id
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room reactions: %w", err)
	}
	defer rows.Close()

	type groupKey struct{ messageID, emoji string }
	byKey := map[groupKey]*ReactionGroup{}
	var orderedMsgs []string
	order := map[string][]string{}
	for rows.Next() {
		var messageID, emoji, userID string
		if err := rows.Scan(&messageID, &emoji, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		key := groupKey{messageID: messageID, emoji: emoji}
		g, ok := byKey[key]
		if !ok {
			g = &ReactionGroup{Emoji: emoji}
			byKey[key] = g
			if len(order[messageID]) == 0 {
				orderedMsgs = append(orderedMsgs, messageID)
			}
			order[messageID] = append(order[messageID], emoji)
		}
		g.Count++
		g.Users = append(g.Users, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]ReactionGroup, len(orderedMsgs))
	for _, messageID := range orderedMsgs {
		for _, emoji := range order[messageID] {
			out[messageID] = append(out[messageID], *byKey[groupKey{messageID: messageID, emoji: emoji}])
		}
	}
	return out, nil
}

// ListByMessage returns reactions grouped by emoji with the reacting user ids.
func (s *ReactionStore) ListByMessage(ctx context.Context, messageID string) ([]ReactionGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT emoji, user_id FROM reactions WHERE message_id = ? ORDER BY created_at, id
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}
	defer rows.Close()

	var order []string
	byEmoji := map[string]*ReactionGroup{}
	for rows.Next() {
		var emoji, userID string
		if err := rows.Scan(&emoji, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		g, ok := byEmoji[emoji]
		if !ok {
			g = &ReactionGroup{Emoji: emoji}
			byEmoji[emoji] = g
			order = append(order, emoji)
		}
		g.Count++
		g.Users = append(g.Users, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups := make([]ReactionGroup, 0, len(order))
	for _, emoji := range order {
		groups = append(groups, *byEmoji[emoji])
	}
	return groups, nil
}
