package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentcore/guardcore/pkg/rules"
)

type ruleSource struct {
	db *sql.DB
}

// NewRuleSource returns a rules.Source backed by client's connection pool.
func NewRuleSource(client *Client) rules.Source {
	return &ruleSource{db: client.db}
}

func (s *ruleSource) List(ctx context.Context) ([]rules.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, enabled, priority, pattern, action, created_at
		FROM guard_rules
	`)
	if err != nil {
		return nil, fmt.Errorf("list guard rules: %w", err)
	}
	defer rows.Close()

	var out []rules.Rule
	for rows.Next() {
		var r rules.Rule
		if err := rows.Scan(&r.ID, &r.Name, &r.Enabled, &r.Priority, &r.Pattern, &r.Action, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan guard rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertRule inserts or updates a guard rule and bumps bus so every
// stage's rule cache is invalidated on next read.
func UpsertRule(ctx context.Context, client *Client, bus *rules.InvalidationBus, r rules.Rule) error {
	_, err := client.db.ExecContext(ctx, `
		INSERT INTO guard_rules (id, name, enabled, priority, pattern, action)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			enabled = EXCLUDED.enabled,
			priority = EXCLUDED.priority,
			pattern = EXCLUDED.pattern,
			action = EXCLUDED.action,
			updated_at = now()
	`, r.ID, r.Name, r.Enabled, r.Priority, r.Pattern, r.Action)
	if err != nil {
		return fmt.Errorf("upsert guard rule %s: %w", r.ID, err)
	}
	bus.Bump()
	return nil
}
