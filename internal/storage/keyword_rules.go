package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/model"
)

const keywordRuleColumns = `id, pattern, category, priority, is_regex, is_active, created_at, updated_at`

// GetActiveKeywordRules returns the active rules, highest priority first.
func (s *SQLiteStorage) GetActiveKeywordRules(ctx context.Context) ([]model.KeywordRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryKeywordRules(ctx, `
		SELECT `+keywordRuleColumns+`
		FROM keyword_rules
		WHERE is_active = 1
		ORDER BY priority DESC, id ASC
	`)
}

// ListKeywordRules returns stored rules, optionally including inactive ones.
func (s *SQLiteStorage) ListKeywordRules(ctx context.Context, includeInactive bool) ([]model.KeywordRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + keywordRuleColumns + ` FROM keyword_rules`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY priority DESC, id ASC`
	return s.queryKeywordRules(ctx, query)
}

// GetKeywordRule returns one rule by ID.
func (s *SQLiteStorage) GetKeywordRule(ctx context.Context, id int) (*model.KeywordRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var rule model.KeywordRule
	err := s.db.QueryRowContext(ctx, `SELECT `+keywordRuleColumns+` FROM keyword_rules WHERE id = ?`, id).Scan(
		&rule.ID, &rule.Pattern, &rule.Category, &rule.Priority,
		&rule.IsRegex, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("keyword rule %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get keyword rule: %w", err)
	}
	return &rule, nil
}

// CreateKeywordRule inserts rule and sets its ID and timestamps.
func (s *SQLiteStorage) CreateKeywordRule(ctx context.Context, rule *model.KeywordRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateKeywordRule(rule); err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO keyword_rules (pattern, category, priority, is_regex, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rule.Pattern, rule.Category, rule.Priority, rule.IsRegex, rule.IsActive, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("keyword rule %q -> %q: %w", rule.Pattern, rule.Category, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to create keyword rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get keyword rule ID: %w", err)
	}

	rule.ID = int(id)
	rule.CreatedAt = now
	rule.UpdatedAt = now
	return nil
}

// DeactivateKeywordRule marks a rule inactive.
func (s *SQLiteStorage) DeactivateKeywordRule(ctx context.Context, id int) error {
	return s.updateKeywordRule(ctx, id, `is_active = 0`)
}

// UpdateKeywordRulePriority changes a rule's priority.
func (s *SQLiteStorage) UpdateKeywordRulePriority(ctx context.Context, id, priority int) error {
	if priority < config.MinRulePriority || priority > config.MaxRulePriority {
		return fmt.Errorf("%w: priority %d outside %d-%d", ErrInvalidRule, priority, config.MinRulePriority, config.MaxRulePriority)
	}
	return s.updateKeywordRule(ctx, id, `priority = ?`, priority)
}

func (s *SQLiteStorage) updateKeywordRule(ctx context.Context, id int, set string, args ...any) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	args = append(args, time.Now().UTC(), id)
	result, err := s.db.ExecContext(ctx,
		`UPDATE keyword_rules SET `+set+`, updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update keyword rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("keyword rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) queryKeywordRules(ctx context.Context, query string, args ...any) ([]model.KeywordRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query keyword rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.KeywordRule
	for rows.Next() {
		var rule model.KeywordRule
		if err := rows.Scan(
			&rule.ID, &rule.Pattern, &rule.Category, &rule.Priority,
			&rule.IsRegex, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan keyword rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keyword rules: %w", err)
	}
	return rules, nil
}
