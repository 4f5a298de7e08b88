package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"PaperFeed/internal/domain"
)

// GetSetting returns the stored value and whether the key exists.
func (r *Repository) GetSetting(ctx context.Context, key domain.SettingKey) (string, bool, error) {
	query, args, err := r.sb.Select("value").From("settings").Where(sq.Eq{"name": string(key)}).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build get setting: %w", err)
	}

	var value string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting overwrites the value; last writer wins.
func (r *Repository) SetSetting(ctx context.Context, key domain.SettingKey, value string) error {
	return r.putSetting(ctx, key, value, "ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at")
}

// SetDefaultSetting stores the value only when the key is absent.
func (r *Repository) SetDefaultSetting(ctx context.Context, key domain.SettingKey, value string) error {
	return r.putSetting(ctx, key, value, "ON CONFLICT (name) DO NOTHING")
}

func (r *Repository) putSetting(ctx context.Context, key domain.SettingKey, value, conflict string) error {
	query, args, err := r.sb.Insert("settings").
		Columns("name", "value", "updated_at").
		Values(string(key), value, formatTime(r.now())).
		Suffix(conflict).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set setting: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
