package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/w2w-movies/w2w/internal/domain"
)

// Une seule ligne: les réglages sont globaux à l'instance.
const settingsKey = "default"

type SettingsRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db, now: time.Now}
}

// Get renvoie les valeurs par défaut tant que rien n'a été enregistré. Un
// document écrit par une version antérieure garde les défauts des champs
// qu'il ne connaît pas.
func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT value_json FROM settings WHERE key = ?`, settingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("settings: %w", err)
	}
	return decodeSettings(raw)
}

// Put écrit le document et relit la valeur stockée dans la même requête.
func (r *SettingsRepository) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	doc, err := json.Marshal(settings)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("settings: encode: %w", err)
	}
	var stored []byte
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO settings(key, value_json, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
		RETURNING value_json
	`, settingsKey, doc, r.now().UTC().Format(time.RFC3339Nano)).Scan(&stored)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("settings: %w", err)
	}
	return decodeSettings(stored)
}

func decodeSettings(raw []byte) (domain.Settings, error) {
	s := domain.DefaultSettings()
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Settings{}, fmt.Errorf("settings: decode stored document: %w", err)
	}
	return s, nil
}
