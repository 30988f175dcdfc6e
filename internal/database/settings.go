package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/shortlink/internal/models"
	"github.com/charlesng35/shortlink/pkg/crypto"
)

// AdminSessionSecretSetting stores the secret used to sign admin session
// tokens so restarts do not invalidate outstanding sessions.
const AdminSessionSecretSetting = "admin.session_secret"

const adminSecretBytes = 48

// GetSystemSetting retrieves a system setting by key. Returns an empty string when not found.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("system settings: db is nil")
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Take(&setting, "key = ?", key).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return "", nil
	}
	return "", fmt.Errorf("system settings: get %q: %w", key, err)
}

// UpsertSystemSetting stores or updates a system setting value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return fmt.Errorf("system settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("system settings: key is required")
	}

	record := models.SystemSetting{
		Key:   key,
		Value: value,
	}

	if err := db.WithContext(ctx).
		Where("key = ?", key).
		Assign(map[string]any{"value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", key, err)
	}

	return nil
}

// EnsureAdminSessionSecret resolves the secret used to sign admin session
// tokens. An explicitly configured secret is persisted and wins; otherwise a
// previously stored secret is reused, and a fresh one is generated and stored
// on first start.
func EnsureAdminSessionSecret(ctx context.Context, db *gorm.DB, configured string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured != "" {
		current, err := GetSystemSetting(ctx, db, AdminSessionSecretSetting)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(current) != configured {
			if err := UpsertSystemSetting(ctx, db, AdminSessionSecretSetting, configured); err != nil {
				return "", err
			}
		}
		return configured, nil
	}

	stored, err := GetSystemSetting(ctx, db, AdminSessionSecretSetting)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(stored) != "" {
		return stored, nil
	}

	secret, err := crypto.GenerateToken(adminSecretBytes)
	if err != nil {
		return "", fmt.Errorf("system settings: generate admin session secret: %w", err)
	}
	if err := UpsertSystemSetting(ctx, db, AdminSessionSecretSetting, secret); err != nil {
		return "", err
	}
	return secret, nil
}
