package toml

import (
	"fmt"
	"time"

	"github.com/weedrice/whiteboard-cli/internal/domain"
	"github.com/weedrice/whiteboard-cli/internal/ports"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version      int         `toml:"version"`
	User         *userSchema `toml:"user,omitempty"`
	LastSyncedAt time.Time   `toml:"last_synced_at,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported session schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type userSchema struct {
	UserID          int64     `toml:"user_id"`
	DisplayName     string    `toml:"display_name"`
	Email           string    `toml:"email"`
	ProfileImageURL string    `toml:"profile_image_url,omitempty"`
	Role            string    `toml:"role"`
	Status          string    `toml:"status"`
	CreatedAt       time.Time `toml:"created_at"`
}

func toSchema(snapshot ports.SessionSnapshot) fileSchema {
	file := fileSchema{
		Version:      currentSchemaVersion,
		LastSyncedAt: snapshot.LastSyncedAt,
	}
	if snapshot.User != nil {
		file.User = &userSchema{
			UserID:          snapshot.User.UserID,
			DisplayName:     snapshot.User.DisplayName,
			Email:           snapshot.User.Email,
			ProfileImageURL: snapshot.User.ProfileImageURL,
			Role:            string(snapshot.User.Role),
			Status:          string(snapshot.User.Status),
			CreatedAt:       snapshot.User.CreatedAt,
		}
	}

	return file
}

func fromSchema(file fileSchema) ports.SessionSnapshot {
	snapshot := ports.SessionSnapshot{LastSyncedAt: file.LastSyncedAt}
	if file.User != nil {
		snapshot.User = &domain.User{
			UserID:          file.User.UserID,
			DisplayName:     file.User.DisplayName,
			Email:           file.User.Email,
			ProfileImageURL: file.User.ProfileImageURL,
			Role:            domain.UserRole(file.User.Role),
			Status:          domain.UserStatus(file.User.Status),
			CreatedAt:       file.User.CreatedAt,
		}
	}

	return snapshot
}
