package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/classroom-portal/internal/apperror"
	"github.com/sakif/classroom-portal/internal/model"
	"github.com/sakif/classroom-portal/internal/repository"
)

// DirectoryService is the business logic behind the admin listing and the
// per-user settings endpoints. Authorization happens before it is called (the
// role gate), but scoping happens here: settings operations only ever touch
// the record belonging to the userId the caller proved ownership of.
type DirectoryService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewDirectoryService creates a DirectoryService.
func NewDirectoryService(users repository.UserRepository, logger *slog.Logger) *DirectoryService {
	return &DirectoryService{users: users, logger: logger}
}

// Students lists every student record. Staff-only at the route level.
func (s *DirectoryService) Students(ctx context.Context) ([]model.User, error) {
	students, err := s.users.FindAllByRole(ctx, model.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("service/directory: listing students: %w", err)
	}
	if students == nil {
		students = []model.User{}
	}
	return students, nil
}

// Student fetches a single student record by id. Rows that exist but are not
// students are reported as not found: this is a student-detail view, staff
// records are not exposed through it.
func (s *DirectoryService) Student(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "student id is required")
	}

	user, err := s.users.FindByUserID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/directory: fetching student %s: %w", id, err)
	}
	if user.Role != model.RoleStudent {
		return nil, apperror.NotFound("student", id)
	}
	return user, nil
}

// Settings returns the caller's stored settings as a JSON document.
// An empty or corrupt settings cell degrades to "{}" rather than erroring —
// settings are user preferences, and a hand-edited cell must not lock the
// account out of the settings page.
func (s *DirectoryService) Settings(ctx context.Context, userID string) (json.RawMessage, error) {
	user, err := s.users.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/directory: fetching settings for %s: %w", userID, err)
	}

	raw := []byte(user.SettingsJSON)
	if len(raw) == 0 || !json.Valid(raw) {
		if len(raw) > 0 {
			s.logger.Warn("discarding invalid settings blob",
				slog.String("userID", userID),
			)
		}
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(raw), nil
}

// UpdateSettings validates and stores the caller's settings document.
func (s *DirectoryService) UpdateSettings(ctx context.Context, userID string, settings json.RawMessage) error {
	if len(settings) == 0 || !json.Valid(settings) {
		return apperror.ValidationFailed("settings", "settings must be a valid JSON document")
	}

	if err := s.users.UpdateSettings(ctx, userID, string(settings)); err != nil {
		return fmt.Errorf("service/directory: updating settings for %s: %w", userID, err)
	}
	return nil
}

// isNotFound reports whether err is (or wraps) the not-found sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
