package auth

import (
	"errors"

	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/apperr"
	"github.com/floortrack/floortrack/internal/db/models"
)

// Resolve maps an authenticated external identity UID to the application
// user, eagerly including the role name and group memberships. Returns an
// apperr.NotFound error when no user row matches the UID — the caller must
// treat that as unauthenticated-for-app-purposes, distinct from an invalid
// token (rejected upstream). No side effects.
func (s *Service) Resolve(uid string) (*AppUser, error) {
	if uid == "" {
		return nil, apperr.New(apperr.Unauthenticated, "missing identity")
	}

	var user models.User

	err := s.db.
		Preload("Role").
		Preload("UserGroups", func(db *gorm.DB) *gorm.DB {
			return db.Order("group_id ASC")
		}).
		Where("firebase_uid = ?", uid).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.NotFound, "user not found", err)
	}

	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load user", err)
	}

	return &AppUser{
		User:     user,
		Role:     ParseRole(user.Role.Name),
		GroupIDs: user.GroupIDs(),
	}, nil
}

// ResolveByID loads the application user by internal ID instead of the
// external UID. Used by identity-bound lookups such as ap-connection.
func (s *Service) ResolveByID(id uint64) (*AppUser, error) {
	var user models.User

	err := s.db.
		Preload("Role").
		Preload("UserGroups", func(db *gorm.DB) *gorm.DB {
			return db.Order("group_id ASC")
		}).
		First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.NotFound, "user not found", err)
	}

	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load user", err)
	}

	return &AppUser{
		User:     user,
		Role:     ParseRole(user.Role.Name),
		GroupIDs: user.GroupIDs(),
	}, nil
}
