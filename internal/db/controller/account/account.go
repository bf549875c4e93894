// Package account provides the multi-row write operations for user
// accounts: pending-user assignment and account deletion. Each operation is
// atomic; partial application must never be observable.
package account

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/apperr"
	"github.com/floortrack/floortrack/internal/db/models"
)

// IdentityDeleter deletes an account at the external identity provider.
type IdentityDeleter interface {
	DeleteIdentity(ctx context.Context, uid string) error
}

// AssignPendingUser sets the user's role and replaces their entire group
// membership set in one transaction: if any membership insert fails (for
// example a nonexistent group ID), the role update rolls back with it.
func AssignPendingUser(db *gorm.DB, userID, newRoleID uint64, groupIDs []uint64) error {
	if len(groupIDs) == 0 {
		return apperr.New(apperr.InvalidArgument, "roleId and groupIds are required")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var user models.User

		err := tx.Select("id").First(&user, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Wrap(apperr.NotFound, "user not found", err)
		}

		if err != nil {
			return apperr.Wrap(apperr.Internal, "failed to load user", err)
		}

		var role models.Role
		if err := tx.Select("id").First(&role, newRoleID).Error; err != nil {
			return apperr.Wrap(apperr.InvalidArgument, "invalid roleId", err)
		}

		err = tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("role_id", newRoleID).Error
		if err != nil {
			return apperr.Wrap(apperr.Internal, "failed to update role", err)
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.UserGroup{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to clear memberships", err)
		}

		seen := make(map[uint64]bool, len(groupIDs))

		for _, groupID := range groupIDs {
			if seen[groupID] {
				continue
			}

			seen[groupID] = true

			var group models.Group
			if err := tx.Select("id").First(&group, groupID).Error; err != nil {
				return apperr.Wrap(apperr.InvalidArgument, "invalid groupId", err)
			}

			err := tx.Create(&models.UserGroup{UserID: userID, GroupID: groupID}).Error
			if err != nil {
				return apperr.Wrap(apperr.Internal, "failed to add membership", err)
			}
		}

		return nil
	})
}

// Delete removes the user's memberships, registered devices, and the user
// row in one transaction, then requests deletion of the external identity.
// The external deletion is best-effort: it runs only after the internal
// transaction commits, its failure is logged as an inconsistency, and it
// never fails the caller. Deleting an identity with no user row is not an
// error — the provider account is still cleaned up if it exists.
func Delete(ctx context.Context, db *gorm.DB, provider IdentityDeleter, uid string) error {
	var user models.User

	err := db.Select("id").Where("firebase_uid = ?", uid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		deleteIdentity(ctx, provider, uid)
		return nil
	}

	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to load user", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserGroup{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserDevice{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, user.ID).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete account", err)
	}

	deleteIdentity(ctx, provider, uid)

	return nil
}

func deleteIdentity(ctx context.Context, provider IdentityDeleter, uid string) {
	if provider == nil {
		return
	}

	if err := provider.DeleteIdentity(ctx, uid); err != nil {
		log.Error().Err(err).Str("uid", uid).
			Msg("external identity deletion failed; provider account may be orphaned")
	}
}
