// Package floor provides the multi-row write operations for floors. Floor
// creation seeds the creator's first group with a grant on the new floor,
// and both inserts commit together or not at all.
package floor

import (
	"errors"

	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/apperr"
	"github.com/floortrack/floortrack/internal/db/models"
)

// CreateWithGrant inserts the floor and, when the creating user belongs to
// at least one group, a seeding GlobalPermission row binding the floor's
// building, the floor, and the user's first group (memberships are in
// ascending group-ID order, so "first" is stable). The parent building must
// exist.
func CreateWithGrant(db *gorm.DB, name, svgMap string, buildingID uint64, creatorGroupIDs []uint64) (*models.Floor, error) {
	var building models.Building

	err := db.Select("id").First(&building, buildingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.NotFound, "building not found", err)
	}

	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load building", err)
	}

	created := models.Floor{
		Name:       name,
		SvgMap:     svgMap,
		BuildingID: buildingID,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		if len(creatorGroupIDs) == 0 {
			return nil
		}

		return tx.Create(&models.GlobalPermission{
			GroupID:    creatorGroupIDs[0],
			BuildingID: buildingID,
			FloorID:    created.ID,
		}).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "floor not found", "floor already exists")
	}

	return &created, nil
}

// Delete removes the floor. Deletion is rejected with Conflict while access
// points still reference the floor, so a floor must be emptied before it
// can be removed.
func Delete(db *gorm.DB, floorID uint64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var floor models.Floor

		err := tx.Select("id").First(&floor, floorID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Wrap(apperr.NotFound, "floor not found", err)
		}

		if err != nil {
			return apperr.Wrap(apperr.Internal, "failed to load floor", err)
		}

		var children int64
		if err := tx.Model(&models.AccessPoint{}).Where("floor_id = ?", floorID).Count(&children).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to count access points", err)
		}

		if children > 0 {
			return apperr.New(apperr.Conflict, "floor still has access points")
		}

		// Grants referencing the floor go with it.
		if err := tx.Where("floor_id = ?", floorID).Delete(&models.GlobalPermission{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "failed to delete grants", err)
		}

		return tx.Delete(&models.Floor{}, floorID).Error
	})
}
