package auth

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/db/models"
)

// CanManageBuilding decides whether the user may create/update/delete
// scoped children under the building.
//
// Owner: always true, with no existence check on the building. Org Admin
// and Site Admin: true iff a GlobalPermission row touches the building and
// one of the user's groups. Every other role: false. An empty group set
// short-circuits to false without touching the store.
func (s *Service) CanManageBuilding(u *AppUser, buildingID uint64) (bool, error) {
	if u == nil {
		return false, nil
	}

	if u.Role == RoleOwner {
		return true, nil
	}

	if len(u.GroupIDs) == 0 {
		return false, nil
	}

	switch u.Role {
	case RoleOrgAdmin, RoleSiteAdmin:
		var count int64

		err := s.db.Model(&models.GlobalPermission{}).
			Where("building_id = ? AND group_id IN ?", buildingID, u.GroupIDs).
			Count(&count).Error
		if err != nil {
			return false, fmt.Errorf("failed to check building grant: %w", err)
		}

		log.Debug().Uint64("user_id", u.User.ID).Uint64("building_id", buildingID).
			Bool("allowed", count > 0).Msg("canManageBuilding decision")

		return count > 0, nil
	default:
		return false, nil
	}
}

// CanManageFloor decides whether the user may manage the floor.
//
// Owner: always true. The floor is looked up before role branching; a
// nonexistent floor is unmanageable for every non-Owner role. Org Admin is
// strict: only a floor-level grant suffices. Site Admin is building-derived:
// any grant on the floor's parent building suffices. The asymmetry is
// deliberate — Org Admins are granted floor-by-floor while Site Admins
// administer whole buildings — and both grant shapes live in the same
// GlobalPermission table, so the matching rule must branch on role.
func (s *Service) CanManageFloor(u *AppUser, floorID uint64) (bool, error) {
	if u == nil {
		return false, nil
	}

	if u.Role == RoleOwner {
		return true, nil
	}

	var floor models.Floor

	err := s.db.Select("id", "building_id").First(&floor, floorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to load floor: %w", err)
	}

	if len(u.GroupIDs) == 0 {
		return false, nil
	}

	var count int64

	switch u.Role {
	case RoleOrgAdmin:
		err = s.db.Model(&models.GlobalPermission{}).
			Where("floor_id = ? AND group_id IN ?", floor.ID, u.GroupIDs).
			Count(&count).Error
		if err != nil {
			return false, fmt.Errorf("failed to check floor grant: %w", err)
		}

		log.Debug().Uint64("user_id", u.User.ID).Uint64("floor_id", floorID).
			Bool("allowed", count > 0).Str("rule", "strict-floor").Msg("canManageFloor decision")

		return count > 0, nil
	case RoleSiteAdmin:
		err = s.db.Model(&models.GlobalPermission{}).
			Where("building_id = ? AND group_id IN ?", floor.BuildingID, u.GroupIDs).
			Count(&count).Error
		if err != nil {
			return false, fmt.Errorf("failed to check building-derived grant: %w", err)
		}

		log.Debug().Uint64("user_id", u.User.ID).Uint64("floor_id", floorID).
			Uint64("via_building_id", floor.BuildingID).
			Bool("allowed", count > 0).Str("rule", "building-derived").Msg("canManageFloor decision")

		return count > 0, nil
	default:
		return false, nil
	}
}

// CanViewFloor enforces the uniformly strict read rule used by the floor
// detail, floor-building, and per-floor stats endpoints: Owner passes
// unconditionally; every other role needs a grant on that exact floor for
// one of its groups. There is no building-derived fallback on this path,
// regardless of role.
func (s *Service) CanViewFloor(u *AppUser, floorID uint64) (bool, error) {
	if u == nil {
		return false, nil
	}

	if u.Role == RoleOwner {
		return true, nil
	}

	if len(u.GroupIDs) == 0 {
		return false, nil
	}

	var count int64

	err := s.db.Model(&models.GlobalPermission{}).
		Where("floor_id = ? AND group_id IN ?", floorID, u.GroupIDs).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check floor grant: %w", err)
	}

	return count > 0, nil
}
