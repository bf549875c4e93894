package auth

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/db/models"
)

// Resource scoping for list endpoints. These compute the visible subset in
// bulk with semi-joins instead of per-row evaluator calls, and deliberately
// use a more permissive rule than CanManageFloor: for both admin roles, any
// GlobalPermission row touching the resource's floor (or building, for
// buildings) makes it visible. The divergence from the mutation rules is
// part of the inherited design and is preserved here.
//
// All results are ordered by ascending ID and contain no duplicates even
// when multiple grants match a resource.

// adminScoped reports whether the role participates in admin list scoping.
// Viewer is allowed only where the caller passes includeViewer (the general
// floor listing), never the admin CRUD listings.
func adminScoped(role Role, includeViewer bool) bool {
	switch role {
	case RoleOrgAdmin, RoleSiteAdmin:
		return true
	case RoleViewer:
		return includeViewer
	default:
		return false
	}
}

// grantedFloorIDs is the subquery of floor IDs touched by any grant for the
// given groups.
func (s *Service) grantedFloorIDs(groupIDs []uint64) *gorm.DB {
	return s.db.Model(&models.GlobalPermission{}).
		Select("floor_id").
		Where("group_id IN ?", groupIDs)
}

// ListBuildings returns the buildings visible to the user, ascending by ID.
func (s *Service) ListBuildings(u *AppUser) ([]models.Building, error) {
	var buildings []models.Building

	if u.Role == RoleOwner {
		if err := s.db.Order("id ASC").Find(&buildings).Error; err != nil {
			return nil, fmt.Errorf("failed to list buildings: %w", err)
		}

		return buildings, nil
	}

	if !adminScoped(u.Role, false) || len(u.GroupIDs) == 0 {
		return []models.Building{}, nil
	}

	grantedBuildings := s.db.Model(&models.GlobalPermission{}).
		Select("building_id").
		Where("group_id IN ?", u.GroupIDs)

	err := s.db.Where("id IN (?)", grantedBuildings).
		Order("id ASC").
		Find(&buildings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scoped buildings: %w", err)
	}

	return buildings, nil
}

// ListFloors returns the floors visible to the user with the parent
// building preloaded, ascending by ID. includeViewer widens the allowed
// role set for the general (non-admin) floor listing.
func (s *Service) ListFloors(u *AppUser, includeViewer bool) ([]models.Floor, error) {
	var floors []models.Floor

	if u.Role == RoleOwner {
		if err := s.db.Preload("Building").Order("id ASC").Find(&floors).Error; err != nil {
			return nil, fmt.Errorf("failed to list floors: %w", err)
		}

		return floors, nil
	}

	if !adminScoped(u.Role, includeViewer) || len(u.GroupIDs) == 0 {
		return []models.Floor{}, nil
	}

	err := s.db.Preload("Building").
		Where("id IN (?)", s.grantedFloorIDs(u.GroupIDs)).
		Order("id ASC").
		Find(&floors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scoped floors: %w", err)
	}

	return floors, nil
}

// ListAccessPoints returns the APs on visible floors with the floor
// preloaded, ascending by ID.
func (s *Service) ListAccessPoints(u *AppUser) ([]models.AccessPoint, error) {
	var aps []models.AccessPoint

	if u.Role == RoleOwner {
		if err := s.db.Preload("Floor").Order("id ASC").Find(&aps).Error; err != nil {
			return nil, fmt.Errorf("failed to list access points: %w", err)
		}

		return aps, nil
	}

	if !adminScoped(u.Role, false) || len(u.GroupIDs) == 0 {
		return []models.AccessPoint{}, nil
	}

	err := s.db.Preload("Floor").
		Where("floor_id IN (?)", s.grantedFloorIDs(u.GroupIDs)).
		Order("id ASC").
		Find(&aps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scoped access points: %w", err)
	}

	return aps, nil
}

// ListClientDevices returns the client devices on visible floors with the
// AP and its floor preloaded, ascending by ID.
func (s *Service) ListClientDevices(u *AppUser) ([]models.ClientDevice, error) {
	var devices []models.ClientDevice

	if u.Role == RoleOwner {
		err := s.db.Preload("AP").Preload("AP.Floor").Order("id ASC").Find(&devices).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list client devices: %w", err)
		}

		return devices, nil
	}

	if !adminScoped(u.Role, false) || len(u.GroupIDs) == 0 {
		return []models.ClientDevice{}, nil
	}

	scopedAPs := s.db.Model(&models.AccessPoint{}).
		Select("id").
		Where("floor_id IN (?)", s.grantedFloorIDs(u.GroupIDs))

	err := s.db.Preload("AP").Preload("AP.Floor").
		Where("ap_id IN (?)", scopedAPs).
		Order("id ASC").
		Find(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scoped client devices: %w", err)
	}

	return devices, nil
}

// ListGrants returns the GlobalPermission rows visible to the user with all
// three referents preloaded: every row for an Owner, the rows touching the
// user's own groups for an Org Admin. Any other role sees none (the
// handler translates that to Forbidden).
func (s *Service) ListGrants(u *AppUser) ([]models.GlobalPermission, error) {
	var grants []models.GlobalPermission

	tx := s.db.Preload("Group").Preload("Building").Preload("Floor").Order("id ASC")

	switch u.Role {
	case RoleOwner:
		if err := tx.Find(&grants).Error; err != nil {
			return nil, fmt.Errorf("failed to list grants: %w", err)
		}
	case RoleOrgAdmin:
		if len(u.GroupIDs) == 0 {
			return []models.GlobalPermission{}, nil
		}

		if err := tx.Where("group_id IN ?", u.GroupIDs).Find(&grants).Error; err != nil {
			return nil, fmt.Errorf("failed to list scoped grants: %w", err)
		}
	default:
		return []models.GlobalPermission{}, nil
	}

	return grants, nil
}

// InGroups reports whether the user belongs to the given group. Used by the
// grant create/delete handlers to keep Org Admins inside their own scope.
func (u *AppUser) InGroups(groupID uint64) bool {
	for _, id := range u.GroupIDs {
		if id == groupID {
			return true
		}
	}

	return false
}
