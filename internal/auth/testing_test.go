package auth

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database with the full schema and
// the seeded role set.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.Role{},
		&models.Group{},
		&models.User{},
		&models.UserGroup{},
		&models.Building{},
		&models.Floor{},
		&models.AccessPoint{},
		&models.ClientDevice{},
		&models.UserDevice{},
		&models.GlobalPermission{},
	)
	require.NoError(t, err, "failed to migrate test database")

	for _, name := range []string{
		models.RoleNameOwner,
		models.RoleNameOrgAdmin,
		models.RoleNameSiteAdmin,
		models.RoleNameViewer,
		models.RoleNamePending,
	} {
		require.NoError(t, db.Create(&models.Role{Name: name}).Error)
	}

	return db
}

func roleID(t *testing.T, db *gorm.DB, name string) uint64 {
	t.Helper()

	var role models.Role
	require.NoError(t, db.Where("name = ?", name).First(&role).Error)

	return role.ID
}

// seedUser creates a user with the given role and group memberships and
// returns it resolved.
func seedUser(t *testing.T, db *gorm.DB, uid, roleName string, groupIDs ...uint64) *AppUser {
	t.Helper()

	user := models.User{
		FirebaseUID: uid,
		Email:       uid + "@example.com",
		RoleID:      roleID(t, db, roleName),
	}
	require.NoError(t, db.Create(&user).Error)

	for _, gid := range groupIDs {
		require.NoError(t, db.Create(&models.UserGroup{UserID: user.ID, GroupID: gid}).Error)
	}

	resolved, err := NewService(db).Resolve(uid)
	require.NoError(t, err)

	return resolved
}

func seedGroup(t *testing.T, db *gorm.DB, name string) uint64 {
	t.Helper()

	group := models.Group{Name: name}
	require.NoError(t, db.Create(&group).Error)

	return group.ID
}

func seedBuilding(t *testing.T, db *gorm.DB, name string) uint64 {
	t.Helper()

	building := models.Building{Name: name}
	require.NoError(t, db.Create(&building).Error)

	return building.ID
}

func seedFloor(t *testing.T, db *gorm.DB, name string, buildingID uint64) uint64 {
	t.Helper()

	floor := models.Floor{Name: name, BuildingID: buildingID, SvgMap: "<svg/>"}
	require.NoError(t, db.Create(&floor).Error)

	return floor.ID
}

func seedGrant(t *testing.T, db *gorm.DB, groupID, buildingID, floorID uint64) {
	t.Helper()

	require.NoError(t, db.Create(&models.GlobalPermission{
		GroupID:    groupID,
		BuildingID: buildingID,
		FloorID:    floorID,
	}).Error)
}

func seedAP(t *testing.T, db *gorm.DB, name string, floorID uint64) uint64 {
	t.Helper()

	ap := models.AccessPoint{Name: name, Cx: 1, Cy: 2, FloorID: floorID}
	require.NoError(t, db.Create(&ap).Error)

	return ap.ID
}

func seedClient(t *testing.T, db *gorm.DB, mac string, apID uint64) uint64 {
	t.Helper()

	device := models.ClientDevice{Mac: models.NormalizeMac(mac), APID: apID}
	require.NoError(t, db.Create(&device).Error)

	return device.ID
}
