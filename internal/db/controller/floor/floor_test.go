package floor

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/apperr"
	"github.com/floortrack/floortrack/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Group{},
		&models.Building{},
		&models.Floor{},
		&models.AccessPoint{},
		&models.GlobalPermission{},
	))

	return db
}

func TestCreateWithGrant(t *testing.T) {
	db := setupTestDB(t)

	group := models.Group{Name: "G1"}
	require.NoError(t, db.Create(&group).Error)

	building := models.Building{Name: "B1"}
	require.NoError(t, db.Create(&building).Error)

	created, err := CreateWithGrant(db, "F1", "<svg/>", building.ID, []uint64{group.ID})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, building.ID, created.BuildingID)

	var grant models.GlobalPermission
	require.NoError(t, db.Where("floor_id = ?", created.ID).First(&grant).Error)
	assert.Equal(t, group.ID, grant.GroupID)
	assert.Equal(t, building.ID, grant.BuildingID)
}

func TestCreateWithGrantGroupless(t *testing.T) {
	db := setupTestDB(t)

	building := models.Building{Name: "B1"}
	require.NoError(t, db.Create(&building).Error)

	created, err := CreateWithGrant(db, "F1", "", building.ID, nil)
	require.NoError(t, err)

	var grants int64
	require.NoError(t, db.Model(&models.GlobalPermission{}).Count(&grants).Error)
	assert.Zero(t, grants, "no seeding grant without a membership")
	assert.NotZero(t, created.ID)
}

func TestCreateWithGrantMissingBuilding(t *testing.T) {
	db := setupTestDB(t)

	_, err := CreateWithGrant(db, "F1", "", 12345, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	var floors int64
	require.NoError(t, db.Model(&models.Floor{}).Count(&floors).Error)
	assert.Zero(t, floors)
}

func TestCreateWithGrantRollsBack(t *testing.T) {
	db := setupTestDB(t)

	building := models.Building{Name: "B1"}
	require.NoError(t, db.Create(&building).Error)

	// Remove the grant table so the second insert of the transaction fails.
	require.NoError(t, db.Migrator().DropTable(&models.GlobalPermission{}))

	_, err := CreateWithGrant(db, "F1", "", building.ID, []uint64{1})
	require.Error(t, err)

	var floors int64
	require.NoError(t, db.Model(&models.Floor{}).Count(&floors).Error)
	assert.Zero(t, floors, "floor insert must roll back with the grant")
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)

	group := models.Group{Name: "G1"}
	require.NoError(t, db.Create(&group).Error)

	building := models.Building{Name: "B1"}
	require.NoError(t, db.Create(&building).Error)

	created, err := CreateWithGrant(db, "F1", "", building.ID, []uint64{group.ID})
	require.NoError(t, err)

	ap := models.AccessPoint{Name: "AP-1", FloorID: created.ID}
	require.NoError(t, db.Create(&ap).Error)

	err = Delete(db, created.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	require.NoError(t, db.Delete(&models.AccessPoint{}, ap.ID).Error)
	require.NoError(t, Delete(db, created.ID))

	var grants int64
	require.NoError(t, db.Model(&models.GlobalPermission{}).Count(&grants).Error)
	assert.Zero(t, grants, "grants on the floor are removed with it")

	err = Delete(db, created.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
