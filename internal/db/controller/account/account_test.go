package account

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/apperr"
	"github.com/floortrack/floortrack/internal/db/models"
)

type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) DeleteIdentity(_ context.Context, uid string) error {
	f.deleted = append(f.deleted, uid)
	return f.err
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Role{},
		&models.Group{},
		&models.User{},
		&models.UserGroup{},
		&models.UserDevice{},
	))

	for _, name := range []string{
		models.RoleNameOwner,
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

func seedPendingUser(t *testing.T, db *gorm.DB, uid string) models.User {
	t.Helper()

	user := models.User{
		FirebaseUID: uid,
		Email:       uid + "@example.com",
		RoleID:      roleID(t, db, models.RoleNamePending),
	}
	require.NoError(t, db.Create(&user).Error)

	return user
}

func TestAssignPendingUser(t *testing.T) {
	db := setupTestDB(t)
	user := seedPendingUser(t, db, "uid-1")

	g1 := models.Group{Name: "G1"}
	g2 := models.Group{Name: "G2"}
	require.NoError(t, db.Create(&g1).Error)
	require.NoError(t, db.Create(&g2).Error)

	viewer := roleID(t, db, models.RoleNameViewer)

	err := AssignPendingUser(db, user.ID, viewer, []uint64{g1.ID, g2.ID, g1.ID})
	require.NoError(t, err)

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, viewer, updated.RoleID)

	var memberships []models.UserGroup
	require.NoError(t, db.Where("user_id = ?", user.ID).Order("group_id").Find(&memberships).Error)
	require.Len(t, memberships, 2, "duplicate group IDs collapse to one membership")
	assert.Equal(t, g1.ID, memberships[0].GroupID)
	assert.Equal(t, g2.ID, memberships[1].GroupID)
}

func TestAssignPendingUserReplacesMemberships(t *testing.T) {
	db := setupTestDB(t)
	user := seedPendingUser(t, db, "uid-1")

	g1 := models.Group{Name: "G1"}
	g2 := models.Group{Name: "G2"}
	require.NoError(t, db.Create(&g1).Error)
	require.NoError(t, db.Create(&g2).Error)
	require.NoError(t, db.Create(&models.UserGroup{UserID: user.ID, GroupID: g1.ID}).Error)

	require.NoError(t, AssignPendingUser(db, user.ID, roleID(t, db, models.RoleNameViewer), []uint64{g2.ID}))

	var memberships []models.UserGroup
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&memberships).Error)
	require.Len(t, memberships, 1)
	assert.Equal(t, g2.ID, memberships[0].GroupID)
}

func TestAssignPendingUserAtomicity(t *testing.T) {
	db := setupTestDB(t)
	user := seedPendingUser(t, db, "uid-1")

	g1 := models.Group{Name: "G1"}
	require.NoError(t, db.Create(&g1).Error)
	require.NoError(t, db.Create(&models.UserGroup{UserID: user.ID, GroupID: g1.ID}).Error)

	// Second group ID does not exist: the whole assignment must roll back,
	// including the role update and the membership wipe.
	err := AssignPendingUser(db, user.ID, roleID(t, db, models.RoleNameViewer), []uint64{g1.ID, 999})
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	var after models.User
	require.NoError(t, db.First(&after, user.ID).Error)
	assert.Equal(t, roleID(t, db, models.RoleNamePending), after.RoleID, "role update must roll back")

	var memberships []models.UserGroup
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&memberships).Error)
	require.Len(t, memberships, 1, "original membership must survive the rollback")
	assert.Equal(t, g1.ID, memberships[0].GroupID)
}

func TestAssignPendingUserValidation(t *testing.T) {
	db := setupTestDB(t)
	user := seedPendingUser(t, db, "uid-1")

	err := AssignPendingUser(db, user.ID, roleID(t, db, models.RoleNameViewer), nil)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	err = AssignPendingUser(db, 999, roleID(t, db, models.RoleNameViewer), []uint64{1})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	err = AssignPendingUser(db, user.ID, 999, []uint64{1})
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	user := seedPendingUser(t, db, "uid-1")

	g1 := models.Group{Name: "G1"}
	require.NoError(t, db.Create(&g1).Error)
	require.NoError(t, db.Create(&models.UserGroup{UserID: user.ID, GroupID: g1.ID}).Error)
	require.NoError(t, db.Create(&models.UserDevice{UserID: user.ID, Name: "Laptop", Mac: "aa:bb:cc:dd:ee:ff"}).Error)

	deleter := &fakeDeleter{}
	require.NoError(t, Delete(context.Background(), db, deleter, "uid-1"))

	var users, memberships, devices int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.UserGroup{}).Count(&memberships).Error)
	require.NoError(t, db.Model(&models.UserDevice{}).Count(&devices).Error)
	assert.Zero(t, users)
	assert.Zero(t, memberships)
	assert.Zero(t, devices)

	assert.Equal(t, []string{"uid-1"}, deleter.deleted)
}

func TestDeleteIdempotent(t *testing.T) {
	db := setupTestDB(t)

	deleter := &fakeDeleter{}
	require.NoError(t, Delete(context.Background(), db, deleter, "ghost"))
	assert.Equal(t, []string{"ghost"}, deleter.deleted, "provider cleanup still runs without a user row")
}

func TestDeleteSurvivesProviderFailure(t *testing.T) {
	db := setupTestDB(t)
	seedPendingUser(t, db, "uid-1")

	deleter := &fakeDeleter{err: errors.New("provider down")}
	require.NoError(t, Delete(context.Background(), db, deleter, "uid-1"))

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users, "internal deletion commits even when the provider call fails")
}
