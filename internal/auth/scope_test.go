package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floortrack/floortrack/internal/db/models"
)

func floorIDs(floors []models.Floor) []uint64 {
	ids := make([]uint64, 0, len(floors))
	for _, f := range floors {
		ids = append(ids, f.ID)
	}

	return ids
}

func TestListBuildings(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	g1 := seedGroup(t, db, "G1")
	b1 := seedBuilding(t, db, "B1")
	b2 := seedBuilding(t, db, "B2")
	f1 := seedFloor(t, db, "F1", b1)
	f2 := seedFloor(t, db, "F2", b1)
	seedGrant(t, db, g1, b1, f1)
	seedGrant(t, db, g1, b1, f2) // second grant on the same building

	owner := seedUser(t, db, "owner", models.RoleNameOwner)
	siteAdmin := seedUser(t, db, "site", models.RoleNameSiteAdmin, g1)
	viewer := seedUser(t, db, "viewer", models.RoleNameViewer, g1)
	grouplessAdmin := seedUser(t, db, "groupless", models.RoleNameOrgAdmin)

	all, err := svc.ListBuildings(owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, b1, all[0].ID)
	assert.Equal(t, b2, all[1].ID)

	scoped, err := svc.ListBuildings(siteAdmin)
	require.NoError(t, err)
	// two matching grants must not duplicate the building
	require.Len(t, scoped, 1)
	assert.Equal(t, b1, scoped[0].ID)

	empty, err := svc.ListBuildings(viewer)
	require.NoError(t, err)
	assert.Empty(t, empty, "viewer is excluded from admin listings")

	empty, err = svc.ListBuildings(grouplessAdmin)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListFloors(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	g1 := seedGroup(t, db, "G1")
	b1 := seedBuilding(t, db, "B1")
	f1 := seedFloor(t, db, "F1", b1)
	f2 := seedFloor(t, db, "F2", b1)
	f3 := seedFloor(t, db, "F3", b1)
	seedGrant(t, db, g1, b1, f1)
	seedGrant(t, db, g1, b1, f3)

	owner := seedUser(t, db, "owner", models.RoleNameOwner)
	orgAdmin := seedUser(t, db, "org", models.RoleNameOrgAdmin, g1)
	viewer := seedUser(t, db, "viewer", models.RoleNameViewer, g1)
	pending := seedUser(t, db, "pending", models.RoleNamePending, g1)

	all, err := svc.ListFloors(owner, false)
	require.NoError(t, err)
	assert.Equal(t, []uint64{f1, f2, f3}, floorIDs(all))
	assert.Equal(t, "B1", all[0].Building.Name, "building must be preloaded")

	scoped, err := svc.ListFloors(orgAdmin, false)
	require.NoError(t, err)
	assert.Equal(t, []uint64{f1, f3}, floorIDs(scoped), "ascending ID order")

	// Viewer sees the general listing but not the admin one.
	general, err := svc.ListFloors(viewer, true)
	require.NoError(t, err)
	assert.Equal(t, []uint64{f1, f3}, floorIDs(general))

	adminOnly, err := svc.ListFloors(viewer, false)
	require.NoError(t, err)
	assert.Empty(t, adminOnly)

	none, err := svc.ListFloors(pending, true)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListAccessPointsAndDevices(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	g1 := seedGroup(t, db, "G1")
	b1 := seedBuilding(t, db, "B1")
	f1 := seedFloor(t, db, "F1", b1)
	f2 := seedFloor(t, db, "F2", b1)
	seedGrant(t, db, g1, b1, f1)

	ap1 := seedAP(t, db, "AP-1", f1)
	ap2 := seedAP(t, db, "AP-2", f2)
	d1 := seedClient(t, db, "AA:BB:CC:00:00:01", ap1)
	seedClient(t, db, "AA:BB:CC:00:00:02", ap2)

	siteAdmin := seedUser(t, db, "site", models.RoleNameSiteAdmin, g1)
	owner := seedUser(t, db, "owner", models.RoleNameOwner)

	aps, err := svc.ListAccessPoints(siteAdmin)
	require.NoError(t, err)
	require.Len(t, aps, 1)
	assert.Equal(t, ap1, aps[0].ID)
	assert.Equal(t, b1, aps[0].Floor.BuildingID)

	allAPs, err := svc.ListAccessPoints(owner)
	require.NoError(t, err)
	assert.Len(t, allAPs, 2)

	devices, err := svc.ListClientDevices(siteAdmin)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, d1, devices[0].ID)
	assert.Equal(t, f1, devices[0].AP.FloorID)

	allDevices, err := svc.ListClientDevices(owner)
	require.NoError(t, err)
	assert.Len(t, allDevices, 2)
}

func TestListGrants(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	g1 := seedGroup(t, db, "G1")
	g2 := seedGroup(t, db, "G2")
	b1 := seedBuilding(t, db, "B1")
	f1 := seedFloor(t, db, "F1", b1)
	f2 := seedFloor(t, db, "F2", b1)
	seedGrant(t, db, g1, b1, f1)
	seedGrant(t, db, g2, b1, f2)

	owner := seedUser(t, db, "owner", models.RoleNameOwner)
	orgAdmin := seedUser(t, db, "org", models.RoleNameOrgAdmin, g1)
	siteAdmin := seedUser(t, db, "site", models.RoleNameSiteAdmin, g1)

	all, err := svc.ListGrants(owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "G1", all[0].Group.Name)

	mine, err := svc.ListGrants(orgAdmin)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, g1, mine[0].GroupID)

	none, err := svc.ListGrants(siteAdmin)
	require.NoError(t, err)
	assert.Empty(t, none)
}
