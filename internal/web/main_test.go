package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/models"
	"github.com/floortrack/floortrack/internal/identity"
	websess "github.com/floortrack/floortrack/internal/web/session"
)

// testStorage is a minimal in-memory implementation of storage.Storage.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Storage = (*testStorage)(nil)

func (s *testStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *testStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string][]byte)
	}

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *testStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *testStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *testStorage) Close() error { return nil }

func newTestConfig() *config.Config {
	return &config.Config{
		DevMode: true,
		Webserver: config.Webserver{
			URL:          "http://localhost:8080",
			Port:         8080,
			ShutDownTime: 1,
			Session:      config.Session{ExpiryTime: time.Minute},
		},
	}
}

// newTestService builds a full application instance on an in-memory
// database with the local identity provider and seeded roles.
func newTestService(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to open test database")

	require.NoError(t, db.AutoMigrate(
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
	))

	for _, name := range []string{
		models.RoleNameOwner,
		models.RoleNameOrgAdmin,
		models.RoleNameSiteAdmin,
		models.RoleNameViewer,
		models.RoleNamePending,
	} {
		require.NoError(t, db.Create(&models.Role{Name: name}).Error)
	}

	provider, err := identity.NewLocal(db)
	require.NoError(t, err)

	websess.Init(&testStorage{data: make(map[string][]byte)})

	service := New(newTestConfig(), db, provider)

	return service.App, db
}

func doRequest(t *testing.T, app *fiber.App, method, target string, body any, cookie *http.Cookie) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err, "app.Test failed")

	return resp
}

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func decodeList(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			return c
		}
	}

	t.Fatal("expected session cookie in response")

	return nil
}

// registerAndLogin signs the email up and returns the session cookie. The
// fresh account sits in the Pending User role.
func registerAndLogin(t *testing.T, app *fiber.App, email, password string) *http.Cookie {
	t.Helper()

	resp := doRequest(t, app, http.MethodPost, "/api/register", fiber.Map{
		"firstName": "Test",
		"lastName":  "User",
		"email":     email,
		"password":  password,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doRequest(t, app, http.MethodPost, "/api/login", fiber.Map{
		"email":    email,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := sessionCookie(t, resp)
	_ = resp.Body.Close()

	return cookie
}

func setRole(t *testing.T, db *gorm.DB, email, roleName string) {
	t.Helper()

	var role models.Role
	require.NoError(t, db.Where("name = ?", roleName).First(&role).Error)
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", email).Update("role_id", role.ID).Error)
}

func TestHealthIsPublic(t *testing.T) {
	app, _ := newTestService(t)

	resp := doRequest(t, app, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	require.Equal(t, "Server is running", body["message"])
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	app, _ := newTestService(t)

	resp := doRequest(t, app, http.MethodGet, "/api/floors", nil, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	body := decodeMap(t, resp)
	require.Equal(t, "No token provided", body["error"])

	// garbage cookie is rejected differently than a missing one
	resp = doRequest(t, app, http.MethodGet, "/api/floors", nil, &http.Cookie{Name: "session", Value: "bogus"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	body = decodeMap(t, resp)
	require.Equal(t, "Unauthorized", body["error"])
}

func TestLoginWithWrongPassword(t *testing.T) {
	app, _ := newTestService(t)

	resp := doRequest(t, app, http.MethodPost, "/api/register", fiber.Map{
		"firstName": "Eve",
		"lastName":  "Smith",
		"email":     "eve@example.com",
		"password":  "correct",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doRequest(t, app, http.MethodPost, "/api/login", fiber.Map{
		"email":    "eve@example.com",
		"password": "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeMap(t, resp)
	require.Equal(t, "Invalid email or password", body["error"])
}

// TestOwnerGrantsOrgAdminAccess walks the full flow: an Owner builds the
// hierarchy and grants one floor to a group, then an Organization Admin in
// that group sees exactly that floor and can manage nothing else.
func TestOwnerGrantsOrgAdminAccess(t *testing.T) {
	app, db := newTestService(t)

	ownerCookie := registerAndLogin(t, app, "owner@example.com", "ownerpass")
	setRole(t, db, "owner@example.com", models.RoleNameOwner)

	// build the hierarchy
	resp := doRequest(t, app, http.MethodPost, "/api/admin/buildings", fiber.Map{"name": "HQ"}, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	buildingID := decodeMap(t, resp)["id"].(string)

	resp = doRequest(t, app, http.MethodPost, "/api/admin/groups", fiber.Map{"name": "G1"}, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	groupID := decodeMap(t, resp)["id"].(string)

	resp = doRequest(t, app, http.MethodPost, "/api/admin/floors", fiber.Map{
		"name":       "Floor 1",
		"svgMap":     "<svg/>",
		"buildingId": buildingID,
	}, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	floor1ID := decodeMap(t, resp)["id"].(string)

	resp = doRequest(t, app, http.MethodPost, "/api/admin/floors", fiber.Map{
		"name":       "Floor 2",
		"svgMap":     "<svg/>",
		"buildingId": buildingID,
	}, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	floor2ID := decodeMap(t, resp)["id"].(string)

	resp = doRequest(t, app, http.MethodPost, "/api/admin/global-permissions", fiber.Map{
		"groupId":    groupID,
		"buildingId": buildingID,
		"floorId":    floor1ID,
	}, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// onboard the org admin through the pending queue
	adminCookie := registerAndLogin(t, app, "admin@example.com", "adminpass")

	resp = doRequest(t, app, http.MethodGet, "/api/admin/pending-users", nil, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pendingUsers := decodeList(t, resp)
	require.Len(t, pendingUsers, 1)
	require.Equal(t, "admin@example.com", pendingUsers[0]["email"])
	pendingID := pendingUsers[0]["id"].(string)

	var orgAdminRole models.Role
	require.NoError(t, db.Where("name = ?", models.RoleNameOrgAdmin).First(&orgAdminRole).Error)

	resp = doRequest(t, app, http.MethodPost, "/api/admin/pending-users/"+pendingID+"/assign", fiber.Map{
		"roleId":   strconv.FormatUint(orgAdminRole.ID, 10),
		"groupIds": []string{groupID},
	}, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// the org admin sees exactly the granted floor
	resp = doRequest(t, app, http.MethodGet, "/api/floors", nil, adminCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	floors := decodeList(t, resp)
	require.Len(t, floors, 1)
	require.Equal(t, floor1ID, floors[0]["id"])
	require.Equal(t, "HQ", floors[0]["buildingName"])

	resp = doRequest(t, app, http.MethodGet, "/api/floors/"+floor1ID, nil, adminCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "<svg/>", decodeMap(t, resp)["svgMap"])

	// the sibling floor is invisible even though it exists
	resp = doRequest(t, app, http.MethodGet, "/api/floors/"+floor2ID, nil, adminCookie)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Forbidden", decodeMap(t, resp)["error"])

	// managing the granted floor works, the sibling does not
	resp = doRequest(t, app, http.MethodPut, "/api/admin/floors/"+floor1ID, fiber.Map{"name": "Renamed"}, adminCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doRequest(t, app, http.MethodPut, "/api/admin/floors/"+floor2ID, fiber.Map{"name": "Nope"}, adminCookie)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	// building mutations stay Owner-only
	resp = doRequest(t, app, http.MethodPost, "/api/admin/buildings", fiber.Map{"name": "Annex"}, adminCookie)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Only Owner can create buildings", decodeMap(t, resp)["error"])
}

// TestStatsAndDeviceManagement covers the per-floor aggregates and the
// conflict rules around access points and their client devices.
func TestStatsAndDeviceManagement(t *testing.T) {
	app, db := newTestService(t)

	ownerCookie := registerAndLogin(t, app, "owner@example.com", "ownerpass")
	setRole(t, db, "owner@example.com", models.RoleNameOwner)

	resp := doRequest(t, app, http.MethodPost, "/api/admin/buildings", fiber.Map{"name": "HQ"}, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	buildingID := decodeMap(t, resp)["id"].(string)

	resp = doRequest(t, app, http.MethodPost, "/api/admin/floors", fiber.Map{
		"name":       "Floor 1",
		"svgMap":     "<svg/>",
		"buildingId": buildingID,
	}, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	floorID := decodeMap(t, resp)["id"].(string)

	createAP := func(name string) string {
		resp := doRequest(t, app, http.MethodPost, "/api/admin/aps", fiber.Map{
			"name":    name,
			"cx":      1.5,
			"cy":      2.5,
			"floorId": floorID,
		}, ownerCookie)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		return decodeMap(t, resp)["id"].(string)
	}

	ap1 := createAP("AP-1")
	ap2 := createAP("AP-2")

	createDevice := func(mac, apID string) {
		resp := doRequest(t, app, http.MethodPost, "/api/admin/devices", fiber.Map{
			"mac":  mac,
			"apId": apID,
		}, ownerCookie)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	createDevice("AA:BB:CC:00:00:01", ap1)
	createDevice("AA:BB:CC:00:00:02", ap1)
	createDevice("AA:BB:CC:00:00:03", ap2)

	// MACs are globally unique, case normalization included
	resp = doRequest(t, app, http.MethodPost, "/api/admin/devices", fiber.Map{
		"mac":  "aa:bb:cc:00:00:01",
		"apId": ap2,
	}, ownerCookie)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "MAC already exists", decodeMap(t, resp)["error"])

	// stats demand the floorId query param
	resp = doRequest(t, app, http.MethodGet, "/api/stats/total-devices", nil, ownerCookie)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "floorId query param is required", decodeMap(t, resp)["error"])

	resp = doRequest(t, app, http.MethodGet, "/api/stats/total-devices?floorId="+floorID, nil, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 3, decodeMap(t, resp)["totalDevices"])

	resp = doRequest(t, app, http.MethodGet, "/api/stats/total-aps?floorId="+floorID, nil, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, decodeMap(t, resp)["totalAps"])

	resp = doRequest(t, app, http.MethodGet, "/api/stats/devices-by-ap?floorId="+floorID, nil, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	byAP := decodeMap(t, resp)
	aps, ok := byAP["aps"].([]any)
	require.True(t, ok)
	require.Len(t, aps, 2)

	first := aps[0].(map[string]any)
	require.Equal(t, "AP-1", first["title"])
	require.EqualValues(t, 2, first["deviceCount"])

	// an AP with devices cannot be deleted
	resp = doRequest(t, app, http.MethodDelete, "/api/admin/aps/"+ap1, nil, ownerCookie)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "AP still has client devices", decodeMap(t, resp)["error"])

	// a pending user has no stats access on any floor
	pendingCookie := registerAndLogin(t, app, "newbie@example.com", "newbiepass")

	resp = doRequest(t, app, http.MethodGet, "/api/stats/total-devices?floorId="+floorID, nil, pendingCookie)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}

// TestClientIngestAndDiag covers the sighting feed and the diagnostics
// probe, both open to any authenticated caller regardless of role.
func TestClientIngestAndDiag(t *testing.T) {
	app, db := newTestService(t)

	ownerCookie := registerAndLogin(t, app, "owner@example.com", "ownerpass")
	setRole(t, db, "owner@example.com", models.RoleNameOwner)

	resp := doRequest(t, app, http.MethodPost, "/api/admin/buildings", fiber.Map{"name": "HQ"}, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	buildingID := decodeMap(t, resp)["id"].(string)

	resp = doRequest(t, app, http.MethodPost, "/api/admin/floors", fiber.Map{
		"name":       "Floor 1",
		"svgMap":     "<svg/>",
		"buildingId": buildingID,
	}, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	floorID := decodeMap(t, resp)["id"].(string)

	resp = doRequest(t, app, http.MethodPost, "/api/admin/aps", fiber.Map{
		"name":    "AP-1",
		"cx":      1.0,
		"cy":      2.0,
		"floorId": floorID,
	}, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	apID := decodeMap(t, resp)["id"].(string)

	// a pending user may feed sightings, no role gate applies
	feederCookie := registerAndLogin(t, app, "sensor@example.com", "sensorpass")

	resp = doRequest(t, app, http.MethodPost, "/api/clients", fiber.Map{
		"mac":  "AA:BB:CC:DD:EE:01",
		"apId": apID,
	}, feederCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	created := decodeMap(t, resp)
	require.Equal(t, "aa:bb:cc:dd:ee:01", created["mac"])
	require.Equal(t, apID, created["apId"])

	// both fields are mandatory
	resp = doRequest(t, app, http.MethodPost, "/api/clients", fiber.Map{"mac": "AA:BB:CC:DD:EE:02"}, feederCookie)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "mac and apId are required", decodeMap(t, resp)["error"])

	// duplicate MACs are rejected even through the ingest path
	resp = doRequest(t, app, http.MethodPost, "/api/clients", fiber.Map{
		"mac":  "aa:bb:cc:dd:ee:01",
		"apId": apID,
	}, feederCookie)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "MAC already exists", decodeMap(t, resp)["error"])

	// unknown AP
	resp = doRequest(t, app, http.MethodPost, "/api/clients", fiber.Map{
		"mac":  "AA:BB:CC:DD:EE:03",
		"apId": "999999",
	}, feederCookie)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "AP not found", decodeMap(t, resp)["error"])

	// diagnostics need a session but no role
	resp = doRequest(t, app, http.MethodGet, "/api/diag", nil, feederCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, decodeMap(t, resp)["ok"])

	resp = doRequest(t, app, http.MethodGet, "/api/diag", nil, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}

// TestFloorZeroIsNotFound pins the strict-read behavior for the parseable
// but never-assigned floor ID 0: an Owner gets the existence answer, not
// an empty success.
func TestFloorZeroIsNotFound(t *testing.T) {
	app, db := newTestService(t)

	ownerCookie := registerAndLogin(t, app, "owner@example.com", "ownerpass")
	setRole(t, db, "owner@example.com", models.RoleNameOwner)

	resp := doRequest(t, app, http.MethodGet, "/api/floors/0", nil, ownerCookie)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Floor not found", decodeMap(t, resp)["error"])

	resp = doRequest(t, app, http.MethodGet, "/api/floors/0/building", nil, ownerCookie)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Building not found for floor", decodeMap(t, resp)["error"])

	// stats on floor 0 count nothing rather than failing
	resp = doRequest(t, app, http.MethodGet, "/api/stats/total-aps?floorId=0", nil, ownerCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 0, decodeMap(t, resp)["totalAps"])
}

func TestLogoutEndsSession(t *testing.T) {
	app, db := newTestService(t)

	cookie := registerAndLogin(t, app, "carol@example.com", "secret")
	setRole(t, db, "carol@example.com", models.RoleNameOwner)

	resp := doRequest(t, app, http.MethodGet, "/api/me", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doRequest(t, app, http.MethodPost, "/api/logout", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// the old cookie no longer authenticates
	resp = doRequest(t, app, http.MethodGet, "/api/me", nil, cookie)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}
