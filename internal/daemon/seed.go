package daemon

import (
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/config"
	"github.com/floortrack/floortrack/internal/db/models"
)

// seed creates the fixed role set. Roles are matched by name so repeated
// startups are harmless.
func seed(_ *config.Config, db *gorm.DB) {
	for _, name := range []string{
		models.RoleNameOwner,
		models.RoleNameOrgAdmin,
		models.RoleNameSiteAdmin,
		models.RoleNameViewer,
		models.RoleNamePending,
	} {
		db.FirstOrCreate(&models.Role{}, models.Role{Name: name})
	}
}
