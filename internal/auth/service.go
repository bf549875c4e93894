// Package auth implements the authorization core: resolving an external
// identity to an application user, evaluating per-resource management
// permissions, and computing the resource sets visible to a user.
package auth

import (
	"gorm.io/gorm"

	"github.com/floortrack/floortrack/internal/db/models"
)

// Service provides authorization functionality backed by the relational
// store. Denial is a normal return value (false / empty set), never an
// error; errors indicate store failures only.
type Service struct {
	db *gorm.DB
}

// NewService creates a new auth service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AppUser is a resolved application user: the user row plus the parsed
// role and the eagerly loaded group-ID set every authorization decision
// needs.
type AppUser struct {
	User     models.User
	Role     Role
	GroupIDs []uint64
}
