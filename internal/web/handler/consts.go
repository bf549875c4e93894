package handler

const (
	// APIPath is the prefix shared by every JSON endpoint.
	APIPath = "/api"

	// RouterRootPath is the root path of a route group.
	RouterRootPath = "/"

	// LocalsUIDKey is the fiber locals key holding the verified identity UID.
	LocalsUIDKey = "identityUID"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)
