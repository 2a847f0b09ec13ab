package config

const (
	// Host errors
	ErrGitHubConfigMissing = "GitHub configuration missing"
	ErrDraftNotFound       = "Draft not found"
	ErrContentNotFound     = "Content not found"
	ErrTitleRequired       = "Title is required"
	ErrContentNotString    = "Content must be a string"
	ErrInvalidSlug         = "Invalid slug"

	// Auth errors
	ErrMissingAuthHeader      = "Missing or invalid authorization header"
	ErrInvalidToken           = "Invalid token"
	ErrNoToken                = "No token provided"
	ErrInvalidAction          = "Invalid action"
	ErrSaveProfile            = "Failed to save profile"
	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrAdminRequired          = "Access denied. Admin role required."
	ErrUnknownProvider        = "Unknown provider"
	ErrInvalidOAuthState      = "Invalid OAuth state"

	// Challenge errors
	ErrRefreshChallenge = "Failed to refresh challenge"
)
