package repository

import "context"

// User is a participant profile as served by the association's directory service.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// UserDirectory is the read-only contract of the external participant directory.
// Unknown ids are omitted from results rather than reported as errors.
type UserDirectory interface {
	SearchUsers(ctx context.Context, query string) ([]User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]User, error)
}
