// Package model defines the identities shared by the auth and profile layers.
package model

import "strings"

type UserID string

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the identity carried by an access token.
type User struct {
	ID       UserID `json:"userId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Role     Role   `json:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RoleForEmail grants admin to addresses under adminDomain. An empty domain
// grants admin to nobody.
func RoleForEmail(email, adminDomain string) Role {
	adminDomain = strings.TrimPrefix(adminDomain, "@")
	if adminDomain == "" {
		return RoleUser
	}
	if strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(adminDomain)) {
		return RoleAdmin
	}
	return RoleUser
}
