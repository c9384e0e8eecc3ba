// Package access resolves a directory user into a role and answers the
// authorization questions the rest of the application asks.
package access

import "designpro/internal/models"

// Resolve returns the effective role of u.
//
// Order: a profile with a known role wins; a profile with an unknown role
// grants nothing (Client); without a profile the privileged-account flag
// counts as Admin; everybody else, including a nil user, is a Client.
func Resolve(u *models.User) models.Role {
	if u == nil {
		return models.RoleClient
	}
	if u.Profile != nil {
		if r, ok := models.ParseRole(string(u.Profile.Role)); ok {
			return r
		}
		return models.RoleClient
	}
	if u.IsPrivileged {
		return models.RoleAdmin
	}
	return models.RoleClient
}

// Identity is the caller as seen by the services. A nil *Identity is an
// anonymous caller; every method is nil-safe.
type Identity struct {
	UserID      uint
	Username    string
	DisplayName string
	Role        models.Role
}

// IdentityOf expects u to be loaded with its Profile.
func IdentityOf(u *models.User) *Identity {
	if u == nil {
		return nil
	}
	id := &Identity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     Resolve(u),
	}
	if u.Profile != nil {
		id.DisplayName = u.Profile.DisplayName
	}
	return id
}

func (i *Identity) IsAuthenticated() bool { return i != nil && i.UserID != 0 }

func (i *Identity) IsAdmin() bool { return i.IsAuthenticated() && i.Role == models.RoleAdmin }

func (i *Identity) IsManager() bool { return i.IsAuthenticated() && i.Role == models.RoleManager }

func (i *Identity) IsStaff() bool { return i.IsAdmin() || i.IsManager() }

// IsClient: вошедший пользователь без служебной роли.
func (i *Identity) IsClient() bool { return i.IsAuthenticated() && !i.IsStaff() }

// Name for display: full name if known, username otherwise.
func (i *Identity) Name() string {
	if i == nil {
		return ""
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Username
}
