package access

import (
	"testing"

	"designpro/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
		want models.Role
	}{
		{"nil user", nil, models.RoleClient},
		{"no profile, plain account", &models.User{ID: 1}, models.RoleClient},
		{"no profile, privileged account", &models.User{ID: 1, IsPrivileged: true}, models.RoleAdmin},
		{"manager profile", &models.User{ID: 1, Profile: &models.Profile{Role: models.RoleManager}}, models.RoleManager},
		{"admin profile", &models.User{ID: 1, Profile: &models.Profile{Role: models.RoleAdmin}}, models.RoleAdmin},
		{"client profile beats privileged flag", &models.User{ID: 1, IsPrivileged: true, Profile: &models.Profile{Role: models.RoleClient}}, models.RoleClient},
		{"unknown profile role", &models.User{ID: 1, IsPrivileged: true, Profile: &models.Profile{Role: "designer"}}, models.RoleClient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.user))
		})
	}
}

func TestIdentityPredicates(t *testing.T) {
	var anon *Identity
	assert.False(t, anon.IsAuthenticated())
	assert.False(t, anon.IsStaff())
	assert.False(t, anon.IsClient())
	assert.Equal(t, "", anon.Name())

	client := IdentityOf(&models.User{ID: 3, Username: "ivanov", Profile: &models.Profile{DisplayName: "Иванов Иван", Role: models.RoleClient}})
	assert.True(t, client.IsClient())
	assert.False(t, client.IsStaff())
	assert.Equal(t, "Иванов Иван", client.Name())

	manager := IdentityOf(&models.User{ID: 4, Username: "manager-one", Profile: &models.Profile{Role: models.RoleManager}})
	assert.True(t, manager.IsStaff())
	assert.True(t, manager.IsManager())
	assert.False(t, manager.IsAdmin())
	assert.False(t, manager.IsClient())
	assert.Equal(t, "manager-one", manager.Name())

	root := IdentityOf(&models.User{ID: 5, Username: "admin", IsPrivileged: true})
	assert.True(t, root.IsAdmin())
	assert.True(t, root.IsStaff())

	assert.Nil(t, IdentityOf(nil))
}
