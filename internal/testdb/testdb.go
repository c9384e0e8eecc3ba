// Package testdb opens an isolated in-memory SQLite database with the
// application schema, for tests.
package testdb

import (
	"fmt"
	"testing"

	"designpro/internal/database"
	"designpro/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Password is the plain password of every user created by CreateUser.
const Password = "secret-password"

// CreateUser inserts a user; role "" means no profile at all.
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role, privileged bool) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		IsPrivileged: privileged,
	}
	require.NoError(t, db.Create(u).Error)

	if role != "" {
		p := &models.Profile{UserID: u.ID, DisplayName: "Тестовый " + username, Role: role, ConsentGiven: true}
		require.NoError(t, db.Create(p).Error)
		u.Profile = p
	}
	return u
}

func CreateCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Description: name + " описание"}
	require.NoError(t, db.Create(c).Error)
	return c
}
