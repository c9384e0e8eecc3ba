package middleware

import (
	"context"

	"designpro/internal/access"
	"designpro/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	SessionUserID = "user_id"

	currentUserKey     = "CurrentUser"
	currentIdentityKey = "CurrentIdentity"
)

// UserLoader is the part of the user directory the middleware needs.
type UserLoader interface {
	Load(ctx context.Context, id uint) (*models.User, error)
}

// InjectUser resolves the session user once per request and stores both the
// user and its access.Identity in the context.
func InjectUser(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uid, ok := sess.Get(SessionUserID).(uint); ok && uid > 0 {
			user, err := users.Load(c.Request.Context(), uid)
			if err == nil {
				c.Set(currentUserKey, user)
				c.Set(currentIdentityKey, access.IdentityOf(user))
			} else {
				// пользователь удалён или БД недоступна: сессию не доверяем
				Logger(c).Debug("dropping session user", zap.Uint("user_id", uid), zap.Error(err))
				sess.Delete(SessionUserID)
				_ = sess.Save()
			}
		}

		c.Next()
	}
}

// CurrentUser returns the logged-in user or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// CurrentIdentity returns the caller's identity; nil means anonymous.
func CurrentIdentity(c *gin.Context) *access.Identity {
	if v, ok := c.Get(currentIdentityKey); ok {
		if id, ok := v.(*access.Identity); ok {
			return id
		}
	}
	return nil
}
