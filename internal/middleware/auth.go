package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
	ProfilePath   = "/profile"
)

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentIdentity(c).IsAuthenticated() {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff lets managers and admins through; everybody else goes to the
// login page.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentIdentity(c).IsStaff() {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentIdentity(c).IsAdmin() {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClientsOnly sends staff to the dashboard; client pages are of no use to them.
func ClientsOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentIdentity(c).IsStaff() {
			c.Redirect(http.StatusFound, DashboardPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// HomeFor is where a logged-in user lands after login.
func HomeFor(c *gin.Context) string {
	if CurrentIdentity(c).IsStaff() {
		return DashboardPath
	}
	return ProfilePath
}
