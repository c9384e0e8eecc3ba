package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"designpro/internal/config"
	"designpro/internal/handlers"
	"designpro/internal/metrics"
	"designpro/internal/middleware"
	"designpro/web"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

const sessionName = "designpro_session"

type Deps struct {
	Handlers     *handlers.Handlers
	Users        middleware.UserLoader
	Metrics      *metrics.Metrics
	Log          *zap.Logger
	LoginLimiter *limiter.Limiter
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006 15:04")
}

func loadTemplates() (*template.Template, error) {
	return template.New("").
		Funcs(template.FuncMap{"formatDate": formatDate}).
		ParseFS(web.Templates, "templates/*.html")
}

func NewRouter(cfg *config.Config, d Deps) (*gin.Engine, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(d.Metrics.Middleware())

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	r.StaticFS("/static", http.FS(static))
	r.Static(cfg.MediaURL, cfg.MediaRoot)

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 14 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})

	site := r.Group("/")
	site.Use(sessions.Sessions(sessionName, store))
	site.Use(middleware.InjectUser(d.Users))

	h := d.Handlers

	// ГЛАВНАЯ
	site.GET("/", h.Index)

	// AUTH
	site.GET("/register", h.ShowRegister)
	site.POST("/register", h.Register)
	site.GET("/login", h.ShowLogin)
	if d.LoginLimiter != nil {
		site.POST("/login", middleware.RateLimit(d.LoginLimiter), h.Login)
	} else {
		site.POST("/login", h.Login)
	}
	site.GET("/logout", h.Logout)

	// КАБИНЕТ КЛИЕНТА
	client := site.Group("/")
	client.Use(middleware.RequireAuth(), middleware.ClientsOnly())
	client.GET("/profile", h.Profile)
	client.GET("/room-plans/new", h.ShowNewPlan)
	client.POST("/room-plans/new", h.CreatePlan)
	client.GET("/room-plans/:id/delete", h.ShowDeletePlan)
	client.POST("/room-plans/:id/delete", h.DeletePlan)

	// ПАНЕЛЬ СОТРУДНИКОВ
	staff := site.Group("/dashboard")
	staff.Use(middleware.RequireStaff())
	staff.GET("", h.Dashboard)
	staff.GET("/export.xlsx", h.ExportPlans)
	staff.GET("/plans/:id", h.ShowPlan)
	staff.POST("/plans/:id", h.UpdatePlan)

	// только администратор
	admin := staff.Group("")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/categories", h.ListCategories)
	admin.POST("/categories", h.CreateCategory)
	admin.POST("/categories/:id/delete", h.DeleteCategory)
	admin.GET("/audit", h.ListAuditLogs)

	return r, nil
}
