package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"designpro/internal/apperrors"
	"designpro/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	flashSuccess = "success"
	flashInfo    = "info"
	flashError   = "error"
)

// render оборачивает c.HTML и добавляет в данные шаблона общие для всех
// страниц значения (текущий пользователь, flash-сообщения).
func (h *Handlers) render(c *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["errors"]; !ok {
		data["errors"] = map[string]string{}
	}

	data["SiteTitle"] = h.siteTitle
	data["CurrentUser"] = middleware.CurrentUser(c)
	data["Identity"] = middleware.CurrentIdentity(c)

	sess := sessions.Default(c)
	data["FlashSuccess"] = sess.Flashes(flashSuccess)
	data["FlashInfo"] = sess.Flashes(flashInfo)
	data["FlashError"] = sess.Flashes(flashError)
	_ = sess.Save()

	c.HTML(status, tmpl, data)
}

func flash(c *gin.Context, kind, msg string) {
	sess := sessions.Default(c)
	sess.AddFlash(msg, kind)
	_ = sess.Save()
}

// redirectWith stores a flash message and sends the user to path.
func redirectWith(c *gin.Context, path, kind, msg string) {
	flash(c, kind, msg)
	c.Redirect(http.StatusFound, path)
}

// fail maps a service error to a response. Validation errors are handled by
// the callers because they re-render their own forms.
func (h *Handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		h.render(c, http.StatusNotFound, "error.html", gin.H{
			"code":    http.StatusNotFound,
			"message": "Страница не найдена",
		})
	case errors.Is(err, apperrors.ErrForbidden):
		c.Redirect(http.StatusFound, middleware.LoginPath)
	default:
		_ = c.Error(err)
		middleware.Logger(c).Error("request failed", zap.Error(err))
		h.render(c, http.StatusInternalServerError, "error.html", gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Внутренняя ошибка сервера",
		})
	}
}

// fieldErrors returns the per-field messages of a validation error, or nil
// if err is something else.
func fieldErrors(err error) map[string]string {
	if v, ok := apperrors.AsValidation(err); ok {
		return v.Fields()
	}
	return nil
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func uintValue(s string) uint {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}
