package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"designpro/internal/apperrors"
	"designpro/internal/lifecycle"
	"designpro/internal/middleware"
	"designpro/internal/models"
	"designpro/internal/storage"

	"github.com/gin-gonic/gin"
)

//
// ЛИЧНЫЙ КАБИНЕТ
//

func (h *Handlers) Profile(c *gin.Context) {
	// неизвестный статус не сбрасывается: такой фильтр просто ничего не находит
	status := models.PlanStatus(c.Query("status"))

	plans, err := h.plans.ListForOwner(c.Request.Context(), middleware.CurrentIdentity(c), status)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.render(c, http.StatusOK, "profile.html", gin.H{
		"plans":        plans,
		"statuses":     models.PlanStatuses,
		"FilterStatus": string(status),
	})
}

//
// СОЗДАНИЕ ЗАЯВКИ
//

type planForm struct {
	Title       string
	Description string
	CategoryID  uint
}

func (h *Handlers) ShowNewPlan(c *gin.Context) {
	h.renderPlanForm(c, http.StatusOK, planForm{}, nil)
}

func (h *Handlers) CreatePlan(c *gin.Context) {
	form := planForm{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		CategoryID:  uintValue(c.PostForm("category")),
	}

	upload, err := formUpload(c, "plan_image")
	if err != nil {
		h.fail(c, err)
		return
	}

	_, err = h.plans.Create(c.Request.Context(), middleware.CurrentIdentity(c), lifecycle.CreateInput{
		Title:       form.Title,
		Description: form.Description,
		CategoryID:  form.CategoryID,
		PlanImage:   upload,
	})
	if fields := fieldErrors(err); fields != nil {
		h.renderPlanForm(c, http.StatusBadRequest, form, fields)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	redirectWith(c, middleware.ProfilePath, flashSuccess, "Заявка успешно создана")
}

func (h *Handlers) renderPlanForm(c *gin.Context, status int, form planForm, fields map[string]string) {
	cats, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, status, "plan_new.html", gin.H{
		"form":       form,
		"categories": cats,
		"errors":     fields,
	})
}

//
// УДАЛЕНИЕ ЗАЯВКИ
//

func (h *Handlers) ShowDeletePlan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.fail(c, apperrors.ErrNotFound)
		return
	}

	plan, err := h.plans.GetOwned(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !plan.CanBeDeleted() {
		redirectWith(c, middleware.ProfilePath, flashError, lifecycle.ErrNotDeletable.Error())
		return
	}

	h.render(c, http.StatusOK, "plan_delete.html", gin.H{"plan": plan})
}

func (h *Handlers) DeletePlan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.fail(c, apperrors.ErrNotFound)
		return
	}

	err := h.plans.Delete(c.Request.Context(), middleware.CurrentIdentity(c), id)
	switch {
	case errors.Is(err, lifecycle.ErrNotDeletable):
		redirectWith(c, middleware.ProfilePath, flashError, err.Error())
	case err != nil:
		h.fail(c, err)
	default:
		redirectWith(c, middleware.ProfilePath, flashSuccess, "Заявка #"+strconv.FormatUint(uint64(id), 10)+" удалена")
	}
}

// formUpload reads an optional file field; a missing file is not an error.
func formUpload(c *gin.Context, field string) (*storage.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return storage.FromFileHeader(fh)
}
