package handlers

import (
	"fmt"
	"net/http"

	"designpro/internal/apperrors"
	"designpro/internal/middleware"

	"github.com/gin-gonic/gin"
)

const categoriesPath = "/dashboard/categories"

func (h *Handlers) ListCategories(c *gin.Context) {
	h.renderCategories(c, http.StatusOK, gin.H{})
}

func (h *Handlers) CreateCategory(c *gin.Context) {
	name := c.PostForm("name")
	desc := c.PostForm("description")

	cat, err := h.catalog.Add(c.Request.Context(), middleware.CurrentIdentity(c), name, desc)
	if fields := fieldErrors(err); fields != nil {
		h.renderCategories(c, http.StatusBadRequest, gin.H{
			"errors": fields,
			"form":   gin.H{"name": name, "description": desc},
		})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	redirectWith(c, categoriesPath, flashSuccess, fmt.Sprintf("Категория «%s» добавлена", cat.Name))
}

// DeleteCategory удаляет категорию вместе со всеми её заявками.
func (h *Handlers) DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.fail(c, apperrors.ErrNotFound)
		return
	}

	cat, removed, err := h.catalog.Delete(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	redirectWith(c, categoriesPath, flashSuccess,
		fmt.Sprintf("Категория «%s» удалена. Удалено заявок: %d", cat.Name, removed))
}

func (h *Handlers) renderCategories(c *gin.Context, status int, data gin.H) {
	cats, err := h.catalog.ListWithCounts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	data["categories"] = cats
	if _, ok := data["form"]; !ok {
		data["form"] = gin.H{"name": "", "description": ""}
	}
	h.render(c, status, "categories.html", data)
}
