package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const showcaseSize = 4

func (h *Handlers) Index(c *gin.Context) {
	sc, err := h.plans.Showcase(c.Request.Context(), showcaseSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "index.html", gin.H{
		"completed":       sc.Completed,
		"inProgressCount": sc.InProgressCount,
	})
}

func Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
