package handlers

import (
	"net/http"
	"time"

	"designpro/internal/apperrors"
	"designpro/internal/export"
	"designpro/internal/lifecycle"
	"designpro/internal/middleware"
	"designpro/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// staffFilter passes ?status= through as is, so an unknown status lists
// nothing instead of everything.
func staffFilter(c *gin.Context) lifecycle.StaffFilter {
	return lifecycle.StaffFilter{
		Status:     models.PlanStatus(c.Query("status")),
		CategoryID: uintValue(c.Query("category")),
	}
}

// Dashboard: общий список заявок для сотрудников и счётчики по статусам.
func (h *Handlers) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	f := staffFilter(c)

	plans, err := h.plans.ListForStaff(ctx, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	stats, err := h.plans.Stats(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	cats, err := h.catalog.List(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.render(c, http.StatusOK, "dashboard.html", gin.H{
		"plans":          plans,
		"stats":          stats,
		"categories":     cats,
		"statuses":       models.PlanStatuses,
		"FilterStatus":   string(f.Status),
		"FilterCategory": f.CategoryID,
	})
}

func (h *Handlers) ExportPlans(c *gin.Context) {
	plans, err := h.plans.ListForStaff(c.Request.Context(), staffFilter(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	data, err := export.PlansWorkbook(plans)
	if err != nil {
		h.fail(c, err)
		return
	}

	name := "plans-" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

//
// КАРТОЧКА ЗАЯВКИ
//

func (h *Handlers) ShowPlan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.fail(c, apperrors.ErrNotFound)
		return
	}
	h.renderPlanEdit(c, http.StatusOK, id, nil, nil)
}

func (h *Handlers) UpdatePlan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.fail(c, apperrors.ErrNotFound)
		return
	}

	in := lifecycle.StatusInput{Status: models.PlanStatus(c.PostForm("status"))}
	if comment, ok := c.GetPostForm("admin_comment"); ok {
		in.AdminComment = &comment
	}
	if raw, ok := c.GetPostForm("assigned_to"); ok {
		assignee := uintValue(raw)
		in.AssigneeID = &assignee
	}

	upload, err := formUpload(c, "design_image")
	if err != nil {
		h.fail(c, err)
		return
	}
	in.DesignImage = upload

	plan, err := h.plans.UpdateStatus(c.Request.Context(), middleware.CurrentIdentity(c), id, in)
	if fields := fieldErrors(err); fields != nil {
		middleware.Logger(c).Info("status update rejected", zap.Uint("plan_id", id), zap.Any("errors", fields))
		h.renderPlanEdit(c, http.StatusBadRequest, id, &in, fields)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	redirectWith(c, middleware.DashboardPath, flashSuccess,
		"Статус заявки «"+plan.Title+"» изменён на «"+plan.Status.Title()+"»")
}

// renderPlanEdit shows the stored plan; in carries what the user submitted
// when the form is re-rendered after a rejected update.
func (h *Handlers) renderPlanEdit(c *gin.Context, status int, id uint, in *lifecycle.StatusInput, fields map[string]string) {
	ctx := c.Request.Context()

	plan, err := h.plans.Get(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	staff, err := h.accounts.ListStaff(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	form := gin.H{"status": string(plan.Status), "comment": plan.AdminComment, "assignee": uint(0)}
	if plan.AssignedToID != nil {
		form["assignee"] = *plan.AssignedToID
	}
	if in != nil {
		form["status"] = string(in.Status)
		if in.AdminComment != nil {
			form["comment"] = *in.AdminComment
		}
		if in.AssigneeID != nil {
			form["assignee"] = *in.AssigneeID
		}
	}

	h.render(c, status, "plan_edit.html", gin.H{
		"plan":     plan,
		"staff":    staff,
		"statuses": models.PlanStatuses,
		"form":     form,
		"errors":   fields,
	})
}
