// Package lifecycle owns room plans: creation by clients, deletion while
// still new, staff status updates and the listings built on top of them.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"designpro/internal/access"
	"designpro/internal/apperrors"
	"designpro/internal/database"
	"designpro/internal/metrics"
	"designpro/internal/models"
	"designpro/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotDeletable is returned when the owner tries to delete a plan that is
// already in progress or completed.
var ErrNotDeletable = errors.New("нельзя удалить заявку, которая уже в работе или выполнена")

type Service struct {
	db      *gorm.DB
	images  storage.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(db *gorm.DB, images storage.Store, log *zap.Logger, opts ...Option) *Service {
	s := &Service{db: db, images: images, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

//
// СОЗДАНИЕ
//

type CreateInput struct {
	Title       string
	Description string
	CategoryID  uint
	PlanImage   *storage.Upload
}

func (s *Service) Create(ctx context.Context, owner *access.Identity, in CreateInput) (*models.RoomPlan, error) {
	if !owner.IsClient() {
		return nil, apperrors.ErrForbidden
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	verr := &apperrors.ValidationError{}
	if in.Title == "" {
		verr.Add("title", "Укажите название заявки")
	} else if len([]rune(in.Title)) > 200 {
		verr.Add("title", "Название не должно превышать 200 символов")
	}
	if in.Description == "" {
		verr.Add("description", "Добавьте описание")
	}
	if in.CategoryID == 0 {
		verr.Add("category", "Выберите категорию")
	}
	if err := storage.ValidateImage(in.PlanImage, "plan_image"); err != nil {
		if v, ok := apperrors.AsValidation(err); ok {
			verr.Errors = append(verr.Errors, v.Errors...)
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	plan := &models.RoomPlan{
		OwnerID:     owner.UserID,
		Title:       in.Title,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Status:      models.StatusNew,
		CreatedAt:   s.now(),
	}

	if in.PlanImage != nil {
		ref, err := s.images.Save(ctx, in.PlanImage.Data, "plans/"+in.PlanImage.Filename)
		if err != nil {
			return nil, fmt.Errorf("store plan image: %w", err)
		}
		plan.PlanImage = ref
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Category{}).Where("id = ?", in.CategoryID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.NewValidation("category", "Категория не найдена")
		}
		if err := tx.Omit(clause.Associations).Create(plan).Error; err != nil {
			return err
		}
		return database.CreateAuditLog(tx, owner.UserID, models.EntityRoomPlan, plan.ID, "create", "Создана заявка: "+plan.Title)
	})
	if err != nil {
		s.discard(ctx, plan.PlanImage)
		if errors.Is(err, apperrors.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("create room plan: %w", err)
	}

	s.metrics.PlanCreated()
	s.log.Info("room plan created",
		zap.Uint("plan_id", plan.ID),
		zap.Uint("owner_id", owner.UserID),
		zap.Uint("category_id", plan.CategoryID),
	)
	return plan, nil
}

//
// УДАЛЕНИЕ
//

// Delete removes the requester's own plan while it is still new. A plan that
// does not exist and a plan owned by someone else both yield ErrNotFound.
func (s *Service) Delete(ctx context.Context, requester *access.Identity, planID uint) error {
	if !requester.IsClient() {
		return apperrors.ErrForbidden
	}

	var removed models.RoomPlan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND owner_id = ?", planID, requester.UserID).
			First(&removed).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		if !removed.CanBeDeleted() {
			return ErrNotDeletable
		}
		if err := tx.Delete(&models.RoomPlan{}, removed.ID).Error; err != nil {
			return err
		}
		return database.CreateAuditLog(tx, requester.UserID, models.EntityRoomPlan, removed.ID, "delete", "Удалена заявка: "+removed.Title)
	})
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, ErrNotDeletable):
		return err
	default:
		return fmt.Errorf("delete room plan %d: %w", planID, err)
	}

	s.discard(ctx, removed.PlanImage, removed.DesignImage)

	s.metrics.PlanDeleted()
	s.log.Info("room plan deleted", zap.Uint("plan_id", planID), zap.Uint("owner_id", requester.UserID))
	return nil
}

//
// СМЕНА СТАТУСА
//

type StatusInput struct {
	Status      models.PlanStatus
	DesignImage *storage.Upload
	// AdminComment == nil оставляет прежний комментарий.
	AdminComment *string
	// AssigneeID == nil оставляет исполнителя, 0 снимает назначение.
	AssigneeID *uint
}

// UpdateStatus applies a staff edit. Every check runs before anything is
// written; on any validation error the plan is left untouched.
func (s *Service) UpdateStatus(ctx context.Context, staff *access.Identity, planID uint, in StatusInput) (*models.RoomPlan, error) {
	if !staff.IsStaff() {
		return nil, apperrors.ErrForbidden
	}

	var (
		plan     models.RoomPlan
		newImage string
		oldImage string
		previous models.PlanStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&plan, planID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		previous = plan.Status

		comment := plan.AdminComment
		if in.AdminComment != nil {
			comment = strings.TrimSpace(*in.AdminComment)
		}

		if err := s.validateStatus(tx, plan, in, comment); err != nil {
			return err
		}

		updates := map[string]any{
			"status":        in.Status,
			"admin_comment": comment,
		}
		if in.AssigneeID != nil {
			if *in.AssigneeID == 0 {
				updates["assigned_to_id"] = nil
			} else {
				updates["assigned_to_id"] = *in.AssigneeID
			}
		}
		if in.DesignImage != nil {
			ref, err := s.images.Save(ctx, in.DesignImage.Data, "designs/"+in.DesignImage.Filename)
			if err != nil {
				return fmt.Errorf("store design image: %w", err)
			}
			newImage = ref
			oldImage = plan.DesignImage
			updates["design_image"] = ref
		}

		if err := tx.Model(&models.RoomPlan{}).Where("id = ?", plan.ID).Updates(updates).Error; err != nil {
			return err
		}

		details := fmt.Sprintf("Статус: %s -> %s", previous, in.Status)
		if err := database.CreateAuditLog(tx, staff.UserID, models.EntityRoomPlan, plan.ID, "status_change", details); err != nil {
			return err
		}

		return tx.Preload("Category").Preload("Owner").Preload("AssignedTo").First(&plan, plan.ID).Error
	})
	if err != nil {
		s.discard(ctx, newImage)
		if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update room plan %d: %w", planID, err)
	}

	s.discard(ctx, oldImage)

	s.metrics.StatusUpdated(string(plan.Status))
	s.log.Info("room plan status updated",
		zap.Uint("plan_id", plan.ID),
		zap.Uint("staff_id", staff.UserID),
		zap.String("from", string(previous)),
		zap.String("to", string(plan.Status)),
	)
	return &plan, nil
}

func (s *Service) validateStatus(tx *gorm.DB, plan models.RoomPlan, in StatusInput, comment string) error {
	verr := &apperrors.ValidationError{}

	if !in.Status.Valid() {
		verr.Add("status", "Неизвестный статус заявки")
	}
	if err := storage.ValidateImage(in.DesignImage, "design_image"); err != nil {
		if v, ok := apperrors.AsValidation(err); ok {
			verr.Errors = append(verr.Errors, v.Errors...)
		}
	}

	hasDesign := plan.DesignImage != "" || in.DesignImage != nil
	if in.Status == models.StatusCompleted && !hasDesign {
		verr.Add("design_image", `Для статуса "Выполнено" необходимо прикрепить дизайн-проект`)
	}
	if in.Status == models.StatusInProgress && comment == "" {
		verr.Add("admin_comment", `Для статуса "Принято в работу" необходимо добавить комментарий`)
	}

	if in.AssigneeID != nil && *in.AssigneeID != 0 {
		var assignee models.User
		err := tx.Preload("Profile").First(&assignee, *in.AssigneeID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			verr.Add("assigned_to", "Сотрудник не найден")
		case err != nil:
			return err
		case !access.IdentityOf(&assignee).IsStaff():
			verr.Add("assigned_to", "Назначить можно только сотрудника")
		}
	}

	return verr.OrNil()
}

func (s *Service) discard(ctx context.Context, refs ...string) {
	storage.Discard(ctx, s.images, s.log, refs...)
}
