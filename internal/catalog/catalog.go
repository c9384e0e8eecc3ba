// Package catalog manages the admin-defined categories room plans belong to.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"designpro/internal/access"
	"designpro/internal/apperrors"
	"designpro/internal/database"
	"designpro/internal/metrics"
	"designpro/internal/models"
	"designpro/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	metrics *metrics.Metrics
	images  storage.Store
}

func NewService(db *gorm.DB, log *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{db: db, log: log, metrics: m}
}

// WithImages lets Delete remove the image files of the plans it cascades to.
func (s *Service) WithImages(st storage.Store) *Service {
	c := *s
	c.images = st
	return &c
}

// CategoryCount is a category with the number of plans referencing it.
type CategoryCount struct {
	models.Category
	PlanCount int64
}

func (s *Service) Add(ctx context.Context, requester *access.Identity, name, description string) (*models.Category, error) {
	if !requester.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidation("name", "Название категории не может быть пустым.")
	}
	if len([]rune(name)) > 100 {
		return nil, apperrors.NewValidation("name", "Название не должно превышать 100 символов")
	}

	cat := &models.Category{Name: name, Description: strings.TrimSpace(description)}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cat).Error; err != nil {
			return err
		}
		return database.CreateAuditLog(tx, requester.UserID, models.EntityCategory, cat.ID, "create", "Создана категория: "+cat.Name)
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.log.Info("category created", zap.Uint("category_id", cat.ID), zap.String("name", cat.Name))
	return cat, nil
}

// Delete removes the category and every plan in it as one unit. It returns
// the category as it was and the number of plans removed.
func (s *Service) Delete(ctx context.Context, requester *access.Identity, categoryID uint) (*models.Category, int64, error) {
	if !requester.IsAdmin() {
		return nil, 0, apperrors.ErrForbidden
	}

	var (
		cat     models.Category
		removed int64
		images  []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cat, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		var plans []models.RoomPlan
		if err := tx.Select("id", "plan_image", "design_image").
			Where("category_id = ?", cat.ID).
			Find(&plans).Error; err != nil {
			return err
		}
		for _, p := range plans {
			images = append(images, p.PlanImage, p.DesignImage)
		}

		res := tx.Where("category_id = ?", cat.ID).Delete(&models.RoomPlan{})
		if res.Error != nil {
			return fmt.Errorf("%w: delete plans of category %d: %v", apperrors.ErrIntegrity, cat.ID, res.Error)
		}
		removed = res.RowsAffected

		if err := tx.Delete(&models.Category{}, cat.ID).Error; err != nil {
			return fmt.Errorf("%w: delete category %d: %v", apperrors.ErrIntegrity, cat.ID, err)
		}

		details := fmt.Sprintf("Удалена категория %q и заявок: %d", cat.Name, removed)
		return database.CreateAuditLog(tx, requester.UserID, models.EntityCategory, cat.ID, "delete", details)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, 0, err
		}
		s.log.Error("category delete rolled back", zap.Uint("category_id", categoryID), zap.Error(err))
		return nil, 0, err
	}

	storage.Discard(ctx, s.images, s.log, images...)

	s.metrics.CategoryDeleted(removed)
	s.log.Info("category deleted",
		zap.Uint("category_id", cat.ID),
		zap.Int64("plans_removed", removed),
	)
	return &cat, removed, nil
}

// List returns categories ordered by name.
func (s *Service) List(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	err := s.db.WithContext(ctx).Order("name asc, id asc").Find(&cats).Error
	return cats, err
}

// ListWithCounts returns categories ordered by name with current plan counts.
func (s *Service) ListWithCounts(ctx context.Context) ([]CategoryCount, error) {
	cats, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		CategoryID uint
		Count      int64
	}
	if err := s.db.WithContext(ctx).
		Model(&models.RoomPlan{}).
		Select("category_id, COUNT(*) AS count").
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.CategoryID] = r.Count
	}

	out := make([]CategoryCount, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryCount{Category: c, PlanCount: counts[c.ID]})
	}
	return out, nil
}

// Ensure creates a category by name unless one with that name exists.
// Used by seeding.
func (s *Service) Ensure(ctx context.Context, name, description string) (bool, error) {
	db := s.db.WithContext(ctx)

	var existing models.Category
	err := db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := db.Create(&models.Category{Name: name, Description: description}).Error; err != nil {
		return false, err
	}
	return true, nil
}
