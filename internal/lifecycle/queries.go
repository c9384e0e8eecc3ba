package lifecycle

import (
	"context"
	"errors"

	"designpro/internal/access"
	"designpro/internal/apperrors"
	"designpro/internal/models"

	"gorm.io/gorm"
)

const newestFirst = "created_at desc, id desc"

type StaffFilter struct {
	Status     models.PlanStatus
	CategoryID uint
}

type Stats struct {
	Total      int64
	New        int64
	InProgress int64
	Completed  int64
}

// Get loads one plan with its relations for the staff edit page.
func (s *Service) Get(ctx context.Context, planID uint) (*models.RoomPlan, error) {
	var plan models.RoomPlan
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Owner").
		Preload("Owner.Profile").
		Preload("AssignedTo").
		First(&plan, planID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetOwned is Get restricted to the owner's plans; foreign plans look missing.
func (s *Service) GetOwned(ctx context.Context, owner *access.Identity, planID uint) (*models.RoomPlan, error) {
	if !owner.IsAuthenticated() {
		return nil, apperrors.ErrNotFound
	}
	var plan models.RoomPlan
	err := s.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND owner_id = ?", planID, owner.UserID).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListForOwner returns only the owner's plans, newest first. An empty status
// means no filter.
func (s *Service) ListForOwner(ctx context.Context, owner *access.Identity, status models.PlanStatus) ([]models.RoomPlan, error) {
	if !owner.IsAuthenticated() {
		return nil, nil
	}
	q := s.db.WithContext(ctx).
		Preload("Category").
		Where("owner_id = ?", owner.UserID).
		Order(newestFirst)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var plans []models.RoomPlan
	if err := q.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// ListForStaff returns plans of every owner; filters combine with AND.
func (s *Service) ListForStaff(ctx context.Context, f StaffFilter) ([]models.RoomPlan, error) {
	q := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Owner").
		Preload("AssignedTo").
		Order(newestFirst)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}

	var plans []models.RoomPlan
	if err := q.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// Stats counts plans per status at call time.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var rows []struct {
		Status models.PlanStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.RoomPlan{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	for _, r := range rows {
		switch r.Status {
		case models.StatusNew:
			st.New = r.Count
		case models.StatusInProgress:
			st.InProgress = r.Count
		case models.StatusCompleted:
			st.Completed = r.Count
		}
	}
	st.Total = st.New + st.InProgress + st.Completed
	return st, nil
}

type Showcase struct {
	Completed       []models.RoomPlan
	InProgressCount int64
}

// Showcase feeds the landing page: the latest completed plans and how many
// are being worked on.
func (s *Service) Showcase(ctx context.Context, limit int) (Showcase, error) {
	var sc Showcase
	db := s.db.WithContext(ctx)

	if err := db.Preload("Category").Preload("Owner").
		Where("status = ?", models.StatusCompleted).
		Order(newestFirst).
		Limit(limit).
		Find(&sc.Completed).Error; err != nil {
		return sc, err
	}
	if err := db.Model(&models.RoomPlan{}).
		Where("status = ?", models.StatusInProgress).
		Count(&sc.InProgressCount).Error; err != nil {
		return sc, err
	}
	return sc, nil
}
