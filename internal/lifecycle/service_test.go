package lifecycle_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"designpro/internal/access"
	"designpro/internal/apperrors"
	"designpro/internal/lifecycle"
	"designpro/internal/models"
	"designpro/internal/storage"
	"designpro/internal/testdb"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// memStore keeps saved images in a map.
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	n     int
}

func newMemStore() *memStore { return &memStore{files: map[string][]byte{}} }

func (m *memStore) Save(_ context.Context, data []byte, nameHint string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	ref := fmt.Sprintf("/media/%d-%s", m.n, nameHint)
	m.files[ref] = data
	return ref, nil
}

func (m *memStore) Remove(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, ref)
	return nil
}

func (m *memStore) has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[ref]
	return ok
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type LifecycleSuite struct {
	suite.Suite
	ctx     context.Context
	db      *gorm.DB
	images  *memStore
	clock   time.Time
	service *lifecycle.Service

	client   *access.Identity
	other    *access.Identity
	manager  *access.Identity
	admin    *access.Identity
	category *models.Category
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testdb.Open(s.T())
	s.images = newMemStore()
	s.clock = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.service = lifecycle.NewService(s.db, s.images, zap.NewNop(), lifecycle.WithClock(func() time.Time {
		s.clock = s.clock.Add(time.Minute)
		return s.clock
	}))

	s.client = access.IdentityOf(testdb.CreateUser(s.T(), s.db, "ivanov", models.RoleClient, false))
	s.other = access.IdentityOf(testdb.CreateUser(s.T(), s.db, "petrov", models.RoleClient, false))
	s.manager = access.IdentityOf(testdb.CreateUser(s.T(), s.db, "manager", models.RoleManager, false))
	s.admin = access.IdentityOf(testdb.CreateUser(s.T(), s.db, "admin", "", true))
	s.category = testdb.CreateCategory(s.T(), s.db, "3D-дизайн")
}

func (s *LifecycleSuite) createPlan(owner *access.Identity, title string) *models.RoomPlan {
	plan, err := s.service.Create(s.ctx, owner, lifecycle.CreateInput{
		Title:       title,
		Description: "Гостиная 20 м²",
		CategoryID:  s.category.ID,
	})
	s.Require().NoError(err)
	return plan
}

func (s *LifecycleSuite) reload(id uint) models.RoomPlan {
	var p models.RoomPlan
	s.Require().NoError(s.db.First(&p, id).Error)
	return p
}

func png(size int) *storage.Upload {
	return &storage.Upload{Filename: "room.png", Size: int64(size), Data: []byte("png")}
}

func ptr[T any](v T) *T { return &v }

// --- Create ---

func (s *LifecycleSuite) TestCreate_Success() {
	plan, err := s.service.Create(s.ctx, s.client, lifecycle.CreateInput{
		Title:       "  Дизайн гостиной  ",
		Description: "Светлые тона",
		CategoryID:  s.category.ID,
		PlanImage:   png(1024),
	})

	s.Require().NoError(err)
	s.Equal("Дизайн гостиной", plan.Title)
	s.Equal(models.StatusNew, plan.Status)
	s.Equal(s.client.UserID, plan.OwnerID)
	s.False(plan.CreatedAt.IsZero())
	s.NotEmpty(plan.PlanImage)
	s.Equal(1, s.images.count())

	stored := s.reload(plan.ID)
	s.Equal(models.StatusNew, stored.Status)
	s.Equal(plan.PlanImage, stored.PlanImage)

	var audit int64
	s.db.Model(&models.AuditLog{}).Where("entity = ? AND entity_id = ? AND action = ?", models.EntityRoomPlan, plan.ID, "create").Count(&audit)
	s.EqualValues(1, audit)
}

func (s *LifecycleSuite) TestCreate_ImageSizeBoundary() {
	_, err := s.service.Create(s.ctx, s.client, lifecycle.CreateInput{
		Title: "Ровно 2 МБ", Description: "ok", CategoryID: s.category.ID, PlanImage: png(2097152),
	})
	s.NoError(err)

	_, err = s.service.Create(s.ctx, s.client, lifecycle.CreateInput{
		Title: "На байт больше", Description: "ok", CategoryID: s.category.ID, PlanImage: png(2097153),
	})
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	v, _ := apperrors.AsValidation(err)
	s.Contains(v.For("plan_image"), "2MB")
}

func (s *LifecycleSuite) TestCreate_RejectsExtension() {
	_, err := s.service.Create(s.ctx, s.client, lifecycle.CreateInput{
		Title: "Гифка", Description: "ok", CategoryID: s.category.ID,
		PlanImage: &storage.Upload{Filename: "room.gif", Size: 10, Data: []byte("gif")},
	})
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	v, _ := apperrors.AsValidation(err)
	s.Contains(v.For("plan_image"), "JPG")
	s.Equal(0, s.images.count())
}

func (s *LifecycleSuite) TestCreate_RequiredFields() {
	_, err := s.service.Create(s.ctx, s.client, lifecycle.CreateInput{Title: " "})
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	v, _ := apperrors.AsValidation(err)
	s.NotEmpty(v.For("title"))
	s.NotEmpty(v.For("description"))
	s.NotEmpty(v.For("category"))
}

func (s *LifecycleSuite) TestCreate_UnknownCategoryDiscardsImage() {
	_, err := s.service.Create(s.ctx, s.client, lifecycle.CreateInput{
		Title: "Кухня", Description: "ok", CategoryID: 9999, PlanImage: png(100),
	})
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	v, _ := apperrors.AsValidation(err)
	s.NotEmpty(v.For("category"))
	s.Equal(0, s.images.count())

	var n int64
	s.db.Model(&models.RoomPlan{}).Count(&n)
	s.Zero(n)
}

func (s *LifecycleSuite) TestCreate_StaffAndAnonymousForbidden() {
	in := lifecycle.CreateInput{Title: "x", Description: "y", CategoryID: s.category.ID}

	_, err := s.service.Create(s.ctx, s.manager, in)
	s.ErrorIs(err, apperrors.ErrForbidden)
	_, err = s.service.Create(s.ctx, s.admin, in)
	s.ErrorIs(err, apperrors.ErrForbidden)
	_, err = s.service.Create(s.ctx, nil, in)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

// --- Delete ---

func (s *LifecycleSuite) TestDelete_OwnNewPlan() {
	plan := s.createPlan(s.client, "Спальня")

	s.Require().NoError(s.service.Delete(s.ctx, s.client, plan.ID))

	var n int64
	s.db.Model(&models.RoomPlan{}).Where("id = ?", plan.ID).Count(&n)
	s.Zero(n)
}

func (s *LifecycleSuite) TestDelete_RemovesStoredImages() {
	plan, err := s.service.Create(s.ctx, s.client, lifecycle.CreateInput{
		Title:       "Спальня",
		Description: "Окна на восток",
		CategoryID:  s.category.ID,
		PlanImage:   png(1024),
	})
	s.Require().NoError(err)
	design, err := s.images.Save(s.ctx, []byte("design"), "designs/bedroom.png")
	s.Require().NoError(err)
	s.Require().NoError(s.db.Model(&models.RoomPlan{}).Where("id = ?", plan.ID).Update("design_image", design).Error)
	s.Require().Equal(2, s.images.count())

	s.Require().NoError(s.service.Delete(s.ctx, s.client, plan.ID))

	s.False(s.images.has(plan.PlanImage))
	s.False(s.images.has(design))
	s.Equal(0, s.images.count())
}

func (s *LifecycleSuite) TestDelete_RefusedKeepsImages() {
	plan, err := s.service.Create(s.ctx, s.client, lifecycle.CreateInput{
		Title:       "Спальня",
		Description: "Окна на восток",
		CategoryID:  s.category.ID,
		PlanImage:   png(1024),
	})
	s.Require().NoError(err)
	s.Require().NoError(s.db.Model(&models.RoomPlan{}).Where("id = ?", plan.ID).Update("status", models.StatusInProgress).Error)

	s.ErrorIs(s.service.Delete(s.ctx, s.client, plan.ID), lifecycle.ErrNotDeletable)
	s.True(s.images.has(plan.PlanImage))
}

func (s *LifecycleSuite) TestDelete_NonOwnerLooksLikeMissing() {
	plan := s.createPlan(s.client, "Спальня")

	errForeign := s.service.Delete(s.ctx, s.other, plan.ID)
	errMissing := s.service.Delete(s.ctx, s.other, plan.ID+100)

	s.ErrorIs(errForeign, apperrors.ErrNotFound)
	s.ErrorIs(errMissing, apperrors.ErrNotFound)
	s.Equal(errMissing.Error(), errForeign.Error())
	s.Equal(models.StatusNew, s.reload(plan.ID).Status)
}

func (s *LifecycleSuite) TestDelete_OnlyWhileNew() {
	for _, st := range []models.PlanStatus{models.StatusInProgress, models.StatusCompleted} {
		plan := s.createPlan(s.client, "План "+string(st))
		s.Require().NoError(s.db.Model(&models.RoomPlan{}).Where("id = ?", plan.ID).Update("status", st).Error)

		err := s.service.Delete(s.ctx, s.client, plan.ID)
		s.ErrorIs(err, lifecycle.ErrNotDeletable)
		s.Equal(st, s.reload(plan.ID).Status)
	}
}

func (s *LifecycleSuite) TestDelete_StaffForbidden() {
	plan := s.createPlan(s.client, "Спальня")
	s.ErrorIs(s.service.Delete(s.ctx, s.manager, plan.ID), apperrors.ErrForbidden)
	s.ErrorIs(s.service.Delete(s.ctx, nil, plan.ID), apperrors.ErrForbidden)
}

// --- UpdateStatus ---

func (s *LifecycleSuite) TestUpdateStatus_CompletedRequiresDesign() {
	plan := s.createPlan(s.client, "Кухня")

	_, err := s.service.UpdateStatus(s.ctx, s.manager, plan.ID, lifecycle.StatusInput{
		Status:       models.StatusCompleted,
		AdminComment: ptr("готово"),
	})
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	v, _ := apperrors.AsValidation(err)
	s.NotEmpty(v.For("design_image"))

	stored := s.reload(plan.ID)
	s.Equal(models.StatusNew, stored.Status)
	s.Empty(stored.AdminComment, "nothing is written on rejection")
}

func (s *LifecycleSuite) TestUpdateStatus_InProgressRequiresComment() {
	plan := s.createPlan(s.client, "Кухня")

	_, err := s.service.UpdateStatus(s.ctx, s.manager, plan.ID, lifecycle.StatusInput{
		Status:       models.StatusInProgress,
		AdminComment: ptr("   "),
		DesignImage:  png(100),
	})
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	v, _ := apperrors.AsValidation(err)
	s.NotEmpty(v.For("admin_comment"))

	stored := s.reload(plan.ID)
	s.Equal(models.StatusNew, stored.Status)
	s.Empty(stored.DesignImage)
	s.Equal(0, s.images.count())
}

func (s *LifecycleSuite) TestUpdateStatus_FullCycleAndRevert() {
	plan := s.createPlan(s.client, "Кухня")

	updated, err := s.service.UpdateStatus(s.ctx, s.manager, plan.ID, lifecycle.StatusInput{
		Status:       models.StatusInProgress,
		AdminComment: ptr("Берём в работу"),
		AssigneeID:   ptr(s.manager.UserID),
	})
	s.Require().NoError(err)
	s.Equal(models.StatusInProgress, updated.Status)
	s.Require().NotNil(updated.AssignedToID)
	s.Equal(s.manager.UserID, *updated.AssignedToID)
	s.Equal("Кухня", updated.Title)

	// comment is kept when not resubmitted; design image is newly supplied
	updated, err = s.service.UpdateStatus(s.ctx, s.admin, plan.ID, lifecycle.StatusInput{
		Status:      models.StatusCompleted,
		DesignImage: png(2048),
	})
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, updated.Status)
	s.Equal("Берём в работу", updated.AdminComment)
	s.NotEmpty(updated.DesignImage)

	// completed is not terminal, and the stored design satisfies the rule
	updated, err = s.service.UpdateStatus(s.ctx, s.admin, plan.ID, lifecycle.StatusInput{
		Status:     models.StatusNew,
		AssigneeID: ptr[uint](0),
	})
	s.Require().NoError(err)
	s.Equal(models.StatusNew, updated.Status)
	s.Nil(updated.AssignedToID)

	_, err = s.service.UpdateStatus(s.ctx, s.admin, plan.ID, lifecycle.StatusInput{Status: models.StatusCompleted})
	s.NoError(err)

	var audit int64
	s.db.Model(&models.AuditLog{}).Where("entity_id = ? AND action = ?", plan.ID, "status_change").Count(&audit)
	s.EqualValues(4, audit)
	s.False(s.reload(plan.ID).CreatedAt.IsZero())
}

func (s *LifecycleSuite) TestUpdateStatus_ReplacedDesignIsRemoved() {
	plan := s.createPlan(s.client, "Кухня")

	first, err := s.service.UpdateStatus(s.ctx, s.manager, plan.ID, lifecycle.StatusInput{
		Status:      models.StatusCompleted,
		DesignImage: png(2048),
	})
	s.Require().NoError(err)
	s.Require().True(s.images.has(first.DesignImage))

	second, err := s.service.UpdateStatus(s.ctx, s.manager, plan.ID, lifecycle.StatusInput{
		Status:      models.StatusCompleted,
		DesignImage: png(4096),
	})
	s.Require().NoError(err)
	s.NotEqual(first.DesignImage, second.DesignImage)
	s.False(s.images.has(first.DesignImage))
	s.True(s.images.has(second.DesignImage))
	s.Equal(1, s.images.count())
}

func (s *LifecycleSuite) TestUpdateStatus_CreatedAtIsImmutable() {
	plan := s.createPlan(s.client, "Кухня")
	before := s.reload(plan.ID).CreatedAt

	_, err := s.service.UpdateStatus(s.ctx, s.manager, plan.ID, lifecycle.StatusInput{
		Status: models.StatusInProgress, AdminComment: ptr("ok"),
	})
	s.Require().NoError(err)
	s.True(before.Equal(s.reload(plan.ID).CreatedAt))
}

func (s *LifecycleSuite) TestUpdateStatus_Rejections() {
	plan := s.createPlan(s.client, "Кухня")

	_, err := s.service.UpdateStatus(s.ctx, s.client, plan.ID, lifecycle.StatusInput{Status: models.StatusNew})
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.service.UpdateStatus(s.ctx, s.manager, plan.ID+42, lifecycle.StatusInput{Status: models.StatusNew})
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.service.UpdateStatus(s.ctx, s.manager, plan.ID, lifecycle.StatusInput{Status: "archived"})
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	v, _ := apperrors.AsValidation(err)
	s.NotEmpty(v.For("status"))

	_, err = s.service.UpdateStatus(s.ctx, s.manager, plan.ID, lifecycle.StatusInput{
		Status: models.StatusNew, AssigneeID: ptr(s.client.UserID),
	})
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	v, _ = apperrors.AsValidation(err)
	s.NotEmpty(v.For("assigned_to"))

	_, err = s.service.UpdateStatus(s.ctx, s.manager, plan.ID, lifecycle.StatusInput{
		Status: models.StatusCompleted, DesignImage: &storage.Upload{Filename: "design.tiff", Size: 10},
	})
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	v, _ = apperrors.AsValidation(err)
	s.Contains(v.For("design_image"), "JPG")

	s.Equal(models.StatusNew, s.reload(plan.ID).Status)
}

// --- listings ---

func (s *LifecycleSuite) TestListForOwner_OnlyOwnNewestFirst() {
	first := s.createPlan(s.client, "Первая")
	s.createPlan(s.other, "Чужая")
	second := s.createPlan(s.client, "Вторая")
	third := s.createPlan(s.client, "Третья")
	_, err := s.service.UpdateStatus(s.ctx, s.manager, second.ID, lifecycle.StatusInput{
		Status: models.StatusInProgress, AdminComment: ptr("ok"),
	})
	s.Require().NoError(err)

	plans, err := s.service.ListForOwner(s.ctx, s.client, "")
	s.Require().NoError(err)
	s.Require().Len(plans, 3)
	s.Equal([]uint{third.ID, second.ID, first.ID}, ids(plans))
	for _, p := range plans {
		s.Equal(s.client.UserID, p.OwnerID)
		s.Equal(s.category.Name, p.Category.Name)
	}

	plans, err = s.service.ListForOwner(s.ctx, s.client, models.StatusInProgress)
	s.Require().NoError(err)
	s.Equal([]uint{second.ID}, ids(plans))

	plans, err = s.service.ListForOwner(s.ctx, nil, "")
	s.NoError(err)
	s.Empty(plans)
}

func (s *LifecycleSuite) TestListForStaff_Filters() {
	other := testdb.CreateCategory(s.T(), s.db, "Эскиз")
	a := s.createPlan(s.client, "A")
	b, err := s.service.Create(s.ctx, s.other, lifecycle.CreateInput{Title: "B", Description: "d", CategoryID: other.ID})
	s.Require().NoError(err)
	c := s.createPlan(s.other, "C")
	_, err = s.service.UpdateStatus(s.ctx, s.manager, c.ID, lifecycle.StatusInput{Status: models.StatusInProgress, AdminComment: ptr("ok")})
	s.Require().NoError(err)

	all, err := s.service.ListForStaff(s.ctx, lifecycle.StaffFilter{})
	s.Require().NoError(err)
	s.Equal([]uint{c.ID, b.ID, a.ID}, ids(all))

	byCat, err := s.service.ListForStaff(s.ctx, lifecycle.StaffFilter{CategoryID: s.category.ID})
	s.Require().NoError(err)
	s.Equal([]uint{c.ID, a.ID}, ids(byCat))

	both, err := s.service.ListForStaff(s.ctx, lifecycle.StaffFilter{CategoryID: s.category.ID, Status: models.StatusNew})
	s.Require().NoError(err)
	s.Equal([]uint{a.ID}, ids(both))

	none, err := s.service.ListForStaff(s.ctx, lifecycle.StaffFilter{CategoryID: other.ID, Status: models.StatusCompleted})
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *LifecycleSuite) TestStats() {
	st, err := s.service.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(lifecycle.Stats{}, st)

	s.createPlan(s.client, "1")
	s.createPlan(s.client, "2")
	p3 := s.createPlan(s.other, "3")
	p4 := s.createPlan(s.other, "4")
	_, err = s.service.UpdateStatus(s.ctx, s.manager, p3.ID, lifecycle.StatusInput{Status: models.StatusInProgress, AdminComment: ptr("ok")})
	s.Require().NoError(err)
	_, err = s.service.UpdateStatus(s.ctx, s.manager, p4.ID, lifecycle.StatusInput{Status: models.StatusCompleted, DesignImage: png(10)})
	s.Require().NoError(err)

	st, err = s.service.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(lifecycle.Stats{Total: 4, New: 2, InProgress: 1, Completed: 1}, st)
	s.Equal(st.Total, st.New+st.InProgress+st.Completed)
}

func (s *LifecycleSuite) TestShowcase() {
	var completed []uint
	for i := 0; i < 5; i++ {
		p := s.createPlan(s.client, fmt.Sprintf("Готовая %d", i))
		_, err := s.service.UpdateStatus(s.ctx, s.manager, p.ID, lifecycle.StatusInput{Status: models.StatusCompleted, DesignImage: png(10)})
		s.Require().NoError(err)
		completed = append(completed, p.ID)
	}
	p := s.createPlan(s.client, "В работе")
	_, err := s.service.UpdateStatus(s.ctx, s.manager, p.ID, lifecycle.StatusInput{Status: models.StatusInProgress, AdminComment: ptr("ok")})
	s.Require().NoError(err)

	sc, err := s.service.Showcase(s.ctx, 4)
	s.Require().NoError(err)
	s.EqualValues(1, sc.InProgressCount)
	s.Equal([]uint{completed[4], completed[3], completed[2], completed[1]}, ids(sc.Completed))
}

func (s *LifecycleSuite) TestGetOwned() {
	plan := s.createPlan(s.client, "Мой план")

	got, err := s.service.GetOwned(s.ctx, s.client, plan.ID)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(got.Title, "Мой"))

	_, err = s.service.GetOwned(s.ctx, s.other, plan.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)

	staffView, err := s.service.Get(s.ctx, plan.ID)
	s.Require().NoError(err)
	s.Equal("ivanov", staffView.Owner.Username)
}

func ids(plans []models.RoomPlan) []uint {
	out := make([]uint, 0, len(plans))
	for _, p := range plans {
		out = append(out, p.ID)
	}
	return out
}
