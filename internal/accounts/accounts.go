// Package accounts is the user directory: registration, password login and
// loading users together with their role profile.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"designpro/internal/access"
	"designpro/internal/apperrors"
	"designpro/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrInvalidCredentials covers both an unknown username and a wrong password.
var ErrInvalidCredentials = errors.New("неверный логин или пароль")

var (
	fullNamePattern = regexp.MustCompile(`^[А-Яа-яёЁ\s\-]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z\-]+$`)
)

const minPasswordLength = 8

// ValidFullName: кириллица, пробелы и дефис.
func ValidFullName(s string) bool { return fullNamePattern.MatchString(s) }

// ValidUsername: латиница и дефис.
func ValidUsername(s string) bool { return usernamePattern.MatchString(s) }

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	cost int
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log, cost: bcrypt.DefaultCost}
}

// WithHashCost returns a copy using the given bcrypt cost.
func (s *Service) WithHashCost(cost int) *Service {
	c := *s
	c.cost = cost
	return &c
}

type RegisterInput struct {
	FullName        string
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	Consent         bool
}

// Register creates a client account and its profile in one transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	verr := &apperrors.ValidationError{}
	switch {
	case in.FullName == "":
		verr.Add("full_name", "Укажите ФИО")
	case len([]rune(in.FullName)) > 200 || !ValidFullName(in.FullName):
		verr.Add("full_name", "ФИО должно содержать только кириллические буквы, пробелы и дефис")
	}
	switch {
	case in.Username == "":
		verr.Add("username", "Укажите логин")
	case len(in.Username) > 150 || !ValidUsername(in.Username):
		verr.Add("username", "Логин должен содержать только латинские буквы и дефис")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		verr.Add("email", "Введите корректный email")
	}
	if len(in.Password) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("Пароль должен быть не короче %d символов", minPasswordLength))
	} else if in.Password != in.PasswordConfirm {
		verr.Add("password_confirm", "Пароли не совпадают")
	}
	if !in.Consent {
		verr.Add("agreement", "Необходимо согласие на обработку персональных данных")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NewValidation("username", "Пользователь с таким логином уже существует")
		}
		if err := tx.Omit("Profile").Create(user).Error; err != nil {
			return err
		}
		user.Profile = &models.Profile{
			UserID:       user.ID,
			DisplayName:  in.FullName,
			Role:         models.RoleClient,
			ConsentGiven: true,
		}
		return tx.Create(user.Profile).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Authenticate checks the password and returns the user with its profile.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Where("username = ?", strings.TrimSpace(username)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Load returns the user with its profile, or apperrors.ErrNotFound.
func (s *Service) Load(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername is Load by username.
func (s *Service) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListStaff returns users resolving to a staff role, ordered by username.
func (s *Service) ListStaff(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Joins("LEFT JOIN profiles ON profiles.user_id = users.id").
		Where("profiles.role IN ? OR (profiles.id IS NULL AND users.is_privileged = ?)",
			[]models.Role{models.RoleAdmin, models.RoleManager}, true).
		Order("users.username asc").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	staff := users[:0]
	for i := range users {
		if access.IdentityOf(&users[i]).IsStaff() {
			staff = append(staff, users[i])
		}
	}
	return staff, nil
}

// AssignRole creates or updates the profile of username. Used by seeding.
func (s *Service) AssignRole(ctx context.Context, username string, role models.Role, displayName string) error {
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return err
	}

	profile := user.Profile
	if profile == nil {
		profile = &models.Profile{UserID: user.ID}
	}
	profile.Role = role
	profile.ConsentGiven = true
	if displayName != "" {
		profile.DisplayName = displayName
	}
	return s.db.WithContext(ctx).Save(profile).Error
}
