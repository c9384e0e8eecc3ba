// Package seed fills a fresh database with the initial categories and role
// assignments. Missing users and unknown roles are logged and skipped.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"designpro/internal/accounts"
	"designpro/internal/apperrors"
	"designpro/internal/catalog"
	"designpro/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type RoleAssignment struct {
	Username    string `yaml:"username"`
	Role        string `yaml:"role"`
	DisplayName string `yaml:"display_name"`
}

type File struct {
	Categories []Category       `yaml:"categories"`
	Roles      []RoleAssignment `yaml:"roles"`
}

// Default is used when no seed file is configured.
var Default = File{
	Categories: []Category{
		{Name: "3D-дизайн", Description: "Трехмерное проектирование интерьера"},
		{Name: "2D-дизайн", Description: "Двухмерные чертежи и планы"},
		{Name: "Эскиз", Description: "Предварительные наброски и концепции"},
		{Name: "Полный дизайн-проект", Description: "Комплексное проектирование интерьера"},
	},
}

func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return f, nil
}

type Report struct {
	CategoriesCreated int
	CategoriesExisted int
	RolesAssigned     int
	Skipped           int
}

func Apply(ctx context.Context, f File, cats *catalog.Service, users *accounts.Service, log *zap.Logger) (Report, error) {
	var r Report

	for _, c := range f.Categories {
		if c.Name == "" {
			r.Skipped++
			log.Warn("skipping category without name")
			continue
		}
		created, err := cats.Ensure(ctx, c.Name, c.Description)
		if err != nil {
			return r, fmt.Errorf("seed category %q: %w", c.Name, err)
		}
		if created {
			r.CategoriesCreated++
			log.Info("created category", zap.String("name", c.Name))
		} else {
			r.CategoriesExisted++
			log.Debug("category already exists", zap.String("name", c.Name))
		}
	}

	for _, a := range f.Roles {
		role, ok := models.ParseRole(a.Role)
		if !ok {
			r.Skipped++
			log.Warn("skipping unknown role", zap.String("username", a.Username), zap.String("role", a.Role))
			continue
		}
		displayName := a.DisplayName
		if displayName == "" {
			displayName = "Тестовый " + string(role)
		}
		err := users.AssignRole(ctx, a.Username, role, displayName)
		if errors.Is(err, apperrors.ErrNotFound) {
			r.Skipped++
			log.Warn("user not found, skipping role assignment", zap.String("username", a.Username))
			continue
		}
		if err != nil {
			return r, fmt.Errorf("assign role to %s: %w", a.Username, err)
		}
		r.RolesAssigned++
		log.Info("role assigned", zap.String("username", a.Username), zap.String("role", string(role)))
	}

	return r, nil
}
