// Package handlers holds the server-rendered pages of the site.
package handlers

import (
	"designpro/internal/accounts"
	"designpro/internal/catalog"
	"designpro/internal/lifecycle"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handlers carries the services every page works with.
type Handlers struct {
	plans     *lifecycle.Service
	catalog   *catalog.Service
	accounts  *accounts.Service
	db        *gorm.DB
	log       *zap.Logger
	siteTitle string
}

type Deps struct {
	Plans     *lifecycle.Service
	Catalog   *catalog.Service
	Accounts  *accounts.Service
	DB        *gorm.DB
	Log       *zap.Logger
	SiteTitle string
}

func New(d Deps) *Handlers {
	registerFormValidators()

	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		plans:     d.Plans,
		catalog:   d.Catalog,
		accounts:  d.Accounts,
		db:        d.DB,
		log:       log,
		siteTitle: d.SiteTitle,
	}
}
