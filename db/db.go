// Package db provides the database gateway handed to endpoint handlers:
// an embedded sqlite store in debug, mysql in production, with
// request-scoped sessions released by the engine.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cryptic-game/cryptic-go/cmn"
)

// Model is the declarative base embedded by worker-defined tables.
type Model = gorm.Model

// Gateway wraps the process-wide engine. Handlers obtain a request-scoped
// session via Session(); the engine releases it after the handler returns,
// on all exit paths.
type Gateway struct {
	cfg *cmn.Config
	db  *gorm.DB
}

func New(cfg *cmn.Config) (*Gateway, error) {
	var (
		dial gorm.Dialector
		gcfg = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	)
	switch cfg.DBMS {
	case cmn.DBMSSQLite:
		if err := os.MkdirAll(cfg.DataLocation, 0o755); err != nil {
			return nil, errors.Wrap(err, "create data location")
		}
		dial = sqlite.Open(filepath.Join(cfg.DataLocation, cfg.SQLiteFile))
	case cmn.DBMSMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.MySQL.Username, cfg.MySQL.Password, cfg.MySQL.Hostname, cfg.MySQL.Port, cfg.MySQL.Database)
		dial = mysql.Open(dsn)
	default:
		return nil, cmn.NewErrUnknownDBMS(string(cfg.DBMS))
	}
	db, err := gorm.Open(dial, gcfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", cfg.DBMS)
	}
	return &Gateway{cfg: cfg, db: db}, nil
}

// Engine returns the shared handle; prefer Session() inside handlers.
func (g *Gateway) Engine() *gorm.DB { return g.db }

// Session returns a fresh request-scoped session.
func (g *Gateway) Session() *gorm.DB {
	return g.db.Session(&gorm.Session{NewDB: true})
}

// Release ends a request scope. Pooled connections return as statements
// complete; the scope handle must not be used afterwards.
func (g *Gateway) Release(*gorm.DB) {}

// Migrate creates/updates the tables for the given models.
func (g *Gateway) Migrate(models ...any) error {
	return g.db.AutoMigrate(models...)
}
