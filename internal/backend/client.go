// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package backend assembles the data client used by the site and the
// dashboard: one table client per resource, the auth service and the
// gallery storage bucket.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/olegiv/pesantren-go/internal/auth"
	"github.com/olegiv/pesantren-go/internal/config"
	"github.com/olegiv/pesantren-go/internal/model"
	"github.com/olegiv/pesantren-go/internal/storage"
	"github.com/olegiv/pesantren-go/internal/store"
)

// GalleryBucket is the name of the bucket gallery photos are uploaded to.
const GalleryBucket = "gallery"

// Client is the data client shared by every component.
type Client struct {
	DB      *sql.DB
	Dialect store.Dialect

	Profile    *store.Table[model.Profile]
	Activities *store.Table[model.Activity]
	Gallery    *store.Table[model.GalleryItem]
	Contact    *store.Table[model.ContactInfo]
	PageViews  *store.Table[model.PageView]
	UserRoles  *store.Table[model.UserRole]

	Auth    *auth.Service
	Storage storage.Bucket

	hub *auth.Hub
}

// New builds a client over an open database.
func New(db *sql.DB, dialect store.Dialect, hub *auth.Hub, bucket storage.Bucket) *Client {
	return &Client{
		DB:         db,
		Dialect:    dialect,
		Profile:    store.NewTable(db, dialect, store.ProfileSchema),
		Activities: store.NewTable(db, dialect, store.ActivitySchema),
		Gallery:    store.NewTable(db, dialect, store.GallerySchema),
		Contact:    store.NewTable(db, dialect, store.ContactSchema),
		PageViews:  store.NewTable(db, dialect, store.PageViewSchema),
		UserRoles:  store.NewTable(db, dialect, store.UserRoleSchema),
		Auth:       auth.NewService(db, dialect, hub),
		Storage:    bucket,
		hub:        hub,
	}
}

// NewBroker creates the auth event broker selected in cfg.
func NewBroker(cfg *config.Config) (auth.Broker, error) {
	switch cfg.EventBroker {
	case config.BrokerRedis:
		return auth.NewRedisBroker(cfg.RedisURL, auth.DefaultChannel)
	case config.BrokerNATS:
		return auth.NewNATSBroker(cfg.NATSURL, auth.DefaultChannel)
	default:
		return auth.NewMemoryBroker(), nil
	}
}

// NewBucket creates the gallery bucket selected in cfg.
func NewBucket(ctx context.Context, cfg *config.Config) (storage.Bucket, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		return storage.NewS3Bucket(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
		})
	default:
		return storage.NewLocalBucket(cfg.UploadsDir, GalleryBucket, cfg.PublicBaseURL)
	}
}

// Open connects everything described by cfg: database (migrated), auth
// broker and storage bucket.
func Open(ctx context.Context, cfg *config.Config) (*Client, error) {
	target := cfg.DBPath
	if cfg.DBDriver == config.DriverPostgres {
		target = cfg.DatabaseURL
	}
	db, dialect, err := store.Open(cfg.DBDriver, target)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	broker, err := NewBroker(cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating event broker: %w", err)
	}
	hub, err := auth.NewHub(broker)
	if err != nil {
		_ = broker.Close()
		_ = db.Close()
		return nil, fmt.Errorf("subscribing to auth events: %w", err)
	}

	bucket, err := NewBucket(ctx, cfg)
	if err != nil {
		_ = hub.Close()
		_ = db.Close()
		return nil, fmt.Errorf("creating storage bucket: %w", err)
	}

	slog.Info("data client ready",
		"db_driver", cfg.DBDriver,
		"storage", cfg.StorageBackend,
		"event_broker", cfg.EventBroker,
	)
	return New(db, dialect, hub, bucket), nil
}

// Close releases the broker and the database.
func (c *Client) Close() error {
	var firstErr error
	if c.hub != nil {
		if err := c.hub.Close(); err != nil {
			firstErr = err
		}
	}
	if err := c.DB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
