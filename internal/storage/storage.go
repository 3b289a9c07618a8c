// Package storage is the persistence layer: the relation cache, the quota
// ledger, the order ledger and the invite ledger, all backed by GORM over an
// embedded relational store.
//
// Every multi-step read-modify-write (quota consumption, order completion,
// invite redemption) runs inside a transaction AND under the storage mutex.
// The mutex is what gives the unit its exclusive write intent from the first
// read: SQLite under GORM starts transactions deferred, so two concurrent
// consume units could otherwise both read the old balance before either
// writes. The service is single-process, which makes the in-process mutex a
// sufficient lock for the store.
package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vaultgram/vaultgram-server/internal/config"
	"github.com/vaultgram/vaultgram-server/internal/model"
	storage_logger "github.com/vaultgram/vaultgram-server/internal/storage/storage_logger"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type Storage struct {
	db *gorm.DB
	mu sync.Mutex

	dailyFree    int
	inviteReward int
	inviteCap    int
}

func New(config *config.Config, logger *slog.Logger) (*Storage, error) {
	dialector, err := createDialector(&config.Database)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(
		dialector,
		&gorm.Config{
			NamingStrategy: schema.NamingStrategy{},
			Logger:         storage_logger.NewGormSlogLogger(logger),
			NowFunc:        func() time.Time { return time.Now().UTC() },
		})
	if err != nil {
		return nil, err
	}

	// Migrations
	const timeoutSeconds = 15 * 60
	ctx, cancel := context.WithTimeout(context.Background(), timeoutSeconds*time.Second)
	defer cancel()
	if err := db.WithContext(ctx).AutoMigrate(
		&model.MessageRelation{},
		&model.UserQuota{},
		&model.Order{},
		&model.InviteRelation{},
	); err != nil {
		return nil, err
	}

	return &Storage{
		db:           db,
		dailyFree:    config.Quota.DailyFree,
		inviteReward: config.Quota.InviteReward,
		inviteCap:    config.Quota.InviteCap,
	}, nil
}

// Close - close the database connection
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping - check the database connection, used by the health endpoint.
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CurrentDate - the calendar date quota resets key on, always UTC.
func CurrentDate() string {
	return time.Now().UTC().Format("2006-01-02")
}
