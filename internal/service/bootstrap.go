package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bagger-dev/bagger-back/internal/db"
)

type (
	// Bootstrap assembles the single consistent snapshot a client needs
	// after login: taxonomy, visible cheats, the full link tables and
	// the caller's overlays. Read-only, one transaction.
	Bootstrap struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}

	Snapshot struct {
		User           *db.User
		Platforms      []db.Platform
		Topics         []db.Topic
		Cheats         []CheatView
		CheatPlatforms []db.CheatPlatform
		CheatTopics    []db.CheatTopic
		Overlays       []db.UserCheat
	}
)

func NewBootstrap(gdb *gorm.DB, l *zap.SugaredLogger) *Bootstrap {
	return &Bootstrap{db: gdb, logger: l}
}

func (s *Bootstrap) Snapshot(user *db.User) (*Snapshot, error) {
	snap := Snapshot{
		User:           user,
		Platforms:      make([]db.Platform, 0),
		Topics:         make([]db.Topic, 0),
		CheatPlatforms: make([]db.CheatPlatform, 0),
		CheatTopics:    make([]db.CheatTopic, 0),
		Overlays:       make([]db.UserCheat, 0),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("name asc").Find(&snap.Platforms).Error; err != nil {
			return errors.Wrap(err, "load platforms")
		}
		if err := tx.Order("name asc").Find(&snap.Topics).Error; err != nil {
			return errors.Wrap(err, "load topics")
		}

		cheats, err := listVisible(tx, user.ID)
		if err != nil {
			return err
		}
		snap.Cheats = cheats

		// Link tables go out unfiltered; consumers join them against
		// the visible cheat ids themselves.
		if err := tx.Find(&snap.CheatPlatforms).Error; err != nil {
			return errors.Wrap(err, "load platform links")
		}
		if err := tx.Find(&snap.CheatTopics).Error; err != nil {
			return errors.Wrap(err, "load topic links")
		}

		if err := tx.Where("user_id = ?", user.ID).Find(&snap.Overlays).Error; err != nil {
			return errors.Wrap(err, "load overlays")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &snap, nil
}
