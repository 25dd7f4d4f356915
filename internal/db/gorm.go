package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bagger-dev/bagger-back/internal/config"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		GormForkedModel
		Email        string `gorm:"unique;not null"`
		Name         string `gorm:"not null"`
		PasswordHash string `gorm:"not null"`
		IsAdmin      bool   `gorm:"not null;default:false"`
		Cheats       []Cheat `gorm:"foreignKey:CreatedByUserID"`
	}

	Platform struct {
		GormForkedModel
		Name string `gorm:"unique;not null"`
		Slug string `gorm:"unique;not null"`
		Kind string `gorm:"not null;default:language"`
	}

	Topic struct {
		GormForkedModel
		Name string `gorm:"unique;not null"`
		Slug string `gorm:"unique;not null"`
	}

	Cheat struct {
		GormForkedModel
		Title           string  `gorm:"not null"`
		Code            string  `gorm:"not null"`
		Notes           *string
		CreatedByUserID *uint64 `gorm:"index"` // null means system cheat
		IsPublic        bool    `gorm:"not null;default:true"`
	}

	// Link tables are explicit models rather than gorm many2many
	// auto-tables: writes must be validated against the taxonomy and
	// the bootstrap read returns the raw pairs.
	CheatPlatform struct {
		CheatID    uint64 `gorm:"primarykey;autoIncrement:false"`
		PlatformID uint64 `gorm:"primarykey;autoIncrement:false"`
	}

	CheatTopic struct {
		CheatID uint64 `gorm:"primarykey;autoIncrement:false"`
		TopicID uint64 `gorm:"primarykey;autoIncrement:false"`
	}

	UserCheat struct {
		UserID        uint64 `gorm:"primarykey;autoIncrement:false"`
		CheatID       uint64 `gorm:"primarykey;autoIncrement:false"`
		IsFavorite    bool   `gorm:"not null;default:false"`
		PersonalNotes *string
		CreatedAt     time.Time
	}
)

func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Platform{},
		&Topic{},
		&Cheat{},
		&CheatPlatform{},
		&CheatTopic{},
		&UserCheat{},
	}
}

func NewGormClient(cfg *config.Config) (*gorm.DB, error) {
	newLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Info,
		Colorful:                  true,
		IgnoreRecordNotFoundError: false,
	})

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	for _, model := range AllModels() {
		if err := db.AutoMigrate(model); err != nil {
			return nil, errors.Wrapf(err, "migrate %T", model)
		}
	}

	return db, nil
}
