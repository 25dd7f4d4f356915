package service

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bagger-dev/bagger-back/internal/auth"
	"github.com/bagger-dev/bagger-back/internal/config"
	"github.com/bagger-dev/bagger-back/internal/db"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique shared-cache name keeps each test on its own in-memory DB
	// while letting gorm's pool see the same database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	for _, model := range db.AllModels() {
		require.NoError(t, gdb.AutoMigrate(model))
	}

	return gdb
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func testAuth(t *testing.T) (*auth.Password, *auth.Token) {
	t.Helper()
	cfg := &config.Config{JWTSecret: "test-secret-at-least-16-chars", TokenTTLHours: 24}
	return auth.NewPasswordWithCost(4), auth.NewToken(cfg)
}

func createTestUser(t *testing.T, gdb *gorm.DB, email string) *db.User {
	t.Helper()
	user := db.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: "digest",
	}
	require.NoError(t, gdb.Create(&user).Error)
	return &user
}

func createTestPlatform(t *testing.T, gdb *gorm.DB, name string) *db.Platform {
	t.Helper()
	model := db.Platform{Name: name, Slug: Slugify(name), Kind: DefaultPlatformKind}
	require.NoError(t, gdb.Create(&model).Error)
	return &model
}

func createTestTopic(t *testing.T, gdb *gorm.DB, name string) *db.Topic {
	t.Helper()
	model := db.Topic{Name: name, Slug: Slugify(name)}
	require.NoError(t, gdb.Create(&model).Error)
	return &model
}
