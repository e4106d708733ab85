package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"eshop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func observed(level zapcore.Level) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewGormLogger(zap.New(core)), logs
}

func query() (string, int64) { return "SELECT 1", 0 }

func TestGormLoggerTrace(t *testing.T) {
	ctx := context.Background()

	t.Run("record not found is silent", func(t *testing.T) {
		l, logs := observed(zapcore.DebugLevel)
		l.Trace(ctx, time.Now(), query, gorm.ErrRecordNotFound)
		assert.Zero(t, logs.Len())
	})

	t.Run("errors are logged", func(t *testing.T) {
		l, logs := observed(zapcore.DebugLevel)
		l.Trace(ctx, time.Now(), query, errors.New("syntax error"))
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)
		assert.Equal(t, "gorm", entry.LoggerName)
		assert.Equal(t, "SELECT 1", entry.ContextMap()["sql"])
	})

	t.Run("slow queries warn", func(t *testing.T) {
		l, logs := observed(zapcore.DebugLevel)
		l.Trace(ctx, time.Now().Add(-time.Second), query, nil)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	})

	t.Run("fast queries only at info mode", func(t *testing.T) {
		l, logs := observed(zapcore.DebugLevel)
		l.Trace(ctx, time.Now(), query, nil)
		assert.Zero(t, logs.Len())

		l.LogMode(logger.Info).Trace(ctx, time.Now(), query, nil)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	})

	t.Run("silent mode", func(t *testing.T) {
		l, logs := observed(zapcore.DebugLevel)
		l.LogMode(logger.Silent).Trace(ctx, time.Now(), query, errors.New("boom"))
		assert.Zero(t, logs.Len())
	})
}

func TestOpenRoutesMissingRowsAwayFromLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	db, err := Open("sqlite", "file:gorm_logger_test?mode=memory&cache=shared", zap.New(core))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(db))

	var user models.User
	err = db.First(&user, "id = ?", "missing").Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Zero(t, logs.FilterMessage("SQL execution failed").Len())
}
