package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/config"
)

func TestBuildTxOptions(t *testing.T) {
	t.Run("Should default to server settings", func(t *testing.T) {
		assert.Equal(t, pgx.TxOptions{}, buildTxOptions(nil))
	})

	t.Run("Should apply options in order", func(t *testing.T) {
		opts := buildTxOptions([]TxOption{WithIsolation(pgx.Serializable), ReadOnly()})
		assert.Equal(t, pgx.Serializable, opts.IsoLevel)
		assert.Equal(t, pgx.ReadOnly, opts.AccessMode)
	})
}

func TestIsSerializationFailure(t *testing.T) {
	wrapped := fmt.Errorf("commit transaction: %w", &pgconn.PgError{Code: "40001"})
	assert.True(t, IsSerializationFailure(wrapped))
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsSerializationFailure(errors.New("boom")))
}

func TestIsCheckViolation(t *testing.T) {
	assert.True(t, IsCheckViolation(fmt.Errorf("update: %w", &pgconn.PgError{Code: "23514"})))
	assert.False(t, IsCheckViolation(errors.New("boom")))
}

func TestConnectionString(t *testing.T) {
	cs := connectionString(config.Postgres{
		Host:            "db",
		Port:            5432,
		User:            "inv",
		Password:        "p@ss:word",
		DB:              "inventory",
		SSLMode:         "disable",
		ApplicationName: "tenant-inventory",
	})

	cfg, err := pgx.ParseConfig(cs)
	assert.NoError(t, err)
	assert.Equal(t, "p@ss:word", cfg.Password)
	assert.Equal(t, "inventory", cfg.Database)
	assert.Equal(t, "tenant-inventory", cfg.RuntimeParams["application_name"])
}
