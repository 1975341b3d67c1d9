// Package dbtest connects integration tests to a real PostgreSQL.
package dbtest

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/log"
	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/db"
)

// DSNEnv names the connection string variable. Tests are skipped when it is empty.
// The role must not be a superuser or have BYPASSRLS, or isolation tests prove nothing.
const DSNEnv = "INVENTORY_TEST_POSTGRES_DSN"

var migrateOnce sync.Once

// Open returns a client on a migrated database, or skips the test.
func Open(t *testing.T) *db.Client {
	t.Helper()

	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", DSNEnv)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	var migrateErr error
	migrateOnce.Do(func() {
		migrateErr = db.Migrate(ctx, pool, log.NewDiscardLogger())
	})
	require.NoError(t, migrateErr)

	return db.NewClient(pool)
}

// StoreOptions describe the store created by CreateStore.
type StoreOptions struct {
	ContactEmail *string
	// WithLicense adds a license row with MaxProducts and ExpiresAt.
	WithLicense bool
	MaxProducts *int
	ExpiresAt   *time.Time
}

// CreateStore inserts a fresh store and returns its id.
func CreateStore(t *testing.T, client *db.Client, opts StoreOptions) uuid.UUID {
	t.Helper()

	storeID := uuid.New()
	err := client.WithTenantTx(context.Background(), storeID, func(tx db.TenantDB) error {
		if _, err := tx.Exec(context.Background(),
			`INSERT INTO stores (id, name, contact_email) VALUES ($1, $2, $3)`,
			storeID, "store "+storeID.String()[:8], opts.ContactEmail,
		); err != nil {
			return err
		}

		if !opts.WithLicense {
			return nil
		}

		_, err := tx.Exec(context.Background(),
			`INSERT INTO store_licenses (store_id, max_products, expires_at) VALUES ($1, $2, $3)`,
			storeID, opts.MaxProducts, opts.ExpiresAt,
		)
		return err
	})
	require.NoError(t, err)

	return storeID
}
