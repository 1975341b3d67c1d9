package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StoreIDSetting is the transaction-local setting the row-level security policies compare
// store_id against. An empty value matches no row.
const StoreIDSetting = "app.current_store_id"

// TenantDB is a transaction handle bound to one store.
//
// Repositories filter by StoreID explicitly; the bound setting makes PostgreSQL enforce the
// same boundary for any statement that forgets to.
type TenantDB interface {
	DB
	StoreID() uuid.UUID
}

// TenantExecutor runs units of work inside store-scoped transactions.
type TenantExecutor interface {
	// WithTenantTx executes txFunc in a new transaction bound to storeID. uuid.Nil is allowed
	// and yields a transaction in which tenant tables read as empty and reject writes.
	// Any error returned by txFunc rolls the whole transaction back.
	WithTenantTx(ctx context.Context, storeID uuid.UUID, txFunc func(TenantDB) error, opts ...TxOption) error
}

type tenantTx struct {
	DB
	storeID uuid.UUID
}

func (t tenantTx) StoreID() uuid.UUID {
	return t.storeID
}

// WithTenantTx implements TenantExecutor on top of WithTx.
func (p *Client) WithTenantTx(ctx context.Context, storeID uuid.UUID, txFunc func(TenantDB) error, opts ...TxOption) error {
	return p.WithTx(ctx, func(tx DB) error {
		if err := BindStore(ctx, tx, storeID); err != nil {
			return err
		}
		return txFunc(tenantTx{DB: tx, storeID: storeID})
	}, opts...)
}

// BindStore sets StoreIDSetting for the remainder of the transaction tx belongs to.
func BindStore(ctx context.Context, tx DB, storeID uuid.UUID) error {
	value := ""
	if storeID != uuid.Nil {
		value = storeID.String()
	}

	if _, err := tx.Exec(ctx, "SELECT set_config($1, $2, true)", StoreIDSetting, value); err != nil {
		return fmt.Errorf("bind store id: %w", err)
	}
	return nil
}

// NewTenantDB binds an already running transaction to storeID without touching the session
// setting. It exists for tests and tools that manage the transaction themselves.
func NewTenantDB(tx DB, storeID uuid.UUID) TenantDB {
	return tenantTx{DB: tx, storeID: storeID}
}
