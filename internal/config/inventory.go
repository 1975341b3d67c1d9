package config

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

type Inventory struct {
	// A committed decrement leaving stock at or below this value schedules a low-stock notification.
	LowStockThreshold int `env:"INVENTORY_LOW_STOCK_THRESHOLD" envDefault:"5"`

	// CreateIsolation is the isolation level of the transaction that checks the product quota and inserts.
	// Under READ_COMMITTED two concurrent creates may both pass the quota check.
	CreateIsolation IsolationLevel `env:"INVENTORY_CREATE_ISOLATION" envDefault:"READ_COMMITTED"`

	DefaultPageSize int `env:"INVENTORY_DEFAULT_PAGE_SIZE" envDefault:"20"`
	MaxPageSize     int `env:"INVENTORY_MAX_PAGE_SIZE" envDefault:"100"`
}

// IsolationLevel is a PostgreSQL transaction isolation level.
type IsolationLevel uint8

const (
	IsolationReadCommitted IsolationLevel = iota
	IsolationRepeatableRead
	IsolationSerializable
)

func (l IsolationLevel) String() string {
	return []string{"READ_COMMITTED", "REPEATABLE_READ", "SERIALIZABLE"}[l]
}

// TxIsoLevel converts l to the pgx representation.
func (l IsolationLevel) TxIsoLevel() pgx.TxIsoLevel {
	switch l {
	case IsolationRepeatableRead:
		return pgx.RepeatableRead
	case IsolationSerializable:
		return pgx.Serializable
	default:
		return pgx.ReadCommitted
	}
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (l *IsolationLevel) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.ReplaceAll(string(text), " ", "_")) {
	case "READ_COMMITTED":
		*l = IsolationReadCommitted
	case "REPEATABLE_READ":
		*l = IsolationRepeatableRead
	case "SERIALIZABLE":
		*l = IsolationSerializable
	default:
		return fmt.Errorf("unknown isolation level: %s", text)
	}
	return nil
}

func (l IsolationLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
