package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reading is one successful poll: the cost, its band and what was sent.
type Reading struct {
	ID            int64
	ObservedAt    time.Time
	NetUID        string
	Cost          decimal.Decimal
	Band          string
	Low           bool
	SuperLow      bool
	Notifications []string
	CreatedAt     time.Time
}
