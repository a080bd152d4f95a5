package db

import (
	"time"

	"heart-monitor-api/core"
)

type User struct {
	ID             string
	Username       string
	Email          string
	Role           string
	DeviceCode     *string
	IsActive       bool
	IsDeleted      bool
	DeletedAt      *time.Time
	CreatedAt      time.Time
	CreatedBy      *string
	Weight         *float64
	Height         *float64
	HeartCondition *string
	Age            *int
	MaxSafeBPM     int
	MinSafeBPM     int
}

// State derives the explicit lifecycle state from the persisted flag pair.
func (u *User) State() (core.AccountState, error) {
	return core.StateFromFlags(u.IsActive, u.IsDeleted)
}

// Principal exposes the fields the authorization predicates operate on.
func (u *User) Principal() core.Principal {
	return core.Principal{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedBy: u.CreatedBy,
	}
}

// SafeLimits returns the account's thresholds, falling back to the
// defaults when unset.
func (u *User) SafeLimits() (maxSafe, minSafe int) {
	maxSafe = u.MaxSafeBPM
	minSafe = u.MinSafeBPM
	if maxSafe <= 0 {
		maxSafe = core.DefaultMaxSafeBPM
	}
	if minSafe <= 0 {
		minSafe = core.DefaultMinSafeBPM
	}
	return maxSafe, minSafe
}

type Device struct {
	DeviceCode string
	IsUsed     bool
	CreatedAt  time.Time
}

type SensorReading struct {
	ID        string
	UserID    string
	BPM       int
	IsAlert   bool
	Timestamp time.Time
}

type SchemaMigration struct {
	Version   int
	AppliedAt time.Time
}
