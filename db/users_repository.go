package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"heart-monitor-api/core"
)

const userColumns = `id, username, email, role, device_code, is_active, is_deleted,
	deleted_at, created_at, created_by, weight, height, heart_condition, age,
	max_safe_bpm, min_safe_bpm`

// uniqueViolation reports whether err is a unique constraint violation and
// which constraint tripped. Postgres carries the constraint name in the
// error struct; sqlite names the column in the message.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return pgErr.ConstraintName, true
		}
		return "", false
	}
	if msg := err.Error(); strings.Contains(msg, "UNIQUE constraint failed") {
		return msg, true
	}
	return "", false
}

func newUserID() string {
	return fmt.Sprintf("usr_%s", uuid.New().String()[:8])
}

func scanUser(row interface{ Scan(dest ...interface{}) error }) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.DeviceCode,
		&user.IsActive,
		&user.IsDeleted,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.CreatedBy,
		&user.Weight,
		&user.Height,
		&user.HeartCondition,
		&user.Age,
		&user.MaxSafeBPM,
		&user.MinSafeBPM,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

func GetUserByID(id string) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	return scanUser(DB.QueryRow(query, id))
}

func GetUserByUsername(username string) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userColumns)
	return scanUser(DB.QueryRow(query, username))
}

func GetUserByEmail(email string) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	return scanUser(DB.QueryRow(query, email))
}

// GetUserByDeviceCode resolves a device code to its owning account.
// Deactivated accounts keep a stale device_code pointer, so the active
// binding wins when both exist.
func GetUserByDeviceCode(code string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE device_code = $1
		ORDER BY is_active DESC
		LIMIT 1
	`, userColumns)
	return scanUser(DB.QueryRow(query, code))
}

// RegisterUser creates an active user account bound to a provisioned
// device. Provisioning, claim and insert commit as one unit; a losing
// racer gets ErrDeviceTaken and no account is created.
func RegisterUser(registry *core.DeviceRegistry, username, email, deviceCode string) (*User, error) {
	deviceCode = core.NormalizeCode(deviceCode)

	if !registry.IsValidCode(deviceCode) {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidDevice, deviceCode)
	}

	tx, err := DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := LookupOrCreateDevice(tx, registry, deviceCode); err != nil {
		return nil, err
	}

	if err := ClaimDevice(tx, deviceCode); err != nil {
		return nil, err
	}

	user := &User{
		ID:         newUserID(),
		Username:   username,
		Email:      email,
		Role:       core.RoleUser,
		DeviceCode: &deviceCode,
		IsActive:   true,
		IsDeleted:  false,
		CreatedAt:  time.Now().UTC(),
		MaxSafeBPM: core.DefaultMaxSafeBPM,
		MinSafeBPM: core.DefaultMinSafeBPM,
	}

	_, err = tx.Exec(`
		INSERT INTO users (id, username, email, role, device_code, is_active, is_deleted,
			created_at, max_safe_bpm, min_safe_bpm)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, user.ID, user.Username, user.Email, user.Role, user.DeviceCode,
		user.IsActive, user.IsDeleted, user.CreatedAt, user.MaxSafeBPM, user.MinSafeBPM)
	if err != nil {
		// The handler pre-checks identity uniqueness, but two concurrent
		// registrations can both pass that check. The constraint is the
		// authority; surface it as the same conflict.
		if constraint, ok := uniqueViolation(err); ok {
			if strings.Contains(constraint, "device_code") {
				return nil, fmt.Errorf("%w: %s", core.ErrDeviceTaken, deviceCode)
			}
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateAccount, username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}

	return user, nil
}

// CreateAdmin creates an admin account linked to its creator.
func CreateAdmin(username, email, createdBy string) (*User, error) {
	user := &User{
		ID:         newUserID(),
		Username:   username,
		Email:      email,
		Role:       core.RoleAdmin,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
		CreatedBy:  &createdBy,
		MaxSafeBPM: core.DefaultMaxSafeBPM,
		MinSafeBPM: core.DefaultMinSafeBPM,
	}

	_, err := DB.Exec(`
		INSERT INTO users (id, username, email, role, is_active, is_deleted,
			created_at, created_by, max_safe_bpm, min_safe_bpm)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, user.ID, user.Username, user.Email, user.Role, user.IsActive, user.IsDeleted,
		user.CreatedAt, user.CreatedBy, user.MaxSafeBPM, user.MinSafeBPM)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateAccount, username)
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	return user, nil
}

// EnsureRootAdmin seeds the distinguished root admin on first startup.
func EnsureRootAdmin() (*User, error) {
	existing, err := GetUserByUsername(core.RootAdminUsername)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	user := &User{
		ID:         newUserID(),
		Username:   core.RootAdminUsername,
		Email:      "admin@heart-monitor.local",
		Role:       core.RoleAdmin,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
		MaxSafeBPM: core.DefaultMaxSafeBPM,
		MinSafeBPM: core.DefaultMinSafeBPM,
	}

	_, err = DB.Exec(`
		INSERT INTO users (id, username, email, role, is_active, is_deleted,
			created_at, max_safe_bpm, min_safe_bpm)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Username, user.Email, user.Role, user.IsActive, user.IsDeleted,
		user.CreatedAt, user.MaxSafeBPM, user.MinSafeBPM)
	if err != nil {
		return nil, fmt.Errorf("failed to create root admin: %w", err)
	}

	return user, nil
}

// UpdateMedicalData stores the medical profile and recomputes the safe
// BPM band from it. Historical readings keep their original
// classification; only future ingests see the new band.
func UpdateMedicalData(user *User, weight, height float64, age int, condition string) error {
	maxSafe, minSafe := core.SafeLimits(age, condition)

	_, err := DB.Exec(`
		UPDATE users
		SET weight = $1, height = $2, age = $3, heart_condition = $4,
			max_safe_bpm = $5, min_safe_bpm = $6
		WHERE id = $7
	`, weight, height, age, condition, maxSafe, minSafe, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update medical data: %w", err)
	}

	user.Weight = &weight
	user.Height = &height
	user.Age = &age
	user.HeartCondition = &condition
	user.MaxSafeBPM = maxSafe
	user.MinSafeBPM = minSafe

	return nil
}

// UpdateProfile changes username and email, both unique.
func UpdateProfile(user *User, username, email string) error {
	_, err := DB.Exec(
		"UPDATE users SET username = $1, email = $2 WHERE id = $3",
		username, email, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	user.Username = username
	user.Email = email
	return nil
}

// DeactivateUser moves an active account to the deactivated state and
// frees its device. The account flip and the device release commit as
// one unit.
func DeactivateUser(user *User) error {
	state, err := user.State()
	if err != nil {
		return err
	}
	if state != core.StateActive {
		return fmt.Errorf("%w: %s", core.ErrAccountInactive, user.Username)
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	active, deleted := core.StateDeactivated.Flags()

	_, err = tx.Exec(
		"UPDATE users SET is_active = $1, is_deleted = $2, deleted_at = $3 WHERE id = $4",
		active, deleted, now, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	if err := ReleaseDevice(tx, user.DeviceCode); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deactivation: %w", err)
	}

	user.IsActive = active
	user.IsDeleted = deleted
	user.DeletedAt = &now

	return nil
}

// ReactivateUser restores a deactivated account and re-claims its device.
// The device may have been taken by a newly registered account while this
// one was dormant; in that case the account stays deactivated and the
// caller gets ErrDeviceConflict.
func ReactivateUser(user *User) error {
	if !user.IsDeleted {
		return fmt.Errorf("account %s is not deactivated", user.Username)
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if user.DeviceCode != nil {
		if err := ClaimDevice(tx, *user.DeviceCode); err != nil {
			if errors.Is(err, core.ErrDeviceTaken) {
				return fmt.Errorf("%w: %s", core.ErrDeviceConflict, *user.DeviceCode)
			}
			return err
		}
	}

	active, deleted := core.StateActive.Flags()

	_, err = tx.Exec(
		"UPDATE users SET is_active = $1, is_deleted = $2, deleted_at = NULL WHERE id = $3",
		active, deleted, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to reactivate user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reactivation: %w", err)
	}

	user.IsActive = active
	user.IsDeleted = deleted
	user.DeletedAt = nil

	return nil
}

// PurgeUser permanently deletes a deactivated account, its readings and
// its device binding. Irreversible. Returns the number of readings
// removed.
func PurgeUser(user *User) (int, error) {
	if !user.IsDeleted {
		return 0, fmt.Errorf("account %s is not deactivated", user.Username)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The device was already released on deactivation, but the code may
	// have been claimed by a newly registered account since. Only release
	// when no other active account holds it, so purging a dormant account
	// never frees a device that is legitimately in use.
	if user.DeviceCode != nil {
		var holders int
		err := tx.QueryRow(`
			SELECT COUNT(*) FROM users
			WHERE device_code = $1 AND is_active = TRUE AND is_deleted = FALSE AND id <> $2
		`, *user.DeviceCode, user.ID).Scan(&holders)
		if err != nil {
			return 0, fmt.Errorf("failed to check device holders: %w", err)
		}
		if holders == 0 {
			if err := ReleaseDevice(tx, user.DeviceCode); err != nil {
				return 0, err
			}
		}
	}

	result, err := tx.Exec("DELETE FROM sensor_readings WHERE user_id = $1", user.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete readings: %w", err)
	}
	deletedReadings, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM users WHERE id = $1", user.ID); err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}

	return int(deletedReadings), nil
}

func ListActiveUsers() ([]User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE role = $1 AND is_active = TRUE AND is_deleted = FALSE
		ORDER BY created_at DESC
	`, userColumns)
	return queryUsers(query, core.RoleUser)
}

// ListInactiveUsers returns deactivated accounts. A nil createdBy means
// the caller sees every deactivated account (root admin); otherwise the
// list is scoped to accounts the caller created.
func ListInactiveUsers(createdBy *string) ([]User, error) {
	if createdBy == nil {
		query := fmt.Sprintf(`
			SELECT %s FROM users
			WHERE is_active = FALSE AND is_deleted = TRUE
			ORDER BY deleted_at DESC
		`, userColumns)
		return queryUsers(query)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE is_active = FALSE AND is_deleted = TRUE AND created_by = $1
		ORDER BY deleted_at DESC
	`, userColumns)
	return queryUsers(query, *createdBy)
}

func queryUsers(query string, args ...interface{}) ([]User, error) {
	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
