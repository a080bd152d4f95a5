package db

import (
	"database/sql"
	"fmt"

	"heart-monitor-api/core"
)

// querier is satisfied by both *sql.DB and *sql.Tx so device allocation
// can run standalone or inside a lifecycle transaction.
type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

func GetDevice(code string) (*Device, error) {
	return getDevice(DB, code)
}

func getDevice(q querier, code string) (*Device, error) {
	device := &Device{}
	err := q.QueryRow(
		"SELECT device_code, is_used, created_at FROM devices WHERE device_code = $1",
		code,
	).Scan(&device.DeviceCode, &device.IsUsed, &device.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return device, nil
}

// LookupOrCreateDevice returns the persisted row for a provisioned code,
// inserting an unused one on first use. Codes outside the provisioned
// fleet are rejected, never registered implicitly.
func LookupOrCreateDevice(q querier, registry *core.DeviceRegistry, code string) (*Device, error) {
	code = core.NormalizeCode(code)

	if !registry.IsValidCode(code) {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidDevice, code)
	}

	var query string
	if IsSQLite() {
		query = "INSERT OR IGNORE INTO devices (device_code, is_used) VALUES ($1, FALSE)"
	} else {
		query = "INSERT INTO devices (device_code, is_used) VALUES ($1, FALSE) ON CONFLICT (device_code) DO NOTHING"
	}

	if _, err := q.Exec(query, code); err != nil {
		return nil, fmt.Errorf("failed to provision device: %w", err)
	}

	device, err := getDevice(q, code)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, fmt.Errorf("device %s missing after provisioning", code)
	}

	return device, nil
}

// ClaimDevice marks a device as used. The single-statement check-and-set
// serializes concurrent claims at the database: exactly one caller sees a
// row flip, every other one gets ErrDeviceTaken.
func ClaimDevice(q querier, code string) error {
	result, err := q.Exec(
		"UPDATE devices SET is_used = TRUE WHERE device_code = $1 AND is_used = FALSE",
		code,
	)
	if err != nil {
		return fmt.Errorf("failed to claim device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", core.ErrDeviceTaken, code)
	}

	return nil
}

// ReleaseDevice frees a device unconditionally. Idempotent; a nil or
// unknown code is a no-op.
func ReleaseDevice(q querier, code *string) error {
	if code == nil || *code == "" {
		return nil
	}

	_, err := q.Exec(
		"UPDATE devices SET is_used = FALSE WHERE device_code = $1",
		*code,
	)
	if err != nil {
		return fmt.Errorf("failed to release device: %w", err)
	}

	return nil
}

func ListDevices() ([]Device, error) {
	rows, err := DB.Query("SELECT device_code, is_used, created_at FROM devices ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		var device Device
		if err := rows.Scan(&device.DeviceCode, &device.IsUsed, &device.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, device)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}

	return devices, nil
}

func CountDevices() (total int, used int, err error) {
	var query string
	if IsSQLite() {
		query = `
			SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_used THEN 1 ELSE 0 END), 0)
			FROM devices
		`
	} else {
		query = `
			SELECT COUNT(*), COUNT(*) FILTER (WHERE is_used)
			FROM devices
		`
	}

	if err = DB.QueryRow(query).Scan(&total, &used); err != nil {
		return 0, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	return total, used, nil
}
