package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"heart-monitor-api/core"
)

func newReadingID() string {
	return fmt.Sprintf("rdg_%s", uuid.New().String()[:8])
}

// CreateReading persists one sample, classifying it against the owning
// account's thresholds as they stand right now. The returned alert is nil
// for readings inside the safe band.
func CreateReading(user *User, bpm int) (*SensorReading, *core.Alert, error) {
	return CreateReadingAt(user, bpm, time.Now().UTC())
}

// CreateReadingAt is CreateReading with an explicit ingest timestamp,
// used for backfilling historical samples.
func CreateReadingAt(user *User, bpm int, timestamp time.Time) (*SensorReading, *core.Alert, error) {
	maxSafe, minSafe := user.SafeLimits()
	isAlert, alert := core.Classify(bpm, maxSafe, minSafe)

	reading := &SensorReading{
		ID:        newReadingID(),
		UserID:    user.ID,
		BPM:       bpm,
		IsAlert:   isAlert,
		Timestamp: timestamp,
	}

	_, err := DB.Exec(`
		INSERT INTO sensor_readings (id, user_id, bpm, is_alert, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`, reading.ID, reading.UserID, reading.BPM, reading.IsAlert, reading.Timestamp)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create reading: %w", err)
	}

	return reading, alert, nil
}

type ReadingFilters struct {
	UserID string
	Alert  *bool
	Since  *time.Time
	Limit  int
}

func GetReadings(filters ReadingFilters) ([]SensorReading, error) {
	query := `
		SELECT id, user_id, bpm, is_alert, timestamp
		FROM sensor_readings
		WHERE user_id = $1
	`
	args := []interface{}{filters.UserID}

	if filters.Alert != nil {
		query += fmt.Sprintf(" AND is_alert = $%d", len(args)+1)
		args = append(args, *filters.Alert)
	}

	if filters.Since != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args)+1)
		args = append(args, *filters.Since)
	}

	query += " ORDER BY timestamp DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, filters.Limit)
	}

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := []SensorReading{}
	for rows.Next() {
		var reading SensorReading
		err := rows.Scan(
			&reading.ID,
			&reading.UserID,
			&reading.BPM,
			&reading.IsAlert,
			&reading.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating readings: %w", err)
	}

	return readings, nil
}

func CountReadings(userID string) (total int, alerts int, err error) {
	var query string
	if IsSQLite() {
		query = `
			SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_alert THEN 1 ELSE 0 END), 0)
			FROM sensor_readings
			WHERE user_id = $1
		`
	} else {
		query = `
			SELECT COUNT(*), COUNT(*) FILTER (WHERE is_alert)
			FROM sensor_readings
			WHERE user_id = $1
		`
	}

	if err = DB.QueryRow(query, userID).Scan(&total, &alerts); err != nil {
		return 0, 0, fmt.Errorf("failed to count readings: %w", err)
	}

	return total, alerts, nil
}

// DeleteAllReadings wipes a user's history. Returns the number removed.
func DeleteAllReadings(userID string) (int, error) {
	result, err := DB.Exec("DELETE FROM sensor_readings WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete readings: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(deleted), nil
}

// CleanupReadings drops everything but the newest keep readings.
func CleanupReadings(userID string, keep int) (int, error) {
	result, err := DB.Exec(`
		DELETE FROM sensor_readings
		WHERE user_id = $1
		AND id NOT IN (
			SELECT id FROM sensor_readings
			WHERE user_id = $1
			ORDER BY timestamp DESC
			LIMIT $2
		)
	`, userID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up readings: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(deleted), nil
}
