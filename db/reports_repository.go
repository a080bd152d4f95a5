package db

import (
	"database/sql"
	"fmt"
	"time"
)

type UserSummary struct {
	TotalReadings   int
	AlertReadings   int
	NormalReadings  int
	AvgBPM          float64
	MinBPM          int
	MaxBPM          int
	AlertPercentage float64
}

type TimelineEntry struct {
	Date     string
	AvgBPM   float64
	Alerts   int
	Readings int
}

type SystemStats struct {
	TotalUsers    int
	InactiveUsers int
	TotalDevices  int
	UsedDevices   int
	TotalAlerts   int
}

// GetUserSummary aggregates a user's readings from the window start.
// Pure read-side computation; nothing is stored.
func GetUserSummary(userID string, since time.Time) (*UserSummary, error) {
	var query string

	if IsSQLite() {
		query = `
			SELECT
				COUNT(*) as total,
				COALESCE(SUM(CASE WHEN is_alert THEN 1 ELSE 0 END), 0) as alerts,
				AVG(bpm) as avg_bpm,
				MIN(bpm) as min_bpm,
				MAX(bpm) as max_bpm
			FROM sensor_readings
			WHERE user_id = $1 AND timestamp >= $2
		`
	} else {
		query = `
			SELECT
				COUNT(*) as total,
				COUNT(*) FILTER (WHERE is_alert) as alerts,
				AVG(bpm) as avg_bpm,
				MIN(bpm) as min_bpm,
				MAX(bpm) as max_bpm
			FROM sensor_readings
			WHERE user_id = $1 AND timestamp >= $2
		`
	}

	var avgBPM sql.NullFloat64
	var minBPM, maxBPM sql.NullInt64

	summary := &UserSummary{}
	err := DB.QueryRow(query, userID, since).Scan(
		&summary.TotalReadings,
		&summary.AlertReadings,
		&avgBPM,
		&minBPM,
		&maxBPM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user summary: %w", err)
	}

	summary.NormalReadings = summary.TotalReadings - summary.AlertReadings
	summary.AvgBPM = avgBPM.Float64
	summary.MinBPM = int(minBPM.Int64)
	summary.MaxBPM = int(maxBPM.Int64)
	if summary.TotalReadings > 0 {
		summary.AlertPercentage = float64(summary.AlertReadings) / float64(summary.TotalReadings) * 100
	}

	return summary, nil
}

// GetDailyTimeline buckets a user's readings per calendar day from the
// window start.
func GetDailyTimeline(userID string, since time.Time) ([]TimelineEntry, error) {
	var query string

	if IsSQLite() {
		query = `
			SELECT
				DATE(timestamp) as day,
				AVG(bpm) as avg_bpm,
				COALESCE(SUM(CASE WHEN is_alert THEN 1 ELSE 0 END), 0) as alerts,
				COUNT(*) as readings
			FROM sensor_readings
			WHERE user_id = $1 AND timestamp >= $2
			GROUP BY DATE(timestamp)
			ORDER BY day
		`
	} else {
		query = `
			SELECT
				TO_CHAR(timestamp, 'YYYY-MM-DD') as day,
				AVG(bpm) as avg_bpm,
				COUNT(*) FILTER (WHERE is_alert) as alerts,
				COUNT(*) as readings
			FROM sensor_readings
			WHERE user_id = $1 AND timestamp >= $2
			GROUP BY TO_CHAR(timestamp, 'YYYY-MM-DD')
			ORDER BY day
		`
	}

	rows, err := DB.Query(query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	timeline := []TimelineEntry{}
	for rows.Next() {
		var entry TimelineEntry
		var avgBPM sql.NullFloat64
		if err := rows.Scan(&entry.Date, &avgBPM, &entry.Alerts, &entry.Readings); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		entry.AvgBPM = avgBPM.Float64
		timeline = append(timeline, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timeline: %w", err)
	}

	return timeline, nil
}

// GetTrendAverages splits the window at the given instant and returns the
// average BPM on each side, feeding the trend classification. Sides with
// no readings report zero.
func GetTrendAverages(userID string, since, split time.Time) (recent, older float64, err error) {
	query := `
		SELECT
			AVG(CASE WHEN timestamp >= $2 THEN bpm END) as recent_avg,
			AVG(CASE WHEN timestamp < $2 THEN bpm END) as older_avg
		FROM sensor_readings
		WHERE user_id = $1 AND timestamp >= $3
	`

	var recentAvg, olderAvg sql.NullFloat64
	err = DB.QueryRow(query, userID, split, since).Scan(&recentAvg, &olderAvg)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get trend averages: %w", err)
	}

	return recentAvg.Float64, olderAvg.Float64, nil
}

// GetSystemStats collects the fleet-wide numbers for the admin dashboard.
func GetSystemStats() (*SystemStats, error) {
	stats := &SystemStats{}

	err := DB.QueryRow(`
		SELECT COUNT(*) FROM users
		WHERE role = 'user' AND is_active = TRUE AND is_deleted = FALSE
	`).Scan(&stats.TotalUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}

	err = DB.QueryRow(`
		SELECT COUNT(*) FROM users
		WHERE is_active = FALSE AND is_deleted = TRUE
	`).Scan(&stats.InactiveUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to count inactive users: %w", err)
	}

	total, used, err := CountDevices()
	if err != nil {
		return nil, err
	}
	stats.TotalDevices = total
	stats.UsedDevices = used

	err = DB.QueryRow(
		"SELECT COUNT(*) FROM sensor_readings WHERE is_alert = TRUE",
	).Scan(&stats.TotalAlerts)
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}

	return stats, nil
}
