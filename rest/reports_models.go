package rest

import "time"

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

type ReportSummary struct {
	TotalReadings   int     `json:"total_readings"`
	AlertReadings   int     `json:"alert_readings"`
	NormalReadings  int     `json:"normal_readings"`
	AvgBPM          float64 `json:"avg_bpm"`
	MinBPM          int     `json:"min_bpm"`
	MaxBPM          int     `json:"max_bpm"`
	AlertPercentage float64 `json:"alert_percentage"`
}

type TimelineEntry struct {
	Date     string  `json:"date"`
	AvgBPM   float64 `json:"avg_bpm"`
	Alerts   int     `json:"alerts"`
	Readings int     `json:"readings"`
}

type HealthReportResponse struct {
	Period   ReportPeriod    `json:"period"`
	Summary  ReportSummary   `json:"summary"`
	Timeline []TimelineEntry `json:"timeline"`
	Trend    string          `json:"trend"`
}
