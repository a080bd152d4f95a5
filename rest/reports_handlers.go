package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"heart-monitor-api/core"
	"heart-monitor-api/db"
)

// trendSplitDays separates the recent window from the older one when
// classifying the BPM trend.
const trendSplitDays = 3

func GetHealthReportHandler(c *fiber.Ctx) error {
	user, err := db.GetUserByID(c.Params("userId"))
	if err != nil {
		return ReturnInternalError(c, "Failed to look up user")
	}
	if user == nil {
		return ReturnNotFound(c, "User not found")
	}

	days := c.QueryInt("days", 7)
	if days < 1 || days > 90 {
		return ReturnBadRequest(c, "days must be between 1 and 90")
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)
	split := now.AddDate(0, 0, -trendSplitDays)

	summary, err := db.GetUserSummary(user.ID, since)
	if err != nil {
		return ReturnInternalError(c, "Failed to retrieve report summary")
	}

	timeline, err := db.GetDailyTimeline(user.ID, since)
	if err != nil {
		return ReturnInternalError(c, "Failed to retrieve report timeline")
	}

	recentAvg, olderAvg, err := db.GetTrendAverages(user.ID, since, split)
	if err != nil {
		return ReturnInternalError(c, "Failed to retrieve trend data")
	}

	restTimeline := make([]TimelineEntry, len(timeline))
	for i, entry := range timeline {
		restTimeline[i] = TimelineEntry{
			Date:     entry.Date,
			AvgBPM:   entry.AvgBPM,
			Alerts:   entry.Alerts,
			Readings: entry.Readings,
		}
	}

	response := HealthReportResponse{
		Period: ReportPeriod{
			Start: since,
			End:   now,
			Days:  days,
		},
		Summary: ReportSummary{
			TotalReadings:   summary.TotalReadings,
			AlertReadings:   summary.AlertReadings,
			NormalReadings:  summary.NormalReadings,
			AvgBPM:          summary.AvgBPM,
			MinBPM:          summary.MinBPM,
			MaxBPM:          summary.MaxBPM,
			AlertPercentage: summary.AlertPercentage,
		},
		Timeline: restTimeline,
		Trend:    core.Trend(recentAvg, olderAvg),
	}

	return c.JSON(response)
}
