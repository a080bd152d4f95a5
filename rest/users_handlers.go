package rest

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"heart-monitor-api/core"
	"heart-monitor-api/db"
)

// keepReadingsCount is how many recent readings survive a cleanup.
const keepReadingsCount = 100

func userDetail(user *db.User) UserDetail {
	stateName := "invalid"
	if state, err := user.State(); err == nil {
		stateName = state.String()
	}

	return UserDetail{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		Role:       user.Role,
		DeviceCode: user.DeviceCode,
		State:      stateName,
		CreatedAt:  user.CreatedAt,
		DeletedAt:  user.DeletedAt,
		MaxSafeBPM: user.MaxSafeBPM,
		MinSafeBPM: user.MinSafeBPM,
	}
}

func RegisterUserHandler(c *fiber.Ctx) error {
	var req RegisterUserRequest
	if err := c.BodyParser(&req); err != nil {
		return ReturnBadRequest(c, "Invalid request body")
	}

	if req.Username == "" {
		return ReturnBadRequest(c, "username is required")
	}

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return ReturnBadRequest(c, "A valid email is required")
	}

	if req.DeviceCode == "" {
		return ReturnBadRequest(c, "device_code is required")
	}

	existing, err := db.GetUserByUsername(req.Username)
	if err != nil {
		return ReturnInternalError(c, "Failed to check username")
	}
	if existing != nil {
		return ReturnConflict(c, "Username already exists")
	}

	existing, err = db.GetUserByEmail(req.Email)
	if err != nil {
		return ReturnInternalError(c, "Failed to check email")
	}
	if existing != nil {
		return ReturnConflict(c, "Email already registered")
	}

	user, err := db.RegisterUser(registry, req.Username, req.Email, req.DeviceCode)
	if err != nil {
		if errors.Is(err, core.ErrInvalidDevice) {
			return ReturnBadRequest(c, "Invalid device code. Use the exact code printed on your sensor.")
		}
		if errors.Is(err, core.ErrDeviceTaken) {
			return ReturnConflict(c, "This device is already in use by another user")
		}
		if errors.Is(err, core.ErrDuplicateAccount) {
			return ReturnConflict(c, "Username or email already registered")
		}
		return ReturnInternalError(c, "Failed to register user")
	}

	response := RegisterUserResponse{
		Message: "Account created successfully",
		User:    userDetail(user),
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

func UpdateMedicalDataHandler(c *fiber.Ctx) error {
	user, err := db.GetUserByID(c.Params("userId"))
	if err != nil {
		return ReturnInternalError(c, "Failed to look up user")
	}
	if user == nil {
		return ReturnNotFound(c, "User not found")
	}

	state, err := user.State()
	if err != nil {
		return ReturnInternalError(c, "Account state is inconsistent")
	}
	if state != core.StateActive {
		return ReturnForbidden(c, "Account is deactivated")
	}

	var req MedicalDataRequest
	if err := c.BodyParser(&req); err != nil {
		return ReturnBadRequest(c, "Invalid request body")
	}

	if req.Weight <= 0 {
		return ReturnBadRequest(c, "weight must be positive")
	}

	if req.Height <= 0 {
		return ReturnBadRequest(c, "height must be positive")
	}

	if req.Age <= 0 || req.Age >= 120 {
		return ReturnBadRequest(c, "age must be between 1 and 119")
	}

	if !core.IsValidCondition(req.HeartCondition) {
		return ReturnBadRequest(c, "Unknown heart condition")
	}

	if err := db.UpdateMedicalData(user, req.Weight, req.Height, req.Age, req.HeartCondition); err != nil {
		return ReturnInternalError(c, "Failed to update medical data")
	}

	response := MedicalDataResponse{
		Message:    "Medical data saved, safe limits recalculated",
		MaxSafeBPM: user.MaxSafeBPM,
		MinSafeBPM: user.MinSafeBPM,
	}

	return c.JSON(response)
}

func ListReadingsHandler(c *fiber.Ctx) error {
	user, err := db.GetUserByID(c.Params("userId"))
	if err != nil {
		return ReturnInternalError(c, "Failed to look up user")
	}
	if user == nil {
		return ReturnNotFound(c, "User not found")
	}

	limit := c.QueryInt("limit", 10)
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	filters := db.ReadingFilters{
		UserID: user.ID,
		Limit:  limit,
	}

	switch c.Query("filter", "all") {
	case "all":
	case "alerts":
		alert := true
		filters.Alert = &alert
	case "normal":
		alert := false
		filters.Alert = &alert
	default:
		return ReturnBadRequest(c, "Invalid filter. Must be one of: all, alerts, normal")
	}

	readings, err := db.GetReadings(filters)
	if err != nil {
		return ReturnInternalError(c, "Failed to retrieve readings")
	}

	total, alerts, err := db.CountReadings(user.ID)
	if err != nil {
		return ReturnInternalError(c, "Failed to count readings")
	}

	details := make([]ReadingDetail, len(readings))
	for i, reading := range readings {
		details[i] = ReadingDetail{
			ID:        reading.ID,
			BPM:       reading.BPM,
			IsAlert:   reading.IsAlert,
			Timestamp: reading.Timestamp,
		}
	}

	response := ReadingsListResponse{
		Data:          details,
		TotalReadings: total,
		AlertCount:    alerts,
	}

	return c.JSON(response)
}

func DeleteReadingsHandler(c *fiber.Ctx) error {
	user, err := db.GetUserByID(c.Params("userId"))
	if err != nil {
		return ReturnInternalError(c, "Failed to look up user")
	}
	if user == nil {
		return ReturnNotFound(c, "User not found")
	}

	deleted, err := db.DeleteAllReadings(user.ID)
	if err != nil {
		return ReturnInternalError(c, "Failed to delete readings")
	}

	response := DeleteReadingsResponse{
		Message:      "Reading history deleted",
		DeletedCount: deleted,
	}

	return c.JSON(response)
}

func CleanupReadingsHandler(c *fiber.Ctx) error {
	user, err := db.GetUserByID(c.Params("userId"))
	if err != nil {
		return ReturnInternalError(c, "Failed to look up user")
	}
	if user == nil {
		return ReturnNotFound(c, "User not found")
	}

	deleted, err := db.CleanupReadings(user.ID, keepReadingsCount)
	if err != nil {
		return ReturnInternalError(c, "Failed to clean up readings")
	}

	response := DeleteReadingsResponse{
		Message:      "Old readings removed, most recent kept",
		DeletedCount: deleted,
	}

	return c.JSON(response)
}
