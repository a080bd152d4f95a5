package rest

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"heart-monitor-api/core"
	"heart-monitor-api/db"
)

// ReceiveSensorDataHandler ingests one reading pushed by a wearable
// sensor. The caller is an embedded device with no session; the device
// code is the only credential.
func ReceiveSensorDataHandler(c *fiber.Ctx) error {
	var req SensorDataRequest
	if err := c.BodyParser(&req); err != nil {
		return ReturnBadRequest(c, "Invalid request body")
	}

	if req.DeviceCode == "" {
		return ReturnBadRequest(c, "device_code is required")
	}

	if req.BPM == nil {
		return ReturnBadRequest(c, "bpm is required")
	}
	bpm := *req.BPM

	if err := core.ValidateBPM(bpm); err != nil {
		return ReturnBadRequest(c, fmt.Sprintf("BPM out of valid range: %d", bpm))
	}

	deviceCode := core.NormalizeCode(req.DeviceCode)

	user, err := db.GetUserByDeviceCode(deviceCode)
	if err != nil {
		return ReturnInternalError(c, "Failed to resolve device")
	}
	if user == nil {
		return ReturnNotFound(c, fmt.Sprintf("Device not registered: %s", deviceCode))
	}

	state, err := user.State()
	if err != nil {
		log.Errorf("account %s has inconsistent lifecycle flags", user.ID)
		return ReturnInternalError(c, "Account state is inconsistent")
	}
	if state != core.StateActive {
		return ReturnForbidden(c, "User account is deactivated")
	}

	reading, alert, err := db.CreateReading(user, bpm)
	if err != nil {
		return ReturnInternalError(c, "Failed to store reading")
	}

	maxSafe, minSafe := user.SafeLimits()

	response := SensorDataResponse{
		Message:   "Sensor data received",
		User:      user.Username,
		BPM:       reading.BPM,
		IsAlert:   reading.IsAlert,
		Limits:    fmt.Sprintf("%d-%d BPM", minSafe, maxSafe),
		Timestamp: reading.Timestamp,
	}

	if alert != nil {
		response.AlertMessage = &alert.Message
	}

	return c.JSON(response)
}
