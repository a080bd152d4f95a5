package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"heart-monitor-api/core"
)

// registry holds the provisioned device code set, injected once at
// startup.
var registry *core.DeviceRegistry

func Init(app *fiber.App, deviceRegistry *core.DeviceRegistry) {
	registry = deviceRegistry

	SetupSwagger(app)

	app.Post("/api/sensor-data", ReceiveSensorDataHandler)

	app.Post("/users/register", RegisterUserHandler)
	app.Put("/users/:userId/medical-data", UpdateMedicalDataHandler)
	app.Get("/users/:userId/readings", ListReadingsHandler)
	app.Delete("/users/:userId/readings", DeleteReadingsHandler)
	app.Post("/users/:userId/readings/cleanup", CleanupReadingsHandler)
	app.Get("/users/:userId/report", GetHealthReportHandler)

	app.Get("/admin/users", ListActiveUsersHandler)
	app.Get("/admin/users/inactive", ListInactiveUsersHandler)
	app.Post("/admin/users/:userId/deactivate", DeactivateUserHandler)
	app.Post("/admin/users/:userId/reactivate", ReactivateUserHandler)
	app.Delete("/admin/users/:userId", PurgeUserHandler)
	app.Post("/admin/admins", CreateAdminHandler)
	app.Get("/admin/devices", ListDevicesHandler)
	app.Get("/admin/stats", GetStatsHandler)

	log.Info("REST API started")
}
