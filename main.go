package main

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"heart-monitor-api/core"
	"heart-monitor-api/db"
	"heart-monitor-api/rest"
)

func loadDeviceRegistry() *core.DeviceRegistry {
	codes := core.DefaultDeviceCodes
	if env := os.Getenv("DEVICE_CODES"); env != "" {
		codes = strings.Split(env, ",")
	}

	registry := core.NewDeviceRegistry(codes)
	log.Printf("Device registry loaded with %d provisioned codes", registry.Count())
	return registry
}

func main() {
	if err := db.Connect(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	version, err := db.GetCurrentVersion()
	if err != nil {
		log.Printf("Warning: Failed to get current schema version: %v", err)
	} else {
		log.Printf("Database schema version: %d", version)
	}

	root, err := db.EnsureRootAdmin()
	if err != nil {
		log.Fatalf("Failed to ensure root admin: %v", err)
	}
	log.Printf("Root admin: %s (%s)", root.Username, root.ID)

	registry := loadDeviceRegistry()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Actor-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	rest.Init(app, registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on :%s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
