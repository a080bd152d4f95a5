package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"heart-monitor-api/core"
	"heart-monitor-api/db"
)

func setupTestDB(t *testing.T) {
	config := db.Config{
		Driver:   "sqlite",
		Database: ":memory:",
	}

	if err := db.ConnectWithConfig(config); err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	registry = core.NewDeviceRegistry(core.DefaultDeviceCodes)
}

func teardownTestDB() {
	db.Close()
}

func intPtr(i int) *int {
	return &i
}

func doRequest(t *testing.T, app *fiber.App, method, path string, payload interface{}, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var bodyBytes []byte
	var err error

	if payload != nil {
		if str, ok := payload.(string); ok {
			bodyBytes = []byte(str)
		} else {
			bodyBytes, err = json.Marshal(payload)
			if err != nil {
				t.Fatalf("Failed to marshal payload: %v", err)
			}
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to perform request: %v", err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	resp.Body.Close()

	return resp, body
}

func registerTestUser(t *testing.T, username, email, deviceCode string) *db.User {
	t.Helper()

	user, err := db.RegisterUser(registry, username, email, deviceCode)
	if err != nil {
		t.Fatalf("Failed to register test user: %v", err)
	}
	return user
}
