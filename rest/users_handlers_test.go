package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"heart-monitor-api/core"
	"heart-monitor-api/db"
)

func setupUsersTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/users/register", RegisterUserHandler)
	app.Put("/users/:userId/medical-data", UpdateMedicalDataHandler)
	app.Get("/users/:userId/readings", ListReadingsHandler)
	app.Delete("/users/:userId/readings", DeleteReadingsHandler)
	app.Post("/users/:userId/readings/cleanup", CleanupReadingsHandler)
	return app
}

func TestRegisterUserHandler(t *testing.T) {
	setupTestDB(t)
	defer teardownTestDB()

	app := setupUsersTestApp()

	tests := []struct {
		name           string
		payload        interface{}
		expectedStatus int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name: "Valid registration",
			payload: RegisterUserRequest{
				Username:   "alice",
				Email:      "alice@example.com",
				DeviceCode: "hr-sensor-a1b2-c3d4",
			},
			expectedStatus: fiber.StatusCreated,
			checkResponse: func(t *testing.T, body []byte) {
				var response RegisterUserResponse
				if err := json.Unmarshal(body, &response); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				if response.User.ID == "" {
					t.Error("Expected non-empty user ID")
				}
				if response.User.State != "active" {
					t.Errorf("Expected state 'active', got '%s'", response.User.State)
				}
				if response.User.DeviceCode == nil || *response.User.DeviceCode != "HR-SENSOR-A1B2-C3D4" {
					t.Errorf("Expected normalized device code, got %v", response.User.DeviceCode)
				}
				if response.User.MaxSafeBPM != 120 || response.User.MinSafeBPM != 60 {
					t.Errorf("Expected default limits 120/60, got %d/%d", response.User.MaxSafeBPM, response.User.MinSafeBPM)
				}
			},
		},
		{
			name: "Device already in use",
			payload: RegisterUserRequest{
				Username:   "mallory",
				Email:      "mallory@example.com",
				DeviceCode: "HR-SENSOR-A1B2-C3D4",
			},
			expectedStatus: fiber.StatusConflict,
			checkResponse:  nil,
		},
		{
			name: "Unprovisioned device code",
			payload: RegisterUserRequest{
				Username:   "bob",
				Email:      "bob@example.com",
				DeviceCode: "HR-SENSOR-0000-0000",
			},
			expectedStatus: fiber.StatusBadRequest,
			checkResponse:  nil,
		},
		{
			name: "Duplicate username",
			payload: RegisterUserRequest{
				Username:   "alice",
				Email:      "alice2@example.com",
				DeviceCode: "HR-SENSOR-E5F6-G7H8",
			},
			expectedStatus: fiber.StatusConflict,
			checkResponse:  nil,
		},
		{
			name: "Duplicate email",
			payload: RegisterUserRequest{
				Username:   "alice2",
				Email:      "alice@example.com",
				DeviceCode: "HR-SENSOR-E5F6-G7H8",
			},
			expectedStatus: fiber.StatusConflict,
			checkResponse:  nil,
		},
		{
			name: "Missing username",
			payload: RegisterUserRequest{
				Email:      "carol@example.com",
				DeviceCode: "HR-SENSOR-E5F6-G7H8",
			},
			expectedStatus: fiber.StatusBadRequest,
			checkResponse:  nil,
		},
		{
			name: "Invalid email",
			payload: RegisterUserRequest{
				Username:   "carol",
				Email:      "not-an-email",
				DeviceCode: "HR-SENSOR-E5F6-G7H8",
			},
			expectedStatus: fiber.StatusBadRequest,
			checkResponse:  nil,
		},
		{
			name: "Missing device code",
			payload: RegisterUserRequest{
				Username: "carol",
				Email:    "carol@example.com",
			},
			expectedStatus: fiber.StatusBadRequest,
			checkResponse:  nil,
		},
		{
			name:           "Invalid JSON",
			payload:        "invalid json",
			expectedStatus: fiber.StatusBadRequest,
			checkResponse:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, app, "POST", "/users/register", tt.payload, nil)

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response: %s", tt.expectedStatus, resp.StatusCode, string(body))
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, body)
			}
		})
	}
}

func TestRegisterUserConcurrentDeviceClaim(t *testing.T) {
	setupTestDB(t)
	defer teardownTestDB()

	const contenders = 8

	var wg sync.WaitGroup
	errs := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := db.RegisterUser(registry,
				fmt.Sprintf("contender%d", i),
				fmt.Sprintf("contender%d@example.com", i),
				"HR-SENSOR-A1B2-C3D4")
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	winners, losers := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, core.ErrDeviceTaken):
			losers++
		default:
			t.Fatalf("Unexpected registration error: %v", err)
		}
	}

	if winners != 1 {
		t.Errorf("Expected exactly 1 successful claim, got %d", winners)
	}
	if losers != contenders-1 {
		t.Errorf("Expected %d rejected claims, got %d", contenders-1, losers)
	}

	bound, err := db.GetUserByDeviceCode("HR-SENSOR-A1B2-C3D4")
	if err != nil {
		t.Fatalf("Failed to resolve device binding: %v", err)
	}
	if bound == nil {
		t.Fatal("Expected the device to be bound to the winning account")
	}
}

func TestRegisterUserDuplicateIdentityAtInsert(t *testing.T) {
	setupTestDB(t)
	defer teardownTestDB()

	registerTestUser(t, "alice", "alice@example.com", "HR-SENSOR-A1B2-C3D4")

	// Straight to the repository, past the handler pre-checks, the way a
	// racing second request would arrive.
	_, err := db.RegisterUser(registry, "alice", "other@example.com", "HR-SENSOR-E5F6-G7H8")
	if !errors.Is(err, core.ErrDuplicateAccount) {
		t.Errorf("Expected ErrDuplicateAccount for duplicate username, got %v", err)
	}

	_, err = db.RegisterUser(registry, "other", "alice@example.com", "HR-SENSOR-E5F6-G7H8")
	if !errors.Is(err, core.ErrDuplicateAccount) {
		t.Errorf("Expected ErrDuplicateAccount for duplicate email, got %v", err)
	}

	// The losing insert must not leave the contested device claimed.
	registerTestUser(t, "bob", "bob@example.com", "HR-SENSOR-E5F6-G7H8")
}

func TestUpdateMedicalDataHandler(t *testing.T) {
	setupTestDB(t)
	defer teardownTestDB()

	app := setupUsersTestApp()

	user := registerTestUser(t, "alice", "alice@example.com", "HR-SENSOR-A1B2-C3D4")

	tests := []struct {
		name           string
		userID         string
		payload        interface{}
		expectedStatus int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name:   "Tachycardia profile tightens the band",
			userID: user.ID,
			payload: MedicalDataRequest{
				Weight:         70,
				Height:         175,
				Age:            40,
				HeartCondition: "taquicardia",
			},
			expectedStatus: fiber.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var response MedicalDataResponse
				if err := json.Unmarshal(body, &response); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				if response.MaxSafeBPM != 108 {
					t.Errorf("Expected max_safe_bpm 108, got %d", response.MaxSafeBPM)
				}
				if response.MinSafeBPM != 60 {
					t.Errorf("Expected min_safe_bpm 60, got %d", response.MinSafeBPM)
				}
			},
		},
		{
			name:   "Unknown heart condition",
			userID: user.ID,
			payload: MedicalDataRequest{
				Weight:         70,
				Height:         175,
				Age:            40,
				HeartCondition: "asthma",
			},
			expectedStatus: fiber.StatusBadRequest,
			checkResponse:  nil,
		},
		{
			name:   "Invalid age",
			userID: user.ID,
			payload: MedicalDataRequest{
				Weight:         70,
				Height:         175,
				Age:            0,
				HeartCondition: "taquicardia",
			},
			expectedStatus: fiber.StatusBadRequest,
			checkResponse:  nil,
		},
		{
			name:   "Unknown user",
			userID: "usr_missing1",
			payload: MedicalDataRequest{
				Weight:         70,
				Height:         175,
				Age:            40,
				HeartCondition: "taquicardia",
			},
			expectedStatus: fiber.StatusNotFound,
			checkResponse:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := fmt.Sprintf("/users/%s/medical-data", tt.userID)
			resp, body := doRequest(t, app, "PUT", path, tt.payload, nil)

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response: %s", tt.expectedStatus, resp.StatusCode, string(body))
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, body)
			}
		})
	}
}

func TestListReadingsHandler(t *testing.T) {
	setupTestDB(t)
	defer teardownTestDB()

	app := setupUsersTestApp()

	user := registerTestUser(t, "alice", "alice@example.com", "HR-SENSOR-A1B2-C3D4")

	for _, bpm := range []int{90, 150, 85, 45, 95} {
		if _, _, err := db.CreateReading(user, bpm); err != nil {
			t.Fatalf("Failed to create reading: %v", err)
		}
	}

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedCount  int
	}{
		{"All readings", "", fiber.StatusOK, 5},
		{"Alerts only", "?filter=alerts", fiber.StatusOK, 2},
		{"Normal only", "?filter=normal", fiber.StatusOK, 3},
		{"Limited", "?limit=2", fiber.StatusOK, 2},
		{"Invalid filter", "?filter=bogus", fiber.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := fmt.Sprintf("/users/%s/readings%s", user.ID, tt.query)
			resp, body := doRequest(t, app, "GET", path, nil, nil)

			if resp.StatusCode != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d. Response: %s", tt.expectedStatus, resp.StatusCode, string(body))
			}

			if tt.expectedStatus != fiber.StatusOK {
				return
			}

			var response ReadingsListResponse
			if err := json.Unmarshal(body, &response); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if len(response.Data) != tt.expectedCount {
				t.Errorf("Expected %d readings, got %d", tt.expectedCount, len(response.Data))
			}
			if response.TotalReadings != 5 {
				t.Errorf("Expected total 5, got %d", response.TotalReadings)
			}
			if response.AlertCount != 2 {
				t.Errorf("Expected 2 alerts, got %d", response.AlertCount)
			}
		})
	}
}

func TestDeleteAndCleanupReadings(t *testing.T) {
	setupTestDB(t)
	defer teardownTestDB()

	app := setupUsersTestApp()

	user := registerTestUser(t, "alice", "alice@example.com", "HR-SENSOR-A1B2-C3D4")

	base := time.Now().UTC().Add(-3 * time.Hour)
	for i := 0; i < 105; i++ {
		if _, _, err := db.CreateReadingAt(user, 90, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Failed to create reading: %v", err)
		}
	}

	// Cleanup keeps the newest 100.
	path := fmt.Sprintf("/users/%s/readings/cleanup", user.ID)
	resp, body := doRequest(t, app, "POST", path, nil, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d. Response: %s", resp.StatusCode, string(body))
	}

	var cleanup DeleteReadingsResponse
	if err := json.Unmarshal(body, &cleanup); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if cleanup.DeletedCount != 5 {
		t.Errorf("Expected 5 readings removed, got %d", cleanup.DeletedCount)
	}

	total, _, err := db.CountReadings(user.ID)
	if err != nil {
		t.Fatalf("Failed to count readings: %v", err)
	}
	if total != 100 {
		t.Errorf("Expected 100 readings after cleanup, got %d", total)
	}

	// Full delete wipes the history.
	path = fmt.Sprintf("/users/%s/readings", user.ID)
	resp, body = doRequest(t, app, "DELETE", path, nil, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d. Response: %s", resp.StatusCode, string(body))
	}

	var deleted DeleteReadingsResponse
	if err := json.Unmarshal(body, &deleted); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if deleted.DeletedCount != 100 {
		t.Errorf("Expected 100 readings removed, got %d", deleted.DeletedCount)
	}

	total, _, err = db.CountReadings(user.ID)
	if err != nil {
		t.Fatalf("Failed to count readings: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected empty history, got %d readings", total)
	}
}
