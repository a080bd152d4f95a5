package rest

import "time"

type RegisterUserRequest struct {
	Username   string `json:"username" validate:"required"`
	Email      string `json:"email" validate:"required"`
	DeviceCode string `json:"device_code" validate:"required"`
}

type UserDetail struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	DeviceCode *string    `json:"device_code,omitempty"`
	State      string     `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	MaxSafeBPM int        `json:"max_safe_bpm"`
	MinSafeBPM int        `json:"min_safe_bpm"`
}

type RegisterUserResponse struct {
	Message string     `json:"message"`
	User    UserDetail `json:"user"`
}

type MedicalDataRequest struct {
	Weight         float64 `json:"weight" validate:"required"`
	Height         float64 `json:"height" validate:"required"`
	Age            int     `json:"age" validate:"required"`
	HeartCondition string  `json:"heart_condition"`
}

type MedicalDataResponse struct {
	Message    string `json:"message"`
	MaxSafeBPM int    `json:"max_safe_bpm"`
	MinSafeBPM int    `json:"min_safe_bpm"`
}

type ReadingDetail struct {
	ID        string    `json:"id"`
	BPM       int       `json:"bpm"`
	IsAlert   bool      `json:"is_alert"`
	Timestamp time.Time `json:"timestamp"`
}

type ReadingsListResponse struct {
	Data          []ReadingDetail `json:"data"`
	TotalReadings int             `json:"total_readings"`
	AlertCount    int             `json:"alert_count"`
}

type DeleteReadingsResponse struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deleted_count"`
}
