package rest

import "time"

type SensorDataRequest struct {
	DeviceCode string `json:"device_code" validate:"required"`
	BPM        *int   `json:"bpm" validate:"required"`
}

type SensorDataResponse struct {
	Message      string    `json:"message"`
	User         string    `json:"user"`
	BPM          int       `json:"bpm"`
	IsAlert      bool      `json:"is_alert"`
	Limits       string    `json:"limits"`
	Timestamp    time.Time `json:"timestamp"`
	AlertMessage *string   `json:"alert_message,omitempty"`
}
