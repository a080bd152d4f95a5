package rest

import "time"

type CreateAdminRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
}

type UsersListResponse struct {
	Data  []UserDetail `json:"data"`
	Total int          `json:"total"`
}

type LifecycleResponse struct {
	Message string     `json:"message"`
	User    UserDetail `json:"user"`
}

type PurgeResponse struct {
	Message         string `json:"message"`
	DeletedReadings int    `json:"deleted_readings"`
}

type DeviceDetail struct {
	DeviceCode string    `json:"device_code"`
	IsUsed     bool      `json:"is_used"`
	CreatedAt  time.Time `json:"created_at"`
}

type DevicesListResponse struct {
	Data        []DeviceDetail `json:"data"`
	Provisioned int            `json:"provisioned"`
}

type StatsResponse struct {
	TotalUsers         int `json:"total_users"`
	InactiveUsers      int `json:"inactive_users"`
	ProvisionedDevices int `json:"provisioned_devices"`
	UsedDevices        int `json:"used_devices"`
	AvailableDevices   int `json:"available_devices"`
	TotalAlerts        int `json:"total_alerts"`
}
