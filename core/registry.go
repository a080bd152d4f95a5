package core

import (
	"sort"
	"strings"
)

// DefaultDeviceCodes is the built-in sensor fleet. Codes are provisioned
// at manufacturing time; the registry never accepts arbitrary strings.
var DefaultDeviceCodes = []string{
	"HR-SENSOR-A1B2-C3D4",
	"HR-SENSOR-E5F6-G7H8",
	"HR-SENSOR-I9J0-K1L2",
	"HR-SENSOR-M3N4-O5P6",
	"HR-SENSOR-Q7R8-S9T0",
	"HR-SENSOR-U1V2-W3X4",
	"HR-SENSOR-Y5Z6-A7B8",
	"HR-SENSOR-C9D0-E1F2",
	"HR-SENSOR-G3H4-I5J6",
	"HR-SENSOR-K7L8-M9N0",
	"HR-SENSOR-O1P2-Q3R4",
	"HR-SENSOR-S5T6-U7V8",
	"HR-SENSOR-W9X0-Y1Z2",
	"HR-SENSOR-A3B4-C5D6",
	"HR-SENSOR-E7F8-G9H0",
	"HR-SENSOR-I1J2-K3L4",
	"HR-SENSOR-M5N6-O7P8",
	"HR-SENSOR-Q9R0-S1T2",
	"HR-SENSOR-U3V4-W5X6",
	"HR-SENSOR-Y7Z8-A9B0",
}

// NormalizeCode canonicalizes a device code for comparison and storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DeviceRegistry is the immutable set of provisioned device codes,
// built once at startup and injected where needed.
type DeviceRegistry struct {
	codes map[string]struct{}
}

func NewDeviceRegistry(codes []string) *DeviceRegistry {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		normalized := NormalizeCode(code)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return &DeviceRegistry{codes: set}
}

// IsValidCode reports whether the code belongs to the provisioned fleet.
// Matching is case- and whitespace-insensitive.
func (r *DeviceRegistry) IsValidCode(code string) bool {
	_, ok := r.codes[NormalizeCode(code)]
	return ok
}

func (r *DeviceRegistry) Count() int {
	return len(r.codes)
}

// Codes returns the provisioned codes in sorted order.
func (r *DeviceRegistry) Codes() []string {
	codes := make([]string, 0, len(r.codes))
	for code := range r.codes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
