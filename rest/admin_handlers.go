package rest

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"heart-monitor-api/core"
	"heart-monitor-api/db"
)

// requireAdmin resolves the acting admin from the X-Actor-ID header. On
// failure the response has already been written and the first return
// value is nil.
func requireAdmin(c *fiber.Ctx) (*db.User, error) {
	actorID := c.Get("X-Actor-ID")
	if actorID == "" {
		return nil, ReturnUnauthorized(c, "Invalid or missing actor ID")
	}

	actor, err := db.GetUserByID(actorID)
	if err != nil {
		return nil, ReturnInternalError(c, "Failed to authenticate actor")
	}

	if actor == nil || actor.Role != core.RoleAdmin {
		return nil, ReturnUnauthorized(c, "Invalid or missing actor ID")
	}

	state, err := actor.State()
	if err != nil {
		return nil, ReturnInternalError(c, "Actor account state is inconsistent")
	}
	if state != core.StateActive {
		return nil, ReturnForbidden(c, "Actor account is deactivated")
	}

	return actor, nil
}

func ListActiveUsersHandler(c *fiber.Ctx) error {
	actor, res := requireAdmin(c)
	if actor == nil {
		return res
	}

	users, err := db.ListActiveUsers()
	if err != nil {
		return ReturnInternalError(c, "Failed to list users")
	}

	return c.JSON(usersList(users))
}

func ListInactiveUsersHandler(c *fiber.Ctx) error {
	actor, res := requireAdmin(c)
	if actor == nil {
		return res
	}

	var scope *string
	if !actor.Principal().IsRoot() {
		scope = &actor.ID
	}

	users, err := db.ListInactiveUsers(scope)
	if err != nil {
		return ReturnInternalError(c, "Failed to list inactive users")
	}

	return c.JSON(usersList(users))
}

func usersList(users []db.User) UsersListResponse {
	details := make([]UserDetail, len(users))
	for i := range users {
		details[i] = userDetail(&users[i])
	}
	return UsersListResponse{Data: details, Total: len(details)}
}

func DeactivateUserHandler(c *fiber.Ctx) error {
	actor, res := requireAdmin(c)
	if actor == nil {
		return res
	}

	target, err := db.GetUserByID(c.Params("userId"))
	if err != nil {
		return ReturnInternalError(c, "Failed to look up user")
	}
	if target == nil {
		return ReturnNotFound(c, "User not found")
	}

	if !core.CanManage(actor.Principal(), target.Principal()) {
		return ReturnForbidden(c, "Not allowed to deactivate this user")
	}

	if err := db.DeactivateUser(target); err != nil {
		if errors.Is(err, core.ErrAccountInactive) {
			return ReturnConflict(c, "User is already deactivated")
		}
		if errors.Is(err, core.ErrIntegrityViolation) {
			return ReturnInternalError(c, "Account state is inconsistent")
		}
		return ReturnInternalError(c, "Failed to deactivate user")
	}

	response := LifecycleResponse{
		Message: "User deactivated, device released",
		User:    userDetail(target),
	}

	return c.JSON(response)
}

func ReactivateUserHandler(c *fiber.Ctx) error {
	actor, res := requireAdmin(c)
	if actor == nil {
		return res
	}

	target, err := db.GetUserByID(c.Params("userId"))
	if err != nil {
		return ReturnInternalError(c, "Failed to look up user")
	}
	if target == nil {
		return ReturnNotFound(c, "User not found")
	}

	if !core.CanManage(actor.Principal(), target.Principal()) {
		return ReturnForbidden(c, "Not allowed to reactivate this user")
	}

	if !target.IsDeleted {
		return ReturnConflict(c, "User is not deactivated")
	}

	if err := db.ReactivateUser(target); err != nil {
		if errors.Is(err, core.ErrDeviceConflict) {
			return ReturnConflict(c, "Cannot reactivate: the device is in use by another user")
		}
		return ReturnInternalError(c, "Failed to reactivate user")
	}

	response := LifecycleResponse{
		Message: "User reactivated",
		User:    userDetail(target),
	}

	return c.JSON(response)
}

func PurgeUserHandler(c *fiber.Ctx) error {
	actor, res := requireAdmin(c)
	if actor == nil {
		return res
	}

	if !core.CanPurge(actor.Principal()) {
		return ReturnForbidden(c, "Only the root admin can delete users permanently")
	}

	target, err := db.GetUserByID(c.Params("userId"))
	if err != nil {
		return ReturnInternalError(c, "Failed to look up user")
	}
	if target == nil {
		return ReturnNotFound(c, "User not found")
	}

	if !target.IsDeleted {
		return ReturnConflict(c, "Only deactivated users can be deleted permanently")
	}

	deletedReadings, err := db.PurgeUser(target)
	if err != nil {
		return ReturnInternalError(c, "Failed to delete user")
	}

	response := PurgeResponse{
		Message:         "User permanently deleted",
		DeletedReadings: deletedReadings,
	}

	return c.JSON(response)
}

func CreateAdminHandler(c *fiber.Ctx) error {
	actor, res := requireAdmin(c)
	if actor == nil {
		return res
	}

	if !core.CanCreateAdmin(actor.Principal()) {
		return ReturnForbidden(c, "Only the root admin can create administrators")
	}

	var req CreateAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return ReturnBadRequest(c, "Invalid request body")
	}

	if req.Username == "" {
		return ReturnBadRequest(c, "username is required")
	}

	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return ReturnBadRequest(c, "A valid email is required")
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

	admin, err := db.CreateAdmin(req.Username, req.Email, actor.ID)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateAccount) {
			return ReturnConflict(c, "Username or email already registered")
		}
		return ReturnInternalError(c, "Failed to create admin")
	}

	response := RegisterUserResponse{
		Message: "Administrator created successfully",
		User:    userDetail(admin),
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

func ListDevicesHandler(c *fiber.Ctx) error {
	actor, res := requireAdmin(c)
	if actor == nil {
		return res
	}

	devices, err := db.ListDevices()
	if err != nil {
		return ReturnInternalError(c, "Failed to list devices")
	}

	details := make([]DeviceDetail, len(devices))
	for i, device := range devices {
		details[i] = DeviceDetail{
			DeviceCode: device.DeviceCode,
			IsUsed:     device.IsUsed,
			CreatedAt:  device.CreatedAt,
		}
	}

	response := DevicesListResponse{
		Data:        details,
		Provisioned: registry.Count(),
	}

	return c.JSON(response)
}

func GetStatsHandler(c *fiber.Ctx) error {
	actor, res := requireAdmin(c)
	if actor == nil {
		return res
	}

	stats, err := db.GetSystemStats()
	if err != nil {
		return ReturnInternalError(c, "Failed to retrieve stats")
	}

	response := StatsResponse{
		TotalUsers:         stats.TotalUsers,
		InactiveUsers:      stats.InactiveUsers,
		ProvisionedDevices: registry.Count(),
		UsedDevices:        stats.UsedDevices,
		AvailableDevices:   registry.Count() - stats.UsedDevices,
		TotalAlerts:        stats.TotalAlerts,
	}

	return c.JSON(response)
}
