package user

type Permission string

const (
	// Self service
	PermissionAttendanceViewOwn Permission = "attendance.view_own"
	PermissionAttendanceCreate  Permission = "attendance.create"

	// Review
	PermissionAttendanceViewAll Permission = "attendance.view_all"
	PermissionAttendanceApprove Permission = "attendance.approve"
	PermissionAttendanceCorrect Permission = "attendance.correct"

	// Operations
	PermissionAttendanceReconcile Permission = "attendance.reconcile"
	PermissionScheduleManage      Permission = "schedule.manage"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionAttendanceViewAll,
		PermissionAttendanceApprove,
		PermissionAttendanceCorrect,
		PermissionAttendanceReconcile,
		PermissionScheduleManage,
	},
	RoleManager: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionAttendanceViewAll,
		PermissionAttendanceApprove,
		PermissionAttendanceCorrect,
		PermissionAttendanceReconcile,
		PermissionScheduleManage,
	},
	RoleEmployee: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
	},
	RolePending: {
		// Pending role has no permissions
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
