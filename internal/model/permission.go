package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionExamsRead allows viewing the exam bank.
	PermissionExamsRead Permission = "exams:read"

	// PermissionExamsWrite allows creating draft exams.
	PermissionExamsWrite Permission = "exams:write"

	// PermissionExamsPublish allows moving an exam from Draft to Published.
	PermissionExamsPublish Permission = "exams:publish"

	// PermissionLiveControl allows pushing exams live and stopping them.
	PermissionLiveControl Permission = "live:control"

	// PermissionResultsRead allows viewing score records.
	PermissionResultsRead Permission = "results:read"

	// PermissionResultsWrite allows entering and correcting score records.
	PermissionResultsWrite Permission = "results:write"

	// PermissionStudentsRead allows viewing class rosters.
	PermissionStudentsRead Permission = "students:read"

	// PermissionStudentsWrite allows registering students and resetting their sessions.
	PermissionStudentsWrite Permission = "students:write"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionExamsRead,
	PermissionExamsWrite,
	PermissionExamsPublish,
	PermissionLiveControl,
	PermissionResultsRead,
	PermissionResultsWrite,
	PermissionStudentsRead,
	PermissionStudentsWrite,
}

// PermissionsFor returns the permission codes granted to a role.
func PermissionsFor(role AdminRole) []string {
	var perms []Permission
	switch role {
	case AdminRoleAdmin:
		perms = AllPermissions
	case AdminRoleTeacher:
		perms = []Permission{
			PermissionExamsRead,
			PermissionExamsWrite,
			PermissionResultsRead,
			PermissionResultsWrite,
			PermissionStudentsRead,
		}
	}

	codes := make([]string, len(perms))
	for i, p := range perms {
		codes[i] = string(p)
	}
	return codes
}
