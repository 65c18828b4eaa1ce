package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionStudentsRead allows viewing students, guardians and consents.
	PermissionStudentsRead Permission = "students:read"

	// PermissionStudentsWrite allows creating and updating students and guardians.
	PermissionStudentsWrite Permission = "students:write"

	// PermissionTransfersApprove allows approving, rejecting and completing transfers.
	PermissionTransfersApprove Permission = "transfers:approve"

	// PermissionConsentsWrite allows recording and revoking parent consents.
	PermissionConsentsWrite Permission = "consents:write"

	// PermissionAcademicsRead allows viewing academic years, terms, classes and timetables.
	PermissionAcademicsRead Permission = "academics:read"

	// PermissionAcademicsWrite allows managing academic years, terms, classes and schedules.
	PermissionAcademicsWrite Permission = "academics:write"

	// PermissionExamsRead allows viewing exams and grades.
	PermissionExamsRead Permission = "exams:read"

	// PermissionExamsWrite allows scheduling exams and recording grades.
	PermissionExamsWrite Permission = "exams:write"

	// PermissionAttendanceRead allows viewing student attendance.
	PermissionAttendanceRead Permission = "attendance:read"

	// PermissionAttendanceWrite allows marking student attendance.
	PermissionAttendanceWrite Permission = "attendance:write"

	// PermissionFeesRead allows viewing fee bills and payments.
	PermissionFeesRead Permission = "fees:read"

	// PermissionFeesWrite allows billing students and recording payments.
	PermissionFeesWrite Permission = "fees:write"

	// PermissionAccountsRead allows viewing the chart of accounts and the ledger.
	PermissionAccountsRead Permission = "accounts:read"

	// PermissionAccountsWrite allows managing accounts and manual postings.
	PermissionAccountsWrite Permission = "accounts:write"

	// PermissionBudgetsRead allows viewing budgets and expenses.
	PermissionBudgetsRead Permission = "budgets:read"

	// PermissionBudgetsWrite allows drafting budgets and expenses.
	PermissionBudgetsWrite Permission = "budgets:write"

	// PermissionBudgetsApprove allows approving budgets and expenses.
	PermissionBudgetsApprove Permission = "budgets:approve"

	// PermissionHRRead allows viewing employees, HR attendance and salary slips.
	PermissionHRRead Permission = "hr:read"

	// PermissionHRWrite allows managing employees, HR attendance and salary slips.
	PermissionHRWrite Permission = "hr:write"

	// PermissionInventoryRead allows viewing stock items and entries.
	PermissionInventoryRead Permission = "inventory:read"

	// PermissionInventoryWrite allows managing stock items and entries.
	PermissionInventoryWrite Permission = "inventory:write"

	// PermissionCommunicationsRead allows viewing communication logs.
	PermissionCommunicationsRead Permission = "communications:read"

	// PermissionCommunicationsWrite allows sending communications.
	PermissionCommunicationsWrite Permission = "communications:write"

	// PermissionReportsRead allows running and exporting reports.
	PermissionReportsRead Permission = "reports:read"

	// PermissionSettingsWrite allows editing the school profile and finance defaults.
	PermissionSettingsWrite Permission = "settings:write"

	// PermissionJobsRun allows triggering scheduled jobs on demand.
	PermissionJobsRun Permission = "jobs:run"

	// PermissionAdminsRead allows viewing staff user lists and details.
	PermissionAdminsRead Permission = "admins:read"

	// PermissionAdminsWrite allows creating, updating, and deleting staff users.
	PermissionAdminsWrite Permission = "admins:write"

	// PermissionRolesRead allows viewing roles and permissions.
	PermissionRolesRead Permission = "roles:read"

	// PermissionRolesWrite allows creating, updating, and deleting roles.
	PermissionRolesWrite Permission = "roles:write"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionStudentsRead,
	PermissionStudentsWrite,
	PermissionTransfersApprove,
	PermissionConsentsWrite,
	PermissionAcademicsRead,
	PermissionAcademicsWrite,
	PermissionExamsRead,
	PermissionExamsWrite,
	PermissionAttendanceRead,
	PermissionAttendanceWrite,
	PermissionFeesRead,
	PermissionFeesWrite,
	PermissionAccountsRead,
	PermissionAccountsWrite,
	PermissionBudgetsRead,
	PermissionBudgetsWrite,
	PermissionBudgetsApprove,
	PermissionHRRead,
	PermissionHRWrite,
	PermissionInventoryRead,
	PermissionInventoryWrite,
	PermissionCommunicationsRead,
	PermissionCommunicationsWrite,
	PermissionReportsRead,
	PermissionSettingsWrite,
	PermissionJobsRun,
	PermissionAdminsRead,
	PermissionAdminsWrite,
	PermissionRolesRead,
	PermissionRolesWrite,
}

// IsKnownPermission reports whether code names a defined permission.
func IsKnownPermission(code string) bool {
	for _, p := range AllPermissions {
		if string(p) == code {
			return true
		}
	}
	return false
}
