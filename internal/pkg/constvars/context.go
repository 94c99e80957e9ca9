package constvars

type contextKey string

const (
	CONTEXT_REQUEST_ID_KEY contextKey = "request_id"
	CONTEXT_USER_ID_KEY    contextKey = "user_id"
	CONTEXT_USER_ROLE_KEY  contextKey = "user_role"
	CONTEXT_LAB_SYSTEM_KEY contextKey = "lab_system"
)

const (
	RoleClinician = "clinician"
	RolePatient   = "patient"
)
