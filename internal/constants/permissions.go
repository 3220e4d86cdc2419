package constants

const (
	ViewData           = "view_data"
	PublishCause       = "publish_cause"
	ApproveSponsorship = "approve_sponsorship"
	ManageClaims       = "manage_claims"
	ManageAdmins       = "manage_admins"
	AssignRole         = "assign_role"
)
