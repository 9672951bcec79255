package auth

const (
	RoleStaff       = "staff"
	RoleSupervisor  = "supervisor"
	RoleHRAdmin     = "hr_admin"
	RoleSystemAdmin = "system_admin"
)

const (
	PermDirectoryRead   = "directory.read"
	PermDirectoryWrite  = "directory.write"
	PermAppraisalRead   = "appraisal.read"
	PermAppraisalSubmit = "appraisal.submit"
	PermAppraisalReview = "appraisal.review"
	PermAppraisalManage = "appraisal.manage"
	PermTrainingRead    = "training.read"
	PermTrainingWrite   = "training.write"
	PermReportsRead     = "reports.read"
	PermAuditRead       = "audit.read"
	PermSystemAdmin     = "admin.system"
)

var DefaultPermissions = []string{
	PermDirectoryRead,
	PermDirectoryWrite,
	PermAppraisalRead,
	PermAppraisalSubmit,
	PermAppraisalReview,
	PermAppraisalManage,
	PermTrainingRead,
	PermTrainingWrite,
	PermReportsRead,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleStaff: {
		PermDirectoryRead,
		PermAppraisalRead,
		PermAppraisalSubmit,
		PermTrainingRead,
		PermReportsRead,
	},
	RoleSupervisor: {
		PermDirectoryRead,
		PermAppraisalRead,
		PermAppraisalSubmit,
		PermAppraisalReview,
		PermTrainingRead,
		PermReportsRead,
	},
	RoleHRAdmin: {
		PermDirectoryRead,
		PermDirectoryWrite,
		PermAppraisalRead,
		PermAppraisalSubmit,
		PermAppraisalReview,
		PermAppraisalManage,
		PermTrainingRead,
		PermTrainingWrite,
		PermReportsRead,
		PermAuditRead,
	},
	RoleSystemAdmin: DefaultPermissions,
}
