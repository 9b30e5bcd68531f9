package auth

// Permissões administrativas reconhecidas.
const (
	PermKYCView        = "ADMIN_KYC_VIEW"
	PermKYCApprove     = "ADMIN_KYC_APPROVE"
	PermListingView    = "ADMIN_LISTING_VIEW"
	PermListingApprove = "ADMIN_LISTING_APPROVE"
	PermListingSuspend = "ADMIN_LISTING_SUSPEND"
	PermPlanManage     = "ADMIN_PLAN_MANAGE"
)
