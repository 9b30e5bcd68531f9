package domain

import ratelimit "rental-backend/middleware/ratelimit/domain"

// Operações de escrita sujeitas a cota por usuário.
const (
	OpHostDecision       ratelimit.OperationType = "host_decision"
	OpListingSuspend     ratelimit.OperationType = "listing_suspend"
	OpListingBulkApprove ratelimit.OperationType = "listing_bulk_approve"
	OpPlanWrite          ratelimit.OperationType = "plan_write"
	OpVerificationSubmit ratelimit.OperationType = "verification_submit"
)

// Quotas é a tabela fixa carregada na partida do processo.
func Quotas() ratelimit.QuotaTable {
	return ratelimit.QuotaTable{
		OpHostDecision:       {PerHour: 100, PerDay: 500, HumanName: "host verification decisions"},
		OpListingSuspend:     {PerHour: 50, PerDay: 200, HumanName: "listing suspensions"},
		OpListingBulkApprove: {PerHour: 20, PerDay: 100, HumanName: "bulk listing approvals"},
		OpPlanWrite:          {PerHour: 30, PerDay: 100, HumanName: "subscription plan changes"},
		OpVerificationSubmit: {PerHour: 5, PerDay: 10, HumanName: "verification submissions"},
	}
}

// Ações registradas na auditoria.
const (
	AuditHostApproved         = "HOST_APPROVED"
	AuditHostRejected         = "HOST_REJECTED"
	AuditListingSuspended     = "LISTING_SUSPENDED"
	AuditListingsBulkApproved = "LISTINGS_BULK_APPROVED"
	AuditPlanCreated          = "PLAN_CREATED"
	AuditPlanUpdated          = "PLAN_UPDATED"
	AuditPlanDeactivated      = "PLAN_DEACTIVATED"
)
