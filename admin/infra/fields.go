package infra

import (
	"time"

	"rental-backend/admin/domain"
	"rental-backend/store"
)

// Campos tipados usados nas atualizações parciais; os nomes seguem as tags json do domínio.
var (
	hostStatus          = store.NewField[domain.HostStatus]("status")
	hostRejectionReason = store.NewField[string]("rejectionReason")
	hostSubmittedAt     = store.NewField[time.Time]("submittedAt")
	hostVerifiedAt      = store.NewField[time.Time]("verifiedAt")
	hostVerifiedBy      = store.NewField[string]("verifiedBy")
	hostRejectedAt      = store.NewField[time.Time]("rejectedAt")
	hostRejectedBy      = store.NewField[string]("rejectedBy")

	listingStatus       = store.NewField[domain.ListingStatus]("status")
	listingHostVerified = store.NewField[bool]("hostVerified")
	listingLockReason   = store.NewField[string]("lockReason")
	listingLockedAt     = store.NewField[time.Time]("lockedAt")
	listingLockedBy     = store.NewField[string]("lockedBy")
	listingApprovedAt   = store.NewField[time.Time]("approvedAt")
	listingApprovedBy   = store.NewField[string]("approvedBy")

	planName          = store.NewField[string]("name")
	planDescription   = store.NewField[string]("description")
	planPriceCents    = store.NewField[int64]("priceCents")
	planCurrency      = store.NewField[string]("currency")
	planInterval      = store.NewField[domain.BillingInterval]("interval")
	planMaxListings   = store.NewField[int]("maxListings")
	planFeatures      = store.NewField[[]string]("features")
	planIsActive      = store.NewField[bool]("isActive")
	planDeactivatedAt = store.NewField[time.Time]("deactivatedAt")
	planUpdatedBy     = store.NewField[string]("updatedBy")

	updatedAt = store.NewField[time.Time]("updatedAt")

	locationListingCount = store.NewField[int64]("listingCount")
)

// Campos expostos às migrações.
var (
	HostStatusField    = hostStatus
	ListingStatusField = listingStatus
	PlanIsActiveField  = planIsActive
)
