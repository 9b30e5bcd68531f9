package domain

import "time"

type ListingStatus string

const (
	ListingDraft     ListingStatus = "DRAFT"
	ListingInReview  ListingStatus = "IN_REVIEW"
	ListingReviewing ListingStatus = "REVIEWING"
	ListingApproved  ListingStatus = "APPROVED"
	ListingOnline    ListingStatus = "ONLINE"
	ListingLocked    ListingStatus = "LOCKED"
	ListingRejected  ListingStatus = "REJECTED"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingDraft, ListingInReview, ListingReviewing, ListingApproved, ListingOnline, ListingLocked, ListingRejected:
		return true
	}
	return false
}

type Location struct {
	PlaceID    string `json:"placeId"`
	LocalityID string `json:"localityId,omitempty"`
}

type Listing struct {
	ListingID    string        `json:"listingId"`
	HostID       string        `json:"hostId"`
	Title        string        `json:"title"`
	Status       ListingStatus `json:"status"`
	Ready        bool          `json:"ready"`
	HostVerified bool          `json:"hostVerified,omitempty"`
	Location     Location      `json:"location"`
	LockReason   string        `json:"lockReason,omitempty"`
	LockedAt     *time.Time    `json:"lockedAt,omitempty"`
	LockedBy     string        `json:"lockedBy,omitempty"`
	ApprovedAt   *time.Time    `json:"approvedAt,omitempty"`
	ApprovedBy   string        `json:"approvedBy,omitempty"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

var suspendable = []ListingStatus{ListingOnline, ListingApproved}

var approvable = []ListingStatus{ListingInReview, ListingReviewing, ListingLocked}

// SuspendableStatuses devolve os status dos quais se pode ir para LOCKED.
func SuspendableStatuses() []ListingStatus {
	return append([]ListingStatus(nil), suspendable...)
}

func CheckSuspend(from ListingStatus) error {
	for _, s := range suspendable {
		if from == s {
			return nil
		}
	}
	return &TransitionError{Resource: "listing", From: string(from), To: string(ListingLocked)}
}

// CheckApprove aceita os status de revisão e LOCKED. A marca de pronto só
// vale antes da aprovação: ONLINE e APPROVED nunca voltam para APPROVED.
func CheckApprove(l Listing) error {
	if l.Ready && l.Status != ListingOnline && l.Status != ListingApproved {
		return nil
	}
	for _, s := range approvable {
		if l.Status == s {
			return nil
		}
	}
	return &TransitionError{Resource: "listing", From: string(l.Status), To: string(ListingApproved)}
}
