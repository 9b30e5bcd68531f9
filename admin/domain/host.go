// Package domain contém as entidades da moderação administrativa, seus
// status e as transições permitidas entre eles.
package domain

import "time"

type HostStatus string

const (
	HostNotStarted   HostStatus = "NOT_STARTED"
	HostVerification HostStatus = "VERIFICATION"
	HostVerified     HostStatus = "VERIFIED"
	HostRejected     HostStatus = "REJECTED"
)

func (s HostStatus) Valid() bool {
	switch s {
	case HostNotStarted, HostVerification, HostVerified, HostRejected:
		return true
	}
	return false
}

type Host struct {
	HostID          string     `json:"hostId"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Status          HostStatus `json:"status"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	SubmittedAt     *time.Time `json:"submittedAt,omitempty"`
	VerifiedAt      *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy      string     `json:"verifiedBy,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectedBy      string     `json:"rejectedBy,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type HostDocument struct {
	HostID     string    `json:"hostId"`
	DocumentID string    `json:"documentId"`
	Kind       string    `json:"kind"`
	ObjectKey  string    `json:"objectKey"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// MaxReasonLength limita motivos de rejeição e suspensão.
const MaxReasonLength = 500

// CheckHostDecision só aceita decisões sobre hosts em VERIFICATION.
func CheckHostDecision(from, to HostStatus) error {
	if from != HostVerification || (to != HostVerified && to != HostRejected) {
		return &TransitionError{Resource: "host", From: string(from), To: string(to)}
	}
	return nil
}

// CheckVerificationSubmit: o próprio host envia (ou reenvia) a verificação.
func CheckVerificationSubmit(from HostStatus) error {
	if from != HostNotStarted && from != HostRejected {
		return &TransitionError{Resource: "host", From: string(from), To: string(HostVerification)}
	}
	return nil
}
