package entity

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// Decision is the donor's answer to a pending request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Status returns the terminal status the decision leads to.
func (d Decision) Status() (RequestStatus, bool) {
	switch d {
	case DecisionAccept:
		return RequestStatusAccepted, true
	case DecisionReject:
		return RequestStatusRejected, true
	}
	return "", false
}

// BloodRequest links a requester (patient) to a donor; both are users.
// At most one pending request may exist per requester/donor pair.
type BloodRequest struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	RequesterID uuid.UUID     `gorm:"type:uuid;not null;index;uniqueIndex:idx_blood_requests_pending_pair,where:status = 'pending'" json:"requester"`
	DonorID     uuid.UUID     `gorm:"type:uuid;not null;index;uniqueIndex:idx_blood_requests_pending_pair,where:status = 'pending'" json:"donor"`
	Message     string        `gorm:"type:text" json:"message"`
	Status      RequestStatus `gorm:"size:10;not null;default:'pending';index" json:"status"`
	RequestedAt time.Time     `gorm:"autoCreateTime" json:"requested_at"`
	RespondedAt *time.Time    `json:"responded_at"`

	Requester *User `gorm:"foreignKey:RequesterID;constraint:OnDelete:CASCADE" json:"-"`
	Donor     *User `gorm:"foreignKey:DonorID;constraint:OnDelete:CASCADE" json:"-"`
}

func (BloodRequest) TableName() string {
	return "blood_requests"
}

func (r *BloodRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}
