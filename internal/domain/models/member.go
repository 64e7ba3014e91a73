package models

import "time"

const (
	MemberScheduled  = "SCHEDULED"
	MemberOnBoard    = "ON_BOARD"
	MemberDroppedOff = "DROPPED_OFF"
	MemberNoShow     = "NO_SHOW"
)

// TripMember links a rider to a trip and carries that rider's signature.
type TripMember struct {
	ID                int64      `json:"id"`
	TripID            int64      `json:"tripId"`
	MemberID          int64      `json:"memberId"`
	MemberName        string     `json:"memberName"`
	MemberStatus      string     `json:"memberStatus"`
	SignatureRef      string     `json:"signatureRef,omitempty"`
	SignedAt          *time.Time `json:"signedAt,omitempty"`
	IsProxySignature  bool       `json:"isProxySignature"`
	ProxySignerName   string     `json:"proxySignerName,omitempty"`
	ProxyRelationship string     `json:"proxyRelationship,omitempty"`
	ProxyReason       string     `json:"proxyReason,omitempty"`
}

func (m TripMember) Signed() bool { return m.SignatureRef != "" }
