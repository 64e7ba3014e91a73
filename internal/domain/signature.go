package domain

import (
	"strings"
	"time"

	"nemt/internal/domain/models"
)

// SignatureInput is a direct or proxy signature for one trip member.
type SignatureInput struct {
	MemberID          int64  `json:"memberId"`
	SignatureRef      string `json:"signatureRef"`
	IsProxySignature  bool   `json:"isProxySignature"`
	ProxySignerName   string `json:"proxySignerName"`
	ProxyRelationship string `json:"proxyRelationship"`
	ProxyReason       string `json:"proxyReason"`
}

func (in SignatureInput) Validate() error {
	if strings.TrimSpace(in.SignatureRef) == "" {
		return ValidationError{Field: "signatureRef", Msg: "signature is required"}
	}
	if !in.IsProxySignature {
		return nil
	}
	if strings.TrimSpace(in.ProxySignerName) == "" {
		return ValidationError{Field: "proxySignerName", Msg: "required for proxy signature"}
	}
	if strings.TrimSpace(in.ProxyRelationship) == "" {
		return ValidationError{Field: "proxyRelationship", Msg: "required for proxy signature"}
	}
	if strings.TrimSpace(in.ProxyReason) == "" {
		return ValidationError{Field: "proxyReason", Msg: "required for proxy signature"}
	}
	return nil
}

// ApplySignature overwrites whatever signature the member had. Proxy fields are
// cleared on a direct signature.
func ApplySignature(m models.TripMember, in SignatureInput, at time.Time) models.TripMember {
	m.SignatureRef = strings.TrimSpace(in.SignatureRef)
	m.IsProxySignature = in.IsProxySignature
	if in.IsProxySignature {
		m.ProxySignerName = strings.TrimSpace(in.ProxySignerName)
		m.ProxyRelationship = strings.TrimSpace(in.ProxyRelationship)
		m.ProxyReason = strings.TrimSpace(in.ProxyReason)
	} else {
		m.ProxySignerName = ""
		m.ProxyRelationship = ""
		m.ProxyReason = ""
	}
	m.SignedAt = &at
	return m
}
