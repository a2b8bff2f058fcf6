package entities

import (
	"strings"
	"time"

	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
)

type Provider struct {
	ProviderID string
	Active     bool
}

type Service struct {
	ServiceID string
	Code      string
	Active    bool
}

// CapabilityMapping registers a service a provider may fulfill. It is unique
// per (ProviderID, ServiceID).
type CapabilityMapping struct {
	ProviderID string
	ServiceID  string
	Active     bool
	CreatedAt  time.Time
}

func NewCapabilityMapping(providerID string, serviceID string, now time.Time) (CapabilityMapping, error) {
	providerID = strings.TrimSpace(providerID)
	serviceID = strings.TrimSpace(serviceID)
	if providerID == "" || serviceID == "" {
		return CapabilityMapping{}, domainerrors.ErrInvalidRequest
	}
	return CapabilityMapping{
		ProviderID: providerID,
		ServiceID:  serviceID,
		Active:     true,
		CreatedAt:  now.UTC(),
	}, nil
}

// NormalizeServiceCode upper-cases codes so lookups are case-insensitive.
func NormalizeServiceCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
