package entities

import (
	"strings"
	"time"

	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusClaimed  RequestStatus = "claimed"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusExpired  RequestStatus = "expired"
)

// HoldsSlot reports whether a request in this status books its provider for
// the scheduled time.
func (s RequestStatus) HoldsSlot() bool {
	return s == RequestStatusClaimed || s == RequestStatusAccepted
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusClaimed, RequestStatusAccepted, RequestStatusExpired:
		return true
	default:
		return false
	}
}

type ServiceRequest struct {
	RequestID   string
	UserID      string
	ServiceID   string
	ProviderID  *string
	Status      RequestStatus
	ScheduledAt *time.Time
	ClaimedBy   *string
	ClaimedAt   *time.Time
	ExpiresAt   *time.Time
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewServiceRequest(
	requestID string,
	userID string,
	serviceID string,
	scheduledAt *time.Time,
	expiresAt *time.Time,
	notes string,
	now time.Time,
) (ServiceRequest, error) {
	if strings.TrimSpace(requestID) == "" ||
		strings.TrimSpace(userID) == "" ||
		strings.TrimSpace(serviceID) == "" {
		return ServiceRequest{}, domainerrors.ErrInvalidRequest
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return ServiceRequest{}, domainerrors.ErrInvalidRequest
	}

	return ServiceRequest{
		RequestID:   requestID,
		UserID:      strings.TrimSpace(userID),
		ServiceID:   strings.TrimSpace(serviceID),
		Status:      RequestStatusPending,
		ScheduledAt: utcPtr(scheduledAt),
		ExpiresAt:   utcPtr(expiresAt),
		Notes:       strings.TrimSpace(notes),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// IsClaimable is the claim predicate: pending with no provider.
// Adapters evaluate it at apply time; callers must not use it to decide a claim.
func (r ServiceRequest) IsClaimable() bool {
	return r.Status == RequestStatusPending && r.ProviderID == nil
}

// WithClaim returns the request as it looks after a successful claim.
func (r ServiceRequest) WithClaim(providerID string, claimedAt time.Time) ServiceRequest {
	provider := providerID
	claimedBy := providerID
	at := claimedAt.UTC()
	r.ProviderID = &provider
	r.ClaimedBy = &claimedBy
	r.ClaimedAt = &at
	r.ExpiresAt = nil
	r.Status = RequestStatusClaimed
	r.UpdatedAt = at
	return r
}

// Validate checks the provider/status invariants.
func (r ServiceRequest) Validate() error {
	if !r.Status.Valid() {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	if r.ProviderID != nil && !r.Status.HoldsSlot() {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	if r.Status == RequestStatusPending && r.ProviderID != nil {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func (r ServiceRequest) AssignedProvider() string {
	if r.ProviderID == nil {
		return ""
	}
	return *r.ProviderID
}

// ScheduledFor reports whether the request is booked at exactly slot.
func (r ServiceRequest) ScheduledFor(slot time.Time) bool {
	return r.ScheduledAt != nil && r.ScheduledAt.UTC().Equal(slot.UTC())
}

// Expired is informational only; expiry is never enforced by claiming.
func (r ServiceRequest) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.UTC().After(r.ExpiresAt.UTC())
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
