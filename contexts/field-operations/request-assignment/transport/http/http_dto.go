package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ServiceRequestDTO struct {
	RequestID   string  `json:"request_id"`
	UserID      string  `json:"user_id"`
	ServiceID   string  `json:"service_id"`
	ProviderID  *string `json:"provider_id,omitempty"`
	Status      string  `json:"status"`
	ScheduledAt *string `json:"scheduled_at,omitempty"`
	ClaimedBy   *string `json:"claimed_by,omitempty"`
	ClaimedAt   *string `json:"claimed_at,omitempty"`
	ExpiresAt   *string `json:"expires_at,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// CreateServiceRequestRequest accepts either service_id or service_code.
type CreateServiceRequestRequest struct {
	UserID      string `json:"user_id"`
	ServiceID   string `json:"service_id"`
	ServiceCode string `json:"service_code"`
	ScheduledAt string `json:"scheduled_at"`
	ExpiresAt   string `json:"expires_at"`
	Notes       string `json:"notes"`
}

type CreateServiceRequestResponse struct {
	Request                ServiceRequestDTO `json:"request"`
	AutoAssignedProviderID *string           `json:"auto_assigned_provider_id"`
	AssignmentReason       string            `json:"assignment_reason"`
}

type GetServiceRequestResponse struct {
	Request ServiceRequestDTO `json:"request"`
}

type ListClaimableRequestsResponse struct {
	Items []ServiceRequestDTO `json:"items"`
}

type ClaimServiceRequestResponse struct {
	Request  ServiceRequestDTO `json:"request"`
	Strategy string            `json:"strategy"`
}

type RegisterCapabilityRequest struct {
	ServiceID string `json:"service_id"`
}

type RegisterCapabilityResponse struct {
	ProviderID    string `json:"provider_id"`
	ServiceID     string `json:"service_id"`
	Active        bool   `json:"active"`
	AlreadyExists bool   `json:"already_exists"`
}
