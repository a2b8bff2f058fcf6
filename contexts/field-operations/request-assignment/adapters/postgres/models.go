package postgresadapter

import (
	"time"

	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

type serviceRequestModel struct {
	RequestID   string     `gorm:"column:request_id;primaryKey"`
	UserID      string     `gorm:"column:user_id"`
	ServiceID   string     `gorm:"column:service_id"`
	ProviderID  *string    `gorm:"column:provider_id"`
	Status      string     `gorm:"column:status"`
	ScheduledAt *time.Time `gorm:"column:scheduled_at"`
	ClaimedBy   *string    `gorm:"column:claimed_by"`
	ClaimedAt   *time.Time `gorm:"column:claimed_at"`
	ExpiresAt   *time.Time `gorm:"column:expires_at"`
	Notes       string     `gorm:"column:notes"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (serviceRequestModel) TableName() string {
	return "service_requests"
}

func serviceRequestModelFromEntity(item entities.ServiceRequest) serviceRequestModel {
	return serviceRequestModel{
		RequestID:   item.RequestID,
		UserID:      item.UserID,
		ServiceID:   item.ServiceID,
		ProviderID:  item.ProviderID,
		Status:      string(item.Status),
		ScheduledAt: utcPointer(item.ScheduledAt),
		ClaimedBy:   item.ClaimedBy,
		ClaimedAt:   utcPointer(item.ClaimedAt),
		ExpiresAt:   utcPointer(item.ExpiresAt),
		Notes:       item.Notes,
		CreatedAt:   item.CreatedAt.UTC(),
		UpdatedAt:   item.UpdatedAt.UTC(),
	}
}

func (m serviceRequestModel) toEntity() entities.ServiceRequest {
	return entities.ServiceRequest{
		RequestID:   m.RequestID,
		UserID:      m.UserID,
		ServiceID:   m.ServiceID,
		ProviderID:  m.ProviderID,
		Status:      entities.RequestStatus(m.Status),
		ScheduledAt: utcPointer(m.ScheduledAt),
		ClaimedBy:   m.ClaimedBy,
		ClaimedAt:   utcPointer(m.ClaimedAt),
		ExpiresAt:   utcPointer(m.ExpiresAt),
		Notes:       m.Notes,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type providerModel struct {
	ProviderID string `gorm:"column:provider_id;primaryKey"`
	Active     bool   `gorm:"column:active"`
}

func (providerModel) TableName() string {
	return "providers"
}

func (m providerModel) toEntity() entities.Provider {
	return entities.Provider{ProviderID: m.ProviderID, Active: m.Active}
}

type serviceModel struct {
	ServiceID string `gorm:"column:service_id;primaryKey"`
	Code      string `gorm:"column:code"`
	Active    bool   `gorm:"column:active"`
}

func (serviceModel) TableName() string {
	return "services"
}

func (m serviceModel) toEntity() entities.Service {
	return entities.Service{ServiceID: m.ServiceID, Code: m.Code, Active: m.Active}
}

type capabilityModel struct {
	ProviderID string    `gorm:"column:provider_id;primaryKey"`
	ServiceID  string    `gorm:"column:service_id;primaryKey"`
	Active     bool      `gorm:"column:active"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (capabilityModel) TableName() string {
	return "provider_capabilities"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "request_assignment_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func utcPointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	out := value.UTC()
	return &out
}
