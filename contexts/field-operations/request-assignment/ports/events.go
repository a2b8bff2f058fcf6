package ports

import "encoding/json"

const (
	ClaimedEventType     = "service_request.claimed"
	claimedSourceService = "request-assignment-service"
	claimedPartitionPath = "request_id"
	claimedSchemaVersion = 1
)

// Envelope renders the canonical envelope stored in the outbox payload.
func (e ClaimedEvent) Envelope() (EventEnvelope, error) {
	data, err := json.Marshal(map[string]string{
		"request_id":  e.RequestID,
		"provider_id": e.ProviderID,
		"service_id":  e.ServiceID,
	})
	if err != nil {
		return EventEnvelope{}, err
	}
	eventType := e.EventType
	if eventType == "" {
		eventType = ClaimedEventType
	}
	return EventEnvelope{
		EventID:          e.EventID,
		EventType:        eventType,
		OccurredAt:       e.OccurredAt.UTC(),
		SourceService:    claimedSourceService,
		TraceID:          e.EventID,
		SchemaVersion:    claimedSchemaVersion,
		PartitionKeyPath: claimedPartitionPath,
		PartitionKey:     e.PartitionKey,
		Data:             data,
	}, nil
}

// OutboxPayload is the JSON-encoded envelope.
func (e ClaimedEvent) OutboxPayload() ([]byte, error) {
	envelope, err := e.Envelope()
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope)
}
