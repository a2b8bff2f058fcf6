package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
)

const claimPrimitiveQuery = "SELECT claim_service_request(?, ?, ?)"

var slotHoldingStatuses = []string{
	string(entities.RequestStatusClaimed),
	string(entities.RequestStatusAccepted),
}

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateRequest(ctx context.Context, request entities.ServiceRequest) error {
	if err := request.Validate(); err != nil {
		return err
	}
	row := serviceRequestModelFromEntity(request)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		if isForeignKeyViolation(err) {
			return domainerrors.ErrServiceNotFound
		}
		return mapStoreError(err)
	}
	return nil
}

func (r *Repository) GetRequest(ctx context.Context, requestID string) (entities.ServiceRequest, error) {
	var row serviceRequestModel
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ServiceRequest{}, domainerrors.ErrRequestNotFound
		}
		return entities.ServiceRequest{}, mapStoreError(err)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListBusyProviders(ctx context.Context, providerIDs []string, scheduledAt time.Time) ([]string, error) {
	if len(providerIDs) == 0 {
		return []string{}, nil
	}
	var busy []string
	err := r.db.WithContext(ctx).
		Model(&serviceRequestModel{}).
		Distinct("provider_id").
		Where("provider_id IN ? AND status IN ? AND scheduled_at = ?", providerIDs, slotHoldingStatuses, scheduledAt.UTC()).
		Order("provider_id").
		Pluck("provider_id", &busy).
		Error
	if err != nil {
		return nil, mapStoreError(err)
	}
	return busy, nil
}

func (r *Repository) ListPendingRequests(ctx context.Context, serviceIDs []string, limit int) ([]entities.ServiceRequest, error) {
	if len(serviceIDs) == 0 {
		return []entities.ServiceRequest{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	var rows []serviceRequestModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND provider_id IS NULL AND service_id IN ?", string(entities.RequestStatusPending), serviceIDs).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: false}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "request_id"}, Desc: false}).
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, mapStoreError(err)
	}
	items := make([]entities.ServiceRequest, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// ConditionalClaim issues one UPDATE guarded by the claim predicate. The
// affected-row count is the only signal of success; the outbox row is written
// in the same transaction and only when the update applied.
func (r *Repository) ConditionalClaim(ctx context.Context, cmd ports.ClaimCommand) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		applied, err = r.applyClaim(tx, cmd)
		return err
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrRepositoryInvariantBroke) {
			return false, err
		}
		return false, mapStoreError(err)
	}
	return applied, nil
}

func (r *Repository) applyClaim(tx *gorm.DB, cmd ports.ClaimCommand) (bool, error) {
	result := claimUpdate(tx, cmd)
	if result.Error != nil {
		return false, result.Error
	}
	switch result.RowsAffected {
	case 0:
		return false, nil
	case 1:
	default:
		return false, domainerrors.ErrRepositoryInvariantBroke
	}
	if err := r.enqueueClaimed(tx, cmd); err != nil {
		return false, err
	}
	return true, nil
}

func claimUpdate(tx *gorm.DB, cmd ports.ClaimCommand) *gorm.DB {
	claimedAt := cmd.ClaimedAt.UTC()
	return tx.Model(&serviceRequestModel{}).
		Where("request_id = ? AND status = ? AND provider_id IS NULL", cmd.RequestID, string(entities.RequestStatusPending)).
		Updates(map[string]any{
			"status":      string(entities.RequestStatusClaimed),
			"provider_id": cmd.ProviderID,
			"claimed_by":  cmd.ProviderID,
			"claimed_at":  claimedAt,
			"expires_at":  nil,
			"updated_at":  claimedAt,
		})
}

// ClaimViaPrimitive calls the claim_service_request stored function. A
// database without the function yields ErrClaimPrimitiveUnavailable.
func (r *Repository) ClaimViaPrimitive(ctx context.Context, cmd ports.ClaimCommand) (bool, error) {
	claimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(
			claimPrimitiveQuery,
			cmd.RequestID,
			cmd.ProviderID,
			cmd.ClaimedAt.UTC(),
		).Row().Scan(&claimed); err != nil {
			return err
		}
		if !claimed {
			return nil
		}
		return r.enqueueClaimed(tx, cmd)
	})
	if err != nil {
		claimed = false
		if isUndefinedFunction(err) {
			return false, domainerrors.ErrClaimPrimitiveUnavailable
		}
		return false, mapStoreError(err)
	}
	return claimed, nil
}

func (r *Repository) enqueueClaimed(tx *gorm.DB, cmd ports.ClaimCommand) error {
	if cmd.Event == nil {
		return nil
	}
	event := *cmd.Event
	var serviceIDs []string
	if err := tx.Model(&serviceRequestModel{}).
		Where("request_id = ?", cmd.RequestID).
		Pluck("service_id", &serviceIDs).
		Error; err != nil {
		return err
	}
	if len(serviceIDs) > 0 {
		event.ServiceID = serviceIDs[0]
	}
	payload, err := event.OutboxPayload()
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    event.OccurredAt.UTC(),
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return err
	}
	return nil
}

func (r *Repository) GetProvider(ctx context.Context, providerID string) (entities.Provider, error) {
	var row providerModel
	err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Provider{}, domainerrors.ErrProviderNotFound
		}
		return entities.Provider{}, mapStoreError(err)
	}
	return row.toEntity(), nil
}

func (r *Repository) UpsertProvider(ctx context.Context, provider entities.Provider) error {
	row := providerModel{ProviderID: provider.ProviderID, Active: provider.Active}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"active"}),
		}).
		Create(&row).
		Error
	return mapStoreError(err)
}

func (r *Repository) GetService(ctx context.Context, serviceID string) (entities.Service, error) {
	var row serviceModel
	err := r.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Service{}, domainerrors.ErrServiceNotFound
		}
		return entities.Service{}, mapStoreError(err)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetServiceByCode(ctx context.Context, code string) (entities.Service, error) {
	var row serviceModel
	err := r.db.WithContext(ctx).
		Where("code = ? AND active", entities.NormalizeServiceCode(code)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Service{}, domainerrors.ErrServiceNotFound
		}
		return entities.Service{}, mapStoreError(err)
	}
	return row.toEntity(), nil
}

func (r *Repository) UpsertService(ctx context.Context, service entities.Service) error {
	row := serviceModel{
		ServiceID: service.ServiceID,
		Code:      entities.NormalizeServiceCode(service.Code),
		Active:    service.Active,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "service_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "active"}),
		}).
		Create(&row).
		Error
	return mapStoreError(err)
}

func (r *Repository) ListActiveCapableProviders(ctx context.Context, serviceID string) ([]string, error) {
	var providerIDs []string
	err := r.db.WithContext(ctx).
		Table("provider_capabilities AS pc").
		Joins("JOIN providers AS p ON p.provider_id = pc.provider_id").
		Where("pc.service_id = ? AND pc.active AND p.active", serviceID).
		Order("pc.provider_id").
		Pluck("pc.provider_id", &providerIDs).
		Error
	if err != nil {
		return nil, mapStoreError(err)
	}
	return providerIDs, nil
}

func (r *Repository) HasActiveCapability(ctx context.Context, providerID string, serviceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&capabilityModel{}).
		Where("provider_id = ? AND service_id = ? AND active", providerID, serviceID).
		Count(&count).
		Error
	if err != nil {
		return false, mapStoreError(err)
	}
	return count > 0, nil
}

func (r *Repository) ListProviderServices(ctx context.Context, providerID string) ([]string, error) {
	var serviceIDs []string
	err := r.db.WithContext(ctx).
		Model(&capabilityModel{}).
		Where("provider_id = ? AND active", providerID).
		Order("service_id").
		Pluck("service_id", &serviceIDs).
		Error
	if err != nil {
		return nil, mapStoreError(err)
	}
	return serviceIDs, nil
}

// InsertCapability relies on the (provider_id, service_id) unique key; a
// conflicting insert affects no rows and reports created=false.
func (r *Repository) InsertCapability(ctx context.Context, mapping entities.CapabilityMapping) (bool, error) {
	row := capabilityModel{
		ProviderID: mapping.ProviderID,
		ServiceID:  mapping.ServiceID,
		Active:     mapping.Active,
		CreatedAt:  mapping.CreatedAt.UTC(),
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_id"}, {Name: "service_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		if isForeignKeyViolation(result.Error) {
			if constraintName(result.Error) == "provider_capabilities_service_fk" {
				return false, domainerrors.ErrServiceNotFound
			}
			return false, domainerrors.ErrProviderNotFound
		}
		return false, mapStoreError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, mapStoreError(err)
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return mapStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

// Migrate applies the schema statements in order. Statements are idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if err := r.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply request assignment schema: %w", err)
		}
	}
	r.logger.Info("request assignment schema applied",
		"event", "postgres_schema_applied",
		"module", application.ModuleName,
		"layer", "adapter",
		"statements", len(schemaStatements),
	)
	return nil
}
