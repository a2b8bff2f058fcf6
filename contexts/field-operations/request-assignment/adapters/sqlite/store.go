package sqliteadapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/ports"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// timeLayout is fixed width so lexical order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const requestColumns = `request_id, user_id, service_id, provider_id, status, scheduled_at,
	claimed_by, claimed_at, expires_at, notes, created_at, updated_at`

// Store is a single-file record store for edge deployments and tests.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the database file (":memory:" is accepted) and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		path = "dispatch.db"
	}
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite has one writer; a single connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: application.ResolveLogger(logger)}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the schema; every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *Store) UpsertProvider(ctx context.Context, provider entities.Provider) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO providers (provider_id, active) VALUES (?, ?)
		 ON CONFLICT (provider_id) DO UPDATE SET active = excluded.active`,
		provider.ProviderID, provider.Active,
	)
	return mapStoreError(err)
}

func (s *Store) UpsertService(ctx context.Context, service entities.Service) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO services (service_id, code, active) VALUES (?, ?, ?)
		 ON CONFLICT (service_id) DO UPDATE SET code = excluded.code, active = excluded.active`,
		service.ServiceID, entities.NormalizeServiceCode(service.Code), service.Active,
	)
	return mapStoreError(err)
}

func (s *Store) CreateRequest(ctx context.Context, request entities.ServiceRequest) error {
	if err := request.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO service_requests (`+requestColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.RequestID,
		request.UserID,
		request.ServiceID,
		nullString(request.ProviderID),
		string(request.Status),
		nullTime(request.ScheduledAt),
		nullString(request.ClaimedBy),
		nullTime(request.ClaimedAt),
		nullTime(request.ExpiresAt),
		request.Notes,
		formatTime(request.CreatedAt),
		formatTime(request.UpdatedAt),
	)
	if err != nil {
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

func (s *Store) GetRequest(ctx context.Context, requestID string) (entities.ServiceRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM service_requests WHERE request_id = ?`,
		requestID,
	)
	request, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ServiceRequest{}, domainerrors.ErrRequestNotFound
		}
		return entities.ServiceRequest{}, mapStoreError(err)
	}
	return request, nil
}

func (s *Store) ListBusyProviders(ctx context.Context, providerIDs []string, scheduledAt time.Time) ([]string, error) {
	if len(providerIDs) == 0 {
		return []string{}, nil
	}
	args := make([]any, 0, len(providerIDs)+1)
	for _, id := range providerIDs {
		args = append(args, id)
	}
	args = append(args, formatTime(scheduledAt))
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT provider_id FROM service_requests
		 WHERE provider_id IN (`+placeholders(len(providerIDs))+`)
		   AND status IN ('claimed', 'accepted')
		   AND scheduled_at = ?
		 ORDER BY provider_id`,
		args...,
	)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return scanStrings(rows)
}

func (s *Store) ListPendingRequests(ctx context.Context, serviceIDs []string, limit int) ([]entities.ServiceRequest, error) {
	if len(serviceIDs) == 0 {
		return []entities.ServiceRequest{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	args := make([]any, 0, len(serviceIDs)+1)
	for _, id := range serviceIDs {
		args = append(args, id)
	}
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM service_requests
		 WHERE status = 'pending' AND provider_id IS NULL
		   AND service_id IN (`+placeholders(len(serviceIDs))+`)
		 ORDER BY created_at, request_id
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, mapStoreError(err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]entities.ServiceRequest, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, mapStoreError(err)
		}
		items = append(items, request)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(err)
	}
	return items, nil
}

// ConditionalClaim is one guarded UPDATE; the affected-row count decides the
// outcome and the outbox row shares its transaction.
func (s *Store) ConditionalClaim(ctx context.Context, cmd ports.ClaimCommand) (applied bool, retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, mapStoreError(err)
	}
	defer func() {
		if retErr != nil || !applied {
			_ = tx.Rollback()
		}
	}()

	claimedAt := formatTime(cmd.ClaimedAt)
	result, err := tx.ExecContext(ctx,
		`UPDATE service_requests
		    SET status = 'claimed', provider_id = ?, claimed_by = ?, claimed_at = ?,
		        expires_at = NULL, updated_at = ?
		  WHERE request_id = ? AND status = 'pending' AND provider_id IS NULL`,
		cmd.ProviderID, cmd.ProviderID, claimedAt, claimedAt, cmd.RequestID,
	)
	if err != nil {
		return false, mapStoreError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, mapStoreError(err)
	}
	switch affected {
	case 0:
		return false, nil
	case 1:
	default:
		return false, domainerrors.ErrRepositoryInvariantBroke
	}

	if cmd.Event != nil {
		if err := enqueueClaimed(ctx, tx, cmd); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, mapStoreError(err)
	}

	s.logger.Debug("claim applied in sqlite store",
		"event", "sqlite_conditional_claim_applied",
		"module", application.ModuleName,
		"layer", "adapter",
		"request_id", cmd.RequestID,
		"provider_id", cmd.ProviderID,
	)
	return true, nil
}

func enqueueClaimed(ctx context.Context, tx *sql.Tx, cmd ports.ClaimCommand) error {
	event := *cmd.Event
	if err := tx.QueryRowContext(ctx,
		`SELECT service_id FROM service_requests WHERE request_id = ?`,
		cmd.RequestID,
	).Scan(&event.ServiceID); err != nil {
		return mapStoreError(err)
	}
	payload, err := event.OutboxPayload()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO request_assignment_outbox (outbox_id, event_type, partition_key, payload, status, created_at)
		 VALUES (?, ?, ?, ?, 'pending', ?)`,
		event.EventID, event.EventType, event.PartitionKey, payload, formatTime(event.OccurredAt),
	); err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return mapStoreError(err)
	}
	return nil
}

func (s *Store) GetProvider(ctx context.Context, providerID string) (entities.Provider, error) {
	provider := entities.Provider{}
	err := s.db.QueryRowContext(ctx,
		`SELECT provider_id, active FROM providers WHERE provider_id = ?`,
		providerID,
	).Scan(&provider.ProviderID, &provider.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Provider{}, domainerrors.ErrProviderNotFound
		}
		return entities.Provider{}, mapStoreError(err)
	}
	return provider, nil
}

func (s *Store) GetService(ctx context.Context, serviceID string) (entities.Service, error) {
	return s.getService(ctx, `SELECT service_id, code, active FROM services WHERE service_id = ?`, serviceID)
}

func (s *Store) GetServiceByCode(ctx context.Context, code string) (entities.Service, error) {
	return s.getService(ctx,
		`SELECT service_id, code, active FROM services WHERE code = ? AND active = 1`,
		entities.NormalizeServiceCode(code),
	)
}

func (s *Store) getService(ctx context.Context, query string, arg string) (entities.Service, error) {
	service := entities.Service{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&service.ServiceID, &service.Code, &service.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Service{}, domainerrors.ErrServiceNotFound
		}
		return entities.Service{}, mapStoreError(err)
	}
	return service, nil
}

func (s *Store) ListActiveCapableProviders(ctx context.Context, serviceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pc.provider_id FROM provider_capabilities pc
		   JOIN providers p ON p.provider_id = pc.provider_id
		  WHERE pc.service_id = ? AND pc.active = 1 AND p.active = 1
		  ORDER BY pc.provider_id`,
		serviceID,
	)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return scanStrings(rows)
}

func (s *Store) HasActiveCapability(ctx context.Context, providerID string, serviceID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM provider_capabilities
		  WHERE provider_id = ? AND service_id = ? AND active = 1`,
		providerID, serviceID,
	).Scan(&count)
	if err != nil {
		return false, mapStoreError(err)
	}
	return count > 0, nil
}

func (s *Store) ListProviderServices(ctx context.Context, providerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT service_id FROM provider_capabilities
		  WHERE provider_id = ? AND active = 1
		  ORDER BY service_id`,
		providerID,
	)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return scanStrings(rows)
}

func (s *Store) InsertCapability(ctx context.Context, mapping entities.CapabilityMapping) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO provider_capabilities (provider_id, service_id, active, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (provider_id, service_id) DO NOTHING`,
		mapping.ProviderID, mapping.ServiceID, mapping.Active, formatTime(mapping.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, s.missingCapabilityReference(ctx, mapping)
		}
		return false, mapStoreError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, mapStoreError(err)
	}
	return affected > 0, nil
}

// missingCapabilityReference names the row behind a foreign key failure;
// SQLite does not report which constraint fired.
func (s *Store) missingCapabilityReference(ctx context.Context, mapping entities.CapabilityMapping) error {
	if _, err := s.GetProvider(ctx, mapping.ProviderID); err != nil {
		return err
	}
	if _, err := s.GetService(ctx, mapping.ServiceID); err != nil {
		return err
	}
	return domainerrors.ErrRepositoryInvariantBroke
}

func (s *Store) CapabilityCount(ctx context.Context, providerID string, serviceID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM provider_capabilities WHERE provider_id = ? AND service_id = ?`,
		providerID, serviceID,
	).Scan(&count)
	return count, mapStoreError(err)
}

func (s *Store) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT outbox_id, event_type, partition_key, payload, created_at
		   FROM request_assignment_outbox
		  WHERE status = 'pending'
		  ORDER BY created_at, outbox_id
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, mapStoreError(err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]ports.OutboxMessage, 0)
	for rows.Next() {
		var (
			msg       ports.OutboxMessage
			createdAt string
		)
		if err := rows.Scan(&msg.OutboxID, &msg.EventType, &msg.PartitionKey, &msg.Payload, &createdAt); err != nil {
			return nil, mapStoreError(err)
		}
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		items = append(items, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(err)
	}
	return items, nil
}

func (s *Store) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE request_assignment_outbox SET status = 'sent', sent_at = ? WHERE outbox_id = ?`,
		formatTime(sentAt), outboxID,
	)
	if err != nil {
		return mapStoreError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapStoreError(err)
	}
	if affected == 0 {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (entities.ServiceRequest, error) {
	var (
		request     entities.ServiceRequest
		status      string
		providerID  sql.NullString
		claimedBy   sql.NullString
		scheduledAt sql.NullString
		claimedAt   sql.NullString
		expiresAt   sql.NullString
		createdAt   string
		updatedAt   string
	)
	if err := row.Scan(
		&request.RequestID,
		&request.UserID,
		&request.ServiceID,
		&providerID,
		&status,
		&scheduledAt,
		&claimedBy,
		&claimedAt,
		&expiresAt,
		&request.Notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return entities.ServiceRequest{}, err
	}

	var err error
	request.Status = entities.RequestStatus(status)
	request.ProviderID = stringPtr(providerID)
	request.ClaimedBy = stringPtr(claimedBy)
	if request.ScheduledAt, err = timePtr(scheduledAt); err != nil {
		return entities.ServiceRequest{}, err
	}
	if request.ClaimedAt, err = timePtr(claimedAt); err != nil {
		return entities.ServiceRequest{}, err
	}
	if request.ExpiresAt, err = timePtr(expiresAt); err != nil {
		return entities.ServiceRequest{}, err
	}
	if request.CreatedAt, err = parseTime(createdAt); err != nil {
		return entities.ServiceRequest{}, err
	}
	if request.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return entities.ServiceRequest{}, err
	}
	return request, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer func() { _ = rows.Close() }()
	values := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, mapStoreError(err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(err)
	}
	return values, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return parsed.UTC(), nil
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*value), Valid: true}
}

func timePtr(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	parsed, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	out := value.String
	return &out
}
