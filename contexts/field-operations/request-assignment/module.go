package requestassignment

import (
	"log/slog"

	httpadapter "dispatch/contexts/field-operations/request-assignment/adapters/http"
	"dispatch/contexts/field-operations/request-assignment/adapters/memory"
	"dispatch/contexts/field-operations/request-assignment/application/assignment"
	"dispatch/contexts/field-operations/request-assignment/application/commands"
	"dispatch/contexts/field-operations/request-assignment/application/queries"
	"dispatch/contexts/field-operations/request-assignment/application/workers"
	"dispatch/contexts/field-operations/request-assignment/domain/services"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

type Module struct {
	Handler     httpadapter.Handler
	OutboxRelay workers.OutboxRelay
	Store       *memory.Store
}

type Dependencies struct {
	Requests     ports.RequestRepository
	Providers    ports.ProviderDirectory
	Services     ports.ServiceCatalog
	Capabilities ports.CapabilityRepository
	ClaimStore   ports.ClaimStore
	// ClaimPrimitive is optional; when nil only the conditional update runs.
	ClaimPrimitive  ports.ClaimPrimitive
	Outbox          ports.OutboxRepository
	Publisher       ports.EventPublisher
	Clock           ports.Clock
	IDGenerator     ports.IDGenerator
	SelectionPolicy services.SelectionPolicy
	Metrics         ports.AssignmentMetrics
	EventTopic      string
	OutboxBatchSize int
	Logger          *slog.Logger
}

func NewModule(deps Dependencies) Module {
	claims := assignment.ClaimProtocol{
		Strategies:  assignment.DefaultStrategies(deps.ClaimStore, deps.ClaimPrimitive),
		Requests:    deps.Requests,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}
	autoAssign := assignment.AutoAssigner{
		Eligibility: assignment.EligibilityResolver{
			Capabilities: deps.Capabilities,
			Logger:       deps.Logger,
		},
		Availability: assignment.AvailabilityFilter{
			Requests: deps.Requests,
			Logger:   deps.Logger,
		},
		Policy: deps.SelectionPolicy,
		Claims: claims,
		Logger: deps.Logger,
	}

	createRequest := commands.CreateRequestUseCase{
		Requests:    deps.Requests,
		Services:    deps.Services,
		AutoAssign:  autoAssign,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}
	claimRequest := commands.ClaimRequestUseCase{
		Providers:    deps.Providers,
		Requests:     deps.Requests,
		Capabilities: deps.Capabilities,
		Claims:       claims,
		Logger:       deps.Logger,
	}
	registerCapability := commands.RegisterCapabilityUseCase{
		Capabilities: deps.Capabilities,
		Clock:        deps.Clock,
		Logger:       deps.Logger,
	}

	getRequest := queries.GetRequestUseCase{
		Requests: deps.Requests,
		Logger:   deps.Logger,
	}
	listClaimable := queries.ListClaimableRequestsUseCase{
		Providers:    deps.Providers,
		Capabilities: deps.Capabilities,
		Requests:     deps.Requests,
		Clock:        deps.Clock,
		Logger:       deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			CreateRequest:      createRequest,
			ClaimRequest:       claimRequest,
			RegisterCapability: registerCapability,
			GetRequest:         getRequest,
			ListClaimable:      listClaimable,
			Logger:             deps.Logger,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Topic:     deps.EventTopic,
			BatchSize: deps.OutboxBatchSize,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(seed memory.Seed, logger *slog.Logger) Module {
	store := memory.NewStore(seed, logger)
	module := NewModule(Dependencies{
		Requests:     store,
		Providers:    store,
		Services:     store,
		Capabilities: store,
		ClaimStore:   store,
		Outbox:       store,
		Clock:        store,
		IDGenerator:  store,
		Logger:       logger,
	})
	module.Store = store
	return module
}
