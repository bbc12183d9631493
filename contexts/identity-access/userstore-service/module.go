package userstore

import (
	"log/slog"

	"userrealm/contexts/identity-access/userstore-service/adapters/crypto"
	auditevents "userrealm/contexts/identity-access/userstore-service/adapters/events"
	httpadapter "userrealm/contexts/identity-access/userstore-service/adapters/http"
	"userrealm/contexts/identity-access/userstore-service/adapters/lockout"
	"userrealm/contexts/identity-access/userstore-service/adapters/memory"
	"userrealm/contexts/identity-access/userstore-service/application"
	"userrealm/contexts/identity-access/userstore-service/application/listeners"
	"userrealm/contexts/identity-access/userstore-service/ports"
	"userrealm/internal/platform/uow"
)

// Module is the userstore-service composition root exposed to runtime wiring.
type Module struct {
	Service   application.Service
	Handler   httpadapter.Handler
	Listeners *listeners.Registry
	Lockout   *lockout.Listener
	Store     *memory.Store
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Repository  ports.Repository
	UnitOfWork  ports.UnitOfWork
	Outbox      ports.OutboxWriter
	Hasher      ports.PasswordHasher
	Normalizer  ports.UsernameNormalizer
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Policy      application.Policy
	Lockout     lockout.Config
	// AuditOrder and AuditAuthentication tune the audit listener.
	AuditOrder          int
	AuditAuthentication bool
	// Extra listeners are registered after the built-in ones.
	Extra  []ports.Listener
	Logger *slog.Logger
}

// NewModule wires the service, its built-in listeners and the HTTP handler.
// The audit listener is registered only when an outbox writer is given.
func NewModule(deps Dependencies) Module {
	registry := listeners.NewRegistry(deps.Logger)

	lock := lockout.New(deps.Lockout, deps.Clock, deps.Logger)
	registry.MustRegister(lock)
	if deps.Outbox != nil {
		registry.MustRegister(auditevents.AuditListener{
			Writer:              deps.Outbox,
			IDGenerator:         deps.IDGenerator,
			Clock:               deps.Clock,
			AuditAuthentication: deps.AuditAuthentication,
			Order:               deps.AuditOrder,
		})
	}
	registry.MustRegister(deps.Extra...)

	service := application.Service{
		Repo:        deps.Repository,
		UnitOfWork:  deps.UnitOfWork,
		Listeners:   registry,
		Hasher:      deps.Hasher,
		Normalizer:  deps.Normalizer,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Policy:      deps.Policy,
		Logger:      deps.Logger,
	}

	return Module{
		Service:   service,
		Handler:   httpadapter.Handler{Service: service, Logger: deps.Logger},
		Listeners: registry,
		Lockout:   lock,
	}
}

// NewInMemoryModule builds a development/testing module with in-memory adapters.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	hasher, err := crypto.NewHasher(crypto.DigestSHA256, true)
	if err != nil {
		panic(err)
	}
	module := NewModule(Dependencies{
		Repository:  store,
		UnitOfWork:  uow.NewManager(store.DataSource("memory")),
		Outbox:      store,
		Hasher:      hasher,
		Normalizer:  crypto.CaseFoldNormalizer{},
		Clock:       store,
		IDGenerator: store,
		Policy:      application.MustPolicy(application.DefaultPolicyConfig()),
		Logger:      logger,
	})
	module.Store = store
	return module
}
