package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	userstore "userrealm/contexts/identity-access/userstore-service"
	"userrealm/contexts/identity-access/userstore-service/adapters/crypto"
	auditevents "userrealm/contexts/identity-access/userstore-service/adapters/events"
	"userrealm/contexts/identity-access/userstore-service/adapters/lockout"
	postgresadapter "userrealm/contexts/identity-access/userstore-service/adapters/postgres"
	"userrealm/contexts/identity-access/userstore-service/application"
	"userrealm/contexts/identity-access/userstore-service/application/workers"
	"userrealm/internal/platform/config"
	"userrealm/internal/platform/db"
	"userrealm/internal/platform/httpserver"
	"userrealm/internal/platform/messaging"
	"userrealm/internal/platform/uow"
	sharedevents "userrealm/internal/shared/events"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const (
	primarySource = "primary"
	auditSource   = "audit"
)

// Runtime holds everything one process builds from config and realm file.
type Runtime struct {
	Config  config.Config
	Realm   config.Realm
	Module  userstore.Module
	Sources *db.Registry
	Outbox  *postgresadapter.OutboxStore
	Logger  *slog.Logger
}

type APIApp struct {
	runtime *Runtime
	server  *httpserver.Server
}

type WorkerApp struct {
	runtime      *Runtime
	bus          *messaging.Bus
	outboxRelay  workers.OutboxRelay
	pollInterval time.Duration
}

// Open loads config and the realm, connects the data sources and wires the
// userstore module. It does not touch the schema or seed data.
func Open(process string) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	realm, err := config.LoadRealm(cfg.RealmConfigPath)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", process)
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	sources := db.NewRegistry()
	configs := []db.DataSourceConfig{dataSourceConfig(realm, primarySource, cfg.PostgresDSN)}
	if cfg.AuditPostgresDSN != cfg.PostgresDSN {
		configs = append(configs, dataSourceConfig(realm, auditSource, cfg.AuditPostgresDSN))
	}
	if err := sources.Open(configs...); err != nil {
		return nil, err
	}

	module, outbox, err := buildModule(cfg, realm, sources, logger)
	if err != nil {
		return nil, errors.Join(err, sources.Close())
	}
	return &Runtime{
		Config:  cfg,
		Realm:   realm,
		Module:  module,
		Sources: sources,
		Outbox:  outbox,
		Logger:  logger,
	}, nil
}

func buildModule(cfg config.Config, realm config.Realm, sources *db.Registry, logger *slog.Logger) (userstore.Module, *postgresadapter.OutboxStore, error) {
	primary, err := sources.Get(primarySource)
	if err != nil {
		return userstore.Module{}, nil, err
	}
	audit := primary
	enlisted := []uow.DataSource{primary}
	if other, err := sources.Get(auditSource); err == nil {
		audit = other
		enlisted = append(enlisted, other)
	}

	props := realm.Properties
	salted := props.StoreSaltedPassword == nil || *props.StoreSaltedPassword
	hasher, err := crypto.NewHasher(props.PasswordDigest, salted)
	if err != nil {
		return userstore.Module{}, nil, err
	}
	policy, err := application.NewPolicy(application.PolicyConfig{
		TenantID:           realm.TenantID,
		AdminUser:          realm.AdminUser,
		AdminGroup:         realm.AdminGroup,
		EveryoneGroup:      realm.EveryoneGroup,
		UsernameRegex:      props.UsernameRegex,
		PasswordRegex:      props.PasswordRegex,
		GroupNameRegex:     props.GroupNameRegex,
		MaxUserListLength:  props.MaxUserListLength,
		MaxGroupListLength: props.MaxGroupListLength,
		DefaultProfile:     props.DefaultProfile,
	})
	if err != nil {
		return userstore.Module{}, nil, err
	}

	outbox := postgresadapter.NewOutboxStore(audit, logger)
	deps := userstore.Dependencies{
		Repository:  postgresadapter.NewRepository(primary, realm.TenantID, postgresadapter.NewStatements(realm.SQL), logger),
		UnitOfWork:  uow.NewManager(enlisted...),
		Hasher:      hasher,
		Normalizer:  crypto.CaseFoldNormalizer{CaseSensitive: !props.CaseInsensitiveUsers},
		Clock:       postgresadapter.SystemClock{},
		IDGenerator: postgresadapter.UUIDGenerator{},
		Policy:      policy,
		Lockout: lockout.Config{
			MaxFailedAttempts: props.MaxFailedLoginAttempt,
			LockDuration:      props.AccountLockDuration,
			Disabled:          !(cfg.EnableAccountLockout && realm.ListenerEnabled("lockout", true)),
			Order:             realm.Listeners["lockout"].Order,
		},
		AuditOrder:          realm.Listeners["audit"].Order,
		AuditAuthentication: realm.ListenerEnabled("audit_authentication", false),
		Logger:              logger,
	}
	if cfg.EnableAuditOutbox && realm.ListenerEnabled("audit", true) {
		deps.Outbox = outbox
	}
	return userstore.NewModule(deps), outbox, nil
}

func dataSourceConfig(realm config.Realm, name string, dsn string) db.DataSourceConfig {
	out := db.DataSourceConfig{Name: name, DSN: dsn}
	if pool, ok := realm.DataSource(name); ok {
		out.MaxOpenConns = pool.MaxOpenConns
		out.MaxIdleConns = pool.MaxIdleConns
		out.ConnMaxLifetime = pool.ConnMaxLifetime
		out.ConnMaxIdleTime = pool.ConnMaxIdleTime
		out.ValidationTimeout = pool.ValidationTimeout
	}
	return out
}

// Migrate applies the embedded schema to every registered data source.
func (r *Runtime) Migrate(ctx context.Context) error {
	for _, name := range r.Sources.Names() {
		source, err := r.Sources.Get(name)
		if err != nil {
			return err
		}
		if err := postgresadapter.Migrate(ctx, source.DB); err != nil {
			return fmt.Errorf("migrate data source %q: %w", name, err)
		}
		r.Logger.Info("schema applied",
			"event", "bootstrap_schema_applied",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"data_source", name,
		)
	}
	return nil
}

// Seed creates the admin group and, if the realm carries a password, the
// admin user.
func (r *Runtime) Seed(ctx context.Context) error {
	return r.Module.Service.EnsureAdmin(ctx, r.Realm.AdminPassword)
}

func (r *Runtime) Close() error {
	if r == nil || r.Sources == nil {
		return nil
	}
	return r.Sources.Close()
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	runtime, err := Open("api")
	if err != nil {
		return nil, err
	}
	if err := runtime.Seed(ctx); err != nil {
		return nil, errors.Join(err, runtime.Close())
	}
	server := httpserver.New(runtime.Module, runtime.Logger, normalizeAddr(runtime.Config.HTTPPort))
	return &APIApp{runtime: runtime, server: server}, nil
}

func BuildWorker(_ context.Context) (*WorkerApp, error) {
	runtime, err := Open("worker")
	if err != nil {
		return nil, err
	}
	bus := messaging.NewBus(runtime.Logger)
	return &WorkerApp{
		runtime: runtime,
		bus:     bus,
		outboxRelay: workers.OutboxRelay{
			Outbox:    runtime.Outbox,
			Publisher: auditevents.NewBusPublisher(bus),
			Clock:     postgresadapter.SystemClock{},
			BatchSize: runtime.Config.OutboxBatchSize,
			Logger:    runtime.Logger,
		},
		pollInterval: runtime.Config.OutboxPollInterval,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.runtime.Logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(ctx)
	})
	return g.Wait()
}

func (a *APIApp) Close() error {
	return a.runtime.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.runtime.Logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.bus.Subscribe(ctx, sharedevents.AuditTopic, "userstore-audit-log", w.logAuditEvent)
	})
	g.Go(func() error {
		return w.outboxRelay.Run(ctx, w.pollInterval)
	})
	return g.Wait()
}

func (w *WorkerApp) logAuditEvent(_ context.Context, event sharedevents.Envelope) error {
	w.runtime.Logger.Info("userstore audit event",
		"event", "userstore_audit_event_consumed",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
	)
	return nil
}

func (w *WorkerApp) Close() error {
	return w.runtime.Close()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
