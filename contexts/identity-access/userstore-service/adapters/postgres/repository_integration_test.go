//go:build integration

package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"userrealm/contexts/identity-access/userstore-service/adapters/crypto"
	auditevents "userrealm/contexts/identity-access/userstore-service/adapters/events"
	"userrealm/contexts/identity-access/userstore-service/application"
	"userrealm/contexts/identity-access/userstore-service/application/listeners"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/contexts/identity-access/userstore-service/ports"
	"userrealm/internal/platform/db"
	"userrealm/internal/platform/uow"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "realm",
				"POSTGRES_PASSWORD": "realm",
				"POSTGRES_DB":       "realm",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://realm:realm@%s:%s/realm?sslmode=disable", host, port.Port())
}

type vetoGroupListener struct {
	ports.NopGroupListener
}

func (vetoGroupListener) ExecutionOrder() int { return 50 }

func (vetoGroupListener) PostAddGroup(_ context.Context, name string, _ []string) error {
	if name == "vetoed" {
		return errors.New("group name rejected")
	}
	return nil
}

func newIntegrationService(t *testing.T, dsn string) (application.Service, *OutboxStore) {
	t.Helper()

	primary, err := db.Connect(db.DataSourceConfig{Name: "primary", DSN: dsn})
	require.NoError(t, err)
	audit, err := db.Connect(db.DataSourceConfig{Name: "audit", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = primary.Close()
		_ = audit.Close()
	})
	require.NoError(t, Migrate(context.Background(), primary.DB))

	hasher, err := crypto.NewHasher(crypto.DigestSHA256, true)
	require.NoError(t, err)

	outboxStore := NewOutboxStore(audit, nil)
	registry := listeners.NewRegistry(nil)
	registry.MustRegister(
		auditevents.AuditListener{Writer: outboxStore, IDGenerator: UUIDGenerator{}, Clock: SystemClock{}},
		vetoGroupListener{},
	)

	return application.Service{
		Repo:        NewRepository(primary, -1234, DefaultStatements(), nil),
		UnitOfWork:  uow.NewManager(primary, audit),
		Listeners:   registry,
		Hasher:      hasher,
		Normalizer:  crypto.CaseFoldNormalizer{},
		Clock:       SystemClock{},
		IDGenerator: UUIDGenerator{},
		Policy:      application.MustPolicy(application.DefaultPolicyConfig()),
	}, outboxStore
}

func TestRepositoryLifecycleAgainstPostgres(t *testing.T) {
	service, outboxStore := newIntegrationService(t, startPostgres(t))
	ctx := ports.WithActor(context.Background(), "admin")

	_, err := service.AddGroup(ctx, "editors", nil)
	require.NoError(t, err)
	_, err = service.AddUser(ctx, ports.NewUser{
		Username: "Alice",
		Password: "s3cret-pass",
		Groups:   []string{"editors"},
		Claims:   map[string]string{"http://wso2.org/claims/givenname": "Alice"},
	})
	require.NoError(t, err)

	ok, err := service.Authenticate(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	require.True(t, ok)

	groups, err := service.GetGroupListOfUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"Internal/everyone", "editors"}, groups)

	claims, err := service.GetUserClaimValues(ctx, "alice", "")
	require.NoError(t, err)
	require.Equal(t, "Alice", claims["http://wso2.org/claims/givenname"])

	users, err := service.ListUsers(ctx, "ali*", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, users)

	require.NoError(t, service.UpdateGroupName(ctx, "editors", "writers"))
	members, err := service.GetUserListOfGroup(ctx, "writers")
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, members)

	require.NoError(t, service.DeleteUser(ctx, "alice"))
	_, err = service.GetUser(ctx, "alice")
	require.ErrorIs(t, err, domainerrors.ErrUserNotFound)

	pending, err := outboxStore.ListPendingOutbox(ctx, 100)
	require.NoError(t, err)
	require.Len(t, pending, 4)
}

func TestPostHookVetoRollsBackBothDataSources(t *testing.T) {
	service, outboxStore := newIntegrationService(t, startPostgres(t))
	ctx := context.Background()

	_, err := service.AddGroup(ctx, "vetoed", nil)
	require.ErrorIs(t, err, domainerrors.ErrListenerVeto)

	exists, err := service.IsExistingGroup(ctx, "vetoed")
	require.NoError(t, err)
	require.False(t, exists)

	pending, err := outboxStore.ListPendingOutbox(ctx, 100)
	require.NoError(t, err)
	require.Empty(t, pending)
}
