package userstore_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	userstore "userrealm/contexts/identity-access/userstore-service"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/contexts/identity-access/userstore-service/ports"
)

type vetoListener struct {
	ports.NopUserListener
	ports.NopGroupListener
	order int
	calls *[]string
}

func (l vetoListener) ExecutionOrder() int { return l.order }

func (l vetoListener) PostAddUser(_ context.Context, user ports.NewUser) error {
	*l.calls = append(*l.calls, "post_add_user:"+user.Username)
	if user.Username == "mallory" {
		return errors.New("blocked user")
	}
	return nil
}

func (l vetoListener) PreDeleteGroup(_ context.Context, name string) error {
	*l.calls = append(*l.calls, "pre_delete_group:"+name)
	if name == "protected" {
		return errors.New("group is protected")
	}
	return nil
}

func newModule(t *testing.T) userstore.Module {
	t.Helper()
	module := userstore.NewInMemoryModule(nil)
	if err := module.Service.EnsureAdmin(context.Background(), "admin-pass"); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	return module
}

func TestAddUserAuthenticateAndGroups(t *testing.T) {
	module := newModule(t)
	ctx := ports.WithActor(context.Background(), "admin")

	if _, err := module.Service.AddGroup(ctx, "editors", nil); err != nil {
		t.Fatalf("add group failed: %v", err)
	}
	user, err := module.Service.AddUser(ctx, ports.NewUser{
		Username: "Alice",
		Password: "s3cret-pass",
		Groups:   []string{"editors", "Internal/everyone"},
		Claims:   map[string]string{"http://wso2.org/claims/givenname": "Alice"},
	})
	if err != nil {
		t.Fatalf("add user failed: %v", err)
	}
	if user.Username != "alice" || user.UserID == "" {
		t.Fatalf("unexpected user %+v", user)
	}

	ok, err := module.Service.Authenticate(ctx, "ALICE", "s3cret-pass")
	if err != nil || !ok {
		t.Fatalf("expected authentication success, ok=%v err=%v", ok, err)
	}
	ok, err = module.Service.Authenticate(ctx, "alice", "wrong-pass")
	if err != nil || ok {
		t.Fatalf("expected authentication failure, ok=%v err=%v", ok, err)
	}

	groups, err := module.Service.GetGroupListOfUser(ctx, "alice")
	if err != nil {
		t.Fatalf("group list failed: %v", err)
	}
	if !reflect.DeepEqual(groups, []string{"Internal/everyone", "editors"}) {
		t.Fatalf("unexpected groups %v", groups)
	}

	everyone, err := module.Service.GetUserListOfGroup(ctx, "Internal/everyone")
	if err != nil {
		t.Fatalf("everyone members failed: %v", err)
	}
	if !reflect.DeepEqual(everyone, []string{"admin", "alice"}) {
		t.Fatalf("unexpected everyone members %v", everyone)
	}

	claims, err := module.Service.GetUserClaimValues(ctx, "alice", "")
	if err != nil {
		t.Fatalf("claims failed: %v", err)
	}
	if claims["http://wso2.org/claims/givenname"] != "Alice" {
		t.Fatalf("unexpected claims %v", claims)
	}
}

func TestAddUserValidation(t *testing.T) {
	module := newModule(t)
	ctx := context.Background()

	cases := []struct {
		name string
		user ports.NewUser
		want error
	}{
		{name: "short username", user: ports.NewUser{Username: "ab", Password: "s3cret-pass"}, want: domainerrors.ErrInvalidUsername},
		{name: "short password", user: ports.NewUser{Username: "bob", Password: "abc"}, want: domainerrors.ErrInvalidPassword},
		{name: "unknown group", user: ports.NewUser{Username: "bob", Password: "s3cret-pass", Groups: []string{"ghosts"}}, want: domainerrors.ErrGroupNotFound},
		{name: "duplicate", user: ports.NewUser{Username: "ADMIN", Password: "s3cret-pass"}, want: domainerrors.ErrUserAlreadyExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := module.Service.AddUser(ctx, tc.user); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestReservedPrincipalsAreProtected(t *testing.T) {
	module := newModule(t)
	ctx := context.Background()

	if err := module.Service.DeleteUser(ctx, "admin"); !errors.Is(err, domainerrors.ErrReservedPrincipal) {
		t.Fatalf("expected admin user protected, got %v", err)
	}
	if err := module.Service.DeleteGroup(ctx, "admin"); !errors.Is(err, domainerrors.ErrReservedPrincipal) {
		t.Fatalf("expected admin group protected, got %v", err)
	}
	if _, err := module.Service.AddGroup(ctx, "internal/EVERYONE", nil); !errors.Is(err, domainerrors.ErrReservedPrincipal) {
		t.Fatalf("expected everyone group reserved, got %v", err)
	}
	if err := module.Service.UpdateGroupListOfUser(ctx, "admin", []string{"admin"}, nil); !errors.Is(err, domainerrors.ErrReservedPrincipal) {
		t.Fatalf("expected admin membership protected, got %v", err)
	}
}

func TestPostHookFailureRollsBackUnitOfWork(t *testing.T) {
	module := newModule(t)
	ctx := context.Background()
	var calls []string
	if err := module.Listeners.Register(vetoListener{order: 20, calls: &calls}); err != nil {
		t.Fatalf("register listener: %v", err)
	}
	before := len(module.Store.OutboxEventTypes())

	_, err := module.Service.AddUser(ctx, ports.NewUser{Username: "mallory", Password: "s3cret-pass"})
	if !errors.Is(err, domainerrors.ErrListenerVeto) {
		t.Fatalf("expected listener veto, got %v", err)
	}
	exists, err := module.Service.IsExistingUser(ctx, "mallory")
	if err != nil || exists {
		t.Fatalf("expected mallory rolled back, exists=%v err=%v", exists, err)
	}
	if after := len(module.Store.OutboxEventTypes()); after != before {
		t.Fatalf("expected no audit rows from rolled back operation, got %d new", after-before)
	}
	if !reflect.DeepEqual(calls, []string{"post_add_user:mallory"}) {
		t.Fatalf("unexpected listener calls %v", calls)
	}
}

func TestPreHookVetoStopsMutation(t *testing.T) {
	module := newModule(t)
	ctx := context.Background()
	var calls []string
	module.Listeners.MustRegister(vetoListener{order: 20, calls: &calls})

	if _, err := module.Service.AddGroup(ctx, "protected", nil); err != nil {
		t.Fatalf("add group failed: %v", err)
	}
	if err := module.Service.DeleteGroup(ctx, "protected"); !errors.Is(err, domainerrors.ErrListenerVeto) {
		t.Fatalf("expected veto, got %v", err)
	}
	exists, err := module.Service.IsExistingGroup(ctx, "protected")
	if err != nil || !exists {
		t.Fatalf("expected group kept, exists=%v err=%v", exists, err)
	}
}

func TestAccountLockoutAfterRepeatedFailures(t *testing.T) {
	module := newModule(t)
	ctx := context.Background()
	if _, err := module.Service.AddUser(ctx, ports.NewUser{Username: "carol", Password: "s3cret-pass"}); err != nil {
		t.Fatalf("add user failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if ok, err := module.Service.Authenticate(ctx, "carol", "bad-pass"); err != nil || ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i, ok, err)
		}
	}
	_, err := module.Service.Authenticate(ctx, "carol", "s3cret-pass")
	if !errors.Is(err, domainerrors.ErrAccountLocked) {
		t.Fatalf("expected locked account, got %v", err)
	}
	if domainerrors.Code(err) != "account_locked" {
		t.Fatalf("unexpected code %q", domainerrors.Code(err))
	}

	module.Lockout.Unlock("carol")
	if ok, err := module.Service.Authenticate(ctx, "carol", "s3cret-pass"); err != nil || !ok {
		t.Fatalf("expected success after unlock, ok=%v err=%v", ok, err)
	}
}

func TestDisabledAccountNeverAuthenticates(t *testing.T) {
	module := newModule(t)
	ctx := context.Background()
	if _, err := module.Service.AddUser(ctx, ports.NewUser{
		Username: "dave",
		Password: "s3cret-pass",
		Claims:   map[string]string{"http://wso2.org/claims/identity/accountDisabled": "true"},
	}); err != nil {
		t.Fatalf("add user failed: %v", err)
	}
	if ok, err := module.Service.Authenticate(ctx, "dave", "s3cret-pass"); err != nil || ok {
		t.Fatalf("expected disabled user rejected, ok=%v err=%v", ok, err)
	}
}

func TestCredentialUpdates(t *testing.T) {
	module := newModule(t)
	ctx := context.Background()
	if _, err := module.Service.AddUser(ctx, ports.NewUser{Username: "erin", Password: "first-pass"}); err != nil {
		t.Fatalf("add user failed: %v", err)
	}

	if err := module.Service.UpdateCredential(ctx, "erin", "second-pass", "wrong-pass"); !errors.Is(err, domainerrors.ErrCredentialMismatch) {
		t.Fatalf("expected credential mismatch, got %v", err)
	}
	if err := module.Service.UpdateCredential(ctx, "erin", "second-pass", "first-pass"); err != nil {
		t.Fatalf("update credential failed: %v", err)
	}
	if err := module.Service.UpdateCredentialByAdmin(ctx, "erin", "third-pass"); err != nil {
		t.Fatalf("admin reset failed: %v", err)
	}
	if ok, _ := module.Service.Authenticate(ctx, "erin", "second-pass"); ok {
		t.Fatalf("expected old password rejected")
	}
	if ok, _ := module.Service.Authenticate(ctx, "erin", "third-pass"); !ok {
		t.Fatalf("expected new password accepted")
	}
}

func TestGroupRenameAndMembershipEdits(t *testing.T) {
	module := newModule(t)
	ctx := context.Background()
	for _, name := range []string{"frank", "grace"} {
		if _, err := module.Service.AddUser(ctx, ports.NewUser{Username: name, Password: "s3cret-pass"}); err != nil {
			t.Fatalf("add user %s failed: %v", name, err)
		}
	}
	if _, err := module.Service.AddGroup(ctx, "ops", []string{"frank"}); err != nil {
		t.Fatalf("add group failed: %v", err)
	}
	if err := module.Service.UpdateUserListOfGroup(ctx, "ops", []string{"frank"}, []string{"grace"}); err != nil {
		t.Fatalf("update members failed: %v", err)
	}
	if err := module.Service.UpdateGroupName(ctx, "ops", "sre"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	members, err := module.Service.GetUserListOfGroup(ctx, "sre")
	if err != nil {
		t.Fatalf("members failed: %v", err)
	}
	if !reflect.DeepEqual(members, []string{"grace"}) {
		t.Fatalf("unexpected members %v", members)
	}
	if _, err := module.Service.GetUserListOfGroup(ctx, "ops"); !errors.Is(err, domainerrors.ErrGroupNotFound) {
		t.Fatalf("expected old name gone, got %v", err)
	}

	groups, err := module.Service.ListGroups(ctx, "s*", 0)
	if err != nil {
		t.Fatalf("list groups failed: %v", err)
	}
	if !reflect.DeepEqual(groups, []string{"sre"}) {
		t.Fatalf("unexpected groups %v", groups)
	}
}

func TestAuditOutboxRecordsCommittedChanges(t *testing.T) {
	module := newModule(t)
	ctx := ports.WithActor(context.Background(), "admin")

	if _, err := module.Service.AddUser(ctx, ports.NewUser{Username: "heidi", Password: "s3cret-pass"}); err != nil {
		t.Fatalf("add user failed: %v", err)
	}
	if err := module.Service.SetUserClaimValues(ctx, "heidi", map[string]string{"http://wso2.org/claims/country": "NL"}, ""); err != nil {
		t.Fatalf("set claims failed: %v", err)
	}
	if err := module.Service.DeleteUser(ctx, "heidi"); err != nil {
		t.Fatalf("delete user failed: %v", err)
	}

	want := []string{"userstore.add_user", "userstore.set_user_claim_values", "userstore.delete_user"}
	if got := module.Store.OutboxEventTypes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected audit events %v", got)
	}
	pending, err := module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending rows, got %d", len(pending))
	}
}

func TestAddUserTrimsClaimURIs(t *testing.T) {
	module := newModule(t)
	ctx := ports.WithActor(context.Background(), "admin")

	_, err := module.Service.AddUser(ctx, ports.NewUser{
		Username: "erin",
		Password: "s3cret-pass",
		Claims:   map[string]string{"  http://wso2.org/claims/givenname ": "Erin"},
	})
	if err != nil {
		t.Fatalf("add user failed: %v", err)
	}
	if err := module.Service.SetUserClaimValues(ctx, "erin", map[string]string{"http://wso2.org/claims/givenname": "Erin B"}, ""); err != nil {
		t.Fatalf("set claims failed: %v", err)
	}

	claims, err := module.Service.GetUserClaimValues(ctx, "erin", "")
	if err != nil {
		t.Fatalf("claims failed: %v", err)
	}
	want := map[string]string{"http://wso2.org/claims/givenname": "Erin B"}
	if !reflect.DeepEqual(claims, want) {
		t.Fatalf("expected %v, got %v", want, claims)
	}

	_, err = module.Service.AddUser(ctx, ports.NewUser{
		Username: "frank",
		Password: "s3cret-pass",
		Claims:   map[string]string{"   ": "blank"},
	})
	if !errors.Is(err, domainerrors.ErrInvalidClaim) {
		t.Fatalf("expected ErrInvalidClaim, got %v", err)
	}
}
