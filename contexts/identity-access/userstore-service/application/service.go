package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"userrealm/contexts/identity-access/userstore-service/application/listeners"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/contexts/identity-access/userstore-service/ports"
)

// PolicyConfig carries realm properties that shape validation and reserved
// principals.
type PolicyConfig struct {
	TenantID           int
	AdminUser          string
	AdminGroup         string
	EveryoneGroup      string
	UsernameRegex      string
	PasswordRegex      string
	GroupNameRegex     string
	MaxUserListLength  int
	MaxGroupListLength int
	DefaultProfile     string
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		TenantID:           -1234,
		AdminUser:          "admin",
		AdminGroup:         "admin",
		EveryoneGroup:      "Internal/everyone",
		UsernameRegex:      `^[\S]{3,30}$`,
		PasswordRegex:      `^[\S]{5,30}$`,
		GroupNameRegex:     `^[\S]{3,30}$`,
		MaxUserListLength:  100,
		MaxGroupListLength: 100,
		DefaultProfile:     "default",
	}
}

// Policy is the compiled form of PolicyConfig.
type Policy struct {
	cfg      PolicyConfig
	username *regexp.Regexp
	password *regexp.Regexp
	group    *regexp.Regexp
}

func NewPolicy(cfg PolicyConfig) (Policy, error) {
	defaults := DefaultPolicyConfig()
	if strings.TrimSpace(cfg.DefaultProfile) == "" {
		cfg.DefaultProfile = defaults.DefaultProfile
	}
	if cfg.MaxUserListLength <= 0 {
		cfg.MaxUserListLength = defaults.MaxUserListLength
	}
	if cfg.MaxGroupListLength <= 0 {
		cfg.MaxGroupListLength = defaults.MaxGroupListLength
	}

	policy := Policy{cfg: cfg}
	var err error
	if policy.username, err = compile("username", cfg.UsernameRegex); err != nil {
		return Policy{}, err
	}
	if policy.password, err = compile("password", cfg.PasswordRegex); err != nil {
		return Policy{}, err
	}
	if policy.group, err = compile("group name", cfg.GroupNameRegex); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// MustPolicy panics on an invalid PolicyConfig.
func MustPolicy(cfg PolicyConfig) Policy {
	policy, err := NewPolicy(cfg)
	if err != nil {
		panic(err)
	}
	return policy
}

func compile(kind string, expr string) (*regexp.Regexp, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile %s regex: %w", kind, err)
	}
	return re, nil
}

func (p Policy) Config() PolicyConfig {
	return p.cfg
}

func (p Policy) validUsername(name string) bool {
	return name != "" && (p.username == nil || p.username.MatchString(name))
}

func (p Policy) validPassword(password string) bool {
	return password != "" && (p.password == nil || p.password.MatchString(password))
}

func (p Policy) validGroupName(name string) bool {
	return name != "" && (p.group == nil || p.group.MatchString(name))
}

// Service runs user store operations. Every mutation executes inside one unit
// of work wrapped by pre and post listener hooks.
type Service struct {
	Repo        ports.Repository
	UnitOfWork  ports.UnitOfWork
	Listeners   *listeners.Registry
	Hasher      ports.PasswordHasher
	Normalizer  ports.UsernameNormalizer
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Policy      Policy
	Logger      *slog.Logger
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s Service) inUnitOfWork(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.UnitOfWork == nil {
		return fn(ctx)
	}
	return s.UnitOfWork.Do(ctx, fn)
}

// fail reports err to error listeners and logs it before returning it.
func (s Service) fail(ctx context.Context, operation string, subject string, err error) error {
	if err == nil {
		return nil
	}
	code := domainerrors.Code(err)
	s.Listeners.NotifyFailure(ctx, ports.OperationFailure{
		Operation: operation,
		Subject:   subject,
		Code:      code,
		Err:       err,
	})

	logger := ResolveLogger(s.Logger)
	attrs := []any{
		"event", "userstore_operation_failed",
		"module", "identity-access/userstore-service",
		"layer", "application",
		"operation", operation,
		"subject", subject,
		"code", code,
		"error", err.Error(),
	}
	if code == "internal_error" {
		logger.Error("userstore operation failed", attrs...)
	} else {
		logger.Debug("userstore operation rejected", attrs...)
	}
	return err
}

func (s Service) logDone(operation string, subject string) {
	ResolveLogger(s.Logger).Info("userstore operation completed",
		"event", "userstore_"+operation,
		"module", "identity-access/userstore-service",
		"layer", "application",
		"subject", subject,
	)
}

func (s Service) normalizeUsername(name string) string {
	name = strings.TrimSpace(name)
	if s.Normalizer == nil {
		return name
	}
	return s.Normalizer.Normalize(name)
}

func (s Service) normalizeUsernames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		value := s.normalizeUsername(name)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// normalizeGroups trims and dedupes group names and drops the implicit
// everyone group.
func (s Service) normalizeGroups(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		value := strings.TrimSpace(name)
		if value == "" || s.isEveryone(value) {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func (s Service) isAdminUser(username string) bool {
	return username != "" && username == s.normalizeUsername(s.Policy.cfg.AdminUser)
}

func (s Service) isAdminGroup(name string) bool {
	return name != "" && name == s.Policy.cfg.AdminGroup
}

func (s Service) isEveryone(name string) bool {
	return name != "" && strings.EqualFold(name, s.Policy.cfg.EveryoneGroup)
}

func (s Service) profile(profile string) string {
	if value := strings.TrimSpace(profile); value != "" {
		return value
	}
	return s.Policy.cfg.DefaultProfile
}

func (s Service) listLimit(limit int, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

func (s Service) requireUser(ctx context.Context, username string) error {
	_, err := s.Repo.GetUser(ctx, username)
	return err
}

func (s Service) requireUsers(ctx context.Context, usernames []string) error {
	for _, username := range usernames {
		if err := s.requireUser(ctx, username); err != nil {
			return fmt.Errorf("%s: %w", username, err)
		}
	}
	return nil
}

func (s Service) requireGroups(ctx context.Context, groups []string) error {
	for _, group := range groups {
		ok, err := s.Repo.GroupExists(ctx, group)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", group, domainerrors.ErrGroupNotFound)
		}
	}
	return nil
}

func contains(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
