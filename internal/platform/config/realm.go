package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Realm describes one configured user store: reserved principals, policy
// knobs, data source pools and SQL overrides.
type Realm struct {
	TenantID      int                 `yaml:"tenant_id"`
	AdminUser     string              `yaml:"admin_user"`
	AdminPassword string              `yaml:"admin_password"`
	AdminGroup    string              `yaml:"admin_group"`
	EveryoneGroup string              `yaml:"everyone_group"`
	Properties    RealmProperties     `yaml:"properties"`
	DataSources   []RealmDataSource   `yaml:"data_sources"`
	SQL           map[string]string   `yaml:"sql"`
	Listeners     map[string]Listener `yaml:"listeners"`
}

type RealmProperties struct {
	UsernameRegex         string        `yaml:"username_regex"`
	PasswordRegex         string        `yaml:"password_regex"`
	GroupNameRegex        string        `yaml:"group_name_regex"`
	PasswordDigest        string        `yaml:"password_digest"`
	StoreSaltedPassword   *bool         `yaml:"store_salted_password"`
	CaseInsensitiveUsers  bool          `yaml:"case_insensitive_username"`
	MaxUserListLength     int           `yaml:"max_user_list_length"`
	MaxGroupListLength    int           `yaml:"max_group_list_length"`
	DefaultProfile        string        `yaml:"default_profile"`
	MaxFailedLoginAttempt int           `yaml:"max_failed_login_attempt"`
	AccountLockDuration   time.Duration `yaml:"account_lock_duration"`
}

// RealmDataSource overrides pool settings of a named data source. DSNs stay
// in the environment.
type RealmDataSource struct {
	Name              string        `yaml:"name"`
	MaxOpenConns      int           `yaml:"max_open_conns"`
	MaxIdleConns      int           `yaml:"max_idle_conns"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime   time.Duration `yaml:"conn_max_idle_time"`
	ValidationTimeout time.Duration `yaml:"validation_timeout"`
}

// Listener toggles and orders a built-in listener.
type Listener struct {
	Enabled *bool `yaml:"enabled"`
	Order   int   `yaml:"order"`
}

// DefaultRealm returns the realm used when no file is configured.
func DefaultRealm() Realm {
	salted := true
	return Realm{
		TenantID:      -1234,
		AdminUser:     "admin",
		AdminGroup:    "admin",
		EveryoneGroup: "Internal/everyone",
		Properties: RealmProperties{
			UsernameRegex:         `^[\S]{3,30}$`,
			PasswordRegex:         `^[\S]{5,30}$`,
			GroupNameRegex:        `^[\S]{3,30}$`,
			PasswordDigest:        "SHA-256",
			StoreSaltedPassword:   &salted,
			MaxUserListLength:     100,
			MaxGroupListLength:    100,
			DefaultProfile:        "default",
			MaxFailedLoginAttempt: 5,
			AccountLockDuration:   15 * time.Minute,
		},
		SQL:       map[string]string{},
		Listeners: map[string]Listener{},
	}
}

// LoadRealm reads a YAML realm file; empty values fall back to DefaultRealm.
// An empty path yields the defaults.
func LoadRealm(path string) (Realm, error) {
	realm := DefaultRealm()
	if strings.TrimSpace(path) == "" {
		return realm, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Realm{}, fmt.Errorf("read realm config: %w", err)
	}
	return ParseRealm(raw)
}

func ParseRealm(raw []byte) (Realm, error) {
	var parsed Realm
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return Realm{}, fmt.Errorf("parse realm config: %w", err)
	}
	realm := mergeRealm(DefaultRealm(), parsed)
	if err := realm.Validate(); err != nil {
		return Realm{}, err
	}
	return realm, nil
}

func (r Realm) Validate() error {
	if strings.TrimSpace(r.AdminUser) == "" {
		return errors.New("realm admin_user is required")
	}
	if strings.TrimSpace(r.AdminGroup) == "" {
		return errors.New("realm admin_group is required")
	}
	if strings.TrimSpace(r.EveryoneGroup) == "" {
		return errors.New("realm everyone_group is required")
	}
	switch strings.ToUpper(r.Properties.PasswordDigest) {
	case "SHA-256", "SHA-512", "BCRYPT", "PLAIN_TEXT":
	default:
		return fmt.Errorf("unsupported password_digest %q", r.Properties.PasswordDigest)
	}
	seen := make(map[string]struct{}, len(r.DataSources))
	for _, ds := range r.DataSources {
		if strings.TrimSpace(ds.Name) == "" {
			return errors.New("realm data source name is required")
		}
		if _, ok := seen[ds.Name]; ok {
			return fmt.Errorf("duplicate realm data source %q", ds.Name)
		}
		seen[ds.Name] = struct{}{}
	}
	return nil
}

// DataSource returns pool overrides for name, if any.
func (r Realm) DataSource(name string) (RealmDataSource, bool) {
	for _, ds := range r.DataSources {
		if ds.Name == name {
			return ds, true
		}
	}
	return RealmDataSource{}, false
}

// ListenerEnabled reports whether a built-in listener is switched on.
func (r Realm) ListenerEnabled(name string, fallback bool) bool {
	l, ok := r.Listeners[name]
	if !ok || l.Enabled == nil {
		return fallback
	}
	return *l.Enabled
}

func mergeRealm(base Realm, override Realm) Realm {
	if override.TenantID != 0 {
		base.TenantID = override.TenantID
	}
	base.AdminUser = firstNonEmpty(override.AdminUser, base.AdminUser)
	base.AdminPassword = firstNonEmpty(override.AdminPassword, base.AdminPassword)
	base.AdminGroup = firstNonEmpty(override.AdminGroup, base.AdminGroup)
	base.EveryoneGroup = firstNonEmpty(override.EveryoneGroup, base.EveryoneGroup)

	p, o := &base.Properties, override.Properties
	p.UsernameRegex = firstNonEmpty(o.UsernameRegex, p.UsernameRegex)
	p.PasswordRegex = firstNonEmpty(o.PasswordRegex, p.PasswordRegex)
	p.GroupNameRegex = firstNonEmpty(o.GroupNameRegex, p.GroupNameRegex)
	p.PasswordDigest = firstNonEmpty(o.PasswordDigest, p.PasswordDigest)
	p.DefaultProfile = firstNonEmpty(o.DefaultProfile, p.DefaultProfile)
	if o.StoreSaltedPassword != nil {
		p.StoreSaltedPassword = o.StoreSaltedPassword
	}
	if o.CaseInsensitiveUsers {
		p.CaseInsensitiveUsers = true
	}
	if o.MaxUserListLength > 0 {
		p.MaxUserListLength = o.MaxUserListLength
	}
	if o.MaxGroupListLength > 0 {
		p.MaxGroupListLength = o.MaxGroupListLength
	}
	if o.MaxFailedLoginAttempt > 0 {
		p.MaxFailedLoginAttempt = o.MaxFailedLoginAttempt
	}
	if o.AccountLockDuration > 0 {
		p.AccountLockDuration = o.AccountLockDuration
	}

	base.DataSources = append(base.DataSources, override.DataSources...)
	for key, statement := range override.SQL {
		base.SQL[key] = statement
	}
	for name, listener := range override.Listeners {
		base.Listeners[name] = listener
	}
	return base
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
