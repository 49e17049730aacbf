// Package config provides configuration loading for branchkeeper. It
// handles loading commit-identity and forge configuration from
// environment variables, with an optional HashiCorp Vault override for
// the forge token.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/vault"
)

// Environment variable names.
const (
	// EnvAuthorName is the committer/author name used for staging and
	// reconciled commits.
	EnvAuthorName = "BRANCHKEEPER_AUTHOR_NAME"

	// EnvAuthorEmail is the committer/author email used for staging and
	// reconciled commits.
	EnvAuthorEmail = "BRANCHKEEPER_AUTHOR_EMAIL"

	// EnvSignoff enables a default Signed-off-by trailer ("true"/"false").
	EnvSignoff = "BRANCHKEEPER_SIGNOFF"

	// EnvForgeToken is a static forge API token, read only when
	// EnvVaultForgeTokenPath is unset.
	EnvForgeToken = "BRANCHKEEPER_FORGE_TOKEN"

	// EnvVaultForgeTokenPath is the path in Vault KV where the forge token
	// is stored. When set, the token comes from Vault and EnvForgeToken is
	// ignored.
	EnvVaultForgeTokenPath = "VAULT_FORGE_TOKEN_PATH"

	// EnvVaultForgeTokenMount is the Vault KV mount point (defaults to
	// "secret").
	EnvVaultForgeTokenMount = "VAULT_FORGE_TOKEN_MOUNT"

	// EnvForgeOwner is the GitHub repository owner/org for PR publishing.
	EnvForgeOwner = "BRANCHKEEPER_FORGE_OWNER"

	// EnvForgeRepo is the GitHub repository name for PR publishing.
	EnvForgeRepo = "BRANCHKEEPER_FORGE_REPO"

	// EnvAuditTable is the ClickHouse table reconcile outcomes are appended
	// to. Its presence enables the audit recorder; when unset, audit
	// logging is skipped entirely.
	EnvAuditTable = "BRANCHKEEPER_AUDIT_TABLE"

	// EnvLogLevel is the log level (debug, info, error).
	EnvLogLevel = "LOG_LEVEL"
)

// Default values.
const (
	DefaultAuthorName      = "branchkeeper"
	DefaultAuthorEmail     = "branchkeeper@users.noreply.github.com"
	DefaultLogLevel        = "info"
	DefaultVaultForgeMount = "secret"
)

// Configuration errors.
var (
	// ErrVaultClientFailed indicates failure to create or authenticate
	// with Vault.
	ErrVaultClientFailed = errors.New("failed to create Vault client")

	// ErrVaultSecretNotFound indicates the secret was not found in Vault.
	ErrVaultSecretNotFound = errors.New("forge token not found in Vault")
)

// VaultClient defines the interface for Vault operations. This interface
// allows for dependency injection and testing.
type VaultClient interface {
	// GetKVSecret retrieves a secret from Vault's KV v2 secrets engine.
	GetKVSecret(ctx context.Context, path, mount string) (map[string]interface{}, error)
}

// VaultClientFactory creates a VaultClient using AppRole authentication.
// This is the default factory used in production.
type VaultClientFactory func(ctx context.Context) (VaultClient, error)

// DefaultVaultClientFactory creates a VaultClient using
// goLibMyCarrier/vault with AppRole auth.
func DefaultVaultClientFactory(ctx context.Context) (VaultClient, error) {
	vaultConfig, err := vault.VaultLoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	client, err := vault.CreateVaultClient(ctx, vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	return client, nil
}

// VcsConfig holds the commit identity and signoff default used by the
// Staging and Reconciler components.
type VcsConfig struct {
	AuthorName  string
	AuthorEmail string
	Signoff     bool
}

// ForgeConfig holds the credentials and target repository for
// opening/updating pull requests. Token is empty when no forge config is
// available; callers must treat an empty Token as "forge publishing
// disabled", not an error.
type ForgeConfig struct {
	Token string
	Owner string
	Repo  string
}

// AuditConfig controls whether reconcile outcomes are recorded to
// ClickHouse. Enabled is false, and Table empty, when EnvAuditTable is
// unset — callers must treat that as "audit logging disabled".
type AuditConfig struct {
	Enabled bool
	Table   string
}

// Config holds all application configuration.
type Config struct {
	Vcs      VcsConfig
	Forge    ForgeConfig
	Audit    AuditConfig
	LogLevel string
}

// Load loads the application configuration from environment variables.
// The forge token is loaded from Vault when VAULT_FORGE_TOKEN_PATH is set,
// falling back to BRANCHKEEPER_FORGE_TOKEN otherwise.
func Load() (*Config, error) {
	return LoadWithVaultClient(context.Background(), nil)
}

// LoadWithVaultClient loads configuration using the provided VaultClient
// factory. If vaultClientFactory is nil, DefaultVaultClientFactory is
// used. This function enables dependency injection for testing.
func LoadWithVaultClient(ctx context.Context, vaultClientFactory VaultClientFactory) (*Config, error) {
	authorName := os.Getenv(EnvAuthorName)
	if authorName == "" {
		authorName = DefaultAuthorName
	}

	authorEmail := os.Getenv(EnvAuthorEmail)
	if authorEmail == "" {
		authorEmail = DefaultAuthorEmail
	}

	logLevel := os.Getenv(EnvLogLevel)
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	token, err := loadForgeTokenWithVault(ctx, vaultClientFactory)
	if err != nil {
		return nil, err
	}

	auditTable := os.Getenv(EnvAuditTable)

	return &Config{
		Vcs: VcsConfig{
			AuthorName:  authorName,
			AuthorEmail: authorEmail,
			Signoff:     os.Getenv(EnvSignoff) == "true",
		},
		Forge: ForgeConfig{
			Token: token,
			Owner: os.Getenv(EnvForgeOwner),
			Repo:  os.Getenv(EnvForgeRepo),
		},
		Audit:    AuditConfig{Enabled: auditTable != "", Table: auditTable},
		LogLevel: logLevel,
	}, nil
}

// loadForgeTokenWithVault loads the forge token from Vault when
// EnvVaultForgeTokenPath is set, and from the plain EnvForgeToken variable
// otherwise. A Vault failure is returned as an error; it does not fall
// back to EnvForgeToken. An empty return
// value with a nil error means forge publishing is simply unconfigured,
// not an error: the CLI's --publish flag is opt-in.
func loadForgeTokenWithVault(ctx context.Context, vaultClientFactory VaultClientFactory) (string, error) {
	vaultPath := os.Getenv(EnvVaultForgeTokenPath)
	if vaultPath == "" {
		return os.Getenv(EnvForgeToken), nil
	}

	if vaultClientFactory == nil {
		vaultClientFactory = DefaultVaultClientFactory
	}

	client, err := vaultClientFactory(ctx)
	if err != nil {
		return "", err
	}

	mount := os.Getenv(EnvVaultForgeTokenMount)
	if mount == "" {
		mount = DefaultVaultForgeMount
	}

	secretData, err := client.GetKVSecret(ctx, vaultPath, mount)
	if err != nil {
		return "", fmt.Errorf("%w at path %s: %w", ErrVaultSecretNotFound, vaultPath, err)
	}

	token, ok := secretData["token"].(string)
	if !ok || token == "" {
		return "", fmt.Errorf("%w at path %s: missing \"token\" key", ErrVaultSecretNotFound, vaultPath)
	}

	return token, nil
}
