package config

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockVaultClient implements VaultClient interface for testing.
type mockVaultClient struct {
	secrets map[string]map[string]interface{}
	err     error
}

func (m *mockVaultClient) GetKVSecret(_ context.Context, path, _ string) (map[string]interface{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	if secret, ok := m.secrets[path]; ok {
		return secret, nil
	}
	return nil, errors.New("secret not found")
}

// mockVaultClientFactory creates a factory that returns the provided mock client.
func mockVaultClientFactory(client VaultClient, err error) VaultClientFactory {
	return func(_ context.Context) (VaultClient, error) {
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func unsetAll(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvAuthorName, EnvAuthorEmail, EnvSignoff, EnvForgeToken,
		EnvVaultForgeTokenPath, EnvVaultForgeTokenMount, EnvForgeOwner,
		EnvForgeRepo, EnvAuditTable, EnvLogLevel,
	} {
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetAll(t)

	cfg, err := Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultAuthorName, cfg.Vcs.AuthorName)
	assert.Equal(t, DefaultAuthorEmail, cfg.Vcs.AuthorEmail)
	assert.False(t, cfg.Vcs.Signoff)
	assert.Empty(t, cfg.Forge.Token)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoad_ForgeRepoAndAuditTable(t *testing.T) {
	unsetAll(t)
	t.Setenv(EnvForgeOwner, "MyCarrier-DevOps")
	t.Setenv(EnvForgeRepo, "branchkeeper")
	t.Setenv(EnvAuditTable, "reconcile_outcomes")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "MyCarrier-DevOps", cfg.Forge.Owner)
	assert.Equal(t, "branchkeeper", cfg.Forge.Repo)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "reconcile_outcomes", cfg.Audit.Table)
}

func TestLoad_CustomIdentityAndSignoff(t *testing.T) {
	unsetAll(t)
	t.Setenv(EnvAuthorName, "release-bot")
	t.Setenv(EnvAuthorEmail, "release-bot@example.com")
	t.Setenv(EnvSignoff, "true")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "release-bot", cfg.Vcs.AuthorName)
	assert.Equal(t, "release-bot@example.com", cfg.Vcs.AuthorEmail)
	assert.True(t, cfg.Vcs.Signoff)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ForgeTokenFromEnv(t *testing.T) {
	unsetAll(t)
	t.Setenv(EnvForgeToken, "ghp_plainenvtoken")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_plainenvtoken", cfg.Forge.Token)
}

func TestLoadWithVaultClient_TokenFromVault(t *testing.T) {
	unsetAll(t)
	t.Setenv(EnvVaultForgeTokenPath, "ci/branchkeeper/forge")

	mockClient := &mockVaultClient{
		secrets: map[string]map[string]interface{}{
			"ci/branchkeeper/forge": {"token": "ghp_vaulttoken"},
		},
	}

	cfg, err := LoadWithVaultClient(context.Background(), mockVaultClientFactory(mockClient, nil))

	require.NoError(t, err)
	assert.Equal(t, "ghp_vaulttoken", cfg.Forge.Token)
}

func TestLoadWithVaultClient_VaultClientError(t *testing.T) {
	unsetAll(t)
	t.Setenv(EnvVaultForgeTokenPath, "ci/branchkeeper/forge")

	factory := mockVaultClientFactory(nil, errors.New("vault connection failed"))

	_, err := LoadWithVaultClient(context.Background(), factory)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault connection failed")
}

func TestLoadWithVaultClient_SecretNotFound(t *testing.T) {
	unsetAll(t)
	t.Setenv(EnvVaultForgeTokenPath, "nonexistent/path")

	mockClient := &mockVaultClient{secrets: map[string]map[string]interface{}{}}

	_, err := LoadWithVaultClient(context.Background(), mockVaultClientFactory(mockClient, nil))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVaultSecretNotFound)
}

func TestLoadWithVaultClient_SecretMissingTokenKey(t *testing.T) {
	unsetAll(t)
	t.Setenv(EnvVaultForgeTokenPath, "ci/branchkeeper/forge")

	mockClient := &mockVaultClient{
		secrets: map[string]map[string]interface{}{
			"ci/branchkeeper/forge": {"unrelated": "value"},
		},
	}

	_, err := LoadWithVaultClient(context.Background(), mockVaultClientFactory(mockClient, nil))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVaultSecretNotFound)
}
