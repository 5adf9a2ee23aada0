package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TAIGA_API_URL", "TAIGA_USERNAME", "TAIGA_PASSWORD", "TAIGA_TOKEN_TTL",
		"TAIGA_HONOR_TOKEN_EXPIRY", "TAIGA_REQUEST_TIMEOUT", "TAIGA_MCP_READ_ONLY",
		"TAIGA_EXPORT_DIR", "TAIGA_SHARE_SESSION", "PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, time.Duration(0), cfg.TokenTTL)
	assert.True(t, cfg.HonorTokenExpiry)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.ReadOnly)
	assert.False(t, cfg.HasCredentials())
	assert.False(t, cfg.ShareSession)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TAIGA_API_URL", "https://taiga.example.com/api/v1/")
	t.Setenv("TAIGA_USERNAME", "alice")
	t.Setenv("TAIGA_PASSWORD", "secret")
	t.Setenv("TAIGA_TOKEN_TTL", "12h")
	t.Setenv("TAIGA_HONOR_TOKEN_EXPIRY", "false")
	t.Setenv("TAIGA_MCP_READ_ONLY", "true")
	t.Setenv("TAIGA_SHARE_SESSION", "true")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://taiga.example.com/api/v1", cfg.APIURL)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.HonorTokenExpiry)
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.HasCredentials())
	assert.True(t, cfg.SharedSessionEnabled())
}

func TestSharedSessionEnabled(t *testing.T) {
	tests := []struct {
		name  string
		share bool
		user  string
		want  bool
	}{
		{"off by default", false, "alice", false},
		{"needs credentials", true, "", false},
		{"on with credentials", true, "alice", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ShareSession = tt.share
			if tt.user != "" {
				cfg.Username = tt.user
				cfg.Password = "secret"
			}
			assert.Equal(t, tt.want, cfg.SharedSessionEnabled())
		})
	}
}

func TestLoad_YAMLFileWithEnvPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "taiga.yaml")
	content := "api_url: https://file.example.com/api/v1\nusername: bob\npassword: pw\ntoken_ttl: 1h\nport: 7000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TAIGA_USERNAME", "carol")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com/api/v1", cfg.APIURL)
	assert.Equal(t, "carol", cfg.Username)
	assert.Equal(t, "pw", cfg.Password)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 7000, cfg.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad ttl", "TAIGA_TOKEN_TTL", "soon"},
		{"negative ttl", "TAIGA_TOKEN_TTL", "-1h"},
		{"bad bool", "TAIGA_MCP_READ_ONLY", "maybe"},
		{"bad port", "PORT", "http"},
		{"zero timeout", "TAIGA_REQUEST_TIMEOUT", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
