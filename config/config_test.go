package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-smtp-connect/command"
	"github.com/emersion/go-smtp-connect/connect"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleYAML = `
address: smtp.example.org:587
security: STARTTLS
client_id: client.example.org
log_level: debug
timeout: 5s
auth:
  mechanism: plain
  username: user
  password: secret
`

func TestLoadYAML(t *testing.T) {
	s, err := Load(writeConfig(t, "probe.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.org:587", s.Address)
	assert.Equal(t, "starttls", s.Security)
	assert.Equal(t, "DEBUG", s.LogLevel)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.Equal(t, "PLAIN", s.Auth.Mechanism)
	assert.Equal(t, "user", s.Auth.Username)
	assert.Equal(t, "smtp.example.org", s.TLSDomain())
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(writeConfig(t, "probe.toml", `address = "localhost:2525"`))
	require.NoError(t, err)

	assert.Equal(t, "starttls", s.Security)
	assert.Equal(t, "INFO", s.LogLevel)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Empty(t, s.Auth.Mechanism)
	assert.Equal(t, "[127.0.0.1]", s.ClientIdentity().String())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SMTPCONN_ADDRESS", "mx.example.net:465")
	t.Setenv("SMTPCONN_SECURITY", "tls")
	t.Setenv("SMTPCONN_AUTH_PASSWORD", "from-env")

	s, err := Load(writeConfig(t, "probe.yaml", sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "mx.example.net:465", s.Address)
	assert.Equal(t, "tls", s.Security)
	assert.Equal(t, "from-env", s.Auth.Password)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("SMTPCONN_ADDRESS", "localhost:25")
	t.Setenv("SMTPCONN_SECURITY", "none")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:25", s.Address)
	assert.Equal(t, "none", s.Security)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		field    string
	}{
		{"no address", Settings{Security: "none", LogLevel: "INFO"}, "Address"},
		{"bad address", Settings{Address: "smtp.example.org", Security: "none", LogLevel: "INFO"}, "Address"},
		{"bad security", Settings{Address: "smtp.example.org:25", Security: "ssl", LogLevel: "INFO"}, "Security"},
		{"bad log level", Settings{Address: "smtp.example.org:25", Security: "none", LogLevel: "verbose"}, "LogLevel"},
		{"unknown mechanism", Settings{Address: "smtp.example.org:25", Security: "none", LogLevel: "INFO", Auth: AuthSettings{Mechanism: "CRAM-MD5"}}, "Mechanism"},
		{"plain without password", Settings{Address: "smtp.example.org:25", Security: "none", LogLevel: "INFO", Auth: AuthSettings{Mechanism: "plain", Username: "user"}}, "Password"},
		{"oauth without token", Settings{Address: "smtp.example.org:25", Security: "none", LogLevel: "INFO", Auth: AuthSettings{Mechanism: "OAUTHBEARER", Username: "user"}}, "Token"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.settings.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}

	ok := Settings{Address: "smtp.example.org:25", Security: "NONE", LogLevel: "info"}
	assert.NoError(t, ok.Validate())
}

func TestClientIdentity(t *testing.T) {
	for in, want := range map[string]string{
		"":                   "[127.0.0.1]",
		"client.example.org": "client.example.org",
		"192.0.2.1":          "[192.0.2.1]",
		"[192.0.2.1]":        "[192.0.2.1]",
		"[IPv6:2001:db8::1]": "[IPv6:2001:db8::1]",
	} {
		s := Settings{ClientID: in}
		assert.Equal(t, want, s.ClientIdentity().String(), "ClientID %q", in)
	}
}

func TestConnectionConfig(t *testing.T) {
	s := Settings{
		Address:  "smtp.example.org:465",
		Security: "tls",
		Domain:   "mail.example.org",
		Auth:     AuthSettings{Mechanism: "LOGIN", Username: "user", Password: "pass"},
	}
	cfg := s.ConnectionConfig()

	assert.Equal(t, "smtp.example.org:465", cfg.Addr)
	sec, ok := cfg.Security.(connect.DirectTLS)
	require.True(t, ok)
	assert.Equal(t, "mail.example.org", sec.Domain)
	assert.IsType(t, &command.Auth{}, cfg.AuthCmd)

	s.Security = "none"
	s.Auth = AuthSettings{}
	cfg = s.ConnectionConfig()
	assert.IsType(t, connect.NoSecurity{}, cfg.Security)
	assert.Nil(t, cfg.AuthCmd)

	s.Security = "starttls"
	cfg = s.ConnectionConfig()
	assert.IsType(t, connect.StartTLS{}, cfg.Security)
}
