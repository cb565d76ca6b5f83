// Package config loads the settings of the smtp-probe command and turns them
// into a connect.ConnectionConfig.
package config

import (
	"net"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/emersion/go-smtp-connect"
	"github.com/emersion/go-smtp-connect/command"
	"github.com/emersion/go-smtp-connect/connect"
)

// EnvPrefix prefixes the environment variables overriding file settings,
// e.g. SMTPCONN_ADDRESS or SMTPCONN_AUTH_PASSWORD.
const EnvPrefix = "SMTPCONN"

// Settings describes one connection to a submission server.
type Settings struct {
	// Address is the "host:port" of the server.
	Address string `mapstructure:"address" validate:"required,hostname_port"`
	// Security is one of "none", "tls" or "starttls".
	Security string `mapstructure:"security" validate:"oneof=none tls starttls"`
	// Domain is the name the server certificate must be valid for. It
	// defaults to the host part of Address.
	Domain string `mapstructure:"domain" validate:"omitempty,hostname_rfc1123"`
	// ClientID is the EHLO identity, a domain or an IP address. It defaults
	// to [127.0.0.1].
	ClientID string        `mapstructure:"client_id"`
	Auth     AuthSettings  `mapstructure:"auth"`
	LogLevel string        `mapstructure:"log_level" validate:"oneof=ERROR WARN INFO DEBUG TRACE"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// AuthSettings selects the SASL mechanism. An empty Mechanism disables
// authentication.
type AuthSettings struct {
	Mechanism string `mapstructure:"mechanism" validate:"omitempty,oneof=PLAIN LOGIN ANONYMOUS EXTERNAL OAUTHBEARER"`
	Username  string `mapstructure:"username" validate:"required_if=Mechanism PLAIN,required_if=Mechanism LOGIN,required_if=Mechanism OAUTHBEARER"`
	Password  string `mapstructure:"password" validate:"required_if=Mechanism PLAIN,required_if=Mechanism LOGIN"`
	Identity  string `mapstructure:"identity"`
	Token     string `mapstructure:"token" validate:"required_if=Mechanism OAUTHBEARER"`
}

var validate = validator.New()

var defaults = map[string]interface{}{
	"address":        "",
	"security":       "starttls",
	"domain":         "",
	"client_id":      "",
	"auth.mechanism": "",
	"auth.username":  "",
	"auth.password":  "",
	"auth.identity":  "",
	"auth.token":     "",
	"log_level":      "INFO",
	"timeout":        "30s",
}

// Load reads the settings from filename, whose format is taken from its
// extension, then applies the environment overrides and validates the
// result. An empty filename loads the defaults and the environment only.
func Load(filename string) (*Settings, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", filename)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", filename)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate normalizes the case of the enumerated settings and checks every
// setting.
func (s *Settings) Validate() error {
	s.Security = strings.ToLower(s.Security)
	s.LogLevel = strings.ToUpper(s.LogLevel)
	s.Auth.Mechanism = strings.ToUpper(s.Auth.Mechanism)

	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validating configuration")
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fe.Namespace()+": failed on '"+fe.Tag()+"'")
	}
	return errors.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}

// TLSDomain returns Domain, or the host part of Address if it is empty.
func (s *Settings) TLSDomain() string {
	if s.Domain != "" {
		return s.Domain
	}
	host, _, err := net.SplitHostPort(s.Address)
	if err != nil {
		return s.Address
	}
	return host
}

// ClientIdentity parses ClientID. Address literals may be written with or
// without brackets.
func (s *Settings) ClientIdentity() smtp.ClientIdentity {
	if s.ClientID == "" {
		return smtp.Localhost()
	}
	literal := strings.TrimSuffix(strings.TrimPrefix(s.ClientID, "["), "]")
	literal = strings.TrimPrefix(literal, "IPv6:")
	if ip := net.ParseIP(literal); ip != nil {
		return smtp.AddressLiteral(ip)
	}
	return smtp.Domain(s.ClientID)
}

// Command returns the auth command, nil if authentication is disabled.
func (a AuthSettings) Command() smtp.Command {
	switch strings.ToUpper(a.Mechanism) {
	case "PLAIN":
		return command.PlainAuth(a.Identity, a.Username, a.Password)
	case "LOGIN":
		return command.LoginAuth(a.Username, a.Password)
	case "ANONYMOUS":
		return command.AnonymousAuth(a.Identity)
	case "EXTERNAL":
		return command.ExternalAuth(a.Identity)
	case "OAUTHBEARER":
		return command.OAuthBearerAuth(a.Username, a.Token)
	default:
		return nil
	}
}

// ConnectionConfig builds the input of connect.Connect.
func (s *Settings) ConnectionConfig() connect.ConnectionConfig {
	tlsConfig := smtp.NewTLSConfig(s.TLSDomain())

	var security connect.Security
	switch s.Security {
	case "none":
		security = connect.NoSecurity{}
	case "tls":
		security = connect.DirectTLS{TLSConfig: tlsConfig}
	default:
		security = connect.StartTLS{TLSConfig: tlsConfig}
	}

	cfg := connect.ConnectionConfig{
		Addr:     s.Address,
		Security: security,
		ClientID: s.ClientIdentity(),
	}
	if cmd := s.Auth.Command(); cmd != nil {
		cfg.AuthCmd = cmd
	}
	return cfg
}
