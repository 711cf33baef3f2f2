package notify

import (
	"fmt"
	"net/mail"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort    = 587
	DefaultSubject = "Power quality campaign finished"
)

// Secret is a string which may reference environment variables as $VAR or
// ${VAR}, expanded when the configuration is decoded.
type Secret string

func (s *Secret) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("notify.Secret: %w", err)
	}

	*s = Secret(os.ExpandEnv(raw))
	return nil
}

func (s Secret) MarshalYAML() (interface{}, error) {
	if s == "" {
		return "", nil
	}
	return "********", nil
}

// Config is the SMTP notifier configuration
type Config struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password Secret `yaml:"password" json:"-"`
	From     string `yaml:"from" json:"from"` // defaults to Username
	To       string `yaml:"to" json:"to"`     // defaults to From
	Subject  string `yaml:"subject" json:"subject"`
}

// DefaultConfig returns a disabled notifier on the submission port
func DefaultConfig() *Config {
	return &Config{
		Port:    DefaultPort,
		Subject: DefaultSubject,
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("notify.Config: host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("notify.Config: invalid port: %d", c.Port)
	}
	if _, err := mail.ParseAddress(c.sender()); err != nil {
		return fmt.Errorf("notify.Config: invalid sender address '%s': %w", c.sender(), err)
	}
	if _, err := mail.ParseAddress(c.recipient()); err != nil {
		return fmt.Errorf("notify.Config: invalid recipient address '%s': %w", c.recipient(), err)
	}
	return nil
}

func (c *Config) sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

func (c *Config) recipient() string {
	if c.To != "" {
		return c.To
	}
	return c.sender()
}

// envelopeAddress strips the display name, SMTP commands take the bare address
func envelopeAddress(s string) string {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return s
	}
	return addr.Address
}
