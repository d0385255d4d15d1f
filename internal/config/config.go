// Package config loads server settings from flags, STV_ environment
// variables, an optional .env file and an optional YAML config file, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "STV"

type Config struct {
	Server  Server  `mapstructure:"server"`
	DB      DB      `mapstructure:"db"`
	Auth    Auth    `mapstructure:"auth"`
	Mail    Mail    `mapstructure:"mail"`
	Store   string  `mapstructure:"store"`
	Log     Log     `mapstructure:"log"`
	Metrics Metrics `mapstructure:"metrics"`

	// Args holds the positional arguments left after flag parsing.
	Args []string `mapstructure:"-"`
}

type Server struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	PublicURL string `mapstructure:"publicURL"`
}

func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DB struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslMode"`
}

func (d DB) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type Auth struct {
	PrivateKey string        `mapstructure:"privateKey"`
	PublicKey  string        `mapstructure:"publicKey"`
	TokenTTL   time.Duration `mapstructure:"tokenTTL"`
	BcryptCost int           `mapstructure:"bcryptCost"`
}

type Mail struct {
	Driver      string `mapstructure:"driver"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	From        string `mapstructure:"from"`
	Concurrency int    `mapstructure:"concurrency"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
}

// Error describes a configuration problem. Critical errors must stop the
// program.
type Error struct {
	Critical bool
	Message  string
}

func (e *Error) Error() string { return e.Message }

// flagKeys maps command line flags to their config keys.
var flagKeys = map[string]string{
	"host":           "server.host",
	"port":           "server.port",
	"publicURL":      "server.publicURL",
	"dbHost":         "db.host",
	"dbPort":         "db.port",
	"dbUser":         "db.user",
	"dbPassword":     "db.password",
	"dbName":         "db.name",
	"dbSslmode":      "db.sslMode",
	"privateKey":     "auth.privateKey",
	"publicKey":      "auth.publicKey",
	"tokenTTL":       "auth.tokenTTL",
	"bcryptCost":     "auth.bcryptCost",
	"mailDriver":     "mail.driver",
	"mailHost":       "mail.host",
	"mailPort":       "mail.port",
	"mailUser":       "mail.username",
	"mailPassword":   "mail.password",
	"mailFrom":       "mail.from",
	"mailWorkers":    "mail.concurrency",
	"store":          "store",
	"logLevel":       "log.level",
	"logFormat":      "log.format",
	"metricsEnabled": "metrics.enabled",
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")

	fs.String("host", "0.0.0.0", "address to listen on")
	fs.Int("port", 8080, "port to listen on")
	fs.String("publicURL", "http://localhost:8080", "public URL prefix of ballot links")

	fs.String("dbHost", "127.0.0.1", "postgres host")
	fs.Int("dbPort", 5432, "postgres port")
	fs.String("dbUser", "stv", "postgres user")
	fs.String("dbPassword", "", "postgres password")
	fs.String("dbName", "stv", "postgres database")
	fs.String("dbSslmode", "disable", "postgres sslmode")

	fs.String("privateKey", "keys/private.pem", "PEM file of the RSA key that signs tokens")
	fs.String("publicKey", "keys/public.pem", "PEM file of the RSA key that verifies tokens")
	fs.Duration("tokenTTL", 24*time.Hour, "session token lifetime")
	fs.Int("bcryptCost", 0, "bcrypt cost, 0 for the library default")

	fs.String("mailDriver", "log", "mail driver: smtp or log")
	fs.String("mailHost", "localhost", "SMTP host")
	fs.Int("mailPort", 587, "SMTP port")
	fs.String("mailUser", "", "SMTP username")
	fs.String("mailPassword", "", "SMTP password")
	fs.String("mailFrom", "stv@localhost", "sender address of ballot mails")
	fs.Int("mailWorkers", 4, "parallel mail deliveries per election")

	fs.String("store", "postgres", "storage backend: postgres or memory")
	fs.String("logLevel", "info", "log level: debug, info, warn or error")
	fs.String("logFormat", "text", "log format: text or json")
	fs.Bool("metricsEnabled", true, "serve prometheus metrics on /metrics")
	return fs
}

// Load parses args and the environment into a Config.
func Load(name string, args []string) (*Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load()

	fs := newFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return nil, &Error{Critical: true, Message: err.Error()}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for flagName, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, &Error{Critical: true, Message: fmt.Sprintf("cannot bind flag %s: %v", flagName, err)}
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &Error{Critical: true, Message: fmt.Sprintf("cannot read config file: %v", err)}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &Error{Critical: true, Message: fmt.Sprintf("cannot decode config: %v", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Args = fs.Args()
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	switch c.Mail.Driver {
	case "smtp", "log":
	default:
		errs = append(errs, fmt.Errorf("unknown mail driver %q", c.Mail.Driver))
	}
	if c.Server.PublicURL == "" {
		errs = append(errs, errors.New("public URL is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("token TTL must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return &Error{Critical: true, Message: err.Error()}
	}
	return nil
}
