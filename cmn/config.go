// Package cmn provides common constants, types, and process configuration
// for cryptic workers
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package cmn

import (
	"errors"
	"fmt"
	"os"
)

// ErrInvalidPort rejects SERVER_PORT / MYSQL_PORT strings that are not
// non-negative decimals in the [0, 65535] range.
var ErrInvalidPort = errors.New("invalid port number")

type (
	Mode string
	DBMS string
)

const (
	ModeDebug      Mode = "debug"
	ModeProduction Mode = "production"
)

const (
	DBMSSQLite DBMS = "sqlite"
	DBMSMySQL  DBMS = "mysql"
)

type (
	MySQLConf struct {
		Hostname string
		Port     int
		Database string
		Username string
		Password string
	}

	// Config is built once during process start (FromEnv) and read-only
	// thereafter; it is threaded explicitly through constructors.
	Config struct {
		Mode       Mode
		ServerHost string
		ServerPort int

		DBMS         DBMS
		DataLocation string
		SQLiteFile   string
		MySQL        MySQLConf

		PathLogfile string
		DSN         string
		Release     string
	}

	ErrUnknownMode struct {
		mode string
	}
	ErrUnknownDBMS struct {
		dbms string
	}
)

func NewErrUnknownDBMS(dbms string) *ErrUnknownDBMS { return &ErrUnknownDBMS{dbms} }

func (e *ErrUnknownMode) Error() string {
	return fmt.Sprintf("mode %q is unknown (expecting %q or %q)", e.mode, ModeDebug, ModeProduction)
}

func (e *ErrUnknownDBMS) Error() string {
	return fmt.Sprintf("database management system (DBMS) %q is unknown", e.dbms)
}

var defaults = map[string]string{
	Env.Mode:          string(ModeProduction),
	Env.ServerHost:    "127.0.0.1",
	Env.ServerPort:    "1239",
	Env.DataLocation:  "data/",
	Env.DBMS:          string(DBMSMySQL),
	Env.SQLiteFile:    "data.db",
	Env.MySQLHostname: "localhost",
	Env.MySQLPort:     "3306",
	Env.MySQLDatabase: "cryptic",
	Env.MySQLUsername: "cryptic",
	Env.MySQLPassword: "cryptic",
	Env.PathLogfile:   "./",
	Env.DSN:           "",
	Env.Release:       "",
}

func envOrDefault(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaults[key]
}

// ParsePort accepts non-negative decimal strings up to 65535. Signs,
// spaces, and empty strings are rejected.
func ParsePort(s string) (int, error) {
	if s == "" {
		return 0, ErrInvalidPort
	}
	port := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, ErrInvalidPort
		}
		port = port*10 + int(c-'0')
		if port > 65535 {
			return 0, ErrInvalidPort
		}
	}
	return port, nil
}

// FromEnv builds the process configuration from the environment, applying
// the documented defaults. Unknown MODE or DBMS values and malformed ports
// are startup errors.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Mode:         Mode(envOrDefault(Env.Mode)),
		ServerHost:   envOrDefault(Env.ServerHost),
		DBMS:         DBMS(envOrDefault(Env.DBMS)),
		DataLocation: envOrDefault(Env.DataLocation),
		SQLiteFile:   envOrDefault(Env.SQLiteFile),
		PathLogfile:  envOrDefault(Env.PathLogfile),
		DSN:          envOrDefault(Env.DSN),
		Release:      envOrDefault(Env.Release),
	}
	switch cfg.Mode {
	case ModeDebug, ModeProduction:
	default:
		return nil, &ErrUnknownMode{string(cfg.Mode)}
	}

	// debug mode selects the embedded store unless DBMS is set explicitly
	if cfg.Mode == ModeDebug {
		if _, ok := os.LookupEnv(Env.DBMS); !ok {
			cfg.DBMS = DBMSSQLite
		}
	}
	switch cfg.DBMS {
	case DBMSSQLite, DBMSMySQL:
	default:
		return nil, &ErrUnknownDBMS{string(cfg.DBMS)}
	}

	var err error
	if cfg.ServerPort, err = ParsePort(envOrDefault(Env.ServerPort)); err != nil {
		return nil, err
	}
	cfg.MySQL = MySQLConf{
		Hostname: envOrDefault(Env.MySQLHostname),
		Database: envOrDefault(Env.MySQLDatabase),
		Username: envOrDefault(Env.MySQLUsername),
		Password: envOrDefault(Env.MySQLPassword),
	}
	if cfg.MySQL.Port, err = ParsePort(envOrDefault(Env.MySQLPort)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
