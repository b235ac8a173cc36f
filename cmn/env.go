// Package cmn provides common constants, types, and process configuration
// for cryptic workers
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package cmn

// Environment variables recognized at startup. Each has a default (see
// defaults map in config.go); none is required.
var Env = struct {
	Mode       string
	ServerHost string
	ServerPort string
	// embedded store (debug)
	DataLocation string
	SQLiteFile   string
	// production store
	MySQLHostname string
	MySQLPort     string
	MySQLDatabase string
	MySQLUsername string
	MySQLPassword string
	DBMS          string
	// logging, telemetry
	PathLogfile string
	DSN         string
	Release     string
}{
	Mode:       "MODE",
	ServerHost: "SERVER_HOST",
	ServerPort: "SERVER_PORT",

	DataLocation: "DATA_LOCATION",
	SQLiteFile:   "SQLITE_FILE",

	MySQLHostname: "MYSQL_HOSTNAME",
	MySQLPort:     "MYSQL_PORT",
	MySQLDatabase: "MYSQL_DATABASE",
	MySQLUsername: "MYSQL_USERNAME",
	MySQLPassword: "MYSQL_PASSWORD",
	DBMS:          "DBMS",

	PathLogfile: "PATH_LOGFILE",

	// Sentry data source name; empty disables telemetry
	DSN:     "DSN",
	Release: "RELEASE",
}
