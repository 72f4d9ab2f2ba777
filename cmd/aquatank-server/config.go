package main

import (
	"flag"
	"log"
	"os"
	"strconv"
)

// ServerConfig holds the server configuration
type ServerConfig struct {
	Addr               string
	DefaultTankID      string
	TankFile           string
	SnapshotDir        string
	SnapshotEverySteps int
	LogLevel           string
	WebhookURL         string
}

// configResolver defines how to resolve a single configuration value
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*ServerConfig, string)
}

// loadServerConfig loads server configuration from CLI flags and environment variables.
// Uses a resolver pattern to make it easy to add new configuration options.
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{}

	// Define all configuration resolvers
	// To add a new option, just add a new resolver here
	resolvers := []configResolver{
		{
			flagName:    "addr",
			envVarName:  "AQUATANK_ADDR",
			defaultVal:  ":8080",
			description: "HTTP listen address (e.g. :8080, 0.0.0.0:8080)",
			setter:      func(c *ServerConfig, v string) { c.Addr = v },
		},
		{
			flagName:    "tank-id",
			envVarName:  "AQUATANK_TANK_ID",
			defaultVal:  "default",
			description: "tank ID for the initial tank loaded from -tank-file",
			setter:      func(c *ServerConfig, v string) { c.DefaultTankID = v },
		},
		{
			flagName:    "tank-file",
			envVarName:  "AQUATANK_TANK_FILE",
			defaultVal:  "",
			description: "optional path to a JSON tank config file to load at startup",
			setter:      func(c *ServerConfig, v string) { c.TankFile = v },
		},
		{
			flagName:    "snapshot-dir",
			envVarName:  "AQUATANK_SNAPSHOT_DIR",
			defaultVal:  "./data",
			description: "Directory where tank snapshots are stored",
			setter:      func(c *ServerConfig, v string) { c.SnapshotDir = v },
		},
		{
			flagName:    "snapshot-every-steps",
			envVarName:  "AQUATANK_SNAPSHOT_EVERY_STEPS",
			defaultVal:  "100",
			description: "How often to write snapshots (in consumption steps); 0 disables periodic snapshots",
			setter: func(c *ServerConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil {
					c.SnapshotEverySteps = val
				} else {
					log.Printf("Invalid value for snapshot-every-steps: %s, using default 100", v)
					c.SnapshotEverySteps = 100
				}
			},
		},
		{
			flagName:    "log-level",
			envVarName:  "AQUATANK_LOG_LEVEL",
			defaultVal:  "info",
			description: "Log level: debug, info, warn, error",
			setter:      func(c *ServerConfig, v string) { c.LogLevel = v },
		},
		{
			flagName:    "webhook-url",
			envVarName:  "AQUATANK_WEBHOOK_URL",
			defaultVal:  "",
			description: "optional webhook URL that receives every consumption event",
			setter:      func(c *ServerConfig, v string) { c.WebhookURL = v },
		},
	}

	// Register string flags first
	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = flag.String(resolver.flagName, "", resolver.description)
	}

	// Parse flags once
	flag.Parse()

	// Resolve values for each resolver
	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		resolver.setter(&cfg, value)
	}

	return cfg
}
