// ABOUTME: Package documentation for the config package
// ABOUTME: Describes configuration loading conventions

// Package config loads askai-gateway configuration from YAML.
//
// Values in the format ${VAR_NAME} are expanded from the environment before
// parsing, so secrets (broker access key, API keys) can stay out of the
// file. Duration fields are written as Go duration strings ("20s", "1m")
// and parsed after unmarshal. Defaults cover everything except the
// endpoints and secrets the gateway cannot invent.
package config
