// Package config loads per-package configuration structs from environment
// variables using github.com/caarlos0/env struct tags, with optional .env
// file support for local development.
//
// Every package that needs configuration declares its own Config struct with
// `env:` tags and the application entrypoint loads it once:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
// Parsed values are cached per type so that independently initialized
// components observe the same configuration.
package config
