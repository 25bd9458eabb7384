// Package app wires the regauth server process: settings from .env, TOML and the
// environment, the slog logger, Sentry, Redis and Postgres connections, the engine and
// its HTTP router, and graceful shutdown.
package app
