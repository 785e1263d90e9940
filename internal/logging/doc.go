// Package logging holds the terminal output helpers: a slog handler for
// operational logs and a Printer for fatal errors and warnings aimed at the
// person running the command.
package logging
