// Package tuple parses the "term[,kill]" threshold pairs passed on the
// command line, e.g. "-m 10,5". The first value is the level at which
// SIGTERM is sent, the second the level at which SIGKILL is sent.
package tuple
