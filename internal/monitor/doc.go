// Package monitor compares the kernel memory counters against the configured
// SIGTERM/SIGKILL thresholds. It only reports the level reached; it never
// signals processes.
package monitor
