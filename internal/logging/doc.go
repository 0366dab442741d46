// Package logging provides structured, file-based logging for fsindex.
//
// Logs are JSON lines written to ~/.fsindex/logs/fsindex.log and rotated by
// lumberjack. With --debug the same stream is mirrored to stderr.
package logging
