// Package logger is a standardized event logging framework for the shell.
//
// Events are written as newline delimited JSON objects, one per LogEntry, so
// a session can be summarized after the fact with ReadJSONLinesLog.
package logger
