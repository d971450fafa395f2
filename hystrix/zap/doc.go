// Package zap adapts go.uber.org/zap to the log.Logger interface.
//
// Records emitted through Log carry the OTel trace/span ids and the ambient
// logging context (mdc) of the ctx they are logged with, so a command's
// TRACE-ID shows up in every record written while it runs.
package zap
