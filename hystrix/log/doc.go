// Package log defines the logging interface and typed logging fields.
//
// Adapters (GoLogger here, the zap package for production) implement Logger and
// render the ambient logging context carried by the ctx passed to Log, so
// records written from inside a wrapped command carry its TRACE-ID.
package log
