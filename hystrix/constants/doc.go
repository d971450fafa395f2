// Package constant provides shared constant values used across the module.
//
// Keep this package free of runtime behavior.
// Reserved logging-context keys live here so every package agrees on them.
package constant
