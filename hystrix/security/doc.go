// Package security detects field names that carry secrets.
//
// The log adapters use it to redact values of sensitive fields and logging
// context entries before a record is written.
package security
