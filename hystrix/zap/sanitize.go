package zap

import (
	"strings"
)

// controlCharReplacer escapes control characters that can be used for log injection (CWE-117).
// The JSON encoder already escapes these inside string values; the console
// encoder used by local environments does not.
var controlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func sanitizeString(s string) string {
	return controlCharReplacer.Replace(s)
}
