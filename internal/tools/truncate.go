package tools

import "fmt"

// maxResultChars bounds a tool_result's serialized content (spec §4.C.3).
const maxResultChars = 15000

// Truncate caps s to maxResultChars, appending a tail marker noting how
// many characters were dropped. Grounded on the teacher's truncateStr
// (loop_tracing.go), generalized from trace-log truncation to
// tool_result shaping.
func Truncate(s string) string {
	if len(s) <= maxResultChars {
		return s
	}
	dropped := len(s) - maxResultChars
	return s[:maxResultChars] + fmt.Sprintf("\n... [truncated %d characters]", dropped)
}
