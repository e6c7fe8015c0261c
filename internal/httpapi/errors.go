package httpapi

import "strings"

// sanitizeError strips anything that looks like embedded credentials or a
// query string from an error's message before it reaches a client, mirroring
// api/handlers/errors.go's SanitizeError. DSNs and connection strings must
// never leak into client-visible error text, per SPEC_FULL.md's ambient
// error-handling section.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()

	if idx := strings.Index(msg, "://"); idx != -1 {
		if atIdx := strings.Index(msg[idx:], "@"); atIdx != -1 {
			endOfProto := idx + len("://")
			msg = msg[:endOfProto] + "***@" + msg[idx+atIdx+1:]
		}
	}

	if idx := strings.Index(msg, "?"); idx != -1 {
		endIdx := len(msg)
		for _, delim := range []string{" ", "'", "\""} {
			if i := strings.Index(msg[idx:], delim); i != -1 && idx+i < endIdx {
				endIdx = idx + i
			}
		}
		msg = msg[:idx] + "?..." + msg[endIdx:]
	}

	return msg
}
