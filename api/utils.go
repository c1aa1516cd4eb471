package api

import (
	"net/http"
	"regexp"

	"go.uber.org/zap"
)

// maxErrorMessageLength caps client-facing error text
const maxErrorMessageLength = 500

var (
	dsnPattern      = regexp.MustCompile(`(?:sqlite|file)://[^\s"']+`)
	filePathPattern = regexp.MustCompile(`(?:[A-Za-z]:\\|/)(?:[^\\/:*?"<>|\s]+[\\/])+[^\\/:*?"<>|\s]+`)
	stackPattern    = regexp.MustCompile(`(?m)^goroutine \d+.*$`)
)

// sanitizeErrorMessage removes sensitive information from error messages before sending to clients
func sanitizeErrorMessage(message string) string {
	message = dsnPattern.ReplaceAllString(message, "[DATABASE_CONNECTION]")
	message = filePathPattern.ReplaceAllString(message, "[FILE_PATH]")
	message = stackPattern.ReplaceAllString(message, "[STACK_TRACE]")

	if len(message) > maxErrorMessageLength {
		message = message[:maxErrorMessageLength-3] + "..."
	}
	return message
}

// writeError writes an error response to the client and logs it with proper sanitization
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	// Log the full error internally
	if logger != nil {
		fields := []interface{}{"status_code", statusCode}
		if err != nil {
			fields = append(fields, "error", err.Error())
		}
		if statusCode >= http.StatusInternalServerError {
			logger.Errorw(message, fields...)
		} else {
			logger.Infow(message, fields...)
		}
	}

	http.Error(w, sanitizeErrorMessage(message), statusCode)
}
