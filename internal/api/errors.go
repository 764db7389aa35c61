package api

import (
	"net/http"

	apperrors "shopseq/internal/errors"
	"shopseq/internal/logging"
)

// statusFor maps an error code to its HTTP status. Lock timeouts and store
// failures are transient, so clients get 503 and may retry the whole request.
func statusFor(code string) int {
	switch code {
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeDuplicateIdentifier:
		return http.StatusConflict
	case apperrors.CodeAllocationTimeout, apperrors.CodeStoreError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	status := statusFor(code)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}

	entry := logging.WithComponent("api").WithError(err).WithFields(logging.Fields{
		"path": r.URL.Path,
		"code": code,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	writeJSON(w, status, map[string]string{"error": publicMessage(code, err), "code": code})
}

// publicMessage is the client-facing text for err. Only input and lookup
// errors echo their own message; store and driver detail stays in the log.
func publicMessage(code string, err error) string {
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeNotFound:
		return err.Error()
	case apperrors.CodeDuplicateIdentifier:
		return "identifier already taken, please retry"
	case apperrors.CodeAllocationTimeout:
		return "identifier allocation timed out, please retry"
	case apperrors.CodeStoreError:
		return "storage temporarily unavailable, please retry"
	case apperrors.CodeAllocationExhausted:
		return "could not allocate a unique token"
	default:
		return "internal error"
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg, "code": apperrors.CodeInvalidInput})
}
