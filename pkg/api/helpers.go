package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
)

const readinessTimeout = 5 * time.Second

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a registry error to an HTTP status code by its Kind,
// falling back to the caller-supplied status for anything it doesn't
// recognize.
func writeError(w http.ResponseWriter, fallback int, err error) {
	status := fallback
	var regErr *regerrors.Error
	if errors.As(err, &regErr) {
		switch regErr.Kind {
		case regerrors.KindManifestNotFound, regerrors.KindSchemaNotFound, regerrors.KindProviderNotFound:
			status = http.StatusNotFound
		case regerrors.KindInvalidManifest, regerrors.KindInvalidSchema, regerrors.KindValidationFailed,
			regerrors.KindSchemaTooLarge, regerrors.KindInvalidLocation, regerrors.KindUnsupportedType:
			status = http.StatusBadRequest
		case regerrors.KindChecksumMismatch, regerrors.KindIncompatibleVersion:
			status = http.StatusConflict
		case regerrors.KindBackendUnavailable, regerrors.KindRegistryNotConfigured:
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
