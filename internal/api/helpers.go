package api

import (
	"encoding/json/v2"
	"io"
	"net/http"

	domainerrors "github.com/openarklib/openark-server/internal/errors"
)

// maxJSONBodySize caps JSON request bodies at 1 MiB.
const maxJSONBodySize = 1 << 20

// decodeJSON reads and unmarshals a JSON request body into dest.
func decodeJSON(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, maxJSONBodySize)
	data, err := io.ReadAll(body)
	if err != nil {
		return domainerrors.Validation("request body too large or unreadable").WithCause(err)
	}
	if len(data) == 0 {
		return domainerrors.Validation("request body is required")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return domainerrors.Validation("invalid JSON in request body").WithCause(err)
	}
	return nil
}
