package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/pagination"
)

// ParsePathUUID reads a chi URL parameter and parses it as a UUID.
func ParsePathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter missing").WithDetails(map[string]any{"field": key})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a uuid").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// ParsePagination reads limit and cursor query parameters.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	params := pagination.Params{}

	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, pkgerrors.New(pkgerrors.CodeValidation, "limit must be numeric")
		}
		if limit < 1 || limit > pagination.MaxLimit {
			return params, pkgerrors.New(pkgerrors.CodeValidation, "limit out of range").WithDetails(map[string]any{"min": 1, "max": pagination.MaxLimit})
		}
		params.Limit = limit
	}
	params.Limit = pagination.ClampLimit(params.Limit)

	if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
		if _, err := pagination.DecodeCursor(cursor); err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	return params, nil
}
