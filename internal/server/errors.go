package server

import (
	"errors"
	"net/http"

	"github.com/wallacegibbon/subcon/internal/cache"
)

// httpStatus maps an error surfaced by the /sub pipeline to the status
// code named in spec.md §4.H/§7. cache.Error carries its own kind;
// anything else is an internal failure.
func httpStatus(err error) int {
	var cacheErr *cache.Error
	if errors.As(err, &cacheErr) {
		switch cacheErr.Kind {
		case cache.KindInvalidURL:
			return http.StatusBadRequest
		case cache.KindDomainDenied:
			return http.StatusForbidden
		case cache.KindFetchFailed:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}
