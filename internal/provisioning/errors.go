package provisioning

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// StatusCode returns the HTTP status of a Google API error in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// IsAlreadyExists reports whether err is a 409 from the Google APIs.
func IsAlreadyExists(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// IsNotFound reports whether err is a 404 from the Google APIs.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
