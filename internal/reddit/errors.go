package reddit

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/oauth2"
)

// ErrNotFound is returned when a fullname resolves to nothing.
var ErrNotFound = errors.New("reddit: thing not found")

// APIError is a non-2xx answer from the Reddit API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("reddit %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("reddit %s: status %d", e.Op, e.StatusCode)
}

// Temporary reports whether retrying later may succeed.
func (e *APIError) Temporary() bool {
	return temporaryStatus(e.StatusCode)
}

func temporaryStatus(code int) bool {
	return code == 429 || code >= 500
}

// IsTemporary reports whether err is a rate limit, a server error or a
// network failure, all of which clear up without intervention.
func IsTemporary(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	// Token failures arrive wrapped in *url.Error, which is itself a
	// net.Error, so they are sorted before the network check.
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return tokenErr.Response != nil && temporaryStatus(tokenErr.Response.StatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsPermanent reports whether Reddit refused the request in a way retrying
// cannot fix: bad credentials, a banned account or a missing subreddit.
func IsPermanent(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Temporary()
	}
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return tokenErr.Response == nil || !temporaryStatus(tokenErr.Response.StatusCode)
	}
	return false
}
