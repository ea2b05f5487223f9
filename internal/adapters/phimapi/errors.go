package phimapi

import (
	"fmt"
	"net/http"

	"github.com/w2w-movies/w2w/internal/ports"
)

type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is fait correspondre un 404 à ports.ErrNotFound.
func (e *HTTPStatusError) Is(target error) bool {
	return target == ports.ErrNotFound && e.StatusCode == http.StatusNotFound
}
