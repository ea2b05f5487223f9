package phimapi

import (
	"errors"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultRetryMax = 2
	defaultBackoff  = 250 * time.Millisecond
)

// RetryTransport rejoue les requêtes idempotentes (GET/HEAD sans body) sur erreur
// réseau, 5xx et 429. RetryMax compte les tentatives en plus de la première.
type RetryTransport struct {
	Base     http.RoundTripper
	RetryMax int
	Backoff  time.Duration
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var (
		resp    *http.Response
		lastErr error
	)
	for attempt := 0; attempt <= max; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(req, t.Backoff*time.Duration(attempt)); err != nil {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, err
			}
		}
		resp, lastErr = base.RoundTrip(req.Clone(req.Context()))
		if lastErr == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if req.Context().Err() != nil {
			break
		}
		if lastErr == nil && attempt < max {
			// La réponse sera remplacée: on libère la connexion.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return resp, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func sleepCtx(req *http.Request, d time.Duration) error {
	if d <= 0 {
		return req.Context().Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}

// NewHTTPClient construit le client HTTP du catalogue: retry borné + timeout total.
func NewHTTPClient(timeout time.Duration, retryMax int, backoff time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{
		Transport: &RetryTransport{Base: base, RetryMax: retryMax, Backoff: backoff},
		Timeout:   timeout * time.Duration(retryMax+1),
	}
}
