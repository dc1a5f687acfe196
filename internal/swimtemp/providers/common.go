package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/badtemp-karlshamn/internal/swimtemp"
)

// HTTPClientConfig bundles the shared HTTP client and breaker used for every
// provider call.
type HTTPClientConfig struct {
	Client  *http.Client
	Breaker *gobreaker.CircuitBreaker
}

var (
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// maxBodyBytes bounds how much of a provider response is read.
const maxBodyBytes = 4 << 20

// doRequest executes one HTTP request through the circuit breaker and returns
// the response body. There are no retries: a failure surfaces as a
// swimtemp.FetchError for the caller to handle on its next tick.
func doRequest(ctx context.Context, cfg HTTPClientConfig, req *http.Request) ([]byte, error) {
	op := req.Method
	target := req.URL.String()

	if cfg.Client == nil {
		return nil, &swimtemp.FetchError{Op: op, URL: target, Err: errNoHTTPClient}
	}

	req = req.WithContext(ctx)
	call := func() (interface{}, error) {
		resp, err := cfg.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	}

	var (
		result interface{}
		err    error
	)
	if cfg.Breaker != nil {
		result, err = cfg.Breaker.Execute(call)
	} else {
		result, err = call()
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, &swimtemp.FetchError{Op: op, URL: target, Err: err}
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, &swimtemp.FetchError{Op: op, URL: target, Err: fmt.Errorf("unexpected result type from circuit breaker")}
	}
	return body, nil
}

// NewBreaker creates the breaker guarding one provider.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}
