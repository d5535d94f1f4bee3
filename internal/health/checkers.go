package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Pinger matches stores that expose a connectivity probe, such as
// [github.com/jackc/pgx/v5/pgxpool.Pool].
type Pinger interface {
	Ping(ctx context.Context) error
}

// EndpointChecker probes an HTTP provider endpoint with a HEAD request. Any
// response, regardless of status code, counts as reachable; only transport
// errors fail the check. Name should identify the provider kind ("asr",
// "musicgen").
func EndpointChecker(name, baseURL string, client *http.Client) Checker {
	if client == nil {
		client = http.DefaultClient
	}
	return Checker{
		Name: name,
		Check: func(ctx context.Context) error {
			if baseURL == "" {
				return errors.New("no endpoint configured")
			}
			if _, err := url.Parse(baseURL); err != nil {
				return fmt.Errorf("invalid endpoint: %w", err)
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			resp.Body.Close()
			return nil
		},
	}
}

// StoreChecker probes the job store connection.
func StoreChecker(p Pinger) Checker {
	return Checker{
		Name: "store",
		Check: func(ctx context.Context) error {
			if p == nil {
				return errors.New("no store configured")
			}
			return p.Ping(ctx)
		},
	}
}
