package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const orsMaxAttempts = 4

// orsStatusError is a non-2xx answer from OpenRouteService.
type orsStatusError struct {
	StatusCode int
	Body       string
}

func (e *orsStatusError) Error() string {
	return fmt.Sprintf("ors: status %d: %s", e.StatusCode, e.Body)
}

// transient reports whether a failed call is worth repeating: network errors,
// rate limiting and gateway or server trouble.
func transient(err error) bool {
	var se *orsStatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests ||
			(se.StatusCode >= 500 && se.StatusCode != http.StatusNotImplemented)
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// call sends one JSON request to path and decodes the JSON answer into out.
// in may be nil for GET requests. Transient failures are repeated with a
// doubling delay, at most orsMaxAttempts times.
func (o *ORSProvider) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := o.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
	}

	wait := o.backoff
	for attempt := 1; ; attempt++ {
		err := o.once(ctx, method, target, payload, out)
		if err == nil {
			return nil
		}
		if attempt == orsMaxAttempts || !transient(err) {
			return err
		}

		o.log.Debug().Err(err).Str("path", path).Int("attempt", attempt).Dur("wait", wait).Msg("ors call failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func (o *ORSProvider) once(ctx context.Context, method, target string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := o.session.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &orsStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
