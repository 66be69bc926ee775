package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a fully read 200 response.
type Response struct {
	Body []byte
}

// Get performs exactly one GET against rawURL with the given headers, bounded by
// timeout. The body is read under the same deadline. Non-200 answers become a
// *StatusError; deadline and connection failures become ErrTimeout and ErrTransport.
func Get(ctx context.Context, doer Doer, provider, rawURL string, header http.Header, timeout time.Duration) (*Response, error) {
	if doer == nil {
		doer = http.DefaultClient
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", provider, errors.Join(ErrTransport, err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := doer.Do(req)
	if err != nil {
		return nil, TransportError(ctx, provider, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.String("provider", provider), slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &StatusError{Provider: provider, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, TransportError(ctx, provider, err)
	}
	return &Response{Body: body}, nil
}

// TransportError classifies a failed round trip: an expired deadline on ctx or a
// network timeout is ErrTimeout, anything else is ErrTransport.
func TransportError(ctx context.Context, provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", provider, errors.Join(ErrTimeout, err))
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s: %w", provider, errors.Join(ErrTimeout, err))
	}
	return fmt.Errorf("%s: %w", provider, errors.Join(ErrTransport, err))
}
