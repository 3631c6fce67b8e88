package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
	"github.com/GriffinCanCode/gatedev/internal/infrastructure/resilience"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds every call except reads, which wait for a writer and
	// are bounded only by their context.
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64
	// Breaker overrides the circuit breaker settings.
	Breaker *resilience.Settings
	Logger  *zap.Logger
}

// DefaultConfig returns a client configuration for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      30 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
	}
}

// Client talks to a device server over its HTTP API with rate limiting,
// retries and a circuit breaker.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	timeout time.Duration
}

// New creates a client.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = leveledLogger{cfg.Logger.Sugar()}

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", "gatectl/1.0").
		SetHeader("Accept", "application/json")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}

	settings := resilience.Settings{
		MaxProbes: 2,
		Cooldown:  10 * time.Second,
		Trip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	if cfg.Breaker != nil {
		settings = *cfg.Breaker
	}
	settings.IsFailure = isServerFailure
	log := cfg.Logger
	settings.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("Circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: resilience.New("gatedev-http", settings),
		timeout: cfg.Timeout,
	}
}

type atMostOnceKey struct{}

// atMostOnce marks a request that must not be sent twice. A lost response
// to a write may still mean the device stored it and woke its readers.
func atMostOnce(ctx context.Context) context.Context {
	return context.WithValue(ctx, atMostOnceKey{}, true)
}

// checkRetry retries connection errors and gateway errors from a proxy in
// front of the server, but only for requests not marked atMostOnce.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if ctx.Value(atMostOnceKey{}) != nil {
		return false, err
	}
	if err != nil {
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// call runs one request through the limiter and breaker. bounded calls get
// the configured timeout.
func (c *Client) call(ctx context.Context, bounded bool, do func(r *resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	if bounded && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var resp *resty.Response
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		var env envelope
		r, err := do(c.resty.R().SetContext(ctx).SetError(&env))
		if err != nil {
			return &TransportError{Err: err}
		}
		if r.IsError() {
			return newAPIError(r.StatusCode(), env.Code, env.Error)
		}
		resp = r
		return nil
	})
	return resp, err
}

// Endpoints lists the server's endpoint aliases.
func (c *Client) Endpoints(ctx context.Context) ([]chardev.EndpointInfo, error) {
	var out struct {
		Endpoints []chardev.EndpointInfo `json:"endpoints"`
	}
	_, err := c.call(ctx, true, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/endpoints")
	})
	return out.Endpoints, err
}

// Open opens a session on endpoint on behalf of actor.
func (c *Client) Open(ctx context.Context, endpoint, actor string) (chardev.SessionInfo, error) {
	var out struct {
		Session chardev.SessionInfo `json:"session"`
	}
	_, err := c.call(atMostOnce(ctx), true, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("name", endpoint).
			SetBody(map[string]string{"actor": actor}).
			SetResult(&out).
			Post("/endpoints/{name}/sessions")
	})
	return out.Session, err
}

// Sessions lists open sessions.
func (c *Client) Sessions(ctx context.Context) ([]chardev.SessionInfo, error) {
	var out struct {
		Sessions []chardev.SessionInfo `json:"sessions"`
	}
	_, err := c.call(ctx, true, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/sessions")
	})
	return out.Sessions, err
}

// ReadAt blocks until the next write to the device and returns up to count
// bytes starting at off. A count of 0 reads the whole buffer. Cancel ctx to
// stop waiting.
func (c *Client) ReadAt(ctx context.Context, session string, off int64, count int) ([]byte, error) {
	return c.read(ctx, session, map[string]string{
		"offset": strconv.FormatInt(off, 10),
		"count":  strconv.Itoa(count),
	})
}

// Read is ReadAt at the session position, which advances by the bytes read.
func (c *Client) Read(ctx context.Context, session string, count int) ([]byte, error) {
	return c.read(ctx, session, map[string]string{"count": strconv.Itoa(count)})
}

func (c *Client) read(ctx context.Context, session string, params map[string]string) ([]byte, error) {
	resp, err := c.call(ctx, false, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", session).
			SetQueryParams(params).
			SetHeader("Accept", "application/octet-stream").
			Get("/sessions/{id}/read")
	})
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// WriteAt writes data at off and returns the number of bytes stored.
func (c *Client) WriteAt(ctx context.Context, session string, data []byte, off int64) (int, error) {
	return c.write(ctx, session, data, map[string]string{"offset": strconv.FormatInt(off, 10)})
}

// Write writes at the session position.
func (c *Client) Write(ctx context.Context, session string, data []byte) (int, error) {
	return c.write(ctx, session, data, nil)
}

func (c *Client) write(ctx context.Context, session string, data []byte, params map[string]string) (int, error) {
	var out struct {
		Written int `json:"written"`
	}
	_, err := c.call(atMostOnce(ctx), true, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", session).
			SetQueryParams(params).
			SetHeader("Content-Type", "application/octet-stream").
			SetBody(data).
			SetResult(&out).
			Post("/sessions/{id}/write")
	})
	return out.Written, err
}

// Close closes a session.
func (c *Client) Close(ctx context.Context, session string) error {
	_, err := c.call(atMostOnce(ctx), true, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", session).Delete("/sessions/{id}")
	})
	return err
}

// Stats fetches the device counters.
func (c *Client) Stats(ctx context.Context) (chardev.Stats, error) {
	var out struct {
		Stats chardev.Stats `json:"stats"`
	}
	_, err := c.call(ctx, true, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&out).Get("/device/stats")
	})
	return out.Stats, err
}

// IsNotFound reports whether err means the endpoint or session is unknown.
func IsNotFound(err error) bool {
	return errors.Is(err, chardev.ErrNotFound)
}
