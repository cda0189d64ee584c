package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keshavthakur30/SweetShop/internal/domain"
)

const requestTimeout = 10 * time.Second

// errNoSession marks a request that failed before reaching the
// service because no bearer credential could be acquired.
var errNoSession = errors.New("no session credential")

// TokenSource supplies the bearer credential attached to every
// Catalog Service call. The client never manages the credential
// itself; it only reports back, via Invalidate, that the service
// stopped accepting it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Client talks to the remote Catalog Service over HTTP/JSON.
// Transport failures trip a circuit breaker; service-level refusals
// (4xx) do not.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	breaker *gobreaker.CircuitBreaker[*httpResult]
}

type httpResult struct {
	status int
	body   []byte
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	breaker := gobreaker.NewCircuitBreaker[*httpResult](gobreaker.Settings{
		Name:    "catalog-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   requestTimeout,
		},
		tokens:  tokens,
		breaker: breaker,
	}
}

// ListSweets fetches the whole catalog in one call.
func (c *Client) ListSweets(ctx context.Context) ([]domain.Sweet, error) {
	res, err := c.do(ctx, http.MethodGet, "/api/sweets", nil)
	if err != nil {
		return nil, &domain.FetchError{Err: err}
	}
	if res.status != http.StatusOK {
		return nil, &domain.FetchError{
			Status: res.status,
			Err:    fmt.Errorf("unexpected status listing sweets"),
		}
	}
	var sweets []domain.Sweet
	if err := json.Unmarshal(res.body, &sweets); err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("decode sweets: %w", err)}
	}
	return sweets, nil
}

// Purchase buys quantity units of one sweet and returns the updated
// item as the service reports it. All failures come back as a typed
// *domain.PurchaseError.
func (c *Client) Purchase(ctx context.Context, sweetID int64, quantity int) (domain.Sweet, error) {
	return c.mutateStock(ctx, sweetID, quantity, "purchase")
}

// Restock is admin-only on the remote side; the engine exposes it for
// completeness of the collaborator surface.
func (c *Client) Restock(ctx context.Context, sweetID int64, quantity int) (domain.Sweet, error) {
	return c.mutateStock(ctx, sweetID, quantity, "restock")
}

func (c *Client) mutateStock(ctx context.Context, sweetID int64, quantity int, op string) (domain.Sweet, error) {
	payload, err := json.Marshal(map[string]int{"quantity": quantity})
	if err != nil {
		return domain.Sweet{}, &domain.PurchaseError{SweetID: sweetID, Reason: domain.ReasonNetworkError, Err: err}
	}
	path := fmt.Sprintf("/api/sweets/%d/%s", sweetID, op)
	res, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		reason := domain.ReasonNetworkError
		if errors.Is(err, errNoSession) {
			reason = domain.ReasonUnauthorized
		}
		return domain.Sweet{}, &domain.PurchaseError{SweetID: sweetID, Reason: reason, Err: err}
	}
	if res.status != http.StatusOK {
		return domain.Sweet{}, &domain.PurchaseError{
			SweetID: sweetID,
			Reason:  reasonForStatus(res.status),
			Err:     fmt.Errorf("%s refused with status %d", op, res.status),
		}
	}
	var sw domain.Sweet
	if err := json.Unmarshal(res.body, &sw); err != nil {
		return domain.Sweet{}, &domain.PurchaseError{SweetID: sweetID, Reason: domain.ReasonNetworkError, Err: fmt.Errorf("decode sweet: %w", err)}
	}
	return sw, nil
}

// do runs one authenticated request through the breaker. Only
// transport-level failures count against the breaker; any response
// with a status code is a success from its point of view.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*httpResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errNoSession, err)
	}
	res, err := c.breaker.Execute(func() (*httpResult, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return &httpResult{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		return nil, err
	}
	// The service stopped accepting this credential; drop it so the
	// next call logs in fresh.
	if res.status == http.StatusUnauthorized || res.status == http.StatusForbidden {
		c.tokens.Invalidate()
	}
	return res, nil
}

// reasonForStatus maps the remote service's refusal codes onto the
// purchase taxonomy. The service reports insufficient stock as a
// plain 400.
func reasonForStatus(status int) domain.PurchaseReason {
	switch status {
	case http.StatusBadRequest:
		return domain.ReasonOutOfStock
	case http.StatusNotFound:
		return domain.ReasonItemNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ReasonUnauthorized
	default:
		return domain.ReasonNetworkError
	}
}
