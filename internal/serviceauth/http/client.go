package http

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	serviceAuthService "github.com/allisson/trustcore/internal/serviceauth/service"
)

const defaultClientTimeout = 10 * time.Second

// AuthenticatedClient is an outbound HTTP client that attaches a freshly
// minted service token to every request.
//
// Tokens are short-lived, so the client signs a new one per call instead of
// caching; signing is a local RSA operation and costs far less than the
// network round trip it authenticates.
type AuthenticatedClient struct {
	signer          serviceAuthService.TokenSigner
	targetServiceID string
	client          *resty.Client
}

// NewAuthenticatedClient creates a client for calling targetServiceID at baseURL.
//
// Parameters:
//   - signer: mints tokens under this service's identity
//   - targetServiceID: the audience stamped into every token
//   - baseURL: the target service's base URL
func NewAuthenticatedClient(
	signer serviceAuthService.TokenSigner,
	targetServiceID, baseURL string,
) *AuthenticatedClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultClientTimeout).
		SetHeader("Content-Type", "application/json")

	return &AuthenticatedClient{
		signer:          signer,
		targetServiceID: targetServiceID,
		client:          client,
	}
}

// Get performs an authenticated GET and decodes the JSON response into result.
func (c *AuthenticatedClient) Get(ctx context.Context, path string, result any) error {
	req, err := c.newRequest(ctx)
	if err != nil {
		return err
	}

	resp, err := req.SetResult(result).Get(path)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", c.targetServiceID, err)
	}

	return c.checkResponse(resp)
}

// Post performs an authenticated POST with a JSON body and decodes the JSON
// response into result. Pass nil for requests or responses without a body.
func (c *AuthenticatedClient) Post(ctx context.Context, path string, body, result any) error {
	req, err := c.newRequest(ctx)
	if err != nil {
		return err
	}

	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", c.targetServiceID, err)
	}

	return c.checkResponse(resp)
}

// Delete performs an authenticated DELETE.
func (c *AuthenticatedClient) Delete(ctx context.Context, path string) error {
	req, err := c.newRequest(ctx)
	if err != nil {
		return err
	}

	resp, err := req.Delete(path)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", c.targetServiceID, err)
	}

	return c.checkResponse(resp)
}

// newRequest mints a fresh token and builds a request carrying it.
func (c *AuthenticatedClient) newRequest(ctx context.Context) (*resty.Request, error) {
	token, err := c.signer.SignServiceToken(c.targetServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token for %s: %w", c.targetServiceID, err)
	}

	return c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("X-Service-ID", c.signer.Identity().ServiceID), nil
}

// checkResponse turns non-2xx responses into errors carrying the status and body.
func (c *AuthenticatedClient) checkResponse(resp *resty.Response) error {
	if resp.IsError() {
		return fmt.Errorf(
			"call to %s failed with status %d: %s",
			c.targetServiceID, resp.StatusCode(), resp.String(),
		)
	}
	return nil
}
