package syncer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/templui/fitsync/internal/model"
	"golang.org/x/oauth2"
)

const contentTypeCBOR = "application/cbor"

// HTTPRemote talks to the sync API over HTTP with CBOR bodies.
//
//	POST {base}/v1/users/{owner}/changes   push a batch
//	GET  {base}/v1/users/{owner}/records   pull the dataset
type HTTPRemote struct {
	baseURL string
	timeout time.Duration
	base    *http.Client
}

func NewHTTPRemote(baseURL string, timeout time.Duration) *HTTPRemote {
	return &HTTPRemote{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: timeout,
		base:    http.DefaultClient,
	}
}

// WithClient sets the transport used underneath the bearer-token client.
func (r *HTTPRemote) WithClient(c *http.Client) *HTTPRemote {
	r.base = c
	return r
}

func (r *HTTPRemote) client(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.base)
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	c.Timeout = r.timeout
	return c
}

func (r *HTTPRemote) endpoint(ownerID, resource string) string {
	return fmt.Sprintf("%s/v1/users/%s/%s", r.baseURL, url.PathEscape(ownerID), resource)
}

func (r *HTTPRemote) PushBatch(ctx context.Context, token, ownerID string, changes []model.Change) error {
	body, err := encMode.Marshal(pushRequest{OwnerID: ownerID, Changes: changes})
	if err != nil {
		return fmt.Errorf("encode push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint(ownerID, "changes"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeCBOR)

	resp, err := r.client(ctx, token).Do(req)
	if err != nil {
		return fmt.Errorf("%w: push: %w", ErrSyncUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return statusError("push", resp.StatusCode)
}

func (r *HTTPRemote) PullAll(ctx context.Context, token, ownerID string) (*model.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint(ownerID, "records"), nil)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}
	req.Header.Set("Accept", contentTypeCBOR)

	resp, err := r.client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: pull: %w", ErrSyncUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError("pull", resp.StatusCode); err != nil {
		return nil, err
	}

	ds := &model.Dataset{}
	if err := decMode.NewDecoder(resp.Body).Decode(ds); err != nil {
		return nil, fmt.Errorf("%w: decode pull: %w", ErrSyncUnavailable, err)
	}
	if ds.OwnerID != "" && ds.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: pulled dataset belongs to %q", ErrSyncUnavailable, ds.OwnerID)
	}
	return ds, nil
}

func statusError(op string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s: status %d", ErrUnauthorized, op, code)
	default:
		return fmt.Errorf("%w: %s: status %d", ErrSyncUnavailable, op, code)
	}
}
