package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"receiptd/internal/config"
	"receiptd/internal/domain"
)

const maxRemoteResponseBytes = 64 << 10

// RemoteSigner posts claims to an external signing service and passes the
// returned token through unchanged. It does not retry.
type RemoteSigner struct {
	endpoint   string
	httpClient *http.Client
}

func NewRemote(endpoint string, httpClient *http.Client) (*RemoteSigner, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid signing server url %q", endpoint)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteSigner{endpoint: endpoint, httpClient: httpClient}, nil
}

func (s *RemoteSigner) Sign(ctx context.Context, claims domain.ReceiptClaims) (string, error) {
	body, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("%w: encode claims: %w", domain.ErrSigning, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSigning, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSigning, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", domain.ErrSigning, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: signing server returned status %d", domain.ErrSigning, resp.StatusCode)
	}
	var out struct {
		Receipt string `json:"receipt"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", domain.ErrSigning, err)
	}
	token := strings.TrimSpace(out.Receipt)
	if token == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrSigning, errors.New("signing server returned no receipt"))
	}
	return token, nil
}

func (s *RemoteSigner) Mode() string {
	return config.SigningModeRemote
}
