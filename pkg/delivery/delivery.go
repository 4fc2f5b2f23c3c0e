package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/medrecords/pkg/common/config"
	"github.com/synaptica-ai/medrecords/pkg/common/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const DocumentIDHeader = "X-Document-ID"

// Client posts parsed documents to a downstream endpoint.
type Client struct {
	http      *http.Client
	url       string
	attempts  int
	baseDelay time.Duration
}

type Options struct {
	URL      string
	Timeout  time.Duration
	Attempts int
	// TokenURL enables OAuth2 client credentials for every request.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	BaseDelay    time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URL:          cfg.DeliveryURL,
		Timeout:      cfg.DeliveryTimeout,
		Attempts:     cfg.DeliveryAttempts,
		TokenURL:     cfg.DeliveryTokenURL,
		ClientID:     cfg.DeliveryClientID,
		ClientSecret: cfg.DeliveryClientSecret,
		Scopes:       cfg.DeliveryScopes,
	}
}

// New returns nil when no URL is configured; a nil Client delivers nothing.
func New(opts Options) *Client {
	if opts.URL == "" {
		return nil
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 200 * time.Millisecond
	}

	httpClient := NewHTTPClient(opts.Timeout)
	if opts.TokenURL != "" {
		cc := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			Scopes:       opts.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		authed := cc.Client(ctx)
		authed.Timeout = opts.Timeout
		httpClient = authed
	}

	return &Client{
		http:      httpClient,
		url:       opts.URL,
		attempts:  opts.Attempts,
		baseDelay: opts.BaseDelay,
	}
}

// Deliver posts payload, retrying throttled and failed attempts.
func (c *Client) Deliver(ctx context.Context, documentID string, payload []byte) error {
	if c == nil {
		return nil
	}

	attempt := 0
	err := Retry(ctx, c.attempts, c.baseDelay, func() error {
		attempt++
		return c.post(ctx, documentID, payload)
	})

	entry := logger.WithFields(logrus.Fields{
		"document_id": documentID,
		"attempts":    attempt,
	})
	if err != nil {
		entry.WithError(err).Warn("Document delivery failed")
		return fmt.Errorf("deliver %s: %w", documentID, err)
	}
	entry.Debug("Document delivered")
	return nil
}

func (c *Client) post(ctx context.Context, documentID string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DocumentIDHeader, documentID)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
