// Package drugapi talks to the third-party drug directory. The upstream spans
// two API generations with different field-naming conventions; see the field
// maps in normalize.go.
package drugapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"healthhub/internal/domain"
)

const defaultTimeout = 5 * time.Second

// Config carries the endpoint layout and credentials for the directory API.
type Config struct {
	Host        string
	AppCode     string
	BarcodePath string
	SearchPath  string
	DetailPath  string
	Timeout     time.Duration
}

// Client queries the remote drug directory over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient constructs a directory client with a bounded request timeout.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// QueryByBarcode looks up one drug by barcode. ok is false when the upstream
// has no match or answered with a non-success code.
func (c *Client) QueryByBarcode(ctx context.Context, barcode string) (domain.Drug, bool, error) {
	raw, err := c.get(ctx, c.cfg.BarcodePath, url.Values{"barcode": {barcode}})
	if err != nil {
		return domain.Drug{}, false, err
	}
	return normalizeOne(raw, detailFields, c.log)
}

// Search returns up to size drugs for the given keyword and 1-based page.
func (c *Client) Search(ctx context.Context, keyword string, page, size int) ([]domain.Drug, error) {
	raw, err := c.get(ctx, c.cfg.SearchPath, url.Values{
		"keyword": {keyword},
		"page":    {strconv.Itoa(page)},
		"size":    {strconv.Itoa(size)},
	})
	if err != nil {
		return nil, err
	}
	return normalizeList(raw, searchFields, c.log)
}

// Detail fetches the full record behind an upstream drug id.
func (c *Client) Detail(ctx context.Context, id string) (domain.Drug, bool, error) {
	raw, err := c.get(ctx, c.cfg.DetailPath, url.Values{"id": {id}})
	if err != nil {
		return domain.Drug{}, false, err
	}
	return normalizeOne(raw, detailFields, c.log)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.cfg.Host + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "APPCODE "+c.cfg.AppCode)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("drug directory: unexpected status %d", resp.StatusCode)
	}
	var buf json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&buf); err != nil {
		return nil, fmt.Errorf("drug directory: decode response: %w", err)
	}
	return buf, nil
}
