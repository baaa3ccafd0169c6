package lighthouse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aakash-taneja/miles/internal/domain"
)

const (
	defaultNodeURL = "https://node.lighthouse.storage"
	defaultGateway = "https://gateway.lighthouse.storage/ipfs"
)

// Options configures the Lighthouse content-addressed storage client.
type Options struct {
	APIKey     string
	NodeURL    string
	Gateway    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client uploads payloads to Lighthouse and resolves them back through its
// IPFS gateway. Storage is content-addressed, so re-uploading identical bytes
// yields the same identifier.
type Client struct {
	httpClient *http.Client
	nodeURL    string
	gateway    string
	apiKey     string
}

// NewClient constructs a Lighthouse client from explicit configuration.
func NewClient(opts Options) *Client {
	node := strings.TrimRight(opts.NodeURL, "/")
	if node == "" {
		node = defaultNodeURL
	}
	gateway := strings.TrimRight(opts.Gateway, "/")
	if gateway == "" {
		gateway = defaultGateway
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		nodeURL:    node,
		gateway:    gateway,
		apiKey:     strings.TrimSpace(opts.APIKey),
	}
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Upload stores one payload and returns its content identifier plus a
// resolvable gateway URL.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (domain.Variant, error) {
	if c.apiKey == "" {
		return domain.Variant{}, errors.New("lighthouse: API key is missing")
	}
	if len(data) == 0 {
		return domain.Variant{}, errors.New("lighthouse: empty payload")
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return domain.Variant{}, err
	}
	if _, err := part.Write(data); err != nil {
		return domain.Variant{}, err
	}
	if err := mw.Close(); err != nil {
		return domain.Variant{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.nodeURL+"/api/v0/add", buf)
	if err != nil {
		return domain.Variant{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Variant{}, fmt.Errorf("lighthouse: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Variant{}, fmt.Errorf("lighthouse: http %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out addResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Variant{}, fmt.Errorf("lighthouse: decode response: %w", err)
	}
	if out.Hash == "" {
		return domain.Variant{}, errors.New("lighthouse: upload returned no hash")
	}
	return domain.Variant{CID: out.Hash, URL: c.gateway + "/" + out.Hash}, nil
}

// Fetch resolves a content identifier through the gateway and returns the
// stored bytes.
func (c *Client) Fetch(ctx context.Context, cid string) ([]byte, error) {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return nil, errors.New("lighthouse: cid is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gateway+"/"+cid, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lighthouse: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lighthouse: fetch %s: http %d", cid, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
