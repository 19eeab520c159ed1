package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Client provides REST access to the backend chat API: message history, the
// message-creation fallback path, attachment upload and read receipts.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new REST API client.
// baseURL should be the base URL of the API, e.g., "https://api.example.com/chat".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the bearer token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// History retrieves one page of messages for a conversation, newest-first.
// limit caps the page size; before, if non-empty, is the cursor returned by
// a previous page.
func (c *Client) History(ctx context.Context, conversationID string, limit int, before string) (*HistoryResponse, error) {
	path := fmt.Sprintf("/conversations/%s/messages?limit=%d", url.PathEscape(conversationID), limit)
	if before != "" {
		path += "&before=" + url.QueryEscape(before)
	}

	var resp HistoryResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateMessage posts a message over HTTP. This is the fallback path used
// when the realtime channel does not acknowledge a send.
func (c *Client) CreateMessage(ctx context.Context, conversationID string, req CreateMessageRequest) (*MessageInfo, error) {
	path := fmt.Sprintf("/conversations/%s/messages", url.PathEscape(conversationID))
	var resp MessageInfo
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadFile uploads an attachment as multipart form data. The server
// re-validates size and content type; the SDK validates before calling.
func (c *Client) UploadFile(ctx context.Context, conversationID, filename, contentType string, r io.Reader, kind string) (*MessageInfo, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("copy file body: %w", err)
	}
	if err := mw.WriteField("kind", kind); err != nil {
		return nil, fmt.Errorf("write kind field: %w", err)
	}
	if contentType != "" {
		if err := mw.WriteField("content_type", contentType); err != nil {
			return nil, fmt.Errorf("write content_type field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	path := fmt.Sprintf("/conversations/%s/files", url.PathEscape(conversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	var resp MessageInfo
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkRead acknowledges a message as read. Callers treat it as
// fire-and-forget; the error is only useful for logging.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	path := fmt.Sprintf("/messages/%s/read", url.PathEscape(messageID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)
	return c.do(req, nil)
}

// FileDownloadURL resolves a short-lived signed URL for an attachment.
func (c *Client) FileDownloadURL(ctx context.Context, messageID string) (string, error) {
	path := fmt.Sprintf("/messages/%s/file-url", url.PathEscape(messageID))
	var resp DownloadURLResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	return c.do(req, dest)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
