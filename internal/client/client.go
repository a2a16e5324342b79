// Package client implements the HTTP API client used by the Buzzdrop
// command-line tool. All encryption happens before bytes reach this
// package; it moves opaque payloads.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
)

// ErrShareUnavailable reports a share that is gone: never existed, already
// downloaded, or expired.
var ErrShareUnavailable = errors.New("share not found or no longer available")

// Client talks to the Buzzdrop API. Sessions are carried by a cookie jar,
// so Login must precede owner operations.
type Client struct {
	http    *http.Client
	baseURL string
}

// New constructs a Client for the given server base URL.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		http:    &http.Client{Jar: jar},
		baseURL: baseURL,
	}, nil
}

// Login authenticates the account and stores the session cookie.
func (c *Client) Login(ctx context.Context, login, password string) error {
	body, _ := json.Marshal(map[string]string{
		"login":    login,
		"password": password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", readError(resp))
	}
	return nil
}

// UploadResult is the server's answer to a successful upload.
type UploadResult struct {
	ID        string `json:"id"`
	ShareLink string `json:"share_link"`
}

// Upload sends an encrypted payload. kind is "file" or "text"; expiry is an
// optional RFC 3339 timestamp.
func (c *Client) Upload(ctx context.Context, name, kind, expiry string, payload []byte) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, err
	}
	if err := mw.WriteField("kind", kind); err != nil {
		return nil, err
	}
	if expiry != "" {
		if err := mw.WriteField("expiry", expiry); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/shares", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("upload failed: %s", readError(resp))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &result, nil
}

// Download fetches the payload bytes exactly as stored. The server deletes
// its copy once the response has been served; these bytes are the only
// remaining copy.
func (c *Client) Download(ctx context.Context, id string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/shares/%s/download", c.baseURL, id), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, "", ErrShareUnavailable
	default:
		return nil, "", fmt.Errorf("download failed: %s", readError(resp))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read payload: %w", err)
	}
	return payload, resp.Header.Get("Content-Disposition"), nil
}

// Report tells the server whether decryption succeeded. Best effort: the
// payload is already deleted server-side either way.
func (c *Client) Report(ctx context.Context, id string, success bool) error {
	body, _ := json.Marshal(map[string]bool{"success": success})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/shares/%s/report", c.baseURL, id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("report failed: %s", readError(resp))
	}
	return nil
}

func readError(resp *http.Response) string {
	b, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil || len(bytes.TrimSpace(b)) == 0 {
		return resp.Status
	}
	return string(bytes.TrimSpace(b))
}
