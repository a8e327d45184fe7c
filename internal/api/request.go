package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// APIError represents an error response from the platform API. Body holds
// the collaborator's error payload verbatim when one was returned.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tournament api error %d: %s", e.StatusCode, e.Message)
}

// errorEnvelope is the platform's error payload shape.
type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// doRequest performs a single HTTP request. There is deliberately no retry
// here: fallback calls are one-shot and their failures belong to the caller.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		message := http.StatusText(resp.StatusCode)
		var envelope errorEnvelope
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    message,
			Body:       body,
		}
	}

	return body, nil
}

// get performs a GET request and decodes the response.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// put performs a PUT request and decodes the response when result is non-nil.
func (c *Client) put(ctx context.Context, path string, result any) error {
	body, err := c.doRequest(ctx, http.MethodPut, path, nil)
	if err != nil {
		return err
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
