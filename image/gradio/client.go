// Package gradio implements the two-phase queue protocol spoken by
// Gradio-hosted spaces: submit a job, then fetch its result stream.
package gradio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/image/providers"
	"github.com/BaSui01/imageflow/types"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Client calls Gradio spaces.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a Gradio client. A nil httpClient gets the default timeout.
func NewClient(httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = providers.NewHTTPClient(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   httpClient,
		logger: logger.With(zap.String("component", "gradio")),
	}
}

type submitRequest struct {
	Data []any `json:"data"`
}

// Call submits args to {baseURL}/gradio_api/call/{endpoint}, fetches the
// result stream and returns the completion array. token may be empty.
func (c *Client) Call(ctx context.Context, baseURL, endpoint string, args []any, token string) ([]any, error) {
	callURL := strings.TrimRight(baseURL, "/") + "/gradio_api/call/" + url.PathEscape(endpoint)

	eventID, err := c.submit(ctx, callURL, args, token)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := c.fetch(ctx, callURL+"/"+url.PathEscape(eventID), token)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("gradio result fetched",
		zap.String("endpoint", endpoint),
		zap.String("event_id", eventID),
		zap.Duration("wait", time.Since(start)),
	)

	return ParseStream(text)
}

func (c *Client) submit(ctx context.Context, callURL string, args []any, token string) (string, error) {
	if args == nil {
		args = []any{}
	}
	payload, err := json.Marshal(submitRequest{Data: args})
	if err != nil {
		return "", types.NewError(types.ErrUnknown, "failed to encode gradio payload").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callURL, bytes.NewReader(payload))
	if err != nil {
		return "", types.NewError(types.ErrUnknown, "failed to create gradio request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", providers.TransportError("", err)
	}
	defer resp.Body.Close()

	body, err := providers.ReadBody(resp.Body)
	if err != nil {
		return "", providers.TransportError("", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("gradio submit rejected", zap.Int("status", resp.StatusCode))
		return "", Classify(resp.StatusCode, providers.UpstreamMessage(body))
	}

	eventID := gjson.GetBytes(body, "event_id").String()
	if eventID == "" {
		return "", types.NewError(types.ErrProviderError, "No event_id returned").
			WithUpstream(providers.Truncate(string(body), excerptLen))
	}
	return eventID, nil
}

func (c *Client) fetch(ctx context.Context, resultURL, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return "", types.NewError(types.ErrUnknown, "failed to create gradio request").WithCause(err)
	}
	setAuth(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", providers.TransportError("", err)
	}
	defer resp.Body.Close()

	body, err := providers.ReadBody(resp.Body)
	if err != nil {
		return "", providers.TransportError("", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", Classify(resp.StatusCode, providers.UpstreamMessage(body))
	}
	return string(body), nil
}

func setAuth(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
}

// ExtractURL returns the image URL of a Gradio file value: either an object
// carrying "url" (or "path" as a fallback) or a plain string.
func ExtractURL(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if u, ok := t["url"].(string); ok && u != "" {
			return u
		}
		if img, ok := t["image"]; ok {
			return ExtractURL(img)
		}
		if p, ok := t["path"].(string); ok && strings.HasPrefix(p, "http") {
			return p
		}
	case []any:
		if len(t) > 0 {
			return ExtractURL(t[0])
		}
	}
	return ""
}
