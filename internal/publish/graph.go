package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// DefaultGraphURL is the Graph API host.
const DefaultGraphURL = "https://graph.facebook.com"

// GraphError is an error response from the Graph API.
type GraphError struct {
	HTTPStatus int
	Code       int64
	Type       string
	Message    string
}

func (e *GraphError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("graph api %d (%s %d): %s", e.HTTPStatus, e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("graph api %d: %s", e.HTTPStatus, e.Message)
}

// GraphClient talks to the Instagram content publishing endpoints.
type GraphClient struct {
	BaseURL     string
	Version     string
	AccessToken string
	UserID      string
	HTTP        *http.Client
}

// NewGraphClient returns a client for the given account.
func NewGraphClient(baseURL, version, accessToken, userID string, httpClient *http.Client) *GraphClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultGraphURL
	}
	if strings.TrimSpace(version) == "" {
		version = "v19.0"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &GraphClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Version:     version,
		AccessToken: accessToken,
		UserID:      userID,
		HTTP:        httpClient,
	}
}

// CreateContainer registers a reel upload and returns the container id.
func (c *GraphClient) CreateContainer(ctx context.Context, videoURL, caption string) (string, error) {
	form := url.Values{
		"media_type": {"REELS"},
		"video_url":  {videoURL},
		"caption":    {caption},
	}
	body, err := c.post(ctx, c.UserID+"/media", form)
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", fmt.Errorf("create container: response has no id: %s", truncate(body))
	}
	return id, nil
}

// ContainerStatus returns the mapped state of a container and the raw status
// text the API reported.
func (c *GraphClient) ContainerStatus(ctx context.Context, containerID string) (State, string, error) {
	query := url.Values{"fields": {"status_code,status"}}
	body, err := c.get(ctx, containerID, query)
	if err != nil {
		return "", "", fmt.Errorf("container status: %w", err)
	}
	code := gjson.GetBytes(body, "status_code").String()
	detail := gjson.GetBytes(body, "status").String()
	if detail == "" {
		detail = code
	}
	return MapStatus(code), detail, nil
}

// PublishContainer publishes a finished container and returns the media id.
func (c *GraphClient) PublishContainer(ctx context.Context, containerID string) (string, error) {
	body, err := c.post(ctx, c.UserID+"/media_publish", url.Values{"creation_id": {containerID}})
	if err != nil {
		return "", fmt.Errorf("publish container: %w", err)
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", fmt.Errorf("publish container: response has no id: %s", truncate(body))
	}
	return id, nil
}

// AssetAvailable reports whether videoURL answers a HEAD request with 2xx.
func (c *GraphClient) AssetAvailable(ctx context.Context, videoURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, videoURL, nil)
	if err != nil {
		return false, fmt.Errorf("build asset request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		// Unreachable hosts count as not yet available.
		return false, nil
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func (c *GraphClient) endpoint(path string) string {
	return c.BaseURL + "/" + c.Version + "/" + strings.TrimLeft(path, "/")
}

func (c *GraphClient) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	form.Set("access_token", c.AccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *GraphClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	query.Set("access_token", c.AccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path)+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *GraphClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 || gjson.GetBytes(body, "error").Exists() {
		return nil, parseGraphError(resp.StatusCode, body)
	}
	return body, nil
}

func parseGraphError(status int, body []byte) *GraphError {
	e := gjson.GetBytes(body, "error")
	if !e.Exists() {
		return &GraphError{HTTPStatus: status, Message: truncate(body)}
	}
	return &GraphError{
		HTTPStatus: status,
		Code:       e.Get("code").Int(),
		Type:       e.Get("type").String(),
		Message:    e.Get("message").String(),
	}
}

// truncate keeps the first 200 runes of a response body for error messages.
func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if utf8.RuneCountInString(s) <= 200 {
		return s
	}
	return string([]rune(s)[:200]) + "..."
}

var _ API = (*GraphClient)(nil)
