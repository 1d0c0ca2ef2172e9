package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"campaignmap/internal"
	"campaignmap/internal/config"
)

const maxAttempts = 5

var ErrMissingToken = errors.New("missing TEMPLATE_CATALOG_TOKEN")

// Client reads shared mapping templates from a remote catalog service.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type templatePage struct {
	Templates  []remoteTemplate `json:"templates"`
	NextCursor *string          `json:"nextCursor"`
}

type remoteTemplate struct {
	ID      string                    `json:"id"`
	Name    string                    `json:"name"`
	Mapping map[string]string         `json:"mapping"`
	Labels  map[internal.Field]string `json:"labels"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TemplateCatalogTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.TemplateCatalogRPS),
	}
}

// FetchTemplates walks every page of the catalog. Entries without an id or
// with unknown fields in their mapping are skipped.
func (c *Client) FetchTemplates(ctx context.Context) ([]internal.Template, error) {
	var out []internal.Template
	seen := map[string]struct{}{}
	cursor := ""

	for {
		query := map[string]string{}
		if cursor != "" {
			query["cursor"] = cursor
		}

		body, err := c.fetchJSON(ctx, "templates", query)
		if err != nil {
			return nil, err
		}

		var page templatePage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, errors.Wrap(err, "decode template page")
		}
		for _, raw := range page.Templates {
			tpl, err := toTemplate(raw)
			if err != nil {
				continue
			}
			out = append(out, tpl)
		}

		if page.NextCursor == nil || *page.NextCursor == "" || len(page.Templates) == 0 {
			break
		}
		if _, ok := seen[*page.NextCursor]; ok {
			break
		}
		seen[*page.NextCursor] = struct{}{}
		cursor = *page.NextCursor
	}

	return out, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.TemplateCatalogToken) == "" {
		return nil, ErrMissingToken
	}

	baseURL := strings.TrimRight(c.cfg.TemplateCatalogURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "catalog url")
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.TemplateCatalogToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
				lastErr = fmt.Errorf("catalog status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("catalog api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, errors.Wrap(err, "decode catalog response")
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("catalog api unsuccessful: %s %s", apiResp.Message, string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("catalog request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func toTemplate(raw remoteTemplate) (internal.Template, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return internal.Template{}, errors.New("missing id")
	}

	mapping := internal.Mapping{}
	for key, header := range raw.Mapping {
		field := internal.Field(key)
		if !field.Valid() {
			return internal.Template{}, fmt.Errorf("template %s: unknown field %q", id, key)
		}
		if header = strings.TrimSpace(header); header != "" {
			mapping[field] = header
		}
	}

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = id
	}
	return internal.Template{ID: id, DisplayName: name, FieldMapping: mapping, FieldLabels: raw.Labels}, nil
}
