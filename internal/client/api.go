// Package client talks to the table service on behalf of bingoctl.
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
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/avvvet/buffet-bingo/internal/identity"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/scoreboard"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/service"
)

type envelope struct {
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// APIError is a non-2xx answer from the table service.
type APIError struct {
	Status  int
	Message string
	Data    json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response (%s): %w", method, path, resp.Status, err)
	}
	if resp.StatusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return &APIError{Status: resp.StatusCode, Message: msg, Data: env.Data}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

type SignedIn struct {
	Token     string           `json:"token"`
	Principal models.Principal `json:"principal"`
}

type TableInfo struct {
	Table    *models.Table `json:"table"`
	ShareURL string        `json:"share_url"`
}

type Submitted struct {
	Player  *models.Player `json:"player"`
	Verdict string         `json:"verdict"`
}

type MigrationResult struct {
	Migration *service.Migration `json:"migration"`
	Token     string             `json:"token,omitempty"`
}

func (c *Client) SignInAnonymous(ctx context.Context) (*SignedIn, error) {
	var out SignedIn
	return &out, c.doJSON(ctx, http.MethodPost, "/v1/auth/anonymous", nil, &out)
}

func (c *Client) SignIn(ctx context.Context, cred identity.Credential) (*SignedIn, error) {
	var out SignedIn
	return &out, c.doJSON(ctx, http.MethodPost, "/v1/auth/signin", cred, &out)
}

func (c *Client) Link(ctx context.Context, cred identity.Credential) (*SignedIn, error) {
	var out SignedIn
	return &out, c.doJSON(ctx, http.MethodPost, "/v1/auth/link", cred, &out)
}

func (c *Client) Migrate(ctx context.Context, tableID string, cred identity.Credential, confirmed bool) (*MigrationResult, error) {
	in := map[string]interface{}{"table_id": tableID, "credential": cred, "confirmed": confirmed}
	var out MigrationResult
	err := c.doJSON(ctx, http.MethodPost, "/v1/migrations", in, &out)
	// a failed migration can still carry the migration state and a new token
	var apiErr *APIError
	if errors.As(err, &apiErr) && len(apiErr.Data) > 0 {
		_ = json.Unmarshal(apiErr.Data, &out)
	}
	return &out, err
}

func (c *Client) CreateTable(ctx context.Context, req service.CreateTableRequest) (*TableInfo, error) {
	var out TableInfo
	return &out, c.doJSON(ctx, http.MethodPost, "/v1/tables", req, &out)
}

func (c *Client) JoinTable(ctx context.Context, req service.JoinRequest) (*TableInfo, error) {
	var out TableInfo
	return &out, c.doJSON(ctx, http.MethodPost, "/v1/tables/join", req, &out)
}

func (c *Client) Table(ctx context.Context, tableID string) (*scoreboard.View, error) {
	var out scoreboard.View
	return &out, c.doJSON(ctx, http.MethodGet, "/v1/tables/"+url.PathEscape(tableID), nil, &out)
}

func (c *Client) CloseTable(ctx context.Context, tableID string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/tables/"+url.PathEscape(tableID)+"/close", nil, nil)
}

func (c *Client) DeleteTable(ctx context.Context, tableID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/tables/"+url.PathEscape(tableID), nil, nil)
}

func (c *Client) DeletePlayer(ctx context.Context, tableID, uid string) error {
	path := "/v1/tables/" + url.PathEscape(tableID) + "/players/" + url.PathEscape(uid)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) ShareLink(ctx context.Context, tableID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/v1/tables/"+url.PathEscape(tableID)+"/share", nil, &out)
	return out.URL, err
}

func (c *Client) MyTables(ctx context.Context) ([]*models.Table, error) {
	var out []*models.Table
	if err := c.doJSON(ctx, http.MethodGet, "/v1/me/tables", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) HallOfFame(ctx context.Context, limit int) ([]*models.HallOfFameEntry, error) {
	var out []*models.HallOfFameEntry
	if err := c.doJSON(ctx, http.MethodGet, "/v1/hall-of-fame?limit="+strconv.Itoa(limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddToHallOfFame(ctx context.Context, tableID string) (*models.HallOfFameEntry, error) {
	var out models.HallOfFameEntry
	return &out, c.doJSON(ctx, http.MethodPost, "/v1/tables/"+url.PathEscape(tableID)+"/hall-of-fame", nil, &out)
}

// SubmitScore uploads the rating and the photo as a multipart form.
func (c *Client) SubmitScore(ctx context.Context, tableID string, b models.Breakdown, badges []string, photo []byte, photoName string) (*Submitted, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]int{"taste": b.Taste, "cohesion": b.Cohesion, "regret": b.Regret, "waste": b.Waste}
	for name, v := range fields {
		if err := mw.WriteField(name, strconv.Itoa(v)); err != nil {
			return nil, err
		}
	}
	for _, badge := range badges {
		if err := mw.WriteField("badges", badge); err != nil {
			return nil, err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename="%s"`, filepath.Base(photoName)))
	header.Set("Content-Type", http.DetectContentType(photo))
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(photo); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out Submitted
	path := "/v1/tables/" + url.PathEscape(tableID) + "/scores"
	return &out, c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), &out)
}
