// Package api is the REST client for the bookworm backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bookworm/internal/domain"

	"github.com/google/uuid"
)

const defaultTimeout = 20 * time.Second

// TokenSource returns the current bearer token, or "" when signed out.
type TokenSource func() string

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        *slog.Logger
}

func NewClient(
	baseURL string,
	timeout time.Duration,
	tokens TokenSource,
	log *slog.Logger,
) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if tokens == nil {
		tokens = func() string { return "" }
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		log:        log,
	}
}

// Credentials is the body of a successful register or login response.
type Credentials struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// BookPage is one page of the community feed.
type BookPage struct {
	Books      []domain.Book `json:"books"`
	TotalPages int           `json:"totalPages"`
}

func (c *Client) Register(
	ctx context.Context,
	username string,
	email string,
	password string,
) (Credentials, error) {
	body := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}

	var creds Credentials
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &creds); err != nil {
		return Credentials{}, err
	}

	return creds, nil
}

func (c *Client) Login(
	ctx context.Context,
	email string,
	password string,
) (Credentials, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var creds Credentials
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &creds); err != nil {
		return Credentials{}, err
	}

	return creds, nil
}

func (c *Client) FetchBooks(
	ctx context.Context,
	page int,
	limit int,
) (BookPage, error) {
	path := fmt.Sprintf("/api/books?page=%d&limit=%d", page, limit)

	var result BookPage
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return BookPage{}, err
	}

	return result, nil
}

// FetchUserBooks returns only the caller's own books.
func (c *Client) FetchUserBooks(ctx context.Context) ([]domain.Book, error) {
	var result struct {
		Books []domain.Book `json:"books"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/books/user", nil, &result); err != nil {
		return nil, err
	}

	return result.Books, nil
}

// CreateBook publishes a recommendation. imageDataURL is a base64 data URL
// produced by the caller.
func (c *Client) CreateBook(
	ctx context.Context,
	title string,
	caption string,
	rating int,
	imageDataURL string,
) (domain.Book, error) {
	body := map[string]any{
		"title":   title,
		"caption": caption,
		"rating":  rating,
		"image":   imageDataURL,
	}

	var book domain.Book
	if err := c.do(ctx, http.MethodPost, "/api/books", body, &book); err != nil {
		return domain.Book{}, err
	}

	return book, nil
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/books/"+id, nil, nil)
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	out any,
) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// A missing token is not an error here; the server answers 401 and
	// that surfaces as a normal *ServerError.
	if token := c.tokens(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr,
				"method", method,
				"path", path,
				"requestID", requestID)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.log.WarnContext(ctx, "Server returned an error status",
			"status", resp.StatusCode,
			"method", method,
			"path", path,
			"requestID", requestID)

		return &ServerError{
			Status:  resp.StatusCode,
			Message: extractMessage(data),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Err: err}
	}

	return nil
}

func extractMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}

	return strings.TrimSpace(payload.Message)
}
