package gocardless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"famfin-server/src/models"
	"famfin-server/src/pipeline"
)

const (
	DefaultBaseURL = "https://bankaccountdata.gocardless.com"

	tokenSafetyMargin = time.Minute
	maxErrorBody      = 512
)

// Client talks to the GoCardless Bank Account Data API.
type Client struct {
	baseURL   string
	secretID  string
	secretKey string
	http      *http.Client
	now       func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewClient(baseURL, secretID, secretKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretID:  secretID,
		secretKey: secretKey,
		http:      httpClient,
		now:       time.Now,
	}
}

type tokenResponse struct {
	Access        string `json:"access"`
	AccessExpires int    `json:"access_expires"`
}

type AccountDetails struct {
	Currency string `json:"currency"`
	Name     string `json:"name"`
	Product  string `json:"product"`
	IBAN     string `json:"iban"`
}

type transactionsResponse struct {
	Transactions struct {
		Booked  []models.GoCardlessTransaction `json:"booked"`
		Pending []models.GoCardlessTransaction `json:"pending"`
	} `json:"transactions"`
}

func apiError(op string, err error) error {
	return &pipeline.ProviderAPIError{Provider: models.ProviderGoCardless, Op: op, Err: err}
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	body, _ := json.Marshal(map[string]string{
		"secret_id":  c.secretID,
		"secret_key": c.secretKey,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/token/new/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var tok tokenResponse
	if err := c.do(req, &tok); err != nil {
		return "", apiError("token new", err)
	}
	c.accessToken = tok.Access
	c.expiresAt = c.now().Add(time.Duration(tok.AccessExpires)*time.Second - tokenSafetyMargin)
	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

// get performs an authorized GET, refreshing the token once on 401.
func (c *Client) get(ctx context.Context, op, path string, out interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.token(ctx)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return apiError(op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		err = c.do(req, out)
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusUnauthorized && attempt == 0 {
			c.invalidateToken()
			continue
		}
		if err != nil {
			return apiError(op, err)
		}
		return nil
	}
	return apiError(op, errors.New("unauthorized"))
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) AccountDetails(ctx context.Context, accountID string) (*AccountDetails, error) {
	var resp struct {
		Account AccountDetails `json:"account"`
	}
	if err := c.get(ctx, "account details", "/api/v2/accounts/"+url.PathEscape(accountID)+"/details/", &resp); err != nil {
		return nil, err
	}
	return &resp.Account, nil
}

// Transactions returns the booked entries followed by the pending ones.
func (c *Client) Transactions(ctx context.Context, accountID string) ([]models.GoCardlessTransaction, error) {
	var resp transactionsResponse
	if err := c.get(ctx, "account transactions", "/api/v2/accounts/"+url.PathEscape(accountID)+"/transactions/", &resp); err != nil {
		return nil, err
	}
	txns := make([]models.GoCardlessTransaction, 0, len(resp.Transactions.Booked)+len(resp.Transactions.Pending))
	txns = append(txns, resp.Transactions.Booked...)
	for _, p := range resp.Transactions.Pending {
		p.Pending = true
		txns = append(txns, p)
	}
	return txns, nil
}

// Fetch implements the sync fetcher. GoCardless has no cursor, so the whole
// available history is returned and deduplication drops what is known.
func (c *Client) Fetch(ctx context.Context, account models.Account) ([]models.RawTransaction, string, error) {
	txns, err := c.Transactions(ctx, account.ProviderAccountID)
	if err != nil {
		return nil, "", err
	}
	batch := make([]models.RawTransaction, len(txns))
	for i := range txns {
		batch[i] = txns[i]
	}
	return batch, "", nil
}
