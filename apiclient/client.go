// Package apiclient is a Go client for the factures REST API.
//
// A Client knows where the API lives; a Session is a Client bound to one bearer
// credential. Every failure, from the server or from the transport, is returned
// as an *APIError.
package apiclient

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
	"time"

	"github.com/fullmargin/factures/ledger"
	"github.com/fullmargin/factures/models"
	"github.com/shopspring/decimal"
)

// APIError is a failed call. Status is 0 when the server could not be reached.
type APIError struct {
	Status  int
	Message string
	Code    string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("apiclient: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("apiclient: %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL, e.g. "http://localhost:3000/api".
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &APIError{Message: "invalid request body", Err: err}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &APIError{Message: "invalid request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Message: "unable to reach the server", Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Err: err}
		}
		return &APIError{Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	if resp.StatusCode >= 400 || !env.Success {
		message := env.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: message, Code: env.Code}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &APIError{Status: resp.StatusCode, Message: "malformed response", Err: err}
		}
	}
	return nil
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
}

type authPayload struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	var payload authPayload
	if err := c.do(ctx, "", http.MethodPost, "/auth/register", in, &payload); err != nil {
		return nil, err
	}
	return c.session(payload), nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var payload authPayload
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, "", http.MethodPost, "/auth/login", body, &payload); err != nil {
		return nil, err
	}
	return c.session(payload), nil
}

func (c *Client) session(p authPayload) *Session {
	return &Session{client: c, token: p.Token, refreshToken: p.RefreshToken, User: p.User}
}

// Session carries one user's credential on every call made through it.
type Session struct {
	client       *Client
	token        string
	refreshToken string

	// User is the account returned at login or registration.
	User *models.User
}

// WithToken returns a session using an access token obtained elsewhere.
func (c *Client) WithToken(token string) *Session {
	return &Session{client: c, token: token}
}

func (s *Session) Token() string { return s.token }

func (s *Session) do(ctx context.Context, method, path string, body, out any) error {
	return s.client.do(ctx, s.token, method, path, body, out)
}

// Refresh exchanges the session's refresh token for a new credential pair.
func (s *Session) Refresh(ctx context.Context) error {
	var payload authPayload
	body := map[string]string{"refresh_token": s.refreshToken}
	if err := s.client.do(ctx, "", http.MethodPost, "/auth/refresh", body, &payload); err != nil {
		return err
	}
	s.token = payload.Token
	s.refreshToken = payload.RefreshToken
	return nil
}

func (s *Session) Profile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.do(ctx, http.MethodGet, "/auth/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type CreateInvoiceInput struct {
	MerchantID  uint            `json:"merchant_id"`
	Amount      decimal.Decimal `json:"amount"`
	IssueDate   string          `json:"issue_date"`
	DueDate     string          `json:"due_date"`
	Description string          `json:"description,omitempty"`
}

type UpdateInvoiceInput struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	DueDate     *string          `json:"due_date,omitempty"`
	Description *string          `json:"description,omitempty"`
}

func (s *Session) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.do(ctx, http.MethodPost, "/factures", in, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListInvoices returns the caller's invoices; status may be empty.
func (s *Session) ListInvoices(ctx context.Context, status models.InvoiceStatus) ([]models.Invoice, error) {
	path := "/factures"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var invoices []models.Invoice
	if err := s.do(ctx, http.MethodGet, path, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Session) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/factures/%d", id), nil, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *Session) UpdateInvoice(ctx context.Context, id uint, in UpdateInvoiceInput) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("/factures/%d", id), in, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *Session) DeleteInvoice(ctx context.Context, id uint) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/factures/%d", id), nil, nil)
}

func (s *Session) Summary(ctx context.Context) (*ledger.Summary, error) {
	var summary ledger.Summary
	if err := s.do(ctx, http.MethodGet, "/factures/stats", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Session) Pay(ctx context.Context, invoiceID uint, amount decimal.Decimal, phoneNumber string) (*ledger.PaymentResult, error) {
	body := map[string]any{"invoice_id": invoiceID, "amount": amount, "phone_number": phoneNumber}
	var result ledger.PaymentResult
	if err := s.do(ctx, http.MethodPost, "/paiements/payer", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Session) PaymentHistory(ctx context.Context) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	if err := s.do(ctx, http.MethodGet, "/paiements/historique", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Session) InvoicePayments(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/paiements/facture/%d", invoiceID), nil, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

type ClientInput struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

func (s *Session) CreateClient(ctx context.Context, in ClientInput) (*models.Client, error) {
	var client models.Client
	if err := s.do(ctx, http.MethodPost, "/clients", in, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Session) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := s.do(ctx, http.MethodGet, "/clients", nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *Session) UpdateClient(ctx context.Context, id uint, in ClientInput) (*models.Client, error) {
	var client models.Client
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("/clients/%d", id), in, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Session) DeleteClient(ctx context.Context, id uint) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/clients/%d", id), nil, nil)
}

type Notifications struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

func (s *Session) Notifications(ctx context.Context) (*Notifications, error) {
	var list Notifications
	if err := s.do(ctx, http.MethodGet, "/notifications", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *Session) MarkNotificationRead(ctx context.Context, id uint) error {
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/notifications/%d/lire", id), nil, nil)
}

func (s *Session) MarkAllNotificationsRead(ctx context.Context) error {
	return s.do(ctx, http.MethodPut, "/notifications/lire-toutes", nil, nil)
}

func (s *Session) DeleteNotification(ctx context.Context, id uint) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/notifications/%d", id), nil, nil)
}
