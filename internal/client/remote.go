package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/GophLedger/internal/models"
	"github.com/atinyakov/GophLedger/internal/service"
)

const (
	apiRegister = "/api/register"
	apiLogin    = "/api/login"
	apiExpenses = "/api/expenses"
	apiSummary  = "/api/summary"
	apiExport   = "/api/export"
)

// NewHTTPClient returns a client that trusts the certificates in caFile in
// addition to the system pool. An empty caFile keeps the defaults.
func NewHTTPClient(caFile string) (*http.Client, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	if caFile == "" {
		return client, nil
	}
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool, err := x509.SystemCertPool()
	if err != nil {
		caPool = x509.NewCertPool()
	}
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: caPool, MinVersion: tls.VersionTLS12},
	}
	return client, nil
}

// Remote talks to a running server over its JSON API.
type Remote struct {
	BaseURL string
	Client  *http.Client
}

// NewRemote returns a Remote for baseURL. A nil client means http.DefaultClient.
func NewRemote(baseURL string, client *http.Client) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

// Register creates an account on the server.
func (r *Remote) Register(ctx context.Context, username, password, confirm string) error {
	payload := map[string]string{"username": username, "password": password, "confirm": confirm}
	return r.do(ctx, http.MethodPost, apiRegister, "", payload, nil)
}

// Login exchanges the credentials for a bearer token.
func (r *Remote) Login(ctx context.Context, username, password string) (Session, error) {
	payload := map[string]string{"username": username, "password": password}
	var resp struct {
		User  string `json:"user"`
		Token string `json:"token"`
	}
	if err := r.do(ctx, http.MethodPost, apiLogin, "", payload, &resp); err != nil {
		return nil, err
	}
	return &remoteSession{remote: r, user: models.Username(resp.User), token: resp.Token}, nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (r *Remote) do(ctx context.Context, method, path, token string, in, out any) error {
	resp, err := r.send(ctx, method, path, token, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// send performs the request and turns non-2xx replies into errors of the
// matching kind. The caller closes the body of a successful response.
func (r *Remote) send(ctx context.Context, method, path, token string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return nil, statusError(resp.StatusCode, strings.TrimSpace(string(data)))
}

// knownErrors are matched against the server's message text.
var knownErrors = []error{
	models.ErrEmptyInput,
	models.ErrMismatch,
	models.ErrInvalidUsername,
	models.ErrInvalidAmount,
	models.ErrEmptyDescription,
	models.ErrInvalidMonth,
	models.ErrExpenseNotFound,
	models.ErrNoExpenses,
	models.ErrAlreadyExists,
	models.ErrInvalidCredentials,
}

// statusError rebuilds an error of the kind the server mapped to code, so
// callers can use errors.Is on remote failures the same way as on local ones.
func statusError(code int, msg string) error {
	var kind error
	switch code {
	case http.StatusBadRequest:
		kind = models.ErrValidation
	case http.StatusNotFound:
		kind = models.ErrNotFound
	case http.StatusConflict:
		kind = models.ErrAlreadyExists
	case http.StatusUnauthorized:
		kind = models.ErrAuth
	default:
		return fmt.Errorf("server error %d: %s", code, msg)
	}
	for _, known := range knownErrors {
		if errors.Is(known, kind) && strings.HasPrefix(msg, known.Error()) {
			if rest := strings.TrimPrefix(msg, known.Error()); rest != "" {
				return fmt.Errorf("%w%s", known, rest)
			}
			return known
		}
	}
	if msg == "" || strings.HasPrefix(msg, kind.Error()) {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, msg)
}

type remoteSession struct {
	remote *Remote
	user   models.Username
	token  string
}

func (s *remoteSession) User() models.Username { return s.user }

func (s *remoteSession) Add(ctx context.Context, description string, amount float64, category string) (models.Expense, error) {
	payload := map[string]any{"description": description, "amount": amount, "category": category}
	var exp models.Expense
	err := s.remote.do(ctx, http.MethodPost, apiExpenses, s.token, payload, &exp)
	return exp, err
}

func (s *remoteSession) List(ctx context.Context) (models.Expenses, error) {
	list := models.Expenses{}
	err := s.remote.do(ctx, http.MethodGet, apiExpenses, s.token, nil, &list)
	return list, err
}

func (s *remoteSession) Update(ctx context.Context, id int64, upd service.ExpenseUpdate) (models.Expense, error) {
	payload := map[string]any{}
	if upd.Description != nil {
		payload["description"] = *upd.Description
	}
	if upd.Amount != nil {
		payload["amount"] = *upd.Amount
	}
	var exp models.Expense
	err := s.remote.do(ctx, http.MethodPatch, expensePath(id), s.token, payload, &exp)
	return exp, err
}

func (s *remoteSession) Delete(ctx context.Context, id int64) (models.Expense, error) {
	var exp models.Expense
	err := s.remote.do(ctx, http.MethodDelete, expensePath(id), s.token, nil, &exp)
	return exp, err
}

func (s *remoteSession) Summarize(ctx context.Context, month int) (float64, error) {
	path := apiSummary
	if month != 0 {
		path += "?" + url.Values{"month": {strconv.Itoa(month)}}.Encode()
	}
	var resp struct {
		Total float64 `json:"total"`
	}
	err := s.remote.do(ctx, http.MethodGet, path, s.token, nil, &resp)
	return resp.Total, err
}

func (s *remoteSession) Export(ctx context.Context, path string) (int64, error) {
	resp, err := s.remote.send(ctx, http.MethodGet, apiExport, s.token, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, models.WrapIO("write export", err)
	}
	return int64(len(data)), nil
}

func expensePath(id int64) string {
	return apiExpenses + "/" + strconv.FormatInt(id, 10)
}
