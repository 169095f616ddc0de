package livesync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

// NewHTTPClient returns a client with a cookie jar, so a staff session
// obtained by Login is sent on every later request, websocket dials
// included. Calls are bounded only by the caller's context.
func NewHTTPClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar}
}

// Login opens a staff session on the backend at base.
func Login(ctx context.Context, hc *http.Client, base, username, password string) error {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/api/staff/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logging in: status %d", resp.StatusCode)
	}
	return nil
}

// RemoteTable talks to the backend's REST endpoints for one table.
type RemoteTable[T Record] struct {
	base  string
	table string
	hc    *http.Client
}

func NewRemoteTable[T Record](hc *http.Client, base, table string) *RemoteTable[T] {
	if hc == nil {
		hc = NewHTTPClient()
	}
	return &RemoteTable[T]{base: strings.TrimRight(base, "/"), table: table, hc: hc}
}

func (r *RemoteTable[T]) url(id string) string {
	u := r.base + "/api/" + r.table
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

func (r *RemoteTable[T]) do(ctx context.Context, method, u string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Mutation failures still carry an envelope, so decode before looking
	// at the status code.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%s %s: status %d", method, u, resp.StatusCode)
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (r *RemoteTable[T]) FetchAll(ctx context.Context) ([]T, error) {
	var env struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Data    []T    `json:"data"`
	}
	if err := r.do(ctx, http.MethodGet, r.url(""), nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, errors.New(env.Error)
	}
	return env.Data, nil
}

func (r *RemoteTable[T]) mutate(ctx context.Context, method, id string, body any) MutationResult[T] {
	var res MutationResult[T]
	if err := r.do(ctx, method, r.url(id), body, &res); err != nil {
		return MutationResult[T]{Error: err.Error()}
	}
	if !res.Success && res.Error == "" {
		res.Error = "request rejected"
	}
	return res
}

func (r *RemoteTable[T]) Create(ctx context.Context, fields map[string]any) MutationResult[T] {
	return r.mutate(ctx, http.MethodPost, "", fields)
}

func (r *RemoteTable[T]) Update(ctx context.Context, id string, fields map[string]any) MutationResult[T] {
	return r.mutate(ctx, http.MethodPatch, id, fields)
}

func (r *RemoteTable[T]) Delete(ctx context.Context, id string) MutationResult[T] {
	return r.mutate(ctx, http.MethodDelete, id, nil)
}
