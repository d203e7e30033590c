package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"tritonhub/errs"
)

// Supabase talks to a hosted Supabase project: PostgREST for rows, GoTrue
// for identity, the realtime socket for change feeds.
type Supabase struct {
	baseURL     string
	anonKey     string
	accessToken string
	httpClient  *http.Client

	authEvents chan AuthEvent
}

func NewSupabase(rawURL, anonKey string) *Supabase {
	if rawURL != "" && !strings.HasPrefix(rawURL, "http") {
		rawURL = "https://" + rawURL
	}
	return &Supabase{
		baseURL: strings.TrimRight(rawURL, "/"),
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		authEvents: make(chan AuthEvent, 8),
	}
}

// Configured reports whether the project credentials are present at all.
func (s *Supabase) Configured() bool {
	return s.baseURL != "" && s.anonKey != ""
}

// WithToken returns a copy bound to a signed-in identity's access token.
// The copy shares the transport and the auth event stream; only the
// bearer differs.
func (s *Supabase) WithToken(token string) *Supabase {
	clone := *s
	clone.accessToken = token
	return &clone
}

func (s *Supabase) bearer() string {
	if s.accessToken != "" {
		return s.accessToken
	}
	return s.anonKey
}

func (s *Supabase) restRequest(ctx context.Context, method, endpoint string, body any, headers map[string]string) ([]byte, http.Header, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+s.bearer())
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, resp.Header, errs.DecodeRemote(resp.StatusCode, respBody)
	}
	return respBody, resp.Header, nil
}

// queryString renders filters/order/limit as PostgREST query parameters.
// Filters are sorted so the same query always builds the same URL.
func queryString(f Filter, order []Order, limit int) string {
	params := url.Values{}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		params.Add(k, "eq."+f[k])
	}
	if len(order) > 0 {
		parts := make([]string, 0, len(order))
		for _, o := range order {
			dir := ".desc"
			if o.Ascending {
				dir = ".asc"
			}
			parts = append(parts, o.Column+dir)
		}
		params.Add("order", strings.Join(parts, ","))
	}
	if limit > 0 {
		params.Add("limit", strconv.Itoa(limit))
	}
	if encoded := params.Encode(); encoded != "" {
		return "?" + encoded
	}
	return ""
}

func (s *Supabase) Select(ctx context.Context, table string, f Filter, order []Order, limit int) ([]Row, error) {
	body, _, err := s.restRequest(ctx, "GET", "/rest/v1/"+table+queryString(f, order, limit), nil, nil)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", table, err)
	}
	return rows, nil
}

func (s *Supabase) Insert(ctx context.Context, table string, row Row) (Row, error) {
	body, _, err := s.restRequest(ctx, "POST", "/rest/v1/"+table, row, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s returned no representation", table)
	}
	return rows[0], nil
}

func (s *Supabase) Update(ctx context.Context, table string, f Filter, patch Row) error {
	_, _, err := s.restRequest(ctx, "PATCH", "/rest/v1/"+table+queryString(f, nil, 0), patch, nil)
	return err
}

func (s *Supabase) Delete(ctx context.Context, table string, f Filter) error {
	_, _, err := s.restRequest(ctx, "DELETE", "/rest/v1/"+table+queryString(f, nil, 0), nil, nil)
	return err
}

func (s *Supabase) Count(ctx context.Context, table string, f Filter) (int, error) {
	query := queryString(f, nil, 0)
	if query == "" {
		query = "?select=id"
	} else {
		query += "&select=id"
	}
	_, header, err := s.restRequest(ctx, "HEAD", "/rest/v1/"+table+query, nil, map[string]string{
		"Prefer": "count=exact",
	})
	if err != nil {
		return 0, err
	}
	// Content-Range looks like "0-24/3573"; the total is after the slash.
	contentRange := header.Get("Content-Range")
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 {
		return 0, fmt.Errorf("count of %s: missing content range", table)
	}
	total, err := strconv.Atoi(contentRange[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("count of %s: bad content range %q", table, contentRange)
	}
	return total, nil
}
