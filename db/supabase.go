package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"essaycoach/models"
)

// SupabaseStore writes analysis rows through the PostgREST API.
type SupabaseStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type reqConfig struct {
	Method  string
	URL     string
	Params  url.Values
	Headers map[string]string
	Body    []byte
}

func NewSupabaseStore(projectURL, serviceRoleKey, table string, client *http.Client) *SupabaseStore {
	if client == nil {
		client = http.DefaultClient
	}
	if table == "" {
		table = analysesCollection
	}
	base := strings.TrimRight(strings.TrimSpace(projectURL), "/")
	return &SupabaseStore{
		baseURL: fmt.Sprintf("%s/rest/v1/%s", base, table),
		apiKey:  serviceRoleKey,
		client:  client,
	}
}

func (s *SupabaseStore) request(ctx context.Context, config reqConfig, expectedResCode int) ([]byte, error) {
	target := config.URL
	if len(config.Params) > 0 {
		target += "?" + config.Params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, config.Method, target, bytes.NewReader(config.Body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != expectedResCode {
		return nil, fmt.Errorf("unexpected response status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (s *SupabaseStore) Insert(ctx context.Context, rec models.AnalysisRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = s.request(ctx, reqConfig{
		Method:  http.MethodPost,
		URL:     s.baseURL,
		Headers: map[string]string{"Prefer": "return=minimal"},
		Body:    body},
		http.StatusCreated)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

func (s *SupabaseStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.AnalysisRecord, error) {
	params := url.Values{}
	params.Set("user_id", "eq."+userID)
	params.Set("order", "created_at.desc")
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	body, err := s.request(ctx, reqConfig{
		Method: http.MethodGet,
		URL:    s.baseURL,
		Params: params},
		http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	records := []models.AnalysisRecord{}
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to decode analyses: %w", err)
	}
	return records, nil
}

func (s *SupabaseStore) Close(context.Context) error { return nil }
