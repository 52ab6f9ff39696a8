// Package supa wraps the Supabase hosted backend for InterviewDeck.
//
// It covers the read-only companies/test_menus tables consumed by the
// loaders, the admin write path that creates an auth identity plus a profile
// row, and the storage buckets holding flow JSON blobs and interview
// recordings.
package supa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/BTreeMap/InterviewDeck/internal/models"
	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
)

// Default bucket names, overridable via options or environment.
const (
	DefaultFlowBucket       = "flow-data"
	DefaultRecordingsBucket = "interview-recordings"
)

// DefaultProbeBytes is the size of the byte-range metadata probe.
const DefaultProbeBytes = 512

// Opts holds configuration options for the Supabase client.
type Opts struct {
	URL              string
	ServiceKey       string
	FlowBucket       string
	RecordingsBucket string
}

// Option defines a configuration option for the Supabase client.
type Option func(*Opts)

// WithURL sets the Supabase project URL.
func WithURL(url string) Option {
	return func(o *Opts) { o.URL = url }
}

// WithServiceKey sets the service role key used for admin operations.
func WithServiceKey(key string) Option {
	return func(o *Opts) { o.ServiceKey = key }
}

// WithFlowBucket sets the bucket holding per-company flow JSON blobs.
func WithFlowBucket(bucket string) Option {
	return func(o *Opts) { o.FlowBucket = bucket }
}

// WithRecordingsBucket sets the bucket receiving interview recordings.
func WithRecordingsBucket(bucket string) Option {
	return func(o *Opts) { o.RecordingsBucket = bucket }
}

// Client wraps the Supabase API client.
type Client struct {
	sb               *supabase.Client
	flowBucket       string
	recordingsBucket string
	httpClient       *http.Client
}

// NewClient creates a Supabase client from options, falling back to the
// SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY environment variables.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.URL == "" {
		cfg.URL = os.Getenv("SUPABASE_URL")
	}
	if cfg.ServiceKey == "" {
		cfg.ServiceKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	}
	if cfg.FlowBucket == "" {
		cfg.FlowBucket = DefaultFlowBucket
	}
	if cfg.RecordingsBucket == "" {
		cfg.RecordingsBucket = DefaultRecordingsBucket
	}
	slog.Debug("Supabase client config loaded",
		"URL_set", cfg.URL != "",
		"ServiceKey_set", cfg.ServiceKey != "",
		"flow_bucket", cfg.FlowBucket,
		"recordings_bucket", cfg.RecordingsBucket)

	if cfg.URL == "" || cfg.ServiceKey == "" {
		return nil, fmt.Errorf("supabase URL and service key must be provided")
	}

	sb, err := supabase.NewClient(cfg.URL, cfg.ServiceKey, nil)
	if err != nil {
		slog.Error("Failed to create Supabase client", "error", err)
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{
		sb:               sb,
		flowBucket:       cfg.FlowBucket,
		recordingsBucket: cfg.RecordingsBucket,
		httpClient:       &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Companies fetches all rows of the companies table. The underlying client
// does not support request cancellation; ctx bounds only the wrapper's
// lifetime expectations.
func (c *Client) Companies(ctx context.Context) ([]models.CompanyRow, error) {
	var rows []models.CompanyRow
	_, err := c.sb.From("companies").Select("id,name", "", false).ExecuteTo(&rows)
	if err != nil {
		slog.Error("Client.Companies: query failed", "error", err)
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	slog.Debug("Client.Companies: fetched rows", "count", len(rows))
	return rows, nil
}

// Menu fetches the first test_menus row for companyID. Returns (nil, nil)
// when the company has no menu rows.
func (c *Client) Menu(ctx context.Context, companyID string) (*models.MenuRow, error) {
	var rows []models.MenuRow
	_, err := c.sb.From("test_menus").
		Select("company_id,menu_json,updated_at", "", false).
		Eq("company_id", companyID).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		slog.Error("Client.Menu: query failed", "error", err, "company_id", companyID)
		return nil, fmt.Errorf("failed to query test menu for %s: %w", companyID, err)
	}
	if len(rows) == 0 {
		slog.Debug("Client.Menu: no menu rows", "company_id", companyID)
		return nil, nil
	}
	slog.Debug("Client.Menu: fetched menu row", "company_id", companyID, "updated_at", rows[0].UpdatedAt)
	return &rows[0], nil
}

// profileRow mirrors the hosted profiles table.
type profileRow struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
}

// CreateUserWithProfile creates an auth identity plus the corresponding
// profile row and returns the new user ID. This is the one admin write path;
// unlike the loaders its errors surface to the caller.
func (c *Client) CreateUserWithProfile(ctx context.Context, req models.CreateUserRequest) (string, error) {
	role := req.Role
	if role == "" {
		role = models.RoleCandidate
	}

	password := req.Password
	resp, err := c.sb.Auth.AdminCreateUser(types.AdminCreateUserRequest{
		Email:        req.Email,
		Password:     &password,
		EmailConfirm: true,
		UserMetadata: map[string]interface{}{"full_name": req.FullName},
	})
	if err != nil {
		slog.Error("Client.CreateUserWithProfile: auth create failed", "error", err, "email", req.Email)
		return "", fmt.Errorf("failed to create auth user: %w", err)
	}
	userID := resp.ID.String()

	profile := profileRow{
		ID:        userID,
		Email:     req.Email,
		FullName:  req.FullName,
		Role:      string(role),
		CompanyID: req.CompanyID,
	}
	_, _, err = c.sb.From("profiles").Insert(profile, false, "", "", "").Execute()
	if err != nil {
		slog.Error("Client.CreateUserWithProfile: profile insert failed", "error", err, "user_id", userID)
		return "", fmt.Errorf("failed to insert profile for %s: %w", userID, err)
	}

	slog.Info("Client.CreateUserWithProfile: user created", "user_id", userID, "role", role)
	return userID, nil
}

// SignedFlowURL returns a signed, time-limited URL for a company's flow JSON
// blob in the flow bucket.
func (c *Client) SignedFlowURL(ctx context.Context, fileName string, expiresIn time.Duration) (string, error) {
	resp, err := c.sb.Storage.CreateSignedUrl(c.flowBucket, fileName, int(expiresIn.Seconds()))
	if err != nil {
		slog.Error("Client.SignedFlowURL: signing failed", "error", err, "file", fileName)
		return "", fmt.Errorf("failed to sign flow URL for %s: %w", fileName, err)
	}
	return resp.SignedURL, nil
}

// ProbeFlowMetadata performs a partial byte-range read against a signed flow
// URL, returning the leading bytes of the blob. Feature-flagged by callers.
func (c *Client) ProbeFlowMetadata(ctx context.Context, signedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build probe request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", DefaultProbeBytes-1))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Client.ProbeFlowMetadata: request failed", "error", err)
		return nil, fmt.Errorf("flow metadata probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		slog.Warn("Client.ProbeFlowMetadata: unexpected status", "status", resp.StatusCode)
		return nil, fmt.Errorf("flow metadata probe returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, DefaultProbeBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read probe response: %w", err)
	}
	slog.Debug("Client.ProbeFlowMetadata: probe succeeded", "bytes", len(data))
	return data, nil
}

// UploadRecording stores a finalized interview recording in the recordings
// bucket and returns its storage reference.
func (c *Client) UploadRecording(ctx context.Context, name string, r io.Reader) (string, error) {
	_, err := c.sb.Storage.UploadFile(c.recordingsBucket, name, r)
	if err != nil {
		slog.Error("Client.UploadRecording: upload failed", "error", err, "name", name)
		return "", fmt.Errorf("failed to upload recording %s: %w", name, err)
	}
	ref := c.recordingsBucket + "/" + name
	slog.Info("Client.UploadRecording: recording stored", "ref", ref)
	return ref, nil
}
