package main

import (
	"context"
	"errors"
	"io"

	"github.com/BTreeMap/InterviewDeck/internal/models"
	"github.com/BTreeMap/InterviewDeck/internal/supa"
)

// errHostedStoreUnavailable stands in for the hosted store when Supabase is
// not configured; the loaders turn it into their usual fallbacks.
var errHostedStoreUnavailable = errors.New("hosted store is not configured")

type unavailableCompanySource struct{}

func (unavailableCompanySource) Companies(ctx context.Context) ([]models.CompanyRow, error) {
	return nil, errHostedStoreUnavailable
}

type unavailableMenuSource struct{}

func (unavailableMenuSource) Menu(ctx context.Context, companyID string) (*models.MenuRow, error) {
	return nil, errHostedStoreUnavailable
}

// supaRecordingStore adapts the hosted storage client to the interview
// manager's recording store.
type supaRecordingStore struct {
	client *supa.Client
}

func (s supaRecordingStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	return s.client.UploadRecording(ctx, name, r)
}
