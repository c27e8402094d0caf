// Package service holds the business logic sitting between the HTTP
// handlers and the repositories. The central piece is RefreshService, which
// runs the external data sync: fetch both sources concurrently, transform,
// upsert everything atomically, then regenerate the summary image.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/country-cache/internal/config"
	"github.com/iliyamo/country-cache/internal/model"
	"github.com/iliyamo/country-cache/internal/queue"
	"github.com/iliyamo/country-cache/internal/repository"
	"github.com/iliyamo/country-cache/internal/utils"
)

// Human-readable source names used in SourceUnavailableError and error
// responses.
const (
	countrySource = "countries API"
	rateSource    = "exchange rates API"
)

// Multiplier bounds for the estimated GDP proxy. A fresh multiplier is
// sampled per country on every run, which makes estimated_gdp intentionally
// non-reproducible between runs.
const (
	gdpMultiplierMin = 1000
	gdpMultiplierMax = 2000
)

// SourceUnavailableError reports that one of the two external sources could
// not be fetched or returned an unusable payload. No local write happens
// when it is returned.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("external data source unavailable: %s: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// PublishFunc publishes a post-commit refresh event. It may be nil.
type PublishFunc func(context.Context, queue.CountriesRefreshedEvent) error

// RefreshResult summarizes a successful sync run.
type RefreshResult struct {
	Message         string `json:"message"`
	Count           int    `json:"count"`
	LastRefreshedAt string `json:"last_refreshed_at"`
}

// RefreshService owns the sync run. The mutex serializes refreshes within
// the process: two concurrent syncs would not corrupt data (each one's
// write is a single transaction) but interleaved runs waste work and race
// on commit order, so they queue up instead.
type RefreshService struct {
	countries *repository.CountryRepo
	images    *ImageService
	publish   PublishFunc

	client       *http.Client
	countriesURL string
	ratesURL     string

	mu sync.Mutex
}

// NewRefreshService wires the sync with its collaborators. The HTTP client
// timeout bounds each of the two outbound fetches.
func NewRefreshService(countries *repository.CountryRepo, images *ImageService, cfg config.Config, publish PublishFunc) *RefreshService {
	return &RefreshService{
		countries:    countries,
		images:       images,
		publish:      publish,
		client:       &http.Client{Timeout: cfg.ExternalTimeout},
		countriesURL: cfg.CountriesAPIURL,
		ratesURL:     cfg.RatesAPIURL,
	}
}

// Refresh runs one sync: both sources are fetched concurrently, records are
// transformed independently, and every row plus the status timestamp is
// written in a single transaction. If either fetch fails or returns an
// unexpected shape, a SourceUnavailableError names the source and nothing
// is written. Image regeneration and event publishing happen after the
// commit; their failure is logged but does not fail the refresh, since the
// data is already durable.
func (s *RefreshService) Refresh(ctx context.Context) (*RefreshResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("refresh: fetching country and exchange rate data")

	var (
		wg                       sync.WaitGroup
		countriesBody, ratesBody []byte
		countriesErr, ratesErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		countriesBody, countriesErr = s.fetch(ctx, s.countriesURL)
	}()
	go func() {
		defer wg.Done()
		ratesBody, ratesErr = s.fetch(ctx, s.ratesURL)
	}()
	wg.Wait()

	if countriesErr != nil {
		return nil, &SourceUnavailableError{Source: countrySource, Err: countriesErr}
	}
	if ratesErr != nil {
		return nil, &SourceUnavailableError{Source: rateSource, Err: ratesErr}
	}

	var rawCountries []json.RawMessage
	if err := json.Unmarshal(countriesBody, &rawCountries); err != nil {
		return nil, &SourceUnavailableError{Source: countrySource,
			Err: fmt.Errorf("expected a country list: %w", err)}
	}
	var ratePayload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(ratesBody, &ratePayload); err != nil || ratePayload.Rates == nil {
		if err == nil {
			err = fmt.Errorf("missing rates mapping")
		}
		return nil, &SourceUnavailableError{Source: rateSource, Err: err}
	}

	// One timestamp for the whole run: every row and the status marker get
	// the same value.
	refreshedAt := time.Now().UTC().Format(time.RFC3339)
	transformed := transform(rawCountries, ratePayload.Rates, refreshedAt)

	log.Printf("refresh: fetched %d countries, writing to database", len(transformed))

	if err := s.countries.UpsertAll(ctx, transformed, refreshedAt); err != nil {
		return nil, fmt.Errorf("persist countries: %w", err)
	}

	// Post-commit side effects: warn-but-succeed. The rows are committed,
	// so a failed image render or publish must not turn the sync into a
	// failure.
	if err := s.images.Generate(transformed, refreshedAt); err != nil {
		log.Printf("refresh: summary image generation failed: %v", err)
	}
	if s.publish != nil {
		event := queue.CountriesRefreshedEvent{Count: len(transformed), RefreshedAt: refreshedAt}
		if err := s.publish(ctx, event); err != nil {
			log.Printf("refresh: publish event failed: %v", err)
		}
	}

	log.Printf("refresh: complete, %d countries written", len(transformed))
	return &RefreshResult{
		Message:         "Countries refreshed successfully",
		Count:           len(transformed),
		LastRefreshedAt: refreshedAt,
	}, nil
}

// fetch GETs url and returns the response body. Non-2xx statuses are
// errors so they surface as source-unavailable like network failures.
func (s *RefreshService) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// apiCountry is the subset of the country source's record we consume.
// Currencies stays raw so a malformed currency list degrades to "no
// currency" instead of dropping the whole record.
type apiCountry struct {
	Name       string          `json:"name"`
	Capital    *string         `json:"capital"`
	Region     *string         `json:"region"`
	Population *float64        `json:"population"`
	Flag       *string         `json:"flag"`
	Currencies json.RawMessage `json:"currencies"`
}

type apiCurrency struct {
	Code string `json:"code"`
}

// transform maps raw source records to country rows, order-preserving.
// Records missing a name or a numeric population are silently dropped.
// GDP semantics per record:
//   - no currency entry or no code: currency_code null, rate null, gdp 0
//   - code present, rate missing:   rate null, gdp null
//   - rate present but zero:        rate 0, gdp null
//   - otherwise: gdp = population * M / rate with M sampled fresh from
//     [1000, 2000] for each record
func transform(raw []json.RawMessage, rates map[string]float64, refreshedAt string) []*model.Country {
	out := make([]*model.Country, 0, len(raw))
	for _, rec := range raw {
		var c apiCountry
		if err := json.Unmarshal(rec, &c); err != nil {
			continue // e.g. population is not a number
		}
		name := strings.TrimSpace(c.Name)
		if name == "" || c.Population == nil {
			continue
		}

		row := &model.Country{
			Name:            name,
			Capital:         c.Capital,
			Region:          c.Region,
			Population:      int64(*c.Population),
			FlagURL:         c.Flag,
			LastRefreshedAt: refreshedAt,
		}

		var currencies []apiCurrency
		_ = json.Unmarshal(c.Currencies, &currencies)

		if len(currencies) == 0 || currencies[0].Code == "" {
			zero := 0.0
			row.EstimatedGDP = &zero
		} else {
			code := currencies[0].Code
			row.CurrencyCode = &code
			if rate, ok := rates[code]; ok {
				row.ExchangeRate = &rate
				if rate != 0 {
					m := utils.RandomBetween(gdpMultiplierMin, gdpMultiplierMax)
					gdp := utils.SafeDivide(float64(row.Population)*float64(m), rate)
					row.EstimatedGDP = &gdp
				}
			}
		}
		out = append(out, row)
	}
	return out
}
