package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/country-cache/internal/config"
	"github.com/iliyamo/country-cache/internal/database"
	"github.com/iliyamo/country-cache/internal/repository"
)

// testEnv wires a RefreshService against fake external sources and a fresh
// on-disk database.
type testEnv struct {
	svc       *RefreshService
	countries *repository.CountryRepo
	status    *repository.StatusRepo
	db        *sql.DB
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newTestEnv(t *testing.T, countriesHandler, ratesHandler http.HandlerFunc) *testEnv {
	t.Helper()

	countriesSrv := httptest.NewServer(countriesHandler)
	t.Cleanup(countriesSrv.Close)
	ratesSrv := httptest.NewServer(ratesHandler)
	t.Cleanup(ratesSrv.Close)

	dir := t.TempDir()
	db, err := database.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	countryRepo := repository.NewCountryRepo(db)
	cfg := config.Config{
		ExternalTimeout: 5 * time.Second,
		CountriesAPIURL: countriesSrv.URL,
		RatesAPIURL:     ratesSrv.URL,
	}
	svc := NewRefreshService(countryRepo, NewImageService(filepath.Join(dir, "summary.png")), cfg, nil)

	return &testEnv{
		svc:       svc,
		countries: countryRepo,
		status:    repository.NewStatusRepo(db),
		db:        db,
	}
}

const ratesBody = `{"result":"success","base_code":"USD","rates":{"USD":1,"GHS":12.5,"XOF":600,"ZWL":0}}`

func TestRefreshWritesCountriesAndStatus(t *testing.T) {
	countriesBody := `[
		{"name":" Ghana ","capital":"Accra","region":"Africa","population":1000,
		 "flag":"https://flags.example/gh.svg","currencies":[{"code":"GHS","name":"Cedi"}]},
		{"name":"Togo","capital":"Lome","region":"Africa","population":2000,
		 "currencies":[{"code":"XOF"}]}
	]`
	env := newTestEnv(t, jsonHandler(200, countriesBody), jsonHandler(200, ratesBody))
	ctx := context.Background()

	res, err := env.svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "Countries refreshed successfully", res.Message)
	assert.NotEmpty(t, res.LastRefreshedAt)

	// Name is trimmed; every row and the status marker share the run's
	// timestamp.
	ghana, err := env.countries.GetByName(ctx, "Ghana")
	require.NoError(t, err)
	assert.Equal(t, "Ghana", ghana.Name)
	assert.Equal(t, res.LastRefreshedAt, ghana.LastRefreshedAt)
	require.NotNil(t, ghana.Capital)
	assert.Equal(t, "Accra", *ghana.Capital)
	require.NotNil(t, ghana.FlagURL)
	assert.Equal(t, "https://flags.example/gh.svg", *ghana.FlagURL)

	s, err := env.status.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, s.LastRefreshedAt)
	assert.Equal(t, res.LastRefreshedAt, *s.LastRefreshedAt)

	// GDP is population * M / rate with M in [1000, 2000].
	require.NotNil(t, ghana.ExchangeRate)
	assert.Equal(t, 12.5, *ghana.ExchangeRate)
	require.NotNil(t, ghana.EstimatedGDP)
	assert.GreaterOrEqual(t, *ghana.EstimatedGDP, 1000*1000.0/12.5)
	assert.LessOrEqual(t, *ghana.EstimatedGDP, 1000*2000.0/12.5)
}

func TestRefreshCurrencyEdgeCases(t *testing.T) {
	countriesBody := `[
		{"name":"NoCurrency","population":100,"currencies":[]},
		{"name":"CodelessCurrency","population":100,"currencies":[{"name":"Mystery Coin"}]},
		{"name":"UnknownCode","population":100,"currencies":[{"code":"QQQ"}]},
		{"name":"ZeroRate","population":100,"currencies":[{"code":"ZWL"}]}
	]`
	env := newTestEnv(t, jsonHandler(200, countriesBody), jsonHandler(200, ratesBody))
	ctx := context.Background()

	_, err := env.svc.Refresh(ctx)
	require.NoError(t, err)

	// No currency entry: code null, rate null, gdp exactly 0.
	c, err := env.countries.GetByName(ctx, "NoCurrency")
	require.NoError(t, err)
	assert.Nil(t, c.CurrencyCode)
	assert.Nil(t, c.ExchangeRate)
	require.NotNil(t, c.EstimatedGDP)
	assert.Equal(t, 0.0, *c.EstimatedGDP)

	// First currency has no code: same as no currency.
	c, err = env.countries.GetByName(ctx, "CodelessCurrency")
	require.NoError(t, err)
	assert.Nil(t, c.CurrencyCode)
	require.NotNil(t, c.EstimatedGDP)
	assert.Equal(t, 0.0, *c.EstimatedGDP)

	// Code absent from the rate map: code kept, rate and gdp null.
	c, err = env.countries.GetByName(ctx, "UnknownCode")
	require.NoError(t, err)
	require.NotNil(t, c.CurrencyCode)
	assert.Equal(t, "QQQ", *c.CurrencyCode)
	assert.Nil(t, c.ExchangeRate)
	assert.Nil(t, c.EstimatedGDP)

	// Rate present but zero: rate stored, gdp null.
	c, err = env.countries.GetByName(ctx, "ZeroRate")
	require.NoError(t, err)
	require.NotNil(t, c.ExchangeRate)
	assert.Equal(t, 0.0, *c.ExchangeRate)
	assert.Nil(t, c.EstimatedGDP)
}

func TestRefreshDropsUnusableRecords(t *testing.T) {
	countriesBody := `[
		{"capital":"Nowhere","population":100},
		{"name":"","population":100},
		{"name":"StringPopulation","population":"lots"},
		{"name":"NoPopulation"},
		{"name":"Keeper","population":100,"currencies":[{"code":"USD"}]}
	]`
	env := newTestEnv(t, jsonHandler(200, countriesBody), jsonHandler(200, ratesBody))
	ctx := context.Background()

	res, err := env.svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	total, err := env.countries.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, err = env.countries.GetByName(ctx, "StringPopulation")
	assert.ErrorIs(t, err, repository.ErrCountryNotFound)
}

func TestRefreshRerunOverwritesInsteadOfDuplicating(t *testing.T) {
	first := `[{"name":"Ghana","population":1000,"currencies":[{"code":"GHS"}]}]`
	second := `[{"name":"GHANA","population":3000,"currencies":[{"code":"GHS"}]}]`

	bodies := []string{first, second}
	call := 0
	countriesHandler := func(w http.ResponseWriter, r *http.Request) {
		body := bodies[call]
		if call < len(bodies)-1 {
			call++
		}
		jsonHandler(200, body)(w, r)
	}
	env := newTestEnv(t, countriesHandler, jsonHandler(200, ratesBody))
	ctx := context.Background()

	_, err := env.svc.Refresh(ctx)
	require.NoError(t, err)
	_, err = env.svc.Refresh(ctx)
	require.NoError(t, err)

	total, err := env.countries.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	got, err := env.countries.GetByName(ctx, "ghana")
	require.NoError(t, err)
	assert.Equal(t, "GHANA", got.Name)
	assert.Equal(t, int64(3000), got.Population)
}

func TestRefreshFailsFastWhenCountrySourceDown(t *testing.T) {
	env := newTestEnv(t, jsonHandler(500, `oops`), jsonHandler(200, ratesBody))

	_, err := env.svc.Refresh(context.Background())
	var srcErr *SourceUnavailableError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, countrySource, srcErr.Source)

	total, err := env.countries.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), total, "no writes on fetch failure")

	s, err := env.status.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s.LastRefreshedAt)
}

func TestRefreshFailsFastWhenRateSourceDown(t *testing.T) {
	countriesBody := `[{"name":"Ghana","population":1000,"currencies":[{"code":"GHS"}]}]`
	env := newTestEnv(t, jsonHandler(200, countriesBody), jsonHandler(503, `down`))

	_, err := env.svc.Refresh(context.Background())
	var srcErr *SourceUnavailableError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, rateSource, srcErr.Source)
}

func TestRefreshRejectsUnexpectedShapes(t *testing.T) {
	// Country payload is an object, not a list.
	env := newTestEnv(t, jsonHandler(200, `{"not":"a list"}`), jsonHandler(200, ratesBody))
	_, err := env.svc.Refresh(context.Background())
	var srcErr *SourceUnavailableError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, countrySource, srcErr.Source)

	// Rate payload lacks the rates mapping.
	env = newTestEnv(t, jsonHandler(200, `[]`), jsonHandler(200, `{"result":"success"}`))
	_, err = env.svc.Refresh(context.Background())
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, rateSource, srcErr.Source)

	total, err := env.countries.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestRefreshRollsBackWholeBatchOnPersistError(t *testing.T) {
	// The second record survives the transform (population is numeric) but
	// violates the population CHECK constraint, so the first record and
	// the status update must roll back with it.
	countriesBody := `[
		{"name":"Ghana","population":1000,"currencies":[{"code":"GHS"}]},
		{"name":"Atlantis","population":-5,"currencies":[{"code":"USD"}]}
	]`
	env := newTestEnv(t, jsonHandler(200, countriesBody), jsonHandler(200, ratesBody))
	ctx := context.Background()

	_, err := env.svc.Refresh(ctx)
	require.Error(t, err)
	var srcErr *SourceUnavailableError
	assert.False(t, errors.As(err, &srcErr), "persistence failure is not a source failure")

	total, err := env.countries.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	s, err := env.status.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, s.LastRefreshedAt)
}

func TestTransformSamplesMultiplierPerRecord(t *testing.T) {
	// With a fixed rate of 1, gdp = population * M. Identical populations
	// across many records virtually never all share one M if sampling is
	// per record.
	recs := make([]json.RawMessage, 0, 50)
	for i := 0; i < 50; i++ {
		rec := fmt.Sprintf(`{"name":"Country%02d","population":1000,"currencies":[{"code":"USD"}]}`, i)
		recs = append(recs, json.RawMessage(rec))
	}
	rows := transform(recs, map[string]float64{"USD": 1}, "2026-09-01T00:00:00Z")
	require.Len(t, rows, 50)

	distinct := map[float64]bool{}
	for _, r := range rows {
		require.NotNil(t, r.EstimatedGDP)
		distinct[*r.EstimatedGDP] = true
	}
	assert.Greater(t, len(distinct), 1, "multiplier must be sampled per record, not once per batch")
}

func TestTransformPreservesOrder(t *testing.T) {
	recs := []json.RawMessage{
		json.RawMessage(`{"name":"Alpha","population":1}`),
		json.RawMessage(`{"name":"Beta","population":2}`),
		json.RawMessage(`{"name":"Gamma","population":3}`),
	}
	rows := transform(recs, map[string]float64{}, "2026-09-01T00:00:00Z")
	require.Len(t, rows, 3)
	assert.Equal(t, "Alpha", rows[0].Name)
	assert.Equal(t, "Beta", rows[1].Name)
	assert.Equal(t, "Gamma", rows[2].Name)
}

func TestTransformToleratesMalformedCurrencyList(t *testing.T) {
	recs := []json.RawMessage{
		json.RawMessage(`{"name":"Oddball","population":10,"currencies":{"code":"USD"}}`),
	}
	rows := transform(recs, map[string]float64{"USD": 1}, "2026-09-01T00:00:00Z")
	require.Len(t, rows, 1, "bad currency shape degrades to no currency, record is kept")
	assert.Nil(t, rows[0].CurrencyCode)
	require.NotNil(t, rows[0].EstimatedGDP)
	assert.Equal(t, 0.0, *rows[0].EstimatedGDP)
}
