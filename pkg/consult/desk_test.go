package consult

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategist/pkg/advice"
	"strategist/pkg/client"
	"strategist/pkg/history"
)

type fakeFetcher struct {
	calls int
	resp  *advice.StrategyAdvice
	err   error
}

func (f *fakeFetcher) FetchAdvice(ctx context.Context, query, password string) (*advice.StrategyAdvice, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	a := *f.resp
	return &a, nil
}

func newDesk(f Fetcher) (*Desk, *history.Store) {
	h := history.New(history.NewMemoryKV())
	d := NewDesk(f, h)
	d.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return d, h
}

var counsel = &advice.StrategyAdvice{
	Title:            "Stratagem 1: Deceive the heavens",
	OriginalQuote:    "Hide in plain sight.",
	Interpretation:   "Routine hides intent.",
	ActionableAdvice: []string{"Act normally", "Prepare quietly"},
}

func TestSubmitSuccessRecordsHistory(t *testing.T) {
	f := &fakeFetcher{resp: counsel}
	d, h := newDesk(f)

	out := d.Submit(context.Background(), "my manager takes credit", "$untzu")
	require.NoError(t, out.Err)
	assert.Empty(t, out.Message)
	require.NotNil(t, out.Item)
	assert.Equal(t, "1700000000000", out.Item.ID)

	items, err := h.LoadAll()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "my manager takes credit", items[0].Query)
}

func TestSubmitValidatesLocally(t *testing.T) {
	f := &fakeFetcher{resp: counsel}
	d, _ := newDesk(f)

	out := d.Submit(context.Background(), "   ", "$untzu")
	assert.ErrorIs(t, out.Err, advice.ErrEmptyQuery)
	assert.Equal(t, "Please enter your question.", out.Message)
	assert.Zero(t, f.calls)
}

// gateway accepts either the shared password or the token it hands out.
func gateway(t *testing.T, strategyCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	body, err := json.Marshal(counsel)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc(client.UnlockPath, func(w http.ResponseWriter, r *http.Request) {
		var req advice.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "$untzu" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized: Invalid password."}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"session-1","expires_at":"2030-01-01T00:00:00Z"}`))
	})
	mux.HandleFunc(client.StrategyPath, func(w http.ResponseWriter, r *http.Request) {
		strategyCalls.Add(1)
		var req advice.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "$untzu" && r.Header.Get("Authorization") != "Bearer session-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized: Invalid password."}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSubmitWithUnlockedClient(t *testing.T) {
	var calls atomic.Int32
	srv := gateway(t, &calls)
	c := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	_, err := c.Unlock(context.Background(), "$untzu")
	require.NoError(t, err)

	d, h := newDesk(c)
	out := d.Submit(context.Background(), "my landlord will not return the deposit", "")
	require.NoError(t, out.Err)
	assert.Empty(t, out.Message)
	assert.Equal(t, counsel.Title, out.Advice.Title)
	assert.EqualValues(t, 1, calls.Load())

	items, err := h.LoadAll()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "my landlord will not return the deposit", items[0].Query)
}

func TestSubmitWithoutPasswordOrToken(t *testing.T) {
	var calls atomic.Int32
	srv := gateway(t, &calls)
	c := client.New(srv.URL, client.WithHTTPClient(srv.Client()))

	d, h := newDesk(c)
	out := d.Submit(context.Background(), "q", "")
	assert.ErrorIs(t, out.Err, advice.ErrEmptyPassword)
	assert.Equal(t, "Please enter the password.", out.Message)
	assert.Zero(t, calls.Load())

	items, err := h.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSubmitFailureLeavesHistoryUntouched(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: Unauthorized: Invalid password.", advice.ErrUnauthorized), "Incorrect password."},
		{fmt.Errorf("%w: boom", advice.ErrUpstreamEmpty), "The strategist is silent. Check your internet connection and try again."},
		{fmt.Errorf("%w: 15s", advice.ErrTimeout), "The strategist is taking too long to respond. Please try again or check your connection."},
	}
	for _, tt := range tests {
		d, h := newDesk(&fakeFetcher{err: tt.err})
		out := d.Submit(context.Background(), "q", "p")
		assert.Equal(t, tt.want, out.Message)
		assert.Nil(t, out.Advice)

		items, err := h.LoadAll()
		require.NoError(t, err)
		assert.Empty(t, items)
	}
}

func TestSelectIsIdempotentAndOffline(t *testing.T) {
	f := &fakeFetcher{resp: counsel}
	d, _ := newDesk(f)
	out := d.Submit(context.Background(), "q", "p")
	require.NoError(t, out.Err)
	require.Equal(t, 1, f.calls)

	first := d.Select(out.Item.ID)
	second := d.Select(out.Item.ID)
	require.NoError(t, first.Err)
	assert.Equal(t, first.Advice, second.Advice)
	assert.Equal(t, counsel, first.Advice)
	assert.Equal(t, 1, f.calls, "selecting history never calls the gateway")

	missing := d.Select("nope")
	assert.Error(t, missing.Err)
	assert.NotEmpty(t, missing.Message)
}

func TestClear(t *testing.T) {
	d, _ := newDesk(&fakeFetcher{resp: counsel})
	require.NoError(t, d.Submit(context.Background(), "q", "p").Err)
	require.NoError(t, d.Clear())

	items, err := d.History()
	require.NoError(t, err)
	assert.Empty(t, items)
}
