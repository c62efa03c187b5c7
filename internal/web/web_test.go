package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evparse/internal/config"
	"evparse/internal/ics"
)

var fixedNow = time.Date(2020, time.June, 5, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Calendar = filepath.Join(t.TempDir(), "events.ics")
	if mutate != nil {
		mutate(cfg)
	}
	s := NewServer(cfg)
	s.now = func() time.Time { return fixedNow }
	return s
}

func do(s *Server, method, target string, body url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestParse(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(s, http.MethodGet, "/api/parse?text="+url.QueryEscape("Lunch 1-2pm 6/10"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp spanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Lunch", resp.Summary)
	assert.False(t, resp.AllDay)
	assert.True(t, time.Date(2020, time.June, 10, 13, 0, 0, 0, time.UTC).Equal(resp.Start))
	assert.True(t, time.Date(2020, time.June, 10, 14, 0, 0, 0, time.UTC).Equal(resp.End))
	assert.Contains(t, rec.Body.String(), `"kind":"starts_and_ends_with_date"`)
	assert.Equal(t, "UTC", resp.TimeZone)
}

func TestParse_ReferenceOverride(t *testing.T) {
	s := newTestServer(t, nil)
	target := "/api/parse?text=" + url.QueryEscape("Yoga every monday at 6") + "&now=" + url.QueryEscape("2021-03-03T08:00:00Z")
	rec := do(s, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp spanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, time.Date(2021, time.March, 8, 18, 0, 0, 0, time.UTC).Equal(resp.Start))
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", resp.RRule)
}

func TestParse_BadInput(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, http.MethodGet, "/api/parse", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "text is required")

	rec = do(s, http.MethodGet, "/api/parse?text=lunch&now=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, http.MethodGet, "/api/parse?text="+strings.Repeat("a", maxTextLen+1), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventICS(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(s, http.MethodGet, "/api/event.ics?text="+url.QueryEscape("gibberish text"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "SUMMARY:gibberish text")
	assert.Contains(t, body, "DTSTART;VALUE=DATE:20200605")
}

func TestAddEventAndAgenda(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, http.MethodGet, "/api/events", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(s, http.MethodPost, "/api/events", url.Values{"text": {"Dinner at 7"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"summary":"Dinner"`)

	rec = do(s, http.MethodPost, "/api/events", url.Values{"text": {"Standup every weekday at 9"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(s, http.MethodGet, "/api/agenda?days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp agendaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var dinner, standup int
	for _, o := range resp.Occurrences {
		switch o.Summary {
		case "Dinner":
			dinner++
		case "Standup":
			standup++
		}
	}
	assert.Equal(t, 1, dinner)
	// June 5 (Fri) through June 11: Fri, Mon, Tue, Wed, Thu.
	assert.Equal(t, 5, standup)
}

func TestAddEvent_Concurrent(t *testing.T) {
	s := newTestServer(t, nil)
	const n = 20

	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = do(s, http.MethodPost, "/api/events", url.Values{"text": {"Dinner at 7"}}).Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusCreated, code)
	}
	stored, err := ics.ReadFile(s.cfg.Calendar, time.UTC)
	require.NoError(t, err)
	assert.Len(t, stored, n)
}

func TestAgenda_EmptyCalendar(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/api/agenda", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"occurrences":[]`)
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "secret"}
	})

	rec := do(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, http.MethodGet, "/api/parse?text=lunch", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/api/parse?text=lunch", nil)
	req.SetBasicAuth("me", "secret")
	ok := httptest.NewRecorder()
	s.Handler().ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/parse?text=lunch", nil)
	req.SetBasicAuth("me", "wrong")
	bad := httptest.NewRecorder()
	s.Handler().ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("abc", "ab"))
}
