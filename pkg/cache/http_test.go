package cache

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

const pageBody = `{"success":true,"data":[{"_id":"sol-001","name":"Solution 001"}],"total":20,"skip":0,"limit":9}`

func pageResponse(headers map[string]string) *http.Response {
	h := http.Header{"Content-Type": []string{"application/json"}}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(pageBody)),
	}
}

func TestResponseToEntry_Page(t *testing.T) {
	lastMod := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	resp := pageResponse(map[string]string{
		"ETag":          `"a1b2"`,
		"Cache-Control": "max-age=60",
		"Last-Modified": lastMod.Format(http.TimeFormat),
	})

	entry, err := ResponseToEntry(resp)
	if err != nil {
		t.Fatalf("ResponseToEntry failed: %v", err)
	}

	if string(entry.Data) != pageBody {
		t.Errorf("Data = %s", entry.Data)
	}
	if entry.ETag != `"a1b2"` {
		t.Errorf("ETag = %s", entry.ETag)
	}
	if !entry.LastModified.Equal(lastMod) {
		t.Errorf("LastModified = %v, want %v", entry.LastModified, lastMod)
	}
	if ttl := entry.TTL(); ttl < 59*time.Second || ttl > 60*time.Second {
		t.Errorf("TTL = %v, want ~60s", ttl)
	}

	// the body stays readable for the caller
	body, _ := io.ReadAll(resp.Body)
	if string(body) != pageBody {
		t.Errorf("response body not restored: %s", body)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestResponseToEntry_Errors(t *testing.T) {
	if _, err := ResponseToEntry(nil); err == nil {
		t.Error("expected error for nil response")
	}

	resp := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: io.NopCloser(failingReader{})}
	if _, err := ResponseToEntry(resp); err == nil {
		t.Error("expected error for unreadable body")
	}
}

func TestExpiresFrom(t *testing.T) {
	inOneHour := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	tests := []struct {
		name    string
		headers map[string]string
		want    time.Duration
	}{
		{name: "no caching headers", headers: nil, want: DefaultTTL},
		{name: "max-age", headers: map[string]string{"Cache-Control": "public, max-age=120"}, want: 2 * time.Minute},
		{name: "max-age beats Expires", headers: map[string]string{
			"Cache-Control": "max-age=10",
			"Expires":       inOneHour.Format(http.TimeFormat),
		}, want: 10 * time.Second},
		{name: "no-store", headers: map[string]string{"Cache-Control": "no-store"}, want: 0},
		{name: "no-cache", headers: map[string]string{"Cache-Control": "private, no-cache"}, want: 0},
		{name: "bad max-age falls back to Expires", headers: map[string]string{
			"Cache-Control": "max-age=soon",
			"Expires":       inOneHour.Format(http.TimeFormat),
		}, want: time.Hour},
		{name: "Expires", headers: map[string]string{"Expires": inOneHour.Format(http.TimeFormat)}, want: time.Hour},
		{name: "Expires in the past", headers: map[string]string{"Expires": "Sun, 01 Jan 2023 12:00:00 GMT"}, want: 0},
		{name: "unparseable Expires", headers: map[string]string{"Expires": "tomorrow"}, want: DefaultTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			got := time.Until(ExpiresFrom(h))
			if diff := got - tt.want; diff > time.Second || diff < -2*time.Second {
				t.Errorf("ExpiresFrom() = now+%v, want now+%v", got, tt.want)
			}
		})
	}
}

func TestShouldMakeConditionalRequest(t *testing.T) {
	tests := []struct {
		name  string
		entry *CacheEntry
		want  bool
	}{
		{name: "nil entry", entry: nil, want: false},
		{name: "no validator", entry: &CacheEntry{Data: []byte(pageBody)}, want: false},
		{name: "etag", entry: &CacheEntry{ETag: `"a1b2"`}, want: true},
		{name: "last modified", entry: &CacheEntry{LastModified: time.Now()}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldMakeConditionalRequest(tt.entry); got != tt.want {
				t.Errorf("ShouldMakeConditionalRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddConditionalHeaders(t *testing.T) {
	lastMod := time.Date(2024, 3, 1, 8, 0, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name            string
		entry           *CacheEntry
		wantNoneMatch   string
		wantModifiedSin string
	}{
		{name: "etag only", entry: &CacheEntry{ETag: `"a1b2"`}, wantNoneMatch: `"a1b2"`},
		{name: "last modified in UTC", entry: &CacheEntry{LastModified: lastMod}, wantModifiedSin: "Fri, 01 Mar 2024 07:00:00 GMT"},
		{name: "etag wins", entry: &CacheEntry{ETag: `"a1b2"`, LastModified: lastMod}, wantNoneMatch: `"a1b2"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{Method: http.MethodGet}
			AddConditionalHeaders(req, tt.entry)

			if got := req.Header.Get("If-None-Match"); got != tt.wantNoneMatch {
				t.Errorf("If-None-Match = %q, want %q", got, tt.wantNoneMatch)
			}
			if got := req.Header.Get("If-Modified-Since"); got != tt.wantModifiedSin {
				t.Errorf("If-Modified-Since = %q, want %q", got, tt.wantModifiedSin)
			}
		})
	}

	// nil inputs are ignored
	AddConditionalHeaders(nil, &CacheEntry{ETag: "x"})
	AddConditionalHeaders(&http.Request{}, nil)
}

func TestEntryToResponse(t *testing.T) {
	entry := &CacheEntry{
		Data:       []byte(pageBody),
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
	}
	req, _ := http.NewRequest(http.MethodGet, "http://catalog.test/api/v1/solutions/?skip=0&limit=9", nil)

	resp := EntryToResponse(entry, req)

	if resp.StatusCode != http.StatusOK || resp.Status != "200 OK" {
		t.Errorf("status = %d %q", resp.StatusCode, resp.Status)
	}
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", resp.Header.Get("X-Cache"))
	}
	if entry.Headers.Get("X-Cache") != "" {
		t.Error("cached headers were modified")
	}
	if resp.Request != req {
		t.Error("request not attached")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != pageBody {
		t.Errorf("body = %s", body)
	}
}
