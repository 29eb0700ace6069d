package api

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/xeniagda/ilo-pi-ante-toki/internal/logger"
	"github.com/xeniagda/ilo-pi-ante-toki/internal/vocab"
	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
)

// abVocab is the table trained from "ab ab ab": a, b, ' ', ab.
func abVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	table, err := gram.NewTable([]gram.Gram[rune]{
		gram.NewLiteral('a'),
		gram.NewLiteral('b'),
		gram.NewLiteral(' '),
		gram.NewComposite[rune](0, 1),
	})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return vocab.New(table, ' ')
}

func newTestEcho(t *testing.T, cfg Config) *echo.Echo {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	info := &vocab.Info{ID: "test-vocab", Threshold: 0.25, Boundary: "space"}
	server, err := NewServer(abVocab(t), info, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, Config{})
	rec := doJSON(t, e, http.MethodPost, "/v1/encode", `{"text":"ab ab","segments":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("encode status: got %d body=%s", rec.Code, rec.Body.String())
	}
	enc := decodeBody[EncodeResponse](t, rec)
	if want := []gram.ID{3, 2, 3}; !slices.Equal(enc.IDs, want) {
		t.Fatalf("ids: got %v want %v", enc.IDs, want)
	}
	if want := []string{"ab", " ", "ab"}; !slices.Equal(enc.Segments, want) {
		t.Fatalf("segments: got %q want %q", enc.Segments, want)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/decode", `{"ids":[3,2,3]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("decode status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[DecodeResponse](t, rec).Text; got != "ab ab" {
		t.Fatalf("decode: got %q want %q", got, "ab ab")
	}
}

func TestEncodeCachedResultIsStable(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, Config{CacheSize: 2})
	var first []gram.ID
	for i := 0; i < 3; i++ {
		rec := doJSON(t, e, http.MethodPost, "/v1/encode", `{"text":"ab"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("encode status: got %d body=%s", rec.Code, rec.Body.String())
		}
		ids := decodeBody[EncodeResponse](t, rec).IDs
		if i == 0 {
			first = ids
		}
		if !slices.Equal(ids, first) || !slices.Equal(ids, []gram.ID{3}) {
			t.Fatalf("request %d: got %v want [3]", i, ids)
		}
	}
}

func TestEncodeUnknownSymbol(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, Config{CacheSize: -1})
	rec := doJSON(t, e, http.MethodPost, "/v1/encode", `{"text":"abz"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"code":"unknown_symbol"`) || !strings.Contains(body, `"position":2`) {
		t.Fatalf("unexpected error body: %s", body)
	}
}

func TestBadRequests(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, Config{})
	cases := []struct {
		name, method, path, body string
		status                   int
	}{
		{"malformed json", http.MethodPost, "/v1/encode", `{"text":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/encode", `{"input":"ab"}`, http.StatusBadRequest},
		{"invalid id", http.MethodPost, "/v1/decode", `{"ids":[4]}`, http.StatusBadRequest},
		{"negative id", http.MethodPost, "/v1/decode", `{"ids":[-1]}`, http.StatusBadRequest},
		{"gram not found", http.MethodGet, "/v1/grams/99", "", http.StatusNotFound},
		{"gram id not numeric", http.MethodGet, "/v1/grams/ab", "", http.StatusBadRequest},
		{"bad offset", http.MethodGet, "/v1/grams?offset=x", "", http.StatusBadRequest},
		{"offset past end", http.MethodGet, "/v1/grams?offset=9", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, e, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("got %d want %d body=%s", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}

func TestGrams(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, Config{})
	rec := doJSON(t, e, http.MethodGet, "/v1/grams?offset=1&limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status: got %d body=%s", rec.Code, rec.Body.String())
	}
	list := decodeBody[GramList](t, rec)
	if list.Total != 4 || len(list.Data) != 2 || list.Data[0].ID != 1 || list.Data[1].Text != " " {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/grams/3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", rec.Code, rec.Body.String())
	}
	entry := decodeBody[vocab.Entry](t, rec)
	if entry.Kind != "composite" || entry.Text != "ab" || entry.Depth != 1 || *entry.Left != 0 || *entry.Right != 1 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestInfo(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, Config{})
	rec := doJSON(t, e, http.MethodGet, "/v1/info", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("info status: got %d body=%s", rec.Code, rec.Body.String())
	}
	info := decodeBody[InfoResponse](t, rec)
	if info.Grams != 4 || info.Literals != 3 || info.Composites != 1 || info.Boundary != "space" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Training == nil || info.Training.ID != "test-vocab" {
		t.Fatalf("training info missing: %+v", info.Training)
	}
}

func TestThrottlePerClient(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, Config{RateLimit: 0.001, Burst: 2})
	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1:5000"); code != http.StatusOK {
			t.Fatalf("request %d within burst: got %d want 200", i, code)
		}
	}
	if code := send("10.0.0.1:5001"); code != http.StatusTooManyRequests {
		t.Fatalf("request past burst: got %d want 429", code)
	}
	if code := send("10.0.0.2:5000"); code != http.StatusOK {
		t.Fatalf("other client: got %d want 200", code)
	}
}
