package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/verasca/lociq/internal/answer"
	"github.com/verasca/lociq/internal/archive"
	"github.com/verasca/lociq/internal/conversation"
	"github.com/verasca/lociq/internal/webui"
)

// mockSubmitter scripts pipeline behavior for handler tests.
type mockSubmitter struct {
	store *conversation.Store
	err   error
}

func (m *mockSubmitter) Submit(ctx context.Context, query string) (*conversation.Turn, error) {
	if m.err != nil {
		return nil, m.err
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	turn := conversation.Turn{
		ID:        "t-" + query,
		Query:     strings.TrimSpace(query),
		AskedAt:   time.Now().UTC(),
		Overview:  conversation.Overview{Gene: "g", QTL: "q", Relation: "r"},
		Citations: []conversation.Citation{},
		FollowUps: []string{},
	}
	if err := m.store.Append(turn); err != nil {
		return nil, err
	}
	return &turn, nil
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	store := conversation.NewStore(conversation.DefaultSeed())
	arch, err := archive.Open(":memory:")
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	t.Cleanup(func() { arch.Close() })

	return Deps{
		Store:     store,
		Pipeline:  &mockSubmitter{store: store},
		Navigator: webui.NewNavigator(store),
		Archive:   arch,
		Token:     "test-token",
	}
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rec := doJSON(t, h, "GET", "/health", "")
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAsk_Created(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rec := doJSON(t, h, "POST", "/v1/ask", `{"query":"abc"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp askResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Query != "abc" {
		t.Errorf("Query = %q", resp.Query)
	}
	if resp.Anchor != "turn-t-abc" {
		t.Errorf("Anchor = %q", resp.Anchor)
	}
}

func TestAsk_BlankQueryNoContent(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)

	rec := doJSON(t, h, "POST", "/v1/ask", `{"query":"   "}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if deps.Store.Len() != 1 {
		t.Errorf("store length = %d, want unchanged", deps.Store.Len())
	}
}

func TestAsk_Busy(t *testing.T) {
	deps := newTestDeps(t)
	deps.Pipeline = &mockSubmitter{err: answer.ErrBusy}
	h := NewHandler(deps)

	rec := doJSON(t, h, "POST", "/v1/ask", `{"query":"x"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already pending") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAsk_GenerationFailed(t *testing.T) {
	deps := newTestDeps(t)
	deps.Pipeline = &mockSubmitter{err: answer.ErrGenerationFailed}
	h := NewHandler(deps)

	rec := doJSON(t, h, "POST", "/v1/ask", `{"query":"x"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestAsk_InvalidBody(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rec := doJSON(t, h, "POST", "/v1/ask", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListTurns(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)

	doJSON(t, h, "POST", "/v1/ask", `{"query":"one"}`)

	rec := doJSON(t, h, "GET", "/v1/turns", "")
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}

	var turns []conversation.Turn
	if err := json.NewDecoder(rec.Body).Decode(&turns); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len = %d, want 2", len(turns))
	}
	if turns[0].ID != "seed" || turns[1].ID != "t-one" {
		t.Errorf("order = [%s %s]", turns[0].ID, turns[1].ID)
	}
}

func TestGetTurn(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rec := doJSON(t, h, "GET", "/v1/turns/seed", "")
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doJSON(t, h, "GET", "/v1/turns/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestIndexServesPage(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rec := doJSON(t, h, "GET", "/", "")
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `id="turn-seed"`) {
		t.Error("page missing seed turn anchor")
	}
}

func TestHistory_RequiresAuth(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rec := doJSON(t, h, "GET", "/v1/history", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest("GET", "/v1/history", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want 401", rec.Code)
	}
}

func TestHistory_ListsArchivedTurns(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)

	turn := conversation.Turn{
		ID: "h1", Query: "archived", AskedAt: time.Now().UTC(),
		Citations: []conversation.Citation{}, FollowUps: []string{},
	}
	if err := deps.Archive.SaveTurn(turn); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/history", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var turns []conversation.Turn
	if err := json.NewDecoder(rec.Body).Decode(&turns); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(turns) != 1 || turns[0].ID != "h1" {
		t.Errorf("turns = %+v", turns)
	}
	if total := rec.Header().Get("X-Total-Count"); total != "1" {
		t.Errorf("X-Total-Count = %q, want %q", total, "1")
	}

	req = httptest.NewRequest("GET", "/v1/history/h1", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("get status = %d", rec.Code)
	}
}

func TestHistory_TotalCountCoversFullArchive(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)

	for i := range 3 {
		turn := conversation.Turn{
			ID: fmt.Sprintf("h%d", i), Query: "archived", AskedAt: time.Now().UTC(),
			Citations: []conversation.Citation{}, FollowUps: []string{},
		}
		if err := deps.Archive.SaveTurn(turn); err != nil {
			t.Fatalf("SaveTurn: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/v1/history?limit=1", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var turns []conversation.Turn
	if err := json.NewDecoder(rec.Body).Decode(&turns); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("len = %d, want 1", len(turns))
	}
	if total := rec.Header().Get("X-Total-Count"); total != "3" {
		t.Errorf("X-Total-Count = %q, want %q", total, "3")
	}
}

func TestEvents_StreamsAppendedTurn(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(deps)

	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/v1/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connecting to events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	deps.Store.Append(conversation.Turn{ID: "live", Query: "q", AskedAt: time.Now()})

	buf := make([]byte, 4096)
	deadline := time.Now().Add(3 * time.Second)
	var got string
	for time.Now().Before(deadline) {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			got += string(buf[:n])
			if strings.Contains(got, "event: turn") && strings.Contains(got, `"live"`) {
				return
			}
		}
		if err != nil {
			break
		}
	}
	t.Fatalf("event not received, got %q", got)
}
