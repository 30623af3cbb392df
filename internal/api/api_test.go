package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vantage/internal/board"
	"github.com/starford/vantage/internal/models"
	"github.com/starford/vantage/internal/storage"
	"github.com/starford/vantage/internal/testutil"
)

type fakeAgent struct {
	response string
}

func (f *fakeAgent) Research(context.Context, string, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.response)), nil
}

func newTestRouter(t *testing.T, agentResponse string) (chi.Router, *board.Service) {
	t.Helper()
	db := testutil.TestDB(t)
	boards := board.NewService(db, nil, models.Point{X: 400, Y: 300})
	files, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ch := NewChatHandler(db, &fakeAgent{response: agentResponse}, nil, nil, boards.Anchor(), nil)
	return NewRouter(boards, files, ch, nil, false, ""), boards
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestNodeCRUD(t *testing.T) {
	r, _ := newTestRouter(t, "")

	w := doJSON(t, r, http.MethodPost, "/nodes", CreateNodeRequest{Title: "Research: NVDA", Type: "research"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}
	created := decode[models.Node](t, w)
	if created.ID == "" || created.W == 0 {
		t.Errorf("created = %+v", created)
	}
	// No coordinates in the request means auto-placement at the anchor.
	if created.X != 400 || created.Y != 300 {
		t.Errorf("auto-placement: (%v, %v)", created.X, created.Y)
	}

	w = doJSON(t, r, http.MethodGet, "/nodes/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPatch, "/nodes/"+created.ID, map[string]any{"x": 12.0, "y": 34.0})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d body=%s", w.Code, w.Body.String())
	}
	moved := decode[models.Node](t, w)
	if moved.X != 12 || moved.Y != 34 {
		t.Errorf("moved = (%v, %v)", moved.X, moved.Y)
	}

	w = doJSON(t, r, http.MethodDelete, "/nodes/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w = doJSON(t, r, http.MethodGet, "/nodes/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", w.Code)
	}
}

func TestCreateNodeValidation(t *testing.T) {
	r, _ := newTestRouter(t, "")

	if w := doJSON(t, r, http.MethodPost, "/nodes", CreateNodeRequest{Type: "text"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing title = %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/nodes", CreateNodeRequest{Title: "X", Type: "hologram"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad type = %d", w.Code)
	}
}

func TestCreateNodeExplicitPosition(t *testing.T) {
	r, _ := newTestRouter(t, "")
	x, y := 77.0, 88.0
	w := doJSON(t, r, http.MethodPost, "/nodes", CreateNodeRequest{Title: "Pinned", Type: "text", X: &x, Y: &y})
	n := decode[models.Node](t, w)
	if n.X != 77 || n.Y != 88 {
		t.Errorf("position = (%v, %v)", n.X, n.Y)
	}
}

func TestEdgeEndpoints(t *testing.T) {
	r, _ := newTestRouter(t, "")

	a := decode[models.Node](t, doJSON(t, r, http.MethodPost, "/nodes", CreateNodeRequest{Title: "A", Type: "text"}))
	b := decode[models.Node](t, doJSON(t, r, http.MethodPost, "/nodes", CreateNodeRequest{Title: "B", Type: "text"}))

	w := doJSON(t, r, http.MethodPost, "/edges", CreateEdgeRequest{Source: a.ID, Target: b.ID, Label: "related"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create edge = %d body=%s", w.Code, w.Body.String())
	}
	edge := decode[models.Edge](t, w)

	// Duplicate pair returns the existing edge with 200.
	w = doJSON(t, r, http.MethodPost, "/edges", CreateEdgeRequest{Source: a.ID, Target: b.ID})
	if w.Code != http.StatusOK {
		t.Errorf("duplicate edge = %d", w.Code)
	}
	dup := decode[models.Edge](t, w)
	if dup.ID != edge.ID {
		t.Errorf("duplicate returned different edge")
	}

	// Unknown endpoint is a 404.
	if w = doJSON(t, r, http.MethodPost, "/edges", CreateEdgeRequest{Source: a.ID, Target: "ghost"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown endpoint = %d body=%s", w.Code, w.Body.String())
	}

	if w = doJSON(t, r, http.MethodDelete, "/edges/"+edge.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete edge = %d", w.Code)
	}
}

func TestBoardSnapshot(t *testing.T) {
	r, _ := newTestRouter(t, "")
	doJSON(t, r, http.MethodPost, "/nodes", CreateNodeRequest{Title: "Solo", Type: "text"})

	w := doJSON(t, r, http.MethodGet, "/board", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("board = %d", w.Code)
	}
	snap := decode[BoardResponse](t, w)
	if len(snap.Nodes) != 1 || snap.Edges == nil {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	r, _ := newTestRouter(t, "")
	if w := doJSON(t, r, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/search?q=nvidia", nil); w.Code != http.StatusOK {
		t.Errorf("search = %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	db := testutil.TestDB(t)
	boards := board.NewService(db, nil, models.Point{})
	r := NewRouter(boards, nil, nil, nil, true, "secret")

	req := httptest.NewRequest(http.MethodGet, "/board", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/board", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/board", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d", w.Code)
	}
}

func TestChatStream(t *testing.T) {
	response := `Sure. <<<ACTION:{"type":"create_chart","data":{"chart":{"ticker":"AMD"}}}:ACTION>>> Done.`
	r, boards := newTestRouter(t, response)

	focal := decode[models.Node](t, doJSON(t, r, http.MethodPost, "/nodes", CreateNodeRequest{Title: "AMD research", Type: "research"}))

	w := doJSON(t, r, http.MethodPost, "/nodes/"+focal.ID+"/chat", ChatRequest{Message: "chart AMD"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat = %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"event: text", "event: action", "event: done", `"type":"create_chart"`} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q in %q", want, body)
		}
	}

	snap, _ := boards.Board(context.Background())
	charts := 0
	for _, n := range snap.Nodes {
		if n.Type == models.NodeChart {
			charts++
		}
	}
	if charts != 1 {
		t.Errorf("chart nodes = %d", charts)
	}
}

func TestChatUnknownNode(t *testing.T) {
	r, _ := newTestRouter(t, "hi")
	if w := doJSON(t, r, http.MethodPost, "/nodes/missing/chat", ChatRequest{Message: "hi"}); w.Code != http.StatusNotFound {
		t.Errorf("chat unknown node = %d", w.Code)
	}
}

func TestContextPreview(t *testing.T) {
	r, _ := newTestRouter(t, "")
	focal := decode[models.Node](t, doJSON(t, r, http.MethodPost, "/nodes", CreateNodeRequest{Title: "Focus", Type: "research"}))

	w := doJSON(t, r, http.MethodGet, "/nodes/"+focal.ID+"/context", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("context = %d", w.Code)
	}
	resp := decode[ContextResponse](t, w)
	if !strings.Contains(resp.Context, "Focus") {
		t.Errorf("context = %q", resp.Context)
	}
}

func TestAttachmentUploadAndServe(t *testing.T) {
	r, _ := newTestRouter(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "diagram.png")
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(part, "png bytes")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d body=%s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/attachments/diagram.png", nil)
	if w.Code != http.StatusOK || w.Body.String() != "png bytes" {
		t.Errorf("serve = %d body=%q", w.Code, w.Body.String())
	}

	// Traversal is rejected.
	w = doJSON(t, r, http.MethodGet, "/attachments/..%2Fsecret", nil)
	if w.Code == http.StatusOK {
		t.Error("traversal served a file")
	}
}
