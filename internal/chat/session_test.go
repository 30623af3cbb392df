package chat

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/starford/vantage/internal/models"
	"github.com/starford/vantage/internal/testutil"
)

// chunkReader yields the payload a few bytes at a time so directive
// markers tear across read boundaries.
type chunkReader struct {
	rest string
	size int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.rest == "" {
		return 0, io.EOF
	}
	n := r.size
	if n > len(r.rest) {
		n = len(r.rest)
	}
	copy(p, r.rest[:n])
	r.rest = r.rest[n:]
	return n, nil
}

func (r *chunkReader) Close() error { return nil }

type fakeAgent struct {
	response string
	chunk    int
	lastQ    string
}

func (f *fakeAgent) Research(_ context.Context, query, _ string) (io.ReadCloser, error) {
	f.lastQ = query
	size := f.chunk
	if size <= 0 {
		size = 5
	}
	return &chunkReader{rest: f.response, size: size}, nil
}

type recordedEvents struct {
	texts    []string
	statuses []string
	actions  []string
}

func (r *recordedEvents) EmitText(t string)          { r.texts = append(r.texts, t) }
func (r *recordedEvents) EmitStatus(m string)        { r.statuses = append(r.statuses, m) }
func (r *recordedEvents) EmitActionApplied(t string) { r.actions = append(r.actions, t) }

type memStatus struct{ history []string }

func (s *memStatus) SetStatus(m string) { s.history = append(s.history, m) }

func TestRunStreamsAndDispatches(t *testing.T) {
	db := testutil.TestDB(t)
	focal, err := db.CreateNode(models.Node{Title: "NVIDIA research", Type: models.NodeResearch})
	if err != nil {
		t.Fatal(err)
	}

	agent := &fakeAgent{
		response: `Sure. <<<STATUS:Creating chart:STATUS>>>` +
			`<<<ACTION:{"type":"create_chart","data":{"chart":{"ticker":"NVDA"}}}:ACTION>>>` +
			` Here you go.`,
		chunk: 7,
	}
	status := &memStatus{}
	s := NewSession(db, agent, status, nil, models.Point{X: 400, Y: 300}, nil)

	emit := &recordedEvents{}
	reply, err := s.Run(context.Background(), focal.ID, "Chart NVDA please", emit)
	if err != nil {
		t.Fatal(err)
	}

	if reply != "Sure.  Here you go." {
		t.Errorf("reply = %q", reply)
	}
	if strings.Join(emit.texts, "") != reply {
		t.Errorf("emitted text = %q", strings.Join(emit.texts, ""))
	}
	if len(emit.actions) != 1 || emit.actions[0] != "create_chart" {
		t.Errorf("actions = %v", emit.actions)
	}

	// Exactly one chart node despite the end-of-stream re-scan.
	nodes, _ := db.ListNodes()
	charts := 0
	for _, n := range nodes {
		if n.Type == models.NodeChart {
			charts++
		}
	}
	if charts != 1 {
		t.Errorf("chart nodes = %d, want 1", charts)
	}

	// Status went through the sink and was cleared at stream end.
	if len(status.history) == 0 || status.history[len(status.history)-1] != "" {
		t.Errorf("status history = %v", status.history)
	}

	// Both sides of the exchange are persisted in order.
	msgs, _ := db.Messages(focal.ID, 0)
	if len(msgs) != 2 || msgs[0].Role != models.RoleUser || msgs[1].Role != models.RoleAssistant {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[1].Content != reply {
		t.Errorf("assistant message = %q", msgs[1].Content)
	}
}

func TestRunQueryCarriesContext(t *testing.T) {
	db := testutil.TestDB(t)
	focal, _ := db.CreateNode(models.Node{Title: "Tesla deep dive", Type: models.NodeResearch})

	agent := &fakeAgent{response: "ok"}
	s := NewSession(db, agent, nil, nil, models.Point{}, nil)
	if _, err := s.Run(context.Background(), focal.ID, "what changed?", nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(agent.lastQ, "Tesla deep dive") || !strings.Contains(agent.lastQ, "what changed?") {
		t.Errorf("query = %q", agent.lastQ)
	}
}

func TestRunUnknownNode(t *testing.T) {
	db := testutil.TestDB(t)
	s := NewSession(db, &fakeAgent{response: "ok"}, nil, nil, models.Point{}, nil)
	if _, err := s.Run(context.Background(), "missing", "hi", nil); err == nil {
		t.Fatal("expected error for unknown node")
	}
}
