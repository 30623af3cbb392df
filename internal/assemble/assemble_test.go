package assemble

import (
	"strings"
	"testing"

	"github.com/starford/vantage/internal/graph"
	"github.com/starford/vantage/internal/models"
	"github.com/starford/vantage/internal/testutil"
)

func mustNode(t *testing.T, db *graph.DB, n models.Node) *models.Node {
	t.Helper()
	created, err := db.CreateNode(n)
	if err != nil {
		t.Fatalf("CreateNode(%q): %v", n.Title, err)
	}
	return created
}

func mustEdge(t *testing.T, db *graph.DB, source, target string) {
	t.Helper()
	if _, _, err := db.CreateEdge(source, target, ""); err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}
}

func TestAssembleFocalWithCompanyAndTextNeighbors(t *testing.T) {
	db := testutil.TestDB(t)

	focal := mustNode(t, db, models.Node{
		Title: "EV Market Research",
		Type:  models.NodeResearch,
		Data:  models.NodeData{Summary: "Tracking the EV supply chain."},
	})
	company := mustNode(t, db, models.Node{
		Title: "TSLA",
		Type:  models.NodeCompany,
		Data: models.NodeData{Company: &models.CompanyData{
			Ticker:      "TSLA",
			Name:        "Tesla Inc",
			Sector:      "Automotive",
			MarketCap:   "$800B",
			Price:       242.5,
			Description: "Electric vehicle maker.",
			Metrics:     map[string]string{"P/E": "70"},
		}},
	})
	note := mustNode(t, db, models.Node{
		Title: "Battery notes",
		Type:  models.NodeText,
		Data:  models.NodeData{Content: "Lithium prices fell sharply this quarter."},
	})
	mustEdge(t, db, focal.ID, company.ID)
	mustEdge(t, db, note.ID, focal.ID) // incoming edge: still a neighbor

	got, err := New(db).Assemble(focal)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	for _, want := range []string{
		"EV Market Research",
		"Tracking the EV supply chain.",
		"TSLA",
		"242.5",
		"P/E: 70",
		"Lithium prices fell sharply this quarter.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("context missing %q:\n%s", want, got)
		}
	}
	// Company block must come before the text block (edge order).
	if strings.Index(got, "TSLA") > strings.Index(got, "Battery notes") {
		t.Errorf("neighbor order does not follow edge order:\n%s", got)
	}
}

func TestAssembleDedupesMultiEdgeNeighbors(t *testing.T) {
	db := testutil.TestDB(t)
	focal := mustNode(t, db, models.Node{Title: "Focal", Type: models.NodeResearch})
	other := mustNode(t, db, models.Node{Title: "Other", Type: models.NodeText,
		Data: models.NodeData{Content: "body"}})
	mustEdge(t, db, focal.ID, other.ID)
	mustEdge(t, db, other.ID, focal.ID) // reverse edge to the same neighbor

	got, err := New(db).Assemble(focal)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if n := strings.Count(got, "Connected: Other"); n != 1 {
		t.Errorf("neighbor visited %d times, want once:\n%s", n, got)
	}
}

func TestAssembleResearchNeighborMessageWindow(t *testing.T) {
	db := testutil.TestDB(t)
	focal := mustNode(t, db, models.Node{Title: "Focal", Type: models.NodeResearch})
	chat := mustNode(t, db, models.Node{Title: "Old chat", Type: models.NodeResearch})
	mustEdge(t, db, focal.ID, chat.ID)

	long := strings.Repeat("x", 400)
	for i := 0; i < 5; i++ {
		if _, err := db.AppendMessage(chat.ID, models.RoleUser, "question"); err != nil {
			t.Fatal(err)
		}
		if _, err := db.AppendMessage(chat.ID, models.RoleAssistant, long); err != nil {
			t.Fatal(err)
		}
	}

	got, err := New(db).Assemble(focal)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// Last 3 exchanges: 6 messages total.
	if n := strings.Count(got, "- user:")+strings.Count(got, "- assistant:"); n != 6 {
		t.Errorf("message count = %d, want 6:\n%s", n, got)
	}
	// Long messages clipped to 200 chars plus ellipsis.
	if strings.Contains(got, strings.Repeat("x", 201)) {
		t.Error("assistant message not clipped")
	}
	if !strings.Contains(got, strings.Repeat("x", 200)+"...") {
		t.Error("expected clipped marker")
	}
}

func TestAssembleAttachmentMarker(t *testing.T) {
	db := testutil.TestDB(t)
	focal := mustNode(t, db, models.Node{Title: "Focal", Type: models.NodeResearch})
	img := mustNode(t, db, models.Node{Title: "Diagram", Type: models.NodeImage,
		Data: models.NodeData{Attachment: &models.AttachmentData{Filename: "diagram.png"}}})
	mustEdge(t, db, focal.ID, img.ID)

	got, err := New(db).Assemble(focal)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !strings.Contains(got, "[image attachment: diagram.png]") {
		t.Errorf("missing attachment marker:\n%s", got)
	}
}
