package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/vantage/internal/board"
	"github.com/starford/vantage/internal/models"
	"github.com/starford/vantage/internal/testutil"
)

const dataset = `
OpenAI:
  ticker: ""
  valuation: "$157 Billion"
  sector: "Artificial Intelligence"
  status: "Private"
  description: "Creator of ChatGPT and GPT-4."
  founders: ["Sam Altman", "Greg Brockman"]
  investors: ["Microsoft", "Thrive Capital"]
Anthropic:
  valuation: "$40 Billion"
  sector: "AI Safety"
  status: "Private"
  description: "AI safety company building reliable, interpretable AI systems."
  founders: ["Dario Amodei", "Daniela Amodei"]
  investors: ["Amazon", "Google"]
`

func testImporter(t *testing.T) (*Importer, *board.Service) {
	t.Helper()
	boards := board.NewService(testutil.TestDB(t), nil, models.Point{X: 400, Y: 300})
	return NewImporter(boards, nil), boards
}

func TestImportCreatesGraph(t *testing.T) {
	im, boards := testImporter(t)
	if err := im.Import(context.Background(), []byte(dataset)); err != nil {
		t.Fatal(err)
	}

	snap, err := boards.Board(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// 2 companies + 4 founders + 4 investors.
	if len(snap.Nodes) != 10 {
		t.Errorf("nodes = %d, want 10", len(snap.Nodes))
	}
	if len(snap.Edges) != 8 {
		t.Errorf("edges = %d, want 8", len(snap.Edges))
	}

	company, err := boards.Store().FindNodeByTitle("OpenAI", false)
	if err != nil {
		t.Fatal(err)
	}
	if company.Type != models.NodeCompany {
		t.Errorf("type = %s", company.Type)
	}
	if company.Data.Company.Metrics["Valuation"] != "$157 Billion" {
		t.Errorf("metrics = %v", company.Data.Company.Metrics)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	im, boards := testImporter(t)
	ctx := context.Background()

	if err := im.Import(ctx, []byte(dataset)); err != nil {
		t.Fatal(err)
	}
	if err := im.Import(ctx, []byte(dataset)); err != nil {
		t.Fatal(err)
	}

	snap, _ := boards.Board(ctx)
	if len(snap.Nodes) != 10 || len(snap.Edges) != 8 {
		t.Errorf("second import changed counts: %d nodes, %d edges", len(snap.Nodes), len(snap.Edges))
	}
}

func TestImportRefreshesExistingCompany(t *testing.T) {
	im, boards := testImporter(t)
	ctx := context.Background()

	if err := im.Import(ctx, []byte(dataset)); err != nil {
		t.Fatal(err)
	}
	updated := `
OpenAI:
  valuation: "$300 Billion"
  sector: "Artificial Intelligence"
  status: "Private"
  description: "Creator of ChatGPT and GPT-4."
  founders: []
  investors: []
`
	if err := im.Import(ctx, []byte(updated)); err != nil {
		t.Fatal(err)
	}

	company, _ := boards.Store().FindNodeByTitle("OpenAI", false)
	if company.Data.Company.Metrics["Valuation"] != "$300 Billion" {
		t.Errorf("valuation not refreshed: %v", company.Data.Company.Metrics)
	}
}

func TestImportFileChecksumSkip(t *testing.T) {
	im, boards := testImporter(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "dataset.yaml")
	if err := os.WriteFile(path, []byte(dataset), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := im.ImportFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	// Delete a node behind the importer's back; an unchanged file must
	// not re-import it.
	company, _ := boards.Store().FindNodeByTitle("Anthropic", false)
	if err := boards.DeleteNode(ctx, company.ID); err != nil {
		t.Fatal(err)
	}
	if err := im.ImportFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	if _, err := boards.Store().FindNodeByTitle("Anthropic", false); err == nil {
		t.Error("unchanged file was re-imported")
	}
}

func TestImportMalformedYAML(t *testing.T) {
	im, _ := testImporter(t)
	if err := im.Import(context.Background(), []byte(":\nnot yaml")); err == nil {
		t.Fatal("expected parse error")
	}
}
