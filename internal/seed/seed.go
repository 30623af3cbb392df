// Package seed imports a YAML company dataset onto the board.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starford/vantage/internal/apperr"
	"github.com/starford/vantage/internal/board"
	"github.com/starford/vantage/internal/checksum"
	"github.com/starford/vantage/internal/graph"
	"github.com/starford/vantage/internal/models"
)

// Company is one dataset entry. The map key in the YAML file is the
// company name.
type Company struct {
	Ticker      string   `yaml:"ticker"`
	Valuation   string   `yaml:"valuation"`
	Sector      string   `yaml:"sector"`
	Status      string   `yaml:"status"`
	Description string   `yaml:"description"`
	Founders    []string `yaml:"founders"`
	Investors   []string `yaml:"investors"`
}

// Importer merges a dataset file into the board. Entries are matched by
// title, so re-running against the same board is idempotent.
type Importer struct {
	boards *board.Service
	logger *slog.Logger

	lastSum string
}

// NewImporter creates a dataset importer.
func NewImporter(boards *board.Service, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{boards: boards, logger: logger}
}

// ImportFile reads and imports a dataset file. An unchanged file since
// the previous call is skipped by checksum.
func (im *Importer) ImportFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed: read %s: %w", path, err)
	}
	sum := checksum.Sum(data)
	if sum == im.lastSum {
		im.logger.Debug("seed: dataset unchanged, skipping", slog.String("path", path))
		return nil
	}
	if err := im.Import(ctx, data); err != nil {
		return err
	}
	im.lastSum = sum
	return nil
}

// Import merges raw YAML dataset content into the board.
func (im *Importer) Import(ctx context.Context, data []byte) error {
	var dataset map[string]Company
	if err := yaml.Unmarshal(data, &dataset); err != nil {
		return fmt.Errorf("seed: parse dataset: %w", err)
	}

	created := 0
	for name, c := range dataset {
		companyID, fresh, err := im.ensureCompany(ctx, name, c)
		if err != nil {
			return err
		}
		if fresh {
			created++
		}

		for _, founder := range c.Founders {
			if err := im.ensurePerson(ctx, founder, companyID, "leads"); err != nil {
				return err
			}
		}
		for _, investor := range c.Investors {
			if err := im.ensurePerson(ctx, investor, companyID, "invested in"); err != nil {
				return err
			}
		}
	}

	im.logger.Info("seed: import complete",
		slog.Int("companies", len(dataset)),
		slog.Int("created", created))
	return nil
}

// ensureCompany finds or creates the company node for a dataset entry.
// An existing node keeps its position; only the dataset fields in its
// payload are refreshed.
func (im *Importer) ensureCompany(ctx context.Context, name string, c Company) (string, bool, error) {
	data := models.NodeData{
		Summary: c.Description,
		Company: &models.CompanyData{
			Ticker:      c.Ticker,
			Name:        name,
			Sector:      c.Sector,
			Description: c.Description,
			Metrics: map[string]string{
				"Valuation": c.Valuation,
				"Status":    c.Status,
			},
		},
	}

	existing, err := im.boards.Store().FindNodeByTitle(name, false)
	if err == nil {
		if _, err := im.boards.UpdateNode(ctx, existing.ID, nodeDataUpdate(&data)); err != nil {
			return "", false, fmt.Errorf("seed: refresh %q: %w", name, err)
		}
		return existing.ID, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return "", false, err
	}

	n, err := im.boards.CreateNode(ctx, board.CreateNodeInput{
		Title: name,
		Type:  models.NodeCompany,
		Data:  data,
	})
	if err != nil {
		return "", false, fmt.Errorf("seed: create %q: %w", name, err)
	}
	return n.ID, true, nil
}

// ensurePerson finds or creates a person node and connects it to the
// company. Duplicate edges collapse in the store.
func (im *Importer) ensurePerson(ctx context.Context, name, companyID, relationship string) error {
	var personID string
	existing, err := im.boards.Store().FindNodeByTitle(name, false)
	switch {
	case err == nil:
		personID = existing.ID
	case errors.Is(err, apperr.ErrNotFound):
		n, createErr := im.boards.CreateNode(ctx, board.CreateNodeInput{
			Title: name,
			Type:  models.NodeText,
		})
		if createErr != nil {
			return fmt.Errorf("seed: create %q: %w", name, createErr)
		}
		personID = n.ID
	default:
		return err
	}

	if _, err := im.boards.Connect(ctx, personID, companyID, relationship); err != nil {
		return fmt.Errorf("seed: connect %q: %w", name, err)
	}
	return nil
}

func nodeDataUpdate(data *models.NodeData) graph.NodeUpdate {
	return graph.NodeUpdate{Data: data}
}
