package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// severityOrder for report sections, most severe first
var severityOrder = []models.Severity{
	models.SeverityCritical,
	models.SeverityHigh,
	models.SeverityMedium,
	models.SeverityLow,
	models.SeverityInfo,
}

// Service generates PDF findings reports for a project: summary, severity
// breakdown, asset inventory and vulnerability details.
type Service struct {
	config  *common.ReportsConfig
	storage interfaces.StorageManager
	events  interfaces.EventService
	logger  arbor.ILogger
}

// NewService creates the report generator
func NewService(config *common.ReportsConfig, storage interfaces.StorageManager, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		config:  config,
		storage: storage,
		events:  events,
		logger:  logger,
	}
}

// Dir returns the directory reports are written to
func (s *Service) Dir() string {
	return s.config.Dir
}

// Generate writes a findings report PDF for the project and returns its path
func (s *Service) Generate(ctx context.Context, projectID string) (string, error) {
	project, err := s.storage.ProjectStorage().GetProject(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to load project %s: %w", projectID, err)
	}
	if project == nil {
		return "", fmt.Errorf("project %s not found", projectID)
	}

	assets, err := s.storage.AssetStorage().ListAssets(ctx, projectID, "", 0, 0)
	if err != nil {
		return "", fmt.Errorf("failed to load assets: %w", err)
	}
	vulns, err := s.storage.VulnerabilityStorage().ListVulnerabilities(ctx, projectID, "", 0, 0)
	if err != nil {
		return "", fmt.Errorf("failed to load vulnerabilities: %w", err)
	}
	severityCounts, err := s.storage.VulnerabilityStorage().CountBySeverity(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to count vulnerabilities: %w", err)
	}

	if err := os.MkdirAll(s.config.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	s.writeHeader(pdf, project)
	s.writeSummary(pdf, len(assets), len(vulns), severityCounts)
	s.writeAssets(pdf, assets)
	s.writeVulnerabilities(pdf, vulns)

	filename := fmt.Sprintf("%s-%s.pdf", project.ID, time.Now().Format("20060102-150405"))
	path := filepath.Join(s.config.Dir, filename)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	if err := s.events.Publish(ctx, interfaces.Event{
		Type:  interfaces.EventReportGenerated,
		Topic: interfaces.ProjectTopic(projectID),
		Payload: map[string]interface{}{
			"project_id": projectID,
			"path":       path,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Str("project_id", projectID).Msg("Failed to publish report event")
	}

	s.logger.Info().
		Str("project_id", projectID).
		Str("path", path).
		Int("vulnerabilities", len(vulns)).
		Msg("Report generated")
	return path, nil
}

func (s *Service) writeHeader(pdf *fpdf.Fpdf, project *models.Project) {
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Security Assessment Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Project: "+project.Name, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, "Generated: "+time.Now().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func (s *Service) writeSummary(pdf *fpdf.Fpdf, assetCount, vulnCount int, severityCounts map[models.Severity]int) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Summary", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Assets: %d", assetCount), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Vulnerabilities: %d", vulnCount), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, severity := range severityOrder {
		count := severityCounts[severity]
		pdf.CellFormat(0, 6, fmt.Sprintf("  %s: %d", severity, count), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (s *Service) writeAssets(pdf *fpdf.Fpdf, assets []*models.Asset) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Assets", "", 1, "L", false, 0, "")

	if len(assets) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, "No assets recorded.", "", 1, "L", false, 0, "")
		pdf.Ln(4)
		return
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(40, 7, "Type", "B", 0, "L", false, 0, "")
	pdf.CellFormat(120, 7, "Value", "B", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Risk", "B", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, asset := range assets {
		value := asset.Value
		if len(value) > 80 {
			value = value[:80] + "..."
		}
		pdf.CellFormat(40, 6, string(asset.Type), "", 0, "L", false, 0, "")
		pdf.CellFormat(120, 6, value, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("%d", asset.RiskScore), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (s *Service) writeVulnerabilities(pdf *fpdf.Fpdf, vulns []*models.Vulnerability) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Vulnerabilities", "", 1, "L", false, 0, "")

	if len(vulns) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, "No vulnerabilities recorded.", "", 1, "L", false, 0, "")
		return
	}

	rank := make(map[models.Severity]int, len(severityOrder))
	for i, severity := range severityOrder {
		rank[severity] = i
	}
	sorted := make([]*models.Vulnerability, len(vulns))
	copy(sorted, vulns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank[sorted[i].Severity] < rank[sorted[j].Severity]
	})

	for _, vuln := range sorted {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, fmt.Sprintf("[%s] %s", vuln.Severity, vuln.Title), "", "L", false)

		pdf.SetFont("Helvetica", "", 9)
		if vuln.Description != "" {
			desc := vuln.Description
			if len(desc) > 600 {
				desc = desc[:600] + "..."
			}
			pdf.MultiCell(0, 5, desc, "", "L", false)
		}
		if len(vuln.CVEIDs) > 0 {
			pdf.MultiCell(0, 5, "CVEs: "+joinMax(vuln.CVEIDs, 10), "", "L", false)
		}
		if vuln.Remediation != "" {
			remediation := vuln.Remediation
			if len(remediation) > 400 {
				remediation = remediation[:400] + "..."
			}
			pdf.MultiCell(0, 5, "Remediation: "+remediation, "", "L", false)
		}
		pdf.Ln(3)
	}
}

func joinMax(items []string, max int) string {
	if len(items) > max {
		items = items[:max]
	}
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
