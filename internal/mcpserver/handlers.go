package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/clinical-assessment-server/internal/domain"
)

// defaultExportDir is where export_history writes backups when the caller
// does not name a directory.
const defaultExportDir = "./data/exports"

// ListModelsParams defines parameters for the list_models tool.
type ListModelsParams struct{}

// ModelSummary is one catalog entry in the list_models result.
type ModelSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Scheme      string   `json:"scheme"`
	Fields      []string `json:"fields"`
}

// ListModelsResult defines the result of the list_models tool.
type ListModelsResult struct {
	Models []ModelSummary `json:"models"`
}

// RunAssessmentParams defines parameters for the run_assessment tool.
type RunAssessmentParams struct {
	PatientID string         `json:"patient_id"`
	ModelID   string         `json:"model_id"`
	Inputs    map[string]any `json:"inputs"`
	Save      bool           `json:"save,omitempty"`
}

// RunAssessmentResult defines the result of the run_assessment tool.
type RunAssessmentResult struct {
	SessionStatus  string                 `json:"session_status"`
	Interpretation *domain.Interpretation `json:"interpretation,omitempty"`
	FieldErrors    map[string]string      `json:"field_errors,omitempty"`
	RecordID       string                 `json:"record_id,omitempty"`
}

// PatientHistoryParams defines parameters for the patient_history tool.
type PatientHistoryParams struct {
	PatientID string `json:"patient_id"`
	ModelID   string `json:"model_id,omitempty"`
}

// PatientHistoryResult defines the result of the patient_history tool.
type PatientHistoryResult struct {
	PatientID string                  `json:"patient_id"`
	Count     int                     `json:"count"`
	Records   []*domain.HistoryRecord `json:"records"`
}

// ExportHistoryParams defines parameters for the export_history tool.
type ExportHistoryParams struct {
	Directory string `json:"directory,omitempty"`
}

// ExportHistoryResult defines the result of the export_history tool.
type ExportHistoryResult struct {
	FilePath string `json:"file_path"`
	Count    int64  `json:"count"`
	Message  string `json:"message"`
}

// ImportHistoryParams defines parameters for the import_history tool.
type ImportHistoryParams struct {
	FilePath string `json:"file_path"`
}

// ImportHistoryResult defines the result of the import_history tool.
type ImportHistoryResult struct {
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Message  string `json:"message"`
}

func (s *Server) handleListModels(ctx context.Context, req *mcp.CallToolRequest, params ListModelsParams) (*mcp.CallToolResult, ListModelsResult, error) {
	s.logger.WithField("tool", "list_models").Info("Tool invoked")

	result := ListModelsResult{}
	for _, model := range s.registry.List() {
		summary := ModelSummary{
			ID:          model.ID,
			Name:        model.Name,
			Description: model.Description,
			Scheme:      string(model.Scheme.Kind),
		}
		for _, field := range model.Fields {
			summary.Fields = append(summary.Fields, field.Name)
		}
		result.Models = append(result.Models, summary)
	}

	return textResult(result), result, nil
}

func (s *Server) handleRunAssessment(ctx context.Context, req *mcp.CallToolRequest, params RunAssessmentParams) (*mcp.CallToolResult, RunAssessmentResult, error) {
	s.logger.WithFields(map[string]any{
		"tool":     "run_assessment",
		"model_id": params.ModelID,
	}).Info("Tool invoked")

	if params.PatientID == "" {
		return errorResult("patient_id is required"), RunAssessmentResult{}, nil
	}

	model, err := s.registry.Get(params.ModelID)
	if err != nil {
		return errorResult(fmt.Sprintf("unknown model %q", params.ModelID)), RunAssessmentResult{}, nil
	}

	session := domain.NewSession(params.PatientID, model, s.predictor, s.history,
		domain.WithLogger(s.logger))
	for name, value := range params.Inputs {
		// Field errors surface through the submit validation pass.
		_ = session.SetField(name, value)
	}

	if err := session.Submit(ctx); err != nil {
		snap := session.Snapshot()
		result := RunAssessmentResult{
			SessionStatus: string(snap.Status),
			FieldErrors:   snap.FieldErrors,
		}
		return errorResultWith(err.Error(), result), result, nil
	}

	snap := session.Snapshot()
	result := RunAssessmentResult{
		SessionStatus:  string(snap.Status),
		Interpretation: snap.Result,
	}

	if params.Save {
		if err := session.Persist(ctx); err != nil {
			return errorResultWith(fmt.Sprintf("assessment resulted but saving failed: %v", err), result), result, nil
		}
		snap = session.Snapshot()
		result.SessionStatus = string(snap.Status)
		result.RecordID = snap.RecordID
	}

	return textResult(result), result, nil
}

func (s *Server) handlePatientHistory(ctx context.Context, req *mcp.CallToolRequest, params PatientHistoryParams) (*mcp.CallToolResult, PatientHistoryResult, error) {
	s.logger.WithField("tool", "patient_history").Info("Tool invoked")

	if params.PatientID == "" {
		return errorResult("patient_id is required"), PatientHistoryResult{}, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	records, err := s.history.FetchHistory(fetchCtx, params.PatientID, params.ModelID)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to fetch history: %v", err)), PatientHistoryResult{}, nil
	}

	result := PatientHistoryResult{
		PatientID: params.PatientID,
		Count:     len(records),
		Records:   records,
	}
	return textResult(result), result, nil
}

func (s *Server) handleExportHistory(ctx context.Context, req *mcp.CallToolRequest, params ExportHistoryParams) (*mcp.CallToolResult, ExportHistoryResult, error) {
	s.logger.WithField("tool", "export_history").Info("Tool invoked")

	dir := params.Directory
	if dir == "" {
		dir = defaultExportDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errorResult(fmt.Sprintf("failed to create export directory: %v", err)), ExportHistoryResult{}, nil
	}

	filename := fmt.Sprintf("history_export_%s.json", time.Now().Format("20060102_150405"))
	filePath := filepath.Join(dir, filename)

	file, err := os.Create(filePath)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to create export file: %v", err)), ExportHistoryResult{}, nil
	}
	defer file.Close()

	count, err := s.history.Export(ctx, file)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to export history: %v", err)), ExportHistoryResult{}, nil
	}

	result := ExportHistoryResult{
		FilePath: filePath,
		Count:    count,
		Message:  fmt.Sprintf("Exported %d assessment records to %s", count, filePath),
	}
	return textResult(result), result, nil
}

func (s *Server) handleImportHistory(ctx context.Context, req *mcp.CallToolRequest, params ImportHistoryParams) (*mcp.CallToolResult, ImportHistoryResult, error) {
	s.logger.WithField("tool", "import_history").Info("Tool invoked")

	if params.FilePath == "" {
		return errorResult("file_path is required"), ImportHistoryResult{}, nil
	}

	file, err := os.Open(params.FilePath)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to open import file: %v", err)), ImportHistoryResult{}, nil
	}
	defer file.Close()

	imported, skipped, err := s.history.Import(ctx, file)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to import history: %v", err)), ImportHistoryResult{}, nil
	}

	result := ImportHistoryResult{
		Imported: imported,
		Skipped:  skipped,
		Message:  fmt.Sprintf("Imported %d assessment records, skipped %d duplicates", imported, skipped),
	}
	return textResult(result), result, nil
}

func textResult(payload any) *mcp.CallToolResult {
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to encode result: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(text)},
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
	}
}

func errorResultWith(message string, payload any) *mcp.CallToolResult {
	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errorResult(message)
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
			&mcp.TextContent{Text: string(text)},
		},
	}
}
