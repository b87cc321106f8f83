// Package mcpserver exposes the assessment workflow to MCP clients over
// stdio. Assistants can list the model catalog, run a full assessment from a
// complete input set, and read a patient's history. Operator tools export
// and import history backups as JSON files.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/clinical-assessment-server/internal/domain"
	"github.com/clinical-assessment-server/internal/history"
)

const serverVersion = "v0.1.0"

// Server is the MCP server for the assessment workflow.
type Server struct {
	registry  *domain.Registry
	predictor domain.PredictionGateway
	history   *history.Controller
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(
	registry *domain.Registry,
	predictor domain.PredictionGateway,
	historyCtrl *history.Controller,
	logger *logrus.Logger,
) *Server {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	serverInfo := &mcp.Implementation{
		Name:    "clinical-assessment-server",
		Version: serverVersion,
	}

	s := &Server{
		registry:  registry,
		predictor: predictor,
		history:   historyCtrl,
		mcpServer: mcp.NewServer(serverInfo, nil),
		logger:    logger,
	}

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_models",
		Description: "List the available disease assessment models with their input fields and classification schemes.",
	}, s.handleListModels)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "run_assessment",
		Description: "Run a complete diagnostic assessment for a patient: validate the inputs, obtain a prediction, interpret it, and save the outcome to the patient's history.",
	}, s.handleRunAssessment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "patient_history",
		Description: "Fetch a patient's saved assessment records, newest first, optionally filtered by model.",
	}, s.handlePatientHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_history",
		Description: "Export all saved assessment records to a JSON backup file.",
	}, s.handleExportHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "import_history",
		Description: "Import assessment records from a JSON backup file. Skips duplicates.",
	}, s.handleImportHistory)

	s.logger.Info("Registered MCP tools")
}

// Run serves MCP requests over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio transport")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
