// Package mcp exposes the diagnosis engine as Model Context Protocol tools so
// assistants can query the frame hierarchy and rank differentials.
package mcp

import (
	"context"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/internal/feedback"
	"github.com/frame-dx-server/internal/kb"
	"github.com/frame-dx-server/internal/service"
)

const (
	serverName    = "framedx"
	serverVersion = "v0.1.0"
)

// Server wraps the MCP SDK server around the frame store and diagnosis
// service.
type Server struct {
	MCPServer *sdkmcp.Server

	frames    *kb.Holder
	diagnosis *service.DiagnosisService
	feedback  feedback.Store
	logger    *logrus.Logger
}

// Option is a functional option for Server.
type Option func(*Server)

// WithFeedbackStore enables the feedback tools.
func WithFeedbackStore(store feedback.Store) Option {
	return func(s *Server) {
		s.feedback = store
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an MCP server with the diagnosis tools registered.
func NewServer(frames *kb.Holder, diagnosis *service.DiagnosisService, opts ...Option) *Server {
	s := &Server{
		frames:    frames,
		diagnosis: diagnosis,
		logger:    logrus.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: serverName, Version: serverVersion},
		nil,
	)
	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithField("frames_version", s.frames.Catalog().Version()).Info("Starting MCP server on stdio")
	if err := s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "diagnose",
		Description: "Rank disease frames against a list of reported findings. Returns the ranked differential and per-disease scoring details.",
	}, s.handleDiagnose)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_symptoms",
		Description: "List every finding the knowledge base knows about, sorted.",
	}, s.handleListSymptoms)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_frames",
		Description: "Return the frame hierarchy as nodes and parent to child edges.",
	}, s.handleGetFrames)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_diseases",
		Description: "List the frames that take part in ranking.",
	}, s.handleListDiseases)

	if s.feedback == nil {
		return
	}

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "submit_feedback",
		Description: "Record the confirmed diagnosis for a set of findings. The engine's top suggestion is stored alongside it.",
	}, s.handleSubmitFeedback)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_feedback",
		Description: "List recorded diagnosis feedback, newest first.",
	}, s.handleListFeedback)
}

// --- Tool input/output types ---

type diagnoseInput struct {
	Symptoms    []string `json:"symptoms" jsonschema:"reported findings, e.g. fever or cough"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of ranked diseases (0 = all)"`
	ExcludeZero bool     `json:"exclude_zero,omitempty" jsonschema:"drop diseases that scored 0"`
}

type diagnoseOutput struct {
	Ranked          []domain.RankedResult              `json:"ranked"`
	Details         map[string]domain.DiagnosisDetails `json:"details"`
	Findings        []string                           `json:"findings"`
	SnapshotVersion string                             `json:"snapshot_version"`
}

type emptyInput struct{}

type symptomsOutput struct {
	Symptoms []string `json:"symptoms"`
	Version  string   `json:"version"`
}

type framesOutput struct {
	Nodes   []domain.Node `json:"nodes"`
	Edges   []domain.Edge `json:"edges"`
	Version string        `json:"version"`
}

type diseasesOutput struct {
	Diseases []string `json:"diseases"`
	Version  string   `json:"version"`
}

type submitFeedbackInput struct {
	Symptoms         []string `json:"symptoms" jsonschema:"findings the diagnosis was made from"`
	ConfirmedDisease string   `json:"confirmed_disease" jsonschema:"disease confirmed by the clinician"`
	Reviewer         string   `json:"reviewer,omitempty" jsonschema:"who confirmed it"`
	Notes            string   `json:"notes,omitempty"`
}

type submitFeedbackOutput struct {
	ID               int64  `json:"id"`
	SuggestedDisease string `json:"suggested_disease"`
	ConfirmedDisease string `json:"confirmed_disease"`
	UserAgreed       bool   `json:"user_agreed"`
}

type listFeedbackInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"page size (default 50)"`
	Offset int `json:"offset,omitempty"`
}

type feedbackEntry struct {
	ID               int64    `json:"id"`
	Symptoms         []string `json:"symptoms"`
	SuggestedDisease string   `json:"suggested_disease"`
	ConfirmedDisease string   `json:"confirmed_disease"`
	UserAgreed       bool     `json:"user_agreed"`
	Reviewer         string   `json:"reviewer,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

type listFeedbackOutput struct {
	Feedback []feedbackEntry `json:"feedback"`
	Total    int64           `json:"total"`
}

// --- Handlers ---

func (s *Server) handleDiagnose(ctx context.Context, _ *sdkmcp.CallToolRequest, input diagnoseInput) (*sdkmcp.CallToolResult, diagnoseOutput, error) {
	opts := domain.DiagnoseOptions{Limit: input.Limit, ExcludeZero: input.ExcludeZero}
	result, err := s.diagnosis.Diagnose(ctx, input.Symptoms, opts)
	if err != nil {
		return nil, diagnoseOutput{}, fmt.Errorf("diagnose: %w", err)
	}

	return nil, diagnoseOutput{
		Ranked:          result.Ranked,
		Details:         result.Details,
		Findings:        result.Findings,
		SnapshotVersion: result.SnapshotVersion,
	}, nil
}

func (s *Server) handleListSymptoms(_ context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, symptomsOutput, error) {
	catalog := s.frames.Catalog()
	return nil, symptomsOutput{Symptoms: catalog.SymptomVocabulary(), Version: catalog.Version()}, nil
}

func (s *Server) handleGetFrames(_ context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, framesOutput, error) {
	catalog := s.frames.Catalog()
	graph := catalog.Hierarchy()
	return nil, framesOutput{Nodes: graph.Nodes, Edges: graph.Edges, Version: catalog.Version()}, nil
}

func (s *Server) handleListDiseases(_ context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, diseasesOutput, error) {
	catalog := s.frames.Catalog()
	return nil, diseasesOutput{Diseases: catalog.Diseases(), Version: catalog.Version()}, nil
}

func (s *Server) handleSubmitFeedback(ctx context.Context, _ *sdkmcp.CallToolRequest, input submitFeedbackInput) (*sdkmcp.CallToolResult, submitFeedbackOutput, error) {
	result, err := s.diagnosis.Diagnose(ctx, input.Symptoms, domain.DiagnoseOptions{})
	if err != nil {
		return nil, submitFeedbackOutput{}, fmt.Errorf("submit_feedback: %w", err)
	}

	fb := &feedback.Feedback{
		Symptoms:         input.Symptoms,
		ConfirmedDisease: input.ConfirmedDisease,
		Reviewer:         input.Reviewer,
		Notes:            input.Notes,
		SnapshotVersion:  result.SnapshotVersion,
	}
	if top, ok := result.Top(); ok {
		fb.SuggestedDisease = top.Disease
	}

	if err := s.feedback.Save(ctx, fb); err != nil {
		return nil, submitFeedbackOutput{}, fmt.Errorf("submit_feedback: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"feedback_id": fb.ID,
		"agreed":      fb.UserAgreed,
	}).Info("Feedback recorded via MCP")

	return nil, submitFeedbackOutput{
		ID:               fb.ID,
		SuggestedDisease: fb.SuggestedDisease,
		ConfirmedDisease: fb.ConfirmedDisease,
		UserAgreed:       fb.UserAgreed,
	}, nil
}

func (s *Server) handleListFeedback(ctx context.Context, _ *sdkmcp.CallToolRequest, input listFeedbackInput) (*sdkmcp.CallToolResult, listFeedbackOutput, error) {
	limit := input.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	entries, err := s.feedback.List(ctx, limit, offset)
	if err != nil {
		return nil, listFeedbackOutput{}, fmt.Errorf("list_feedback: %w", err)
	}
	total, err := s.feedback.Count(ctx)
	if err != nil {
		return nil, listFeedbackOutput{}, fmt.Errorf("list_feedback: %w", err)
	}
	out := listFeedbackOutput{Feedback: make([]feedbackEntry, 0, len(entries)), Total: total}
	for _, fb := range entries {
		out.Feedback = append(out.Feedback, feedbackEntry{
			ID:               fb.ID,
			Symptoms:         fb.Symptoms,
			SuggestedDisease: fb.SuggestedDisease,
			ConfirmedDisease: fb.ConfirmedDisease,
			UserAgreed:       fb.UserAgreed,
			Reviewer:         fb.Reviewer,
			CreatedAt:        fb.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil, out, nil
}
