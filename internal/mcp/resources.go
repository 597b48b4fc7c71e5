package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/frame-dx-server/internal/domain"
)

const (
	framesURI   = "framedx://frames"
	symptomsURI = "framedx://symptoms"
)

func (s *Server) registerResources() {
	s.MCPServer.AddResource(&sdkmcp.Resource{
		URI:         framesURI,
		Name:        "frames",
		Description: "The frame hierarchy as nodes and edges, in the same shape as GET /api/frames.",
		MIMEType:    "application/json",
	}, s.readJSONResource(func() any { return s.frames.Catalog().Hierarchy() }))

	s.MCPServer.AddResource(&sdkmcp.Resource{
		URI:         symptomsURI,
		Name:        "symptoms",
		Description: "Every finding the knowledge base knows about, sorted.",
		MIMEType:    "application/json",
	}, s.readJSONResource(func() any { return s.frames.Catalog().SymptomVocabulary() }))
}

func (s *Server) readJSONResource(snapshot func() any) sdkmcp.ResourceHandler {
	return func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		data, err := json.Marshal(snapshot())
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", req.Params.URI, err)
		}
		return &sdkmcp.ReadResourceResult{
			Contents: []*sdkmcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	}
}

func (s *Server) registerPrompts() {
	s.MCPServer.AddPrompt(&sdkmcp.Prompt{
		Name:        "differential",
		Description: "Rank the knowledge base against a patient's findings and explain the differential.",
		Arguments: []*sdkmcp.PromptArgument{
			{Name: "symptoms", Description: "comma separated findings", Required: true},
		},
	}, s.handleDifferentialPrompt)
}

func (s *Server) handleDifferentialPrompt(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	var symptoms []string
	for _, part := range strings.Split(req.Params.Arguments["symptoms"], ",") {
		if part = strings.TrimSpace(part); part != "" {
			symptoms = append(symptoms, part)
		}
	}
	if len(symptoms) == 0 {
		return nil, fmt.Errorf("differential: symptoms argument is required")
	}

	result, err := s.diagnosis.Diagnose(ctx, symptoms, domain.DiagnoseOptions{ExcludeZero: true})
	if err != nil {
		return nil, fmt.Errorf("differential: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A patient presents with: %s.\n\n", strings.Join(result.Findings, ", "))
	b.WriteString("The frame-based engine ranked the candidate diseases as follows:\n")
	if len(result.Ranked) == 0 {
		b.WriteString("- no disease scored above zero\n")
	}
	for _, r := range result.Ranked {
		fmt.Fprintf(&b, "- %s: %g\n", r.Disease, r.Score)
	}

	var excluded []string
	for disease, d := range result.Details {
		if len(d.UnmetMust) > 0 || len(d.ForbiddenPresent) > 0 {
			excluded = append(excluded, disease)
		}
	}
	if len(excluded) > 0 {
		sort.Strings(excluded)
		fmt.Fprintf(&b, "\nExcluded by must_have / must_not_have rules: %s.\n", strings.Join(excluded, ", "))
	}
	b.WriteString("\nExplain the differential, note which findings drive each score, and suggest findings that would separate the top candidates.")

	return &sdkmcp.GetPromptResult{
		Description: "Differential diagnosis for the reported findings",
		Messages: []*sdkmcp.PromptMessage{{
			Role:    "user",
			Content: &sdkmcp.TextContent{Text: b.String()},
		}},
	}, nil
}
