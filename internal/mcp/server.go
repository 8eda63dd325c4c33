// Package mcp exposes the interview as Model Context Protocol tools so an LLM tutor
// can run a case over stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/clinical-interview-sim/internal/service"
)

// Server represents the interview MCP server
type Server struct {
	interview *service.InterviewService
	mcpServer *mcp.Server
	tools     []string
	exportDir string
	logger    *logrus.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithExportDir sets where export_transcripts writes its files. Without it the tool
// writes to the working directory.
func WithExportDir(dir string) Option {
	return func(s *Server) {
		s.exportDir = dir
	}
}

// NewServer creates an MCP server and registers the interview tools.
func NewServer(interview *service.InterviewService, logger *logrus.Logger, opts ...Option) *Server {
	serverInfo := &mcp.Implementation{
		Name:    "clinical-interview-sim",
		Version: "v0.1.0",
	}

	server := &Server{
		interview: interview,
		mcpServer: mcp.NewServer(serverInfo, nil),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(server)
	}
	server.registerTools()

	logger.WithField("tool_count", len(server.tools)).Info("Registered MCP tools")
	return server
}

// Tools returns the names of the registered tools.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// Start serves on stdin/stdout until ctx is cancelled or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves on transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("Starting interview MCP server...")
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	addTool(s, &mcp.Tool{
		Name:        "start_case",
		Description: "Start a case: generates the patient's family from the differential and returns a session id.",
	}, s.startCase)
	addTool(s, &mcp.Tool{
		Name:        "ask_question",
		Description: "Ask the patient a question. Family-history questions are answered from the generated family; others return no_match.",
	}, s.askQuestion)
	addTool(s, &mcp.Tool{
		Name:        "score_case",
		Description: "Score the questions asked so far without ending the case.",
	}, s.scoreCase)
	addTool(s, &mcp.Tool{
		Name:        "end_case",
		Description: "End the case, returning the coverage report and storing the transcript.",
	}, s.endCase)
	addTool(s, &mcp.Tool{
		Name:        "reset_case",
		Description: "Forget every question asked in the case. The family is kept.",
	}, s.resetCase)
	addTool(s, &mcp.Tool{
		Name:        "family_tree",
		Description: "Return the generated family of a case.",
	}, s.familyTree)
	addTool(s, &mcp.Tool{
		Name:        "get_transcript",
		Description: "Return the stored transcript of an ended case.",
	}, s.getTranscript)
	addTool(s, &mcp.Tool{
		Name:        "export_transcripts",
		Description: "Write every stored transcript to a JSON file and return its path.",
	}, s.exportTranscripts)
}

// addTool registers fn as a tool whose result is rendered as JSON text content.
func addTool[In any](s *Server, tool *mcp.Tool, fn func(ctx context.Context, args In) (any, error)) {
	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.ServerRequest[*mcp.CallToolParamsFor[In]]) (*mcp.CallToolResultFor[any], error) {
		s.logger.WithField("tool", tool.Name).Debug("Handling MCP tool call")

		out, err := fn(ctx, req.Params.Arguments)
		text, isError := renderResult(out, err)
		if isError {
			s.logger.WithError(err).WithField("tool", tool.Name).Warn("Tool call failed")
		}
		return &mcp.CallToolResultFor[any]{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
			IsError: isError,
		}, nil
	})
	s.tools = append(s.tools, tool.Name)
}
