// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the memory doctor to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/openkit/internal/apperr"
	"github.com/starford/openkit/internal/doctor"
	"github.com/starford/openkit/internal/history"
	"github.com/starford/openkit/internal/kernel"
)

// ContractURI is the resource URI of DocsContract.
const ContractURI = "openkit://docs-contract"

// Service is the kernel surface the tools need. *kernel.Service implements it.
type Service interface {
	Check(ctx context.Context) (*kernel.DoctorRun, error)
	Doctor(ctx context.Context, write bool) (*kernel.DoctorRun, error)
	History(ctx context.Context, limit int) ([]history.Run, error)
	ListDocs(ctx context.Context) ([]kernel.DocInfo, error)
	ReadDoc(ctx context.Context, path string) ([]byte, error)
}

// Server wraps the MCP server with the memory tools.
type Server struct {
	mcp *server.MCPServer
	svc Service
}

// New creates a new MCP server with all tools registered.
func New(svc Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"OpenKit",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("memory_doctor",
		mcp.WithDescription("Check the docs root for inline links, Related sections on hubs, "+
			"broken wikilinks and stale documents. Returns the health report with score and status."),
		mcp.WithBoolean("write", mcp.Description("Also persist the report to the health file (default: false)")),
	), s.memoryDoctor)

	s.mcp.AddTool(mcp.NewTool("list_broken_links",
		mcp.WithDescription("List every wikilink whose target does not exist, one per line as "+
			"\"<source> -> [[<target>]]\"."),
	), s.listBrokenLinks)

	s.mcp.AddTool(mcp.NewTool("list_docs",
		mcp.WithDescription("List all Markdown documents under the docs root."),
	), s.listDocs)

	s.mcp.AddTool(mcp.NewTool("read_doc",
		mcp.WithDescription("Read the full content of a document under the docs root."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the docs root (e.g. sprint/HUB-SPRINTS.md)")),
	), s.readDoc)

	s.mcp.AddTool(mcp.NewTool("health_history",
		mcp.WithDescription("List recorded doctor runs, newest first."),
		mcp.WithNumber("limit", mcp.Description("Number of runs to return (default: 10)")),
	), s.healthHistory)

	s.mcp.AddTool(mcp.NewTool("get_docs_contract",
		mcp.WithDescription("Returns the docs conventions the memory doctor enforces. "+
			"Call this before writing documents to keep the docs root healthy."),
	), s.getDocsContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Docs Contract",
			mcp.WithResourceDescription("Conventions for hubs, wikilinks and Related sections."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocsContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

type doctorOutput struct {
	*doctor.Report
	Broken []string `json:"broken"`
}

func (s *Server) memoryDoctor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.svc.Doctor(ctx, boolArg(req, "write", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(doctorOutput{Report: run.Result.Report, Broken: run.Result.BrokenLinks()}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listBrokenLinks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.svc.Check(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !run.Result.Failed() {
		return mcp.NewToolResultText("no broken wikilinks"), nil
	}
	return mcp.NewToolResultText(strings.Join(run.Result.BrokenLinks(), "\n")), nil
}

func (s *Server) listDocs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.ListDocs(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readDoc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.ReadDoc(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) healthHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := s.svc.History(ctx, intArg(req, "limit", 10))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("no recorded runs"), nil
	}
	out, _ := json.MarshalIndent(runs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocsContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocsContract), nil
}

func (s *Server) readDocsContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     DocsContract,
		},
	}, nil
}
