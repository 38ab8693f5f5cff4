// Package mcpadapter exposes the mediation workflow as MCP tools so an
// assistant client can drive challenges over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/evidence-assistant/internal/core/ports"
)

const serverName = "evidence-assistant"

type Server struct {
	cases      ports.CaseService
	ingestor   ports.DocumentIngestor
	challenge  ports.ChallengeRunner
	transcript ports.TranscriptService
	evidence   ports.EvidenceService
	mcp        *server.MCPServer
}

func New(
	version string,
	cases ports.CaseService,
	ingestor ports.DocumentIngestor,
	challenge ports.ChallengeRunner,
	transcript ports.TranscriptService,
	evidence ports.EvidenceService,
) *Server {
	s := &Server{
		cases:      cases,
		ingestor:   ingestor,
		challenge:  challenge,
		transcript: transcript,
		evidence:   evidence,
	}
	s.mcp = server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("list_cases",
		mcp.WithDescription("List mediation cases."),
	), s.listCases)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List documents uploaded to a case."),
		mcp.WithString("case_id", mcp.Required(), mcp.Description("Case identifier")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("append_turn",
		mcp.WithDescription("Append a transcript segment to a session and return the current window."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("speaker", mcp.Required(), mcp.Description("Speaker label, e.g. \"Party A\"")),
		mcp.WithString("text", mcp.Required(), mcp.Description("What the speaker said")),
	), s.appendTurn)

	s.mcp.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Return the transcript window of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	), s.getTranscript)

	s.mcp.AddTool(mcp.NewTool("challenge",
		mcp.WithDescription("Retrieve cited evidence for the recent conversation of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	), s.runChallenge)

	s.mcp.AddTool(mcp.NewTool("get_chunk",
		mcp.WithDescription("Return a cited chunk with its surrounding page context."),
		mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document identifier")),
		mcp.WithString("chunk_id", mcp.Required(), mcp.Description("Chunk identifier from a citation")),
	), s.getChunk)
}

// MCPServer returns the underlying server, e.g. for an SSE transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) listCases(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cases, err := s.cases.ListCases(ctx)
	if err != nil {
		return toolError("list_cases", err), nil
	}
	return jsonResult(map[string]any{"cases": cases})
}

func (s *Server) listDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caseID, err := request.RequireString("case_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docs, err := s.ingestor.ListDocuments(ctx, caseID)
	if err != nil {
		return toolError("list_documents", err), nil
	}
	return jsonResult(map[string]any{"documents": docs})
}

func (s *Server) appendTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	speaker := request.GetString("speaker", "")

	turns, err := s.transcript.AddTurn(ctx, sessionID, speaker, text)
	if err != nil {
		return toolError("append_turn", err), nil
	}
	return jsonResult(map[string]any{"buffer_size": len(turns), "turns": turns})
}

func (s *Server) getTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	turns, err := s.transcript.Turns(ctx, sessionID)
	if err != nil {
		return toolError("get_transcript", err), nil
	}
	return jsonResult(map[string]any{"buffer_size": len(turns), "turns": turns})
}

func (s *Server) runChallenge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := s.challenge.Run(ctx, sessionID)
	if err != nil {
		return toolError("challenge", err), nil
	}
	return jsonResult(resp)
}

func (s *Server) getChunk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireString("doc_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chunkID, err := request.RequireString("chunk_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chunk, err := s.evidence.ChunkContext(ctx, docID, chunkID)
	if err != nil {
		return toolError("get_chunk", err), nil
	}
	return jsonResult(chunk)
}

// toolError reports use case failures inside the result so the client
// model sees them; protocol errors are reserved for transport problems.
func toolError(tool string, err error) *mcp.CallToolResult {
	slog.Warn("mcp_tool_failed", "tool", tool, "error", err)
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
