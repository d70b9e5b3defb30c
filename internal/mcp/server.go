package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/repowhisper/repowhisper/internal/advise"
	"github.com/repowhisper/repowhisper/internal/config"
	"github.com/repowhisper/repowhisper/internal/discover"
	"github.com/repowhisper/repowhisper/internal/embed"
	"github.com/repowhisper/repowhisper/internal/index"
	"github.com/repowhisper/repowhisper/internal/search"
	"github.com/repowhisper/repowhisper/internal/store"
	"github.com/repowhisper/repowhisper/pkg/version"
)

const serverName = "RepoWhisper"

// Server is the MCP server for RepoWhisper. It exposes the indexing
// pipeline and semantic search to MCP clients over stdio.
type Server struct {
	mcp      *mcp.Server
	cfg      *config.Config
	searcher *search.Searcher
	indexer  *index.Indexer
	registry *store.Registry
	embedder embed.Embedder
	advisor  *advise.Advisor
	logger   *slog.Logger

	// defaultUser is used when a tool call omits user_id.
	defaultUser string
}

// Deps carries the collaborators the server needs.
type Deps struct {
	Config   *config.Config
	Searcher *search.Searcher
	Indexer  *index.Indexer
	Registry *store.Registry
	Embedder embed.Embedder
	Advisor  *advise.Advisor

	// DefaultUser is the tenant used when tool calls omit user_id.
	DefaultUser string
}

// NewServer creates an MCP server and registers the tools.
func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Searcher == nil || deps.Indexer == nil || deps.Registry == nil {
		return nil, fmt.Errorf("searcher, indexer, and registry are required")
	}
	if deps.DefaultUser == "" {
		return nil, fmt.Errorf("default user is required")
	}
	if err := store.ValidateUserID(deps.DefaultUser); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:         deps.Config,
		searcher:    deps.Searcher,
		indexer:     deps.Indexer,
		registry:    deps.Registry,
		embedder:    deps.Embedder,
		advisor:     deps.Advisor,
		defaultUser: deps.DefaultUser,
		logger:      slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_code",
		Description: "Semantic code search over the user's indexed repositories. Finds code by meaning, not just keywords. Results carry file paths, line ranges, and relevance scores.",
	}, s.handleSearchCode)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_repo",
		Description: "Index a repository for semantic search. Discovers source files, chunks them, generates embeddings, and stores them in the user's isolated index.",
	}, s.handleIndexRepo)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clear_repo",
		Description: "Remove all indexed chunks for one repository. Other repositories and users are unaffected.",
	}, s.handleClearRepo)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report indexed repositories, chunk counts, and the active embedding backend. Use before searching to verify the index is ready.",
	}, s.handleIndexStatus)

	if s.advisor != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "advise",
			Description: "Generate talking points from a meeting transcript and optional code snippets.",
		}, s.handleAdvise)
	}

	s.logger.Debug("MCP tools registered")
}

// userOrDefault resolves the effective tenant for a tool call.
func (s *Server) userOrDefault(userID string) string {
	if userID == "" {
		return s.defaultUser
	}
	return userID
}

// handleSearchCode is the MCP handler for the search_code tool.
func (s *Server) handleSearchCode(ctx context.Context, _ *mcp.CallToolRequest, input SearchCodeInput) (
	*mcp.CallToolResult,
	SearchCodeOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchCodeOutput{}, NewInvalidParamsError("query parameter is required")
	}

	userID := s.userOrDefault(input.UserID)

	results, latency, err := s.searcher.Search(ctx, input.Query, search.Options{
		UserID: userID,
		RepoID: input.RepoID,
		Limit:  input.Limit,
	})
	if err != nil {
		s.logger.Error("search_code failed", "user", userID, "error", err)
		return nil, SearchCodeOutput{}, MapError(err)
	}

	s.logger.Info("search_code completed",
		"user", userID,
		"results", len(results),
		"duration", latency)

	out := SearchCodeOutput{
		Results:   make([]SearchResultOutput, 0, len(results)),
		LatencyMS: float64(latency.Nanoseconds()) / 1e6,
	}
	for _, r := range results {
		out.Results = append(out.Results, SearchResultOutput{
			RepoID:    r.RepoID,
			FilePath:  r.FilePath,
			Content:   r.Content,
			LineStart: r.LineStart,
			LineEnd:   r.LineEnd,
			Score:     float64(r.Score),
		})
	}
	return nil, out, nil
}

// handleIndexRepo is the MCP handler for the index_repo tool.
func (s *Server) handleIndexRepo(ctx context.Context, _ *mcp.CallToolRequest, input IndexRepoInput) (
	*mcp.CallToolResult,
	IndexRepoOutput,
	error,
) {
	if input.Root == "" {
		return nil, IndexRepoOutput{}, NewInvalidParamsError("root parameter is required")
	}

	mode := discover.ModeFull
	if input.Mode != "" {
		m, err := discover.ParseMode(input.Mode)
		if err != nil {
			return nil, IndexRepoOutput{}, NewInvalidParamsError(err.Error())
		}
		mode = m
	}

	userID := s.userOrDefault(input.UserID)
	res, err := s.indexer.IndexRepo(ctx, index.Options{
		UserID:   userID,
		RepoID:   input.RepoID,
		Root:     input.Root,
		Mode:     mode,
		Paths:    input.Paths,
		Patterns: input.Patterns,
		Fresh:    input.Fresh,
	})
	if err != nil {
		s.logger.Error("index_repo failed", "user", userID, "root", input.Root, "error", err)
		return nil, IndexRepoOutput{}, MapError(err)
	}

	return nil, IndexRepoOutput{
		RepoID:        res.RepoID,
		FilesScanned:  res.FilesScanned,
		FilesIndexed:  res.FilesIndexed,
		ChunksIndexed: res.ChunksIndexed,
		DurationMS:    res.Duration.Milliseconds(),
	}, nil
}

// handleClearRepo is the MCP handler for the clear_repo tool.
func (s *Server) handleClearRepo(ctx context.Context, _ *mcp.CallToolRequest, input ClearRepoInput) (
	*mcp.CallToolResult,
	ClearRepoOutput,
	error,
) {
	if input.RepoID == "" {
		return nil, ClearRepoOutput{}, NewInvalidParamsError("repo_id parameter is required")
	}

	userID := s.userOrDefault(input.UserID)
	userStore, err := s.registry.Get(userID)
	if err != nil {
		return nil, ClearRepoOutput{}, MapError(err)
	}

	removed, err := userStore.ClearRepo(ctx, input.RepoID)
	if err != nil {
		s.logger.Error("clear_repo failed", "user", userID, "repo", input.RepoID, "error", err)
		return nil, ClearRepoOutput{}, MapError(err)
	}

	s.logger.Info("clear_repo completed", "user", userID, "repo", input.RepoID, "removed", removed)
	return nil, ClearRepoOutput{RepoID: input.RepoID, ChunksRemoved: removed}, nil
}

// handleIndexStatus is the MCP handler for the index_status tool.
func (s *Server) handleIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, input IndexStatusInput) (
	*mcp.CallToolResult,
	IndexStatusOutput,
	error,
) {
	userID := s.userOrDefault(input.UserID)
	userStore, err := s.registry.Get(userID)
	if err != nil {
		return nil, IndexStatusOutput{}, MapError(err)
	}

	repos, err := userStore.Repos(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, MapError(err)
	}

	out := IndexStatusOutput{
		UserID: userID,
		Repos:  make([]RepoStatus, 0, len(repos)),
	}
	for _, repoID := range repos {
		n, err := userStore.Count(ctx, repoID)
		if err != nil {
			return nil, IndexStatusOutput{}, MapError(err)
		}
		out.Repos = append(out.Repos, RepoStatus{RepoID: repoID, ChunkCount: n})
		out.TotalCount += n
	}

	if s.embedder != nil {
		out.Embeddings = EmbeddingStatus{
			Provider:   s.cfg.Embeddings.Provider,
			Model:      s.embedder.ModelName(),
			Dimensions: s.embedder.Dimensions(),
			Available:  s.embedder.Available(ctx),
		}
	}
	return nil, out, nil
}

// handleAdvise is the MCP handler for the advise tool.
func (s *Server) handleAdvise(ctx context.Context, _ *mcp.CallToolRequest, input AdviseInput) (
	*mcp.CallToolResult,
	AdviseOutput,
	error,
) {
	if strings.TrimSpace(input.Transcript) == "" && len(input.CodeSnippets) == 0 {
		return nil, AdviseOutput{}, NewInvalidParamsError("transcript or code_snippets required")
	}

	points := s.advisor.Advise(ctx, advise.Request{
		Transcript:   input.Transcript,
		CodeSnippets: input.CodeSnippets,
	})

	out := AdviseOutput{Points: make([]AdvicePoint, 0, len(points))}
	for _, p := range points {
		out.Points = append(out.Points, AdvicePoint{
			Text:       p.Text,
			Category:   p.Category,
			Confidence: p.Confidence,
		})
	}
	return nil, out, nil
}

// Serve runs the server on the given transport until the context is
// cancelled. Only stdio is supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	switch transport {
	case "stdio":
		s.logger.Info("MCP server starting", "transport", "stdio", "version", version.Version)
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error", "error", err)
			return err
		}
		s.logger.Info("MCP server stopped")
		return nil
	default:
		return fmt.Errorf("unsupported transport: %s", transport)
	}
}
