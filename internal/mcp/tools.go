package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/archipel-labs/docvault-mcp/internal/searcher"
	"github.com/archipel-labs/docvault-mcp/internal/storage"
	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound           = -32001 // Document, chunk or version does not exist
	ErrorCodeStorageUnavailable = -32002 // Backing store unavailable
)

// handleIngestDocument handles the ingest_document tool invocation
func (s *Server) handleIngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	doc := &types.Document{
		Title:          getStringDefault(args, "title", ""),
		Source:         getStringDefault(args, "source", ""),
		DocumentTypeID: getStringDefault(args, "document_type_id", ""),
		IssuingUnitID:  getStringDefault(args, "issuing_unit_id", ""),
		SiteID:         getStringDefault(args, "site_id", ""),
	}
	if author := getStringDefault(args, "author_id", ""); author != "" {
		doc.AuthorID = &author
	}
	if meta, ok := args["metadata"].(map[string]interface{}); ok {
		doc.Metadata = meta
	}

	content, ok := args["content"].(string)
	if !ok || content == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param": "content", "reason": "missing or empty",
		})
	}

	res, err := s.ingestor.IngestDocument(ctx, doc, content)
	if err != nil {
		return nil, mapError("ingest failed", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"document_id":     res.DocumentID,
		"version":         res.Version,
		"chunks_created":  res.ChunksCreated,
		"chunks_embedded": res.ChunksEmbedded,
		"duration_ms":     res.Duration.Milliseconds(),
	})), nil
}

// handleUpdateDocument handles the update_document tool invocation
func (s *Server) handleUpdateDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, content, err := requireIDAndContent(args)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, mapError("update failed", err)
	}
	if title := getStringDefault(args, "title", ""); title != "" {
		doc.Title = title
	}
	if status := getStringDefault(args, "status", ""); status != "" {
		doc.Status = types.DocumentStatus(status)
	}

	res, err := s.ingestor.UpdateDocument(ctx, doc, content, getStringDefault(args, "change_summary", ""))
	if err != nil {
		return nil, mapError("update failed", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"document_id":     res.DocumentID,
		"version":         res.Version,
		"chunks_created":  res.ChunksCreated,
		"chunks_embedded": res.ChunksEmbedded,
	})), nil
}

// handleDeleteDocument handles the delete_document tool invocation
func (s *Server) handleDeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireDocumentID(request)
	if err != nil {
		return nil, err
	}
	if err := s.ingestor.DeleteDocument(ctx, id); err != nil {
		return nil, mapError("delete failed", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted":     true,
		"document_id": id,
	})), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required and cannot be empty", map[string]interface{}{
			"param": "query", "reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	mode := getStringDefault(args, "mode", "hybrid")
	textWeight := getFloatDefault(args, "text_weight", searcher.DefaultTextWeight)

	var results []map[string]interface{}
	switch mode {
	case "keyword":
		hits, err := s.searcher.LexicalSearch(ctx, query, limit)
		if err != nil {
			return nil, mapError("search failed", err)
		}
		for _, h := range hits {
			results = append(results, map[string]interface{}{
				"chunk_id":        h.ChunkID,
				"document_id":     h.DocumentID,
				"document_title":  h.DocumentTitle,
				"document_source": h.DocumentSource,
				"content":         h.Content,
				"text_similarity": h.TextSimilarity,
			})
		}

	case "vector":
		embedding, err := s.embedQuery(ctx, query)
		if err != nil {
			return nil, err
		}
		hits, err := s.searcher.SimilaritySearch(ctx, embedding, limit)
		if err != nil {
			return nil, mapError("search failed", err)
		}
		for _, h := range hits {
			results = append(results, map[string]interface{}{
				"chunk_id":        h.ChunkID,
				"document_id":     h.DocumentID,
				"document_title":  h.DocumentTitle,
				"document_source": h.DocumentSource,
				"content":         h.Content,
				"similarity":      h.Similarity,
			})
		}

	case "hybrid":
		var embedding []float32
		if s.embedder != nil {
			var err error
			embedding, err = s.embedQuery(ctx, query)
			if err != nil {
				return nil, err
			}
		}
		hits, err := s.searcher.HybridSearch(ctx, query, embedding, limit, textWeight)
		if err != nil {
			return nil, mapError("search failed", err)
		}
		for _, h := range hits {
			results = append(results, map[string]interface{}{
				"chunk_id":          h.ChunkID,
				"document_id":       h.DocumentID,
				"document_title":    h.DocumentTitle,
				"document_source":   h.DocumentSource,
				"content":           h.Content,
				"combined_score":    h.CombinedScore,
				"vector_similarity": h.VectorSimilarity,
				"text_similarity":   h.TextSimilarity,
			})
		}

	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param": "mode", "value": mode, "allowed": []string{"hybrid", "vector", "keyword"},
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": results,
		"total":   len(results),
		"mode":    mode,
	})), nil
}

// handleGetDocument handles the get_document tool invocation
func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireDocumentID(request)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, mapError("get document failed", err)
	}

	response := map[string]interface{}{
		"id":               doc.ID,
		"title":            doc.Title,
		"source":           doc.Source,
		"content":          doc.Content,
		"metadata":         doc.Metadata,
		"document_type_id": doc.DocumentTypeID,
		"issuing_unit_id":  doc.IssuingUnitID,
		"site_id":          doc.SiteID,
		"status":           string(doc.Status),
		"created_at":       doc.CreatedAt,
		"updated_at":       doc.UpdatedAt,
	}
	if doc.AuthorID != nil {
		response["author_id"] = *doc.AuthorID
	}
	if doc.EffectiveDate != nil {
		response["effective_date"] = *doc.EffectiveDate
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListDocuments handles the list_documents tool invocation
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	opts := storage.ListOptions{
		Limit:          getIntDefault(args, "limit", 50),
		Offset:         getIntDefault(args, "offset", 0),
		Status:         types.DocumentStatus(getStringDefault(args, "status", "")),
		DocumentTypeID: getStringDefault(args, "document_type_id", ""),
		SiteID:         getStringDefault(args, "site_id", ""),
		IssuingUnitID:  getStringDefault(args, "issuing_unit_id", ""),
	}

	docs, err := s.store.ListDocuments(ctx, opts)
	if err != nil {
		return nil, mapError("list documents failed", err)
	}

	items := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		items = append(items, map[string]interface{}{
			"id":          d.ID,
			"title":       d.Title,
			"source":      d.Source,
			"status":      string(d.Status),
			"chunk_count": d.ChunkCount,
			"created_at":  d.CreatedAt,
			"updated_at":  d.UpdatedAt,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"documents": items,
		"total":     len(items),
	})), nil
}

// handleGetDocumentChunks handles the get_document_chunks tool invocation
func (s *Server) handleGetDocumentChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireDocumentID(request)
	if err != nil {
		return nil, err
	}

	chunks, err := s.store.GetDocumentChunks(ctx, id)
	if err != nil {
		return nil, mapError("get chunks failed", err)
	}

	items := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		items = append(items, map[string]interface{}{
			"chunk_id":      c.ID,
			"chunk_index":   c.ChunkIndex,
			"content":       c.Content,
			"token_count":   c.TokenCount,
			"has_embedding": c.Embedding != nil,
			"metadata":      c.Metadata,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"document_id": id,
		"chunks":      items,
		"total":       len(items),
	})), nil
}

// handleListVersions handles the list_versions tool invocation
func (s *Server) handleListVersions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireDocumentID(request)
	if err != nil {
		return nil, err
	}

	versions, err := s.store.ListVersions(ctx, id)
	if err != nil {
		return nil, mapError("list versions failed", err)
	}

	items := make([]map[string]interface{}, 0, len(versions))
	for _, v := range versions {
		items = append(items, map[string]interface{}{
			"version":        v.Version,
			"change_summary": v.ChangeSummary,
			"created_at":     v.CreatedAt,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"document_id": id,
		"versions":    items,
		"total":       len(items),
	})), nil
}

// handleRollbackVersion handles the rollback_version tool invocation
func (s *Server) handleRollbackVersion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id := getStringDefault(args, "document_id", "")
	version := getStringDefault(args, "version", "")
	if id == "" || version == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "document_id and version are required", nil)
	}

	res, err := s.ingestor.RollbackToVersion(ctx, id, version)
	if err != nil {
		return nil, mapError("rollback failed", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"document_id":  res.DocumentID,
		"restored":     version,
		"new_version":  res.Version,
		"chunks_count": res.ChunksCreated,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.store.GetStatus(ctx)
	if err != nil {
		return nil, mapError("get status failed", err)
	}

	provider := "none"
	if s.embedder != nil {
		provider = s.embedder.Provider()
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"documents_count":    status.DocumentsCount,
		"chunks_count":       status.ChunksCount,
		"embedded_count":     status.EmbeddedCount,
		"versions_count":     status.VersionsCount,
		"dimension":          status.Dimension,
		"schema_version":     status.SchemaVersion,
		"driver":             status.DriverName,
		"build_mode":         status.BuildMode,
		"vector_index_size":  s.vectors.Len(),
		"lexical_index_size": s.lexical.Len(),
		"embedding_provider": provider,
	})), nil
}

// Helper functions

// embedQuery generates the query embedding, mapping embedder absence to a
// parameter error since the client asked for vector ranking
func (s *Server) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "vector search unavailable: no embedding provider configured", nil)
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to embed query", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return emb.Vector, nil
}

func requireDocumentID(request mcp.CallToolRequest) (string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	id, ok := args["document_id"].(string)
	if !ok || id == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "document_id parameter is required", map[string]interface{}{
			"param": "document_id", "reason": "missing or empty",
		})
	}
	return id, nil
}

func requireIDAndContent(args map[string]interface{}) (string, string, error) {
	id := getStringDefault(args, "document_id", "")
	if id == "" {
		return "", "", newMCPError(ErrorCodeInvalidParams, "document_id parameter is required", nil)
	}
	content, ok := args["content"].(string)
	if !ok || content == "" {
		return "", "", newMCPError(ErrorCodeInvalidParams, "content parameter is required", nil)
	}
	return id, content, nil
}

// mapError translates engine errors onto MCP error codes
func mapError(message string, err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, types.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, message, data)
	case errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrInvalidArgument),
		errors.Is(err, types.ErrDimensionMismatch):
		return newMCPError(ErrorCodeInvalidParams, message, data)
	case errors.Is(err, types.ErrStorageUnavailable):
		return newMCPError(ErrorCodeStorageUnavailable, message, data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
