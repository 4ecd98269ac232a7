package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// documentIDProperty is shared by every tool that addresses one document
func documentIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Document id (UUID)",
	}
}

// ingestDocumentTool returns the tool definition for ingest_document
func ingestDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_document",
		Description: "Store a document: chunk its text, generate embeddings and index it for search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Document title",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Full document text",
				},
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Original file name or URL",
				},
				"document_type_id": map[string]interface{}{
					"type":        "string",
					"description": "Id of an existing document type",
				},
				"issuing_unit_id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the issuing organizational unit",
				},
				"site_id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the site the document applies to",
				},
				"author_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional author id",
				},
				"metadata": map[string]interface{}{
					"type":        "object",
					"description": "Free-form document metadata",
				},
			},
			Required: []string{"title", "content", "document_type_id", "issuing_unit_id", "site_id"},
		},
	}
}

// updateDocumentTool returns the tool definition for update_document
func updateDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_document",
		Description: "Replace a document's content, recording a new version and reindexing",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty(),
				"content": map[string]interface{}{
					"type":        "string",
					"description": "New full document text",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "New title (unchanged if omitted)",
				},
				"status": map[string]interface{}{
					"type":        "string",
					"description": "New status (unchanged if omitted)",
					"enum":        []string{"active", "archived", "expired"},
				},
				"change_summary": map[string]interface{}{
					"type":        "string",
					"description": "Short description of what changed",
				},
			},
			Required: []string{"document_id", "content"},
		},
	}
}

// deleteDocumentTool returns the tool definition for delete_document
func deleteDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document with its chunks, versions and index entries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty(),
			},
			Required: []string{"document_id"},
		},
	}
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Search document chunks with hybrid, vector or keyword ranking",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (vector + keyword blend), vector (cosine similarity only), or keyword (term rank only)",
					"enum":        []string{"hybrid", "vector", "keyword"},
					"default":     "hybrid",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     10,
					"minimum":     1,
				},
				"text_weight": map[string]interface{}{
					"type":        "number",
					"description": "Lexical share of the hybrid blend (0 = vector only, 1 = keyword only)",
					"default":     0.3,
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getDocumentTool returns the tool definition for get_document
func getDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_document",
		Description: "Fetch one document record including its content and metadata",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty(),
			},
			Required: []string{"document_id"},
		},
	}
}

// listDocumentsTool returns the tool definition for list_documents
func listDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_documents",
		Description: "List documents with optional status and vocabulary filters",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Filter by lifecycle status",
					"enum":        []string{"active", "archived", "expired"},
				},
				"document_type_id": map[string]interface{}{
					"type":        "string",
					"description": "Filter by document type",
				},
				"site_id": map[string]interface{}{
					"type":        "string",
					"description": "Filter by site",
				},
				"issuing_unit_id": map[string]interface{}{
					"type":        "string",
					"description": "Filter by issuing unit",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Page size",
					"default":     50,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Page offset",
					"default":     0,
				},
			},
		},
	}
}

// getDocumentChunksTool returns the tool definition for get_document_chunks
func getDocumentChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_document_chunks",
		Description: "Fetch a document's chunks in their original order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty(),
			},
			Required: []string{"document_id"},
		},
	}
}

// listVersionsTool returns the tool definition for list_versions
func listVersionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_versions",
		Description: "List a document's recorded versions, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty(),
			},
			Required: []string{"document_id"},
		},
	}
}

// rollbackVersionTool returns the tool definition for rollback_version
func rollbackVersionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rollback_version",
		Description: "Restore a recorded version's content; the rollback is recorded as a new version",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty(),
				"version": map[string]interface{}{
					"type":        "string",
					"description": "Version label to restore, e.g. \"1.0\"",
				},
			},
			Required: []string{"document_id", "version"},
		},
	}
}

// metadataKindProperty is shared by the metadata vocabulary tools
func metadataKindProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Vocabulary to operate on",
		"enum":        metadataKinds(),
	}
}

// listMetadataTool returns the tool definition for list_metadata
func listMetadataTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_metadata",
		Description: "List entries of a metadata vocabulary (document types, org units, sites, equipment or keywords)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"kind": metadataKindProperty(),
				"active_only": map[string]interface{}{
					"type":        "boolean",
					"description": "Only return active entries",
					"default":     false,
				},
			},
			Required: []string{"kind"},
		},
	}
}

// createMetadataTool returns the tool definition for create_metadata
func createMetadataTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_metadata",
		Description: "Create a metadata vocabulary entry; documents reference these by id at ingest time",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"kind": metadataKindProperty(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Entry name",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Optional description",
				},
				"parent_id": map[string]interface{}{
					"type":        "string",
					"description": "Parent org unit id (org_unit kind only)",
				},
			},
			Required: []string{"kind", "name"},
		},
	}
}

// updateMetadataTool returns the tool definition for update_metadata
func updateMetadataTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_metadata",
		Description: "Update a metadata vocabulary entry; omitted fields keep their stored values",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"kind": metadataKindProperty(),
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Entry id",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "New name",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "New description",
				},
				"is_active": map[string]interface{}{
					"type":        "boolean",
					"description": "Activate or deactivate the entry",
				},
				"parent_id": map[string]interface{}{
					"type":        "string",
					"description": "New parent org unit id, empty to detach (org_unit kind only)",
				},
			},
			Required: []string{"kind", "id"},
		},
	}
}

// deleteMetadataTool returns the tool definition for delete_metadata
func deleteMetadataTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_metadata",
		Description: "Delete a metadata vocabulary entry",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"kind": metadataKindProperty(),
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Entry id",
				},
			},
			Required: []string{"kind", "id"},
		},
	}
}

// tagDocumentTool returns the tool definition for tag_document
func tagDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "tag_document",
		Description: "Replace a document's equipment and keyword tag sets; an omitted list is left unchanged",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty(),
				"equipment_ids": map[string]interface{}{
					"type":        "array",
					"description": "Equipment ids to tag the document with",
					"items":       map[string]interface{}{"type": "string"},
				},
				"keyword_ids": map[string]interface{}{
					"type":        "array",
					"description": "Keyword ids to tag the document with",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"document_id"},
		},
	}
}

// getDocumentTagsTool returns the tool definition for get_document_tags
func getDocumentTagsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_document_tags",
		Description: "Fetch a document's equipment and keyword tags",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty(),
			},
			Required: []string{"document_id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report store and index statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
