// Package mcp implements the Model Context Protocol (MCP) server for
// DocVault.
//
// The server exposes the document vault to AI assistants over JSON-RPC 2.0
// on stdio:
//   - ingest_document: Store a document, chunk and embed its text
//   - update_document: Replace a document's content, recording a version
//   - delete_document: Remove a document and its chunks
//   - search_documents: Hybrid, vector or keyword search over chunks
//   - get_document: Fetch one document record
//   - list_documents: List documents with status and vocabulary filters
//   - get_document_chunks: Fetch a document's chunks in order
//   - list_versions: List a document's version history
//   - rollback_version: Restore a recorded version as new content
//   - get_status: Store and index statistics
//
// # Basic Usage
//
// The server is started via the docvault binary:
//
//	docvault
//
// It listens on stdin for MCP messages and writes responses to stdout;
// logs go to stderr so they never corrupt the protocol stream.
//
// # Tool: search_documents
//
//	Request:
//	{
//	  "name": "search_documents",
//	  "arguments": {
//	    "query": "pump bearing inspection interval",
//	    "mode": "hybrid",
//	    "limit": 10,
//	    "text_weight": 0.3
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "chunk_id": "...",
//	      "document_id": "...",
//	      "document_title": "Pump maintenance manual",
//	      "content": "...",
//	      "combined_score": 0.78,
//	      "vector_similarity": 0.85,
//	      "text_similarity": 0.61
//	    }
//	  ],
//	  "total": 1,
//	  "mode": "hybrid"
//	}
//
// Mode "vector" embeds the query and ranks by cosine similarity alone;
// mode "keyword" uses the lexical term rank alone; "hybrid" (the default)
// blends both with text_weight.
//
// # Errors
//
// Handlers return JSON-RPC error codes: -32602 for invalid parameters,
// -32001 when a document or version does not exist, -32002 when storage
// is unavailable and -32603 for anything else.
package mcp
