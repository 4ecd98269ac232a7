package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

// Metadata vocabulary kinds accepted by the metadata tools
const (
	kindDocumentType = "document_type"
	kindOrgUnit      = "org_unit"
	kindSite         = "site"
	kindEquipment    = "equipment"
	kindKeyword      = "keyword"
)

func metadataKinds() []string {
	return []string{kindDocumentType, kindOrgUnit, kindSite, kindEquipment, kindKeyword}
}

// handleListMetadata handles the list_metadata tool invocation
func (s *Server) handleListMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	kind := getStringDefault(args, "kind", "")
	activeOnly := getBoolDefault(args, "active_only", false)

	var entries []map[string]interface{}
	switch kind {
	case kindDocumentType:
		items, err := s.store.ListDocumentTypes(ctx, activeOnly)
		if err != nil {
			return nil, mapError("list metadata failed", err)
		}
		for _, it := range items {
			entries = append(entries, map[string]interface{}{
				"id": it.ID, "name": it.Name, "description": it.Description, "is_active": it.IsActive,
			})
		}
	case kindOrgUnit:
		items, err := s.store.ListOrgUnits(ctx, activeOnly)
		if err != nil {
			return nil, mapError("list metadata failed", err)
		}
		for _, it := range items {
			entry := map[string]interface{}{
				"id": it.ID, "name": it.Name, "description": it.Description, "is_active": it.IsActive,
			}
			if it.ParentID != nil {
				entry["parent_id"] = *it.ParentID
			}
			entries = append(entries, entry)
		}
	case kindSite:
		items, err := s.store.ListSites(ctx, activeOnly)
		if err != nil {
			return nil, mapError("list metadata failed", err)
		}
		for _, it := range items {
			entries = append(entries, map[string]interface{}{
				"id": it.ID, "name": it.Name, "description": it.Description, "is_active": it.IsActive,
			})
		}
	case kindEquipment:
		items, err := s.store.ListEquipment(ctx, activeOnly)
		if err != nil {
			return nil, mapError("list metadata failed", err)
		}
		for _, it := range items {
			entries = append(entries, map[string]interface{}{
				"id": it.ID, "name": it.Name, "description": it.Description, "is_active": it.IsActive,
			})
		}
	case kindKeyword:
		items, err := s.store.ListKeywords(ctx, activeOnly)
		if err != nil {
			return nil, mapError("list metadata failed", err)
		}
		for _, it := range items {
			entries = append(entries, map[string]interface{}{
				"id": it.ID, "name": it.Name, "description": it.Description, "is_active": it.IsActive,
			})
		}
	default:
		return nil, invalidKindError(kind)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"kind":    kind,
		"entries": entries,
		"total":   len(entries),
	})), nil
}

// handleCreateMetadata handles the create_metadata tool invocation
func (s *Server) handleCreateMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	kind := getStringDefault(args, "kind", "")
	name := getStringDefault(args, "name", "")
	if name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "name parameter is required", map[string]interface{}{
			"param": "name", "reason": "missing or empty",
		})
	}
	description := getStringDefault(args, "description", "")

	var id string
	switch kind {
	case kindDocumentType:
		dt := &types.DocumentType{Name: name, Description: description, IsActive: true}
		if err := s.store.CreateDocumentType(ctx, dt); err != nil {
			return nil, mapError("create metadata failed", err)
		}
		id = dt.ID
	case kindOrgUnit:
		ou := &types.OrgUnit{Name: name, Description: description, IsActive: true}
		if parent := getStringDefault(args, "parent_id", ""); parent != "" {
			ou.ParentID = &parent
		}
		if err := s.store.CreateOrgUnit(ctx, ou); err != nil {
			return nil, mapError("create metadata failed", err)
		}
		id = ou.ID
	case kindSite:
		site := &types.Site{Name: name, Description: description, IsActive: true}
		if err := s.store.CreateSite(ctx, site); err != nil {
			return nil, mapError("create metadata failed", err)
		}
		id = site.ID
	case kindEquipment:
		eq := &types.Equipment{Name: name, Description: description, IsActive: true}
		if err := s.store.CreateEquipment(ctx, eq); err != nil {
			return nil, mapError("create metadata failed", err)
		}
		id = eq.ID
	case kindKeyword:
		kw := &types.Keyword{Name: name, Description: description, IsActive: true}
		if err := s.store.CreateKeyword(ctx, kw); err != nil {
			return nil, mapError("create metadata failed", err)
		}
		id = kw.ID
	default:
		return nil, invalidKindError(kind)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"kind": kind,
		"id":   id,
		"name": name,
	})), nil
}

// handleUpdateMetadata handles the update_metadata tool invocation.
// Omitted fields keep their stored values.
func (s *Server) handleUpdateMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	kind := getStringDefault(args, "kind", "")
	id := getStringDefault(args, "id", "")
	if id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param": "id", "reason": "missing or empty",
		})
	}

	switch kind {
	case kindDocumentType:
		items, err := s.store.ListDocumentTypes(ctx, false)
		if err != nil {
			return nil, mapError("update metadata failed", err)
		}
		dt := findDocumentType(items, id)
		if dt == nil {
			return nil, metadataNotFound(kind, id)
		}
		applyVocabularyPatch(args, &dt.Name, &dt.Description, &dt.IsActive)
		if err := s.store.UpdateDocumentType(ctx, dt); err != nil {
			return nil, mapError("update metadata failed", err)
		}
	case kindOrgUnit:
		items, err := s.store.ListOrgUnits(ctx, false)
		if err != nil {
			return nil, mapError("update metadata failed", err)
		}
		ou := findOrgUnit(items, id)
		if ou == nil {
			return nil, metadataNotFound(kind, id)
		}
		applyVocabularyPatch(args, &ou.Name, &ou.Description, &ou.IsActive)
		if raw, present := args["parent_id"]; present {
			if parent, _ := raw.(string); parent != "" {
				ou.ParentID = &parent
			} else {
				ou.ParentID = nil
			}
		}
		if err := s.store.UpdateOrgUnit(ctx, ou); err != nil {
			return nil, mapError("update metadata failed", err)
		}
	case kindSite:
		items, err := s.store.ListSites(ctx, false)
		if err != nil {
			return nil, mapError("update metadata failed", err)
		}
		site := findSite(items, id)
		if site == nil {
			return nil, metadataNotFound(kind, id)
		}
		applyVocabularyPatch(args, &site.Name, &site.Description, &site.IsActive)
		if err := s.store.UpdateSite(ctx, site); err != nil {
			return nil, mapError("update metadata failed", err)
		}
	case kindEquipment:
		items, err := s.store.ListEquipment(ctx, false)
		if err != nil {
			return nil, mapError("update metadata failed", err)
		}
		eq := findEquipment(items, id)
		if eq == nil {
			return nil, metadataNotFound(kind, id)
		}
		applyVocabularyPatch(args, &eq.Name, &eq.Description, &eq.IsActive)
		if err := s.store.UpdateEquipment(ctx, eq); err != nil {
			return nil, mapError("update metadata failed", err)
		}
	case kindKeyword:
		items, err := s.store.ListKeywords(ctx, false)
		if err != nil {
			return nil, mapError("update metadata failed", err)
		}
		kw := findKeyword(items, id)
		if kw == nil {
			return nil, metadataNotFound(kind, id)
		}
		applyVocabularyPatch(args, &kw.Name, &kw.Description, &kw.IsActive)
		if err := s.store.UpdateKeyword(ctx, kw); err != nil {
			return nil, mapError("update metadata failed", err)
		}
	default:
		return nil, invalidKindError(kind)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"kind":    kind,
		"id":      id,
		"updated": true,
	})), nil
}

// handleDeleteMetadata handles the delete_metadata tool invocation
func (s *Server) handleDeleteMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	kind := getStringDefault(args, "kind", "")
	id := getStringDefault(args, "id", "")
	if id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param": "id", "reason": "missing or empty",
		})
	}

	var err error
	switch kind {
	case kindDocumentType:
		err = s.store.DeleteDocumentType(ctx, id)
	case kindOrgUnit:
		err = s.store.DeleteOrgUnit(ctx, id)
	case kindSite:
		err = s.store.DeleteSite(ctx, id)
	case kindEquipment:
		err = s.store.DeleteEquipment(ctx, id)
	case kindKeyword:
		err = s.store.DeleteKeyword(ctx, id)
	default:
		return nil, invalidKindError(kind)
	}
	if err != nil {
		return nil, mapError("delete metadata failed", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"kind":    kind,
		"id":      id,
		"deleted": true,
	})), nil
}

// handleTagDocument handles the tag_document tool invocation. Each
// provided list replaces that tag set wholesale; an omitted list leaves
// its tags untouched.
func (s *Server) handleTagDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireDocumentID(request)
	if err != nil {
		return nil, err
	}
	args, _ := request.Params.Arguments.(map[string]interface{})

	if ids, present := getStringSlice(args, "equipment_ids"); present {
		if err := s.store.SetDocumentEquipment(ctx, id, ids); err != nil {
			return nil, mapError("tag document failed", err)
		}
	}
	if ids, present := getStringSlice(args, "keyword_ids"); present {
		if err := s.store.SetDocumentKeywords(ctx, id, ids); err != nil {
			return nil, mapError("tag document failed", err)
		}
	}

	return s.documentTagsResult(ctx, id)
}

// handleGetDocumentTags handles the get_document_tags tool invocation
func (s *Server) handleGetDocumentTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireDocumentID(request)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetDocument(ctx, id); err != nil {
		return nil, mapError("get document tags failed", err)
	}
	return s.documentTagsResult(ctx, id)
}

func (s *Server) documentTagsResult(ctx context.Context, documentID string) (*mcp.CallToolResult, error) {
	equipment, err := s.store.ListDocumentEquipment(ctx, documentID)
	if err != nil {
		return nil, mapError("list document tags failed", err)
	}
	keywords, err := s.store.ListDocumentKeywords(ctx, documentID)
	if err != nil {
		return nil, mapError("list document tags failed", err)
	}

	eqItems := make([]map[string]interface{}, 0, len(equipment))
	for _, e := range equipment {
		eqItems = append(eqItems, map[string]interface{}{"id": e.ID, "name": e.Name})
	}
	kwItems := make([]map[string]interface{}, 0, len(keywords))
	for _, k := range keywords {
		kwItems = append(kwItems, map[string]interface{}{"id": k.ID, "name": k.Name})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"document_id": documentID,
		"equipment":   eqItems,
		"keywords":    kwItems,
	})), nil
}

// applyVocabularyPatch copies the optional name/description/is_active
// parameters onto a vocabulary record
func applyVocabularyPatch(args map[string]interface{}, name, description *string, isActive *bool) {
	if v, ok := args["name"].(string); ok && v != "" {
		*name = v
	}
	if v, ok := args["description"].(string); ok {
		*description = v
	}
	if v, ok := args["is_active"].(bool); ok {
		*isActive = v
	}
}

func findDocumentType(items []*types.DocumentType, id string) *types.DocumentType {
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func findOrgUnit(items []*types.OrgUnit, id string) *types.OrgUnit {
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func findSite(items []*types.Site, id string) *types.Site {
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func findEquipment(items []*types.Equipment, id string) *types.Equipment {
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func findKeyword(items []*types.Keyword, id string) *types.Keyword {
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func invalidKindError(kind string) error {
	return newMCPError(ErrorCodeInvalidParams, "invalid metadata kind", map[string]interface{}{
		"param": "kind", "value": kind, "allowed": metadataKinds(),
	})
}

func metadataNotFound(kind, id string) error {
	return newMCPError(ErrorCodeNotFound, "metadata entry not found", map[string]interface{}{
		"kind": kind, "id": id,
	})
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string-array parameter; present reports
// whether the key was supplied at all, so callers can distinguish "clear
// the set" (empty array) from "leave it alone" (omitted)
func getStringSlice(args map[string]interface{}, key string) ([]string, bool) {
	raw, present := args[key]
	if !present {
		return nil, false
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}
