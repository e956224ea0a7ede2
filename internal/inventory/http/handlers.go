package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

type createAgentReq struct {
	Name string `json:"name"`
}

func (h *Handler) createAgent(c *gin.Context) {
	var req createAgentReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	id, err := h.configs.CreateAgent(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": id})
}

type createProjectReq struct {
	Name           string   `json:"name"`
	TelegramChatID string   `json:"telegram_chat_id"`
	KeyPrefixes    []string `json:"key_prefixes"`
}

func (h *Handler) createProject(c *gin.Context) {
	var req createProjectReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	id, err := h.configs.CreateProject(
		c.Request.Context(), strings.TrimSpace(req.Name), req.TelegramChatID, req.KeyPrefixes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": id})
}

type createConfigReq struct {
	ProjectID     int64    `json:"project_id"`
	AgentID       int64    `json:"agent_id"`
	SpreadsheetID string   `json:"spreadsheet_id"`
	GID           string   `json:"gid"`
	HTMLURL       string   `json:"html_url"`
	HeaderRow     int      `json:"header_row"`
	InvalidColors []string `json:"invalid_colors"`
}

func (h *Handler) createConfig(c *gin.Context) {
	var req createConfigReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == 0 || req.AgentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if req.SpreadsheetID == "" && req.HTMLURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "spreadsheet_id or html_url required"})
		return
	}

	id, err := h.configs.CreateConfig(c.Request.Context(),
		req.ProjectID, req.AgentID, req.SpreadsheetID, req.GID, req.HTMLURL,
		req.HeaderRow, req.InvalidColors)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": id})
}

func (h *Handler) listConfigs(c *gin.Context) {
	items, err := h.configs.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "configs": items})
}

func (h *Handler) getConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	cfg, err := h.configs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "config not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "config": cfg})
}

type columnMappingReq struct {
	InternalName string   `json:"internal_name"`
	DisplayName  string   `json:"display_name"`
	Aliases      []string `json:"aliases"`
	IsIdentifier bool     `json:"is_identifier"`
}

func (h *Handler) upsertColumnMapping(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req columnMappingReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.InternalName) == "" || len(req.Aliases) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	err := h.configs.UpsertColumnMapping(c.Request.Context(), id, domain.ColumnDefinition{
		InternalName: strings.TrimSpace(req.InternalName),
		DisplayName:  req.DisplayName,
		Aliases:      req.Aliases,
		IsIdentifier: req.IsIdentifier,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type setActiveReq struct {
	Active *bool `json:"active"`
}

func (h *Handler) setActive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req setActiveReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	found, err := h.configs.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "config not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) listChanges(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.changes.ListRecent(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "changes": items})
}

func (h *Handler) triggerRun(c *gin.Context) {
	summary, err := h.scanner.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "run": summary})
}

func (h *Handler) scanConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	cfg, err := h.configs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "config not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	res, err := h.scanner.ScanConfig(c.Request.Context(), *cfg)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "result": res})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid id"})
		return 0, false
	}
	return id, true
}
