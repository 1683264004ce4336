package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/climatechai/go-hazard-risk/internal/models"
	"github.com/climatechai/go-hazard-risk/internal/repository"
)

type protocolRequest struct {
	Name        string   `json:"name"`
	HazardType  string   `json:"hazard_type"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Status      string   `json:"status"`
}

type protocolResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	HazardType  string    `json:"hazard_type"`
	Description string    `json:"description"`
	Steps       []string  `json:"steps"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProtocolResponse(p *models.EmergencyProtocol) protocolResponse {
	steps := p.Steps
	if steps == nil {
		steps = []string{}
	}
	return protocolResponse{
		ID:          p.ID,
		Name:        p.Name,
		HazardType:  p.HazardType,
		Description: p.Description,
		Steps:       steps,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func parseProtocolStatus(s string) (models.ProtocolStatus, bool) {
	switch models.ProtocolStatus(strings.ToLower(s)) {
	case models.ProtocolStatusActive:
		return models.ProtocolStatusActive, true
	case models.ProtocolStatusInactive:
		return models.ProtocolStatusInactive, true
	case models.ProtocolStatusDraft:
		return models.ProtocolStatusDraft, true
	default:
		return "", false
	}
}

func protocolID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		badRequest(c, "invalid protocol id")
		return 0, false
	}
	return id, true
}

func (h *Handler) listProtocols(c *gin.Context) {
	var status *models.ProtocolStatus
	if raw := c.Query("status"); raw != "" {
		s, ok := parseProtocolStatus(raw)
		if !ok {
			badRequest(c, "invalid status: "+raw)
			return
		}
		status = &s
	}

	protocols, err := h.store.ListProtocols(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch protocols"})
		return
	}

	out := make([]protocolResponse, 0, len(protocols))
	for i := range protocols {
		out = append(out, toProtocolResponse(&protocols[i]))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "protocols": out})
}

func (h *Handler) createProtocol(c *gin.Context) {
	var req protocolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		badRequest(c, "name is required")
		return
	}

	status := models.ProtocolStatusDraft
	if req.Status != "" {
		s, ok := parseProtocolStatus(req.Status)
		if !ok {
			badRequest(c, "invalid status: "+req.Status)
			return
		}
		status = s
	}

	p := &models.EmergencyProtocol{
		Name:        req.Name,
		HazardType:  req.HazardType,
		Description: req.Description,
		Steps:       req.Steps,
		Status:      status,
	}
	if err := h.store.CreateProtocol(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create protocol"})
		return
	}
	c.JSON(http.StatusCreated, toProtocolResponse(p))
}

func (h *Handler) getProtocol(c *gin.Context) {
	id, ok := protocolID(c)
	if !ok {
		return
	}

	p, err := h.store.GetProtocol(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "protocol not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch protocol"})
		return
	}
	c.JSON(http.StatusOK, toProtocolResponse(p))
}

func (h *Handler) updateProtocol(c *gin.Context) {
	id, ok := protocolID(c)
	if !ok {
		return
	}

	var req protocolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	p, err := h.store.GetProtocol(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "protocol not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch protocol"})
		return
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.HazardType != "" {
		p.HazardType = req.HazardType
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Steps != nil {
		p.Steps = req.Steps
	}
	if req.Status != "" {
		s, ok := parseProtocolStatus(req.Status)
		if !ok {
			badRequest(c, "invalid status: "+req.Status)
			return
		}
		p.Status = s
	}

	if err := h.store.UpdateProtocol(c.Request.Context(), p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "protocol not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update protocol"})
		return
	}
	c.JSON(http.StatusOK, toProtocolResponse(p))
}

func (h *Handler) deleteProtocol(c *gin.Context) {
	id, ok := protocolID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteProtocol(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "protocol not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete protocol"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "protocol deleted"})
}
