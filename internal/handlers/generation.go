package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adforge/adforge-backend/internal/clients/completion"
	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/services"
)

type GenerationHandler struct {
	log               *logger.Logger
	generationService services.GenerationService
}

func NewGenerationHandler(log *logger.Logger, generationService services.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		log:               log.With("handler", "GenerationHandler"),
		generationService: generationService,
	}
}

func (h *GenerationHandler) campaignID(c *gin.Context) (uuid.UUID, bool) {
	campaignID, err := uuid.Parse(c.Param("campaignID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_campaign_id", err)
		return uuid.Nil, false
	}
	return campaignID, true
}

// Analyze kicks off the core stage run. Attachments ride along as base64 so
// product one-pagers and PDFs can ground the analysis.
func (h *GenerationHandler) Analyze(c *gin.Context) {
	campaignID, ok := h.campaignID(c)
	if !ok {
		return
	}
	var req struct {
		Attachments []struct {
			Kind      string `json:"kind"`
			MediaType string `json:"media_type"`
			Data      string `json:"data"`
		} `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	attachments := make([]completion.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, completion.Attachment{
			Kind:      a.Kind,
			MediaType: a.MediaType,
			Data:      a.Data,
		})
	}
	if err := h.generationService.RunAnalysis(c.Request.Context(), campaignID, attachments); err != nil {
		h.log.Error("Analysis failed", "error", err, "campaign_id", campaignID)
		RespondError(c, http.StatusInternalServerError, "analysis_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (h *GenerationHandler) GenerateHooks(c *gin.Context) {
	campaignID, ok := h.campaignID(c)
	if !ok {
		return
	}
	var req struct {
		AngleIDs []string `json:"angle_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.generationService.GenerateHooks(c.Request.Context(), campaignID, req.AngleIDs); err != nil {
		h.log.Error("Hook generation failed", "error", err, "campaign_id", campaignID)
		RespondError(c, http.StatusInternalServerError, "generate_hooks_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (h *GenerationHandler) GenerateScripts(c *gin.Context) {
	campaignID, ok := h.campaignID(c)
	if !ok {
		return
	}
	var req struct {
		HookIDs []string `json:"hook_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.generationService.GenerateScripts(c.Request.Context(), campaignID, req.HookIDs); err != nil {
		h.log.Error("Script generation failed", "error", err, "campaign_id", campaignID)
		RespondError(c, http.StatusInternalServerError, "generate_scripts_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (h *GenerationHandler) StageResults(c *gin.Context) {
	campaignID, ok := h.campaignID(c)
	if !ok {
		return
	}
	runs, err := h.generationService.GetStageResults(c.Request.Context(), campaignID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "load_stage_results_failed", err)
		return
	}
	RespondOK(c, gin.H{"stage_runs": runs})
}

func (h *GenerationHandler) AngleTrees(c *gin.Context) {
	campaignID, ok := h.campaignID(c)
	if !ok {
		return
	}
	trees, err := h.generationService.GetAngleTrees(c.Request.Context(), campaignID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "load_angle_trees_failed", err)
		return
	}
	RespondOK(c, gin.H{"angles": trees})
}
