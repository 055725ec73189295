package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/services"
)

type MediaHandler struct {
	log          *logger.Logger
	mediaService services.MediaService
}

func NewMediaHandler(log *logger.Logger, mediaService services.MediaService) *MediaHandler {
	return &MediaHandler{
		log:          log.With("handler", "MediaHandler"),
		mediaService: mediaService,
	}
}

func (h *MediaHandler) Produce(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("campaignID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_campaign_id", err)
		return
	}
	var req struct {
		ScriptIDs []string `json:"script_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	assets, err := h.mediaService.ProduceVideos(c.Request.Context(), campaignID, req.ScriptIDs)
	if err != nil {
		h.log.Error("Video production failed", "error", err, "campaign_id", campaignID)
		RespondError(c, http.StatusInternalServerError, "produce_videos_failed", err)
		return
	}
	RespondOK(c, gin.H{"assets": assets})
}

func (h *MediaHandler) List(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("campaignID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_campaign_id", err)
		return
	}
	assets, err := h.mediaService.ListAssets(c.Request.Context(), campaignID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_assets_failed", err)
		return
	}
	RespondOK(c, gin.H{"assets": assets})
}

func (h *MediaHandler) DownloadURL(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("assetID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_asset_id", err)
		return
	}
	url, err := h.mediaService.AssetDownloadURL(c.Request.Context(), assetID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "asset_url_failed", err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}
