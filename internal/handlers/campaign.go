package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/pipeline"
	"github.com/adforge/adforge-backend/internal/services"
)

type CampaignHandler struct {
	log             *logger.Logger
	campaignService services.CampaignService
}

func NewCampaignHandler(log *logger.Logger, campaignService services.CampaignService) *CampaignHandler {
	return &CampaignHandler{
		log:             log.With("handler", "CampaignHandler"),
		campaignService: campaignService,
	}
}

func (h *CampaignHandler) Create(c *gin.Context) {
	var req struct {
		Name    string                      `json:"name"`
		Product pipeline.ProductDescription `json:"product"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	campaign, err := h.campaignService.CreateCampaign(c.Request.Context(), req.Name, req.Product)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "create_campaign_failed", err)
		return
	}
	RespondOK(c, gin.H{"campaign": campaign})
}

func (h *CampaignHandler) Get(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("campaignID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_campaign_id", err)
		return
	}
	campaign, err := h.campaignService.GetCampaign(c.Request.Context(), campaignID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "campaign_not_found", err)
		return
	}
	RespondOK(c, gin.H{"campaign": campaign})
}

func (h *CampaignHandler) List(c *gin.Context) {
	campaigns, err := h.campaignService.ListCampaigns(c.Request.Context())
	if err != nil {
		h.log.Error("ListCampaigns failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "list_campaigns_failed", err)
		return
	}
	RespondOK(c, gin.H{"campaigns": campaigns})
}

// UploadDocument accepts a product one-pager (PDF or image) as multipart
// form data under the "document" field.
func (h *CampaignHandler) UploadDocument(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("campaignID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_campaign_id", err)
		return
	}
	fileHeader, err := c.FormFile("document")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_document", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_document", err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_document", err)
		return
	}
	mediaType := fileHeader.Header.Get("Content-Type")
	campaign, err := h.campaignService.AttachProductDocument(c.Request.Context(), campaignID, mediaType, data)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "attach_document_failed", err)
		return
	}
	RespondOK(c, gin.H{"campaign": campaign})
}

func (h *CampaignHandler) Delete(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("campaignID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_campaign_id", err)
		return
	}
	if err := h.campaignService.DeleteCampaign(c.Request.Context(), campaignID); err != nil {
		RespondError(c, http.StatusInternalServerError, "delete_campaign_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
