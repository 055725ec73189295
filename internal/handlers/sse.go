package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/requestdata"
	"github.com/adforge/adforge-backend/internal/services"
	"github.com/adforge/adforge-backend/internal/sse"
)

type SSEHandler struct {
	log             *logger.Logger
	hub             *sse.SSEHub
	campaignService services.CampaignService
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub, campaignService services.CampaignService) *SSEHandler {
	return &SSEHandler{
		log:             log.With("handler", "SSEHandler"),
		hub:             hub,
		campaignService: campaignService,
	}
}

// Subscribe streams a campaign's generation and media events. The connection
// is held open until the client disconnects.
func (h *SSEHandler) Subscribe(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	campaignID, err := uuid.Parse(c.Param("campaignID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_campaign_id", err)
		return
	}
	// ownership check before handing out the event stream
	if _, err := h.campaignService.GetCampaign(c.Request.Context(), campaignID); err != nil {
		RespondError(c, http.StatusNotFound, "campaign_not_found", err)
		return
	}

	client := h.hub.NewSSEClient(rd.UserID)
	h.hub.AddChannel(client, sse.CampaignChannel(campaignID))
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
