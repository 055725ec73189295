package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/services"
)

type AdsHandler struct {
	log       *logger.Logger
	adService services.AdPublishService
}

func NewAdsHandler(log *logger.Logger, adService services.AdPublishService) *AdsHandler {
	return &AdsHandler{
		log:       log.With("handler", "AdsHandler"),
		adService: adService,
	}
}

func (h *AdsHandler) ConnectAccount(c *gin.Context) {
	var req services.ConnectAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	account, err := h.adService.ConnectAccount(c.Request.Context(), req)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "connect_account_failed", err)
		return
	}
	RespondOK(c, gin.H{"account": account})
}

func (h *AdsHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.adService.ListAccounts(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_accounts_failed", err)
		return
	}
	RespondOK(c, gin.H{"accounts": accounts})
}

func (h *AdsHandler) DisconnectAccount(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("accountID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_account_id", err)
		return
	}
	if err := h.adService.DisconnectAccount(c.Request.Context(), accountID); err != nil {
		RespondError(c, http.StatusInternalServerError, "disconnect_account_failed", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (h *AdsHandler) Publish(c *gin.Context) {
	var req services.PublishAdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.adService.PublishAd(c.Request.Context(), req)
	if err != nil {
		h.log.Error("Ad publish failed", "error", err, "account_id", req.AccountID, "asset_id", req.AssetID)
		RespondError(c, http.StatusInternalServerError, "publish_ad_failed", err)
		return
	}
	RespondOK(c, gin.H{"result": result})
}
