package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"latch-backend/messaging"
	"latch-backend/utils"
)

type WhatsAppController struct {
	session *messaging.Session
}

func NewWhatsAppController(session *messaging.Session) *WhatsAppController {
	return &WhatsAppController{session: session}
}

// GetQR serves the pending login QR as a PNG data URL.
func (wc *WhatsAppController) GetQR(c *gin.Context) {
	url, ok, err := wc.session.QRImageURL()
	if err != nil {
		_ = c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to render QR code")
		return
	}
	if !ok {
		utils.RespondWithError(c, http.StatusNotFound, "QR code not available yet")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"error":      false,
		"message":    "Scan with WhatsApp to link this server",
		"qrImageUrl": url,
		"data":       gin.H{"qrImageUrl": url},
	})
}

func (wc *WhatsAppController) GetStatus(c *gin.Context) {
	utils.RespondWithData(c, http.StatusOK, "WhatsApp session status", wc.session.Snapshot())
}
