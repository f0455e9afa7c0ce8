package controllers

import (
	"fmt"
	"net/http"

	"hotel-ledger/models"
	"hotel-ledger/services"
	"hotel-ledger/utils"

	"github.com/gin-gonic/gin"
)

type hotelSettingsPayload struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	CheckoutCutoff string `json:"checkout_cutoff"`
}

type SettingsController struct {
	Settings *services.SettingsService
}

func NewSettingsController(settings *services.SettingsService) *SettingsController {
	return &SettingsController{Settings: settings}
}

func (sc *SettingsController) GetHotelSettings(c *gin.Context) {
	hotel, err := sc.Settings.Get()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotel": hotel, "effective_checkout_cutoff": formatCutoff(sc.Settings.Policy(nil))})
}

func (sc *SettingsController) UpdateHotelSettings(c *gin.Context) {
	var payload hotelSettingsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONErrorCode(c, http.StatusBadRequest, "invalid_payload", err.Error(), nil)
		return
	}

	hotel, err := sc.Settings.Save(models.HotelSetting{
		Name:           payload.Name,
		Address:        payload.Address,
		Phone:          payload.Phone,
		Email:          payload.Email,
		CheckoutCutoff: payload.CheckoutCutoff,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotel": hotel, "effective_checkout_cutoff": formatCutoff(sc.Settings.Policy(nil))})
}

func formatCutoff(p services.Policy) string {
	return fmt.Sprintf("%02d:%02d", int(p.CheckoutCutoff.Hours()), int(p.CheckoutCutoff.Minutes())%60)
}
