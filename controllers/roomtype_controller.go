package controllers

import (
	"net/http"

	"hotel-ledger/services"
	"hotel-ledger/utils"

	"github.com/gin-gonic/gin"
)

type RoomTypeController struct {
	Types *services.RoomTypeService
}

func NewRoomTypeController(types *services.RoomTypeService) *RoomTypeController {
	return &RoomTypeController{Types: types}
}

func (rc *RoomTypeController) GetRoomTypes(c *gin.Context) {
	types, err := rc.Types.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, types)
}
