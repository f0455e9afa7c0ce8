package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"hotel-ledger/services"
	"hotel-ledger/utils"

	"github.com/gin-gonic/gin"
)

type RoomController struct {
	Rooms        *services.RoomService
	Reservations *services.ReservationService
}

func NewRoomController(rooms *services.RoomService, reservations *services.ReservationService) *RoomController {
	return &RoomController{Rooms: rooms, Reservations: reservations}
}

// ----------------------------------------------------
// GET /api/rooms?status=Available
// ----------------------------------------------------

func (rc *RoomController) GetRooms(c *gin.Context) {
	rooms, err := rc.Rooms.GetAll(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, rooms)
}

// ----------------------------------------------------
// GET /api/rooms/:id
// ----------------------------------------------------

func (rc *RoomController) GetRoom(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	info, err := rc.Rooms.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"room":                 info.Room,
		"max_occupancy":        info.EffectiveMaxOccupancy,
		"nightly_rate":         info.NightlyRate,
		"nightly_rate_display": utils.FormatMinor(info.NightlyRate),
	})
}

// ----------------------------------------------------
// GET /api/rooms/:id/availability?check_in=&check_out=&exclude_reservation_id=
// ----------------------------------------------------

func (rc *RoomController) GetRoomAvailability(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	checkIn, err := parseDate("check_in", c.Query("check_in"))
	if err != nil {
		respondError(c, err)
		return
	}
	checkOut, err := parseDate("check_out", c.Query("check_out"))
	if err != nil {
		respondError(c, err)
		return
	}

	var exclude *uint
	if raw := strings.TrimSpace(c.Query("exclude_reservation_id")); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.JSONErrorCode(c, http.StatusBadRequest, "invalid_id", "invalid exclude_reservation_id", gin.H{"field": "exclude_reservation_id"})
			return
		}
		ex := uint(v)
		exclude = &ex
	}

	available, err := rc.Reservations.CheckAvailability(c.Request.Context(), id, checkIn, checkOut, exclude)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"room_id":   id,
		"check_in":  checkIn.Format(dateLayout),
		"check_out": checkOut.Format(dateLayout),
		"available": available,
	})
}
