package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hotel-ledger/models"

	"gorm.io/gorm"
)

// RoomService is the read-only room catalog the ledger consumes.
type RoomService struct {
	DB *gorm.DB
}

func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{DB: db}
}

// RoomInfo is the catalog view of a room.
type RoomInfo struct {
	models.Room
	// EffectiveMaxOccupancy falls back to the room type's guest limit.
	EffectiveMaxOccupancy int   `json:"effectiveMaxOccupancy"`
	NightlyRate           int64 `json:"nightlyRate"`
}

func (s *RoomService) GetAll(ctx context.Context, status string) ([]models.Room, error) {
	q := s.DB.WithContext(ctx).Preload("RoomType").Order("room_number ASC")
	if status = strings.TrimSpace(status); status != "" {
		q = q.Where("status = ?", status)
	}
	var rooms []models.Room
	if err := q.Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (s *RoomService) GetByID(ctx context.Context, id uint) (RoomInfo, error) {
	var room models.Room
	if err := s.DB.WithContext(ctx).Preload("RoomType").First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RoomInfo{}, ErrRoomNotFound
		}
		return RoomInfo{}, fmt.Errorf("failed to load room %d: %w", id, err)
	}

	info := RoomInfo{Room: room, EffectiveMaxOccupancy: room.MaxOccupancy, NightlyRate: room.BaseRate}
	if info.EffectiveMaxOccupancy == 0 && room.RoomType.ID != 0 {
		info.EffectiveMaxOccupancy = int(room.RoomType.MaxGuests)
	}
	return info, nil
}
