package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// RoomType categorises a classroom for compatibility checks.
type RoomType string

const (
	RoomTypeLectureHall  RoomType = "LECTURE_HALL"
	RoomTypeLab          RoomType = "LAB"
	RoomTypeSeminarRoom  RoomType = "SEMINAR_ROOM"
	RoomTypeComputerLab  RoomType = "COMPUTER_LAB"
	RoomTypeAuditorium   RoomType = "AUDITORIUM"
	RoomTypeTutorialRoom RoomType = "TUTORIAL_ROOM"
)

// SupportsLab reports whether the room can host lab sessions.
func (t RoomType) SupportsLab() bool {
	return t == RoomTypeLab || t == RoomTypeComputerLab
}

// BlackoutWindow is a recurring weekly period a classroom is unavailable.
type BlackoutWindow struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason"`
}

// Classroom models a teaching room with capacity and type constraints.
type Classroom struct {
	ID               string         `db:"id" json:"id"`
	RoomNumber       string         `db:"room_number" json:"room_number"`
	Building         string         `db:"building" json:"building"`
	Capacity         int            `db:"capacity" json:"capacity"`
	RoomType         RoomType       `db:"room_type" json:"room_type"`
	Facilities       pq.StringArray `db:"facilities" json:"facilities"`
	IsAvailable      bool           `db:"is_available" json:"is_available"`
	UnavailableSlots types.JSONText `db:"unavailable_slots" json:"unavailable_slots,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// Blackouts decodes the stored unavailability windows. Decoding is
// best-effort: malformed payloads yield an empty list.
func (c *Classroom) Blackouts() []BlackoutWindow {
	if len(c.UnavailableSlots) == 0 {
		return nil
	}
	var windows []BlackoutWindow
	_ = json.Unmarshal(c.UnavailableSlots, &windows)
	return windows
}

// ClassroomFilter defines filters supported by list endpoints.
type ClassroomFilter struct {
	Building    string
	RoomType    RoomType
	MinCapacity int
	IsAvailable *bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
