// models/gorm_models.go
package models

import (
	"time"
)

// GormAccount 账户模型
type GormAccount struct {
	PlayerID  string `gorm:"primaryKey;size:128"`
	Balance   int64  `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (GormAccount) TableName() string { return "accounts" }

// GormHeistRecord 劫案记录模型
type GormHeistRecord struct {
	ID             int64        `gorm:"primaryKey;autoIncrement"`
	RoomID         string       `gorm:"index;not null"`
	Outcome        string       `gorm:"not null"`
	Reason         string       `gorm:"not null"`
	Floor          int          `gorm:"default:0"`
	VaultsObtained int          `gorm:"default:0"`
	PayoutEach     int64        `gorm:"default:0"`
	Crew           []CrewMember `gorm:"serializer:json;not null"`
	CreatedAt      time.Time    `gorm:"index"`
}

func (GormHeistRecord) TableName() string { return "heist_records" }

// ToRecord 转换为通用记录
func (g GormHeistRecord) ToRecord() HeistRecord {
	return HeistRecord{
		ID:             g.ID,
		RoomID:         g.RoomID,
		Outcome:        g.Outcome,
		Reason:         g.Reason,
		Floor:          g.Floor,
		VaultsObtained: g.VaultsObtained,
		PayoutEach:     g.PayoutEach,
		Crew:           g.Crew,
		CreatedAt:      g.CreatedAt,
	}
}

// FromRecord 从通用记录构建
func FromRecord(r HeistRecord) GormHeistRecord {
	return GormHeistRecord{
		ID:             r.ID,
		RoomID:         r.RoomID,
		Outcome:        r.Outcome,
		Reason:         r.Reason,
		Floor:          r.Floor,
		VaultsObtained: r.VaultsObtained,
		PayoutEach:     r.PayoutEach,
		Crew:           r.Crew,
		CreatedAt:      r.CreatedAt,
	}
}
