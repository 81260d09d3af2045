// models/models.go
package models

import (
	"time"
)

// Account 玩家账户（劫案奖励）
type Account struct {
	PlayerID  string    `json:"player_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CrewMember 劫案参与者（用于劫案记录）
type CrewMember struct {
	PlayerID string `json:"player_id"`
	Role     string `json:"role"`
	Payout   int64  `json:"payout"`
}

// HeistRecord 劫案记录模型
type HeistRecord struct {
	ID             int64        `json:"id"`
	RoomID         string       `json:"room_id"`
	Outcome        string       `json:"outcome"`
	Reason         string       `json:"reason"`
	Floor          int          `json:"floor"`
	VaultsObtained int          `json:"vaults_obtained"`
	PayoutEach     int64        `json:"payout_each"`
	Crew           []CrewMember `json:"crew"`
	CreatedAt      time.Time    `json:"created_at"`
}
