// services/economy_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/heist/heist"
	"github.com/wfunc/heist/lobby"
	"github.com/wfunc/heist/logger"
	"github.com/wfunc/heist/models"
	"github.com/wfunc/heist/persistence"
)

// ErrInvalidAmount 金额必须为正数
var ErrInvalidAmount = errors.New("services: amount must be positive")

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
)

// EconomyService 劫案奖励账本与劫案记录
type EconomyService struct {
	db persistence.Database
}

func NewEconomyService(db persistence.Database) *EconomyService {
	return &EconomyService{db: db}
}

// Credit 发放奖励
func (s *EconomyService) Credit(ctx context.Context, playerID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	balance, err := s.db.Credit(ctx, playerID, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", playerID, err)
	}
	logger.Log.Infof("credited %d to %s, balance %d", amount, playerID, balance)
	return nil
}

// Balance 查询余额，没有账户时为 0
func (s *EconomyService) Balance(ctx context.Context, playerID string) (int64, error) {
	balance, err := s.db.Balance(ctx, playerID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return 0, nil
	}
	return balance, err
}

// RecordHeist 保存结束的劫案
func (s *EconomyService) RecordHeist(ctx context.Context, roomID string, roster lobby.Roster, result heist.Result) error {
	crew := make([]models.CrewMember, 0, len(roster))
	for _, p := range roster {
		crew = append(crew, models.CrewMember{PlayerID: p.ID, Role: p.Role.String(), Payout: result.PayoutEach})
	}
	record := &models.HeistRecord{
		RoomID:         roomID,
		Outcome:        result.Outcome.String(),
		Reason:         result.Reason,
		Floor:          result.Floor,
		VaultsObtained: result.VaultsObtained,
		PayoutEach:     result.PayoutEach,
		Crew:           crew,
	}
	if err := s.db.SaveHeistRecord(ctx, record); err != nil {
		return fmt.Errorf("save heist record: %w", err)
	}
	return nil
}

// RecentHeists 最近的劫案，limit 超出范围时取默认值
func (s *EconomyService) RecentHeists(ctx context.Context, limit int) ([]models.HeistRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.db.RecentHeistRecords(ctx, limit)
}
