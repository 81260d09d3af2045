// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/heist/models"
)

// Database 数据库接口
type Database interface {
	// Credit adds amount to the player's balance, creating the account on
	// first use, and returns the new balance.
	Credit(ctx context.Context, playerID string, amount int64) (int64, error)
	Balance(ctx context.Context, playerID string) (int64, error)
	SaveHeistRecord(ctx context.Context, record *models.HeistRecord) error
	RecentHeistRecords(ctx context.Context, limit int) ([]models.HeistRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
)

const defaultQueryTimeout = 5 * time.Second
