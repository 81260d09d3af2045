// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/heist/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
	return openGorm(postgres.Open(dsn))
}

func openGorm(dialector gorm.Dialector) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormAccount{}, &models.GormHeistRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &GormPostgreSQL{db: db}, nil
}

// Credit 增加余额（事务内 UPSERT 后读取）
func (p *GormPostgreSQL) Credit(ctx context.Context, playerID string, amount int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var balance int64
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		account := models.GormAccount{PlayerID: playerID, Balance: amount, CreatedAt: now, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"balance":    gorm.Expr("accounts.balance + ?", amount),
				"updated_at": now,
			}),
		}).Create(&account).Error; err != nil {
			return err
		}

		var stored models.GormAccount
		if err := tx.Where("player_id = ?", playerID).First(&stored).Error; err != nil {
			return err
		}
		balance = stored.Balance
		return nil
	})
	return balance, err
}

// Balance 查询余额
func (p *GormPostgreSQL) Balance(ctx context.Context, playerID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var account models.GormAccount
	if err := p.db.WithContext(ctx).Where("player_id = ?", playerID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrRecordNotFound
		}
		return 0, err
	}
	return account.Balance, nil
}

// SaveHeistRecord 保存劫案记录
func (p *GormPostgreSQL) SaveHeistRecord(ctx context.Context, record *models.HeistRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	row := models.FromRecord(*record)
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	record.ID = row.ID
	return nil
}

// RecentHeistRecords 最近的劫案记录，新的在前
func (p *GormPostgreSQL) RecentHeistRecords(ctx context.Context, limit int) ([]models.HeistRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var rows []models.GormHeistRecord
	if err := p.db.WithContext(ctx).Order("created_at desc, id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]models.HeistRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.ToRecord())
	}
	return records, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
