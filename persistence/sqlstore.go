// persistence/sqlstore.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"   // PostgreSQL 驱动
	_ "modernc.org/sqlite" // SQLite 驱动

	"github.com/wfunc/heist/models"
)

// 支持的 database/sql 驱动
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLStore 基于 database/sql 的实现，支持 PostgreSQL(lib/pq) 与 SQLite
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*SQLStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
	return openSQL(DriverPostgres, connStr)
}

// NewSQLite 打开（或创建）SQLite 数据库文件
func NewSQLite(path string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	return openSQL(DriverSQLite, dsn)
}

func openSQL(driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	// 设置连接池参数
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.initTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}
	return s, nil
}

// initTables 初始化数据库表结构
func (s *SQLStore) initTables(ctx context.Context) error {
	idColumn := "id BIGSERIAL PRIMARY KEY"
	if s.driver == DriverSQLite {
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            player_id VARCHAR(128) PRIMARY KEY,
            balance BIGINT NOT NULL DEFAULT 0,
            created_at BIGINT NOT NULL,
            updated_at BIGINT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS heist_records (
            ` + idColumn + `,
            room_id VARCHAR(255) NOT NULL,
            outcome VARCHAR(32) NOT NULL,
            reason TEXT NOT NULL,
            floor INTEGER NOT NULL DEFAULT 0,
            vaults_obtained INTEGER NOT NULL DEFAULT 0,
            payout_each BIGINT NOT NULL DEFAULT 0,
            crew TEXT NOT NULL,
            created_at BIGINT NOT NULL
        )`,
		// 创建索引以提高查询性能
		`CREATE INDEX IF NOT EXISTS idx_heist_records_room_id ON heist_records(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_heist_records_created_at ON heist_records(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind 将 ? 占位符转换为 PostgreSQL 的 $N
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Credit 增加余额，使用 UPSERT 操作
func (s *SQLStore) Credit(ctx context.Context, playerID string, amount int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	query := s.rebind(`
        INSERT INTO accounts (player_id, balance, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (player_id)
        DO UPDATE SET balance = accounts.balance + excluded.balance, updated_at = excluded.updated_at
    `)
	if _, err := tx.ExecContext(ctx, query, playerID, amount, now, now); err != nil {
		return 0, err
	}

	var balance int64
	if err := tx.QueryRowContext(ctx, s.rebind(`SELECT balance FROM accounts WHERE player_id = ?`), playerID).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, tx.Commit()
}

// Balance 查询余额
func (s *SQLStore) Balance(ctx context.Context, playerID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var balance int64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT balance FROM accounts WHERE player_id = ?`), playerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrRecordNotFound
		}
		return 0, err
	}
	return balance, nil
}

// SaveHeistRecord 保存劫案记录
func (s *SQLStore) SaveHeistRecord(ctx context.Context, record *models.HeistRecord) error {
	crew, err := json.Marshal(record.Crew)
	if err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := s.rebind(`
        INSERT INTO heist_records (room_id, outcome, reason, floor, vaults_obtained, payout_each, crew, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `)
	return s.db.QueryRowContext(ctx, query,
		record.RoomID,
		record.Outcome,
		record.Reason,
		record.Floor,
		record.VaultsObtained,
		record.PayoutEach,
		string(crew),
		record.CreatedAt.Unix(),
	).Scan(&record.ID)
}

// RecentHeistRecords 最近的劫案记录，新的在前
func (s *SQLStore) RecentHeistRecords(ctx context.Context, limit int) ([]models.HeistRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := s.rebind(`
        SELECT id, room_id, outcome, reason, floor, vaults_obtained, payout_each, crew, created_at
        FROM heist_records
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.HeistRecord
	for rows.Next() {
		var (
			rec     models.HeistRecord
			crew    string
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.Outcome, &rec.Reason, &rec.Floor,
			&rec.VaultsObtained, &rec.PayoutEach, &crew, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(crew), &rec.Crew); err != nil {
			return nil, fmt.Errorf("decode crew of heist %d: %w", rec.ID, err)
		}
		rec.CreatedAt = time.Unix(created, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close 关闭数据库连接
func (s *SQLStore) Close() error {
	return s.db.Close()
}
