package journal

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	cfgpkg "github.com/taoyao-code/panel-relay/internal/config"
	"github.com/taoyao-code/panel-relay/internal/protocol"
)

// Repository 基于 GORM 的事件日志实现。
// 实现 relay.Journal，另提供供 API 使用的查询方法。
type Repository struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open 连接数据库并确保表结构存在
func Open(cfg cfgpkg.JournalConfig, log *zap.Logger) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&LinkSession{}, &PowerEvent{}); err != nil {
		return nil, err
	}

	return &Repository{db: db, log: log}, nil
}

// New 返回一个使用给定 *gorm.DB 的实例（测试注入用）
func New(db *gorm.DB, log *zap.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// DB 暴露底层连接供健康检查使用
func (r *Repository) DB() *gorm.DB { return r.db }

// Close 归还连接池
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LinkStarted 记录链路建立
func (r *Repository) LinkStarted(ctx context.Context, id, peerAddr string, at time.Time) error {
	record := &LinkSession{
		SessionID: id,
		PeerAddr:  peerAddr,
		StartedAt: at,
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// LinkEnded 回填链路结束时间与两个方向的统计
func (r *Repository) LinkEnded(ctx context.Context, id string, at time.Time, panelToPeer, peerToPanel protocol.Stats) error {
	return r.db.WithContext(ctx).
		Model(&LinkSession{}).
		Where("session_id = ?", id).
		Updates(map[string]interface{}{
			"ended_at":       at,
			"up_valid":       panelToPeer.ValidFrames,
			"up_invalid":     panelToPeer.InvalidFrames,
			"up_write_err":   panelToPeer.WriteErrors,
			"down_valid":     peerToPanel.ValidFrames,
			"down_invalid":   peerToPanel.InvalidFrames,
			"down_write_err": peerToPanel.WriteErrors,
		}).Error
}

// PowerEvent 记录一次电源键动作
func (r *Repository) PowerEvent(ctx context.Context, source string, on bool, at time.Time) error {
	record := &PowerEvent{
		Source:     source,
		PowerOn:    on,
		OccurredAt: at,
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// RecentSessions 按开始时间倒序返回最近的链路会话
func (r *Repository) RecentSessions(ctx context.Context, limit int) ([]LinkSession, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []LinkSession
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// RecentPowerEvents 按发生时间倒序返回最近的电源事件
func (r *Repository) RecentPowerEvents(ctx context.Context, limit int) ([]PowerEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	var events []PowerEvent
	err := r.db.WithContext(ctx).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
