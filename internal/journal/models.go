package journal

import (
	"time"
)

// 注意：
// - 不使用 gorm.Model，显式声明每个字段，避免隐式 DeletedAt
// - 计数列与运行期统计字段一一对应

// LinkSession 映射 link_sessions 表，一条对端链路的生命周期
type LinkSession struct {
	// 主键
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// 会话标识（UUID）
	SessionID string `gorm:"column:session_id;type:text;not null;uniqueIndex"`
	// 对端地址
	PeerAddr string `gorm:"column:peer_addr;type:text;not null"`
	// 链路起止时间，EndedAt 为空表示仍在线
	StartedAt time.Time  `gorm:"column:started_at;not null"`
	EndedAt   *time.Time `gorm:"column:ended_at"`
	// 面板→对端方向统计
	UpValid    int64 `gorm:"column:up_valid;not null;default:0"`
	UpInvalid  int64 `gorm:"column:up_invalid;not null;default:0"`
	UpWriteErr int64 `gorm:"column:up_write_err;not null;default:0"`
	// 对端→面板方向统计
	DownValid    int64 `gorm:"column:down_valid;not null;default:0"`
	DownInvalid  int64 `gorm:"column:down_invalid;not null;default:0"`
	DownWriteErr int64 `gorm:"column:down_write_err;not null;default:0"`
	// 审计字段
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (LinkSession) TableName() string { return "link_sessions" }

// PowerEvent 映射 power_events 表，一次电源键动作
type PowerEvent struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// 事件来源：gpio / api
	Source string `gorm:"column:source;type:text;not null"`
	// 动作后的电源状态
	PowerOn bool `gorm:"column:power_on;not null"`
	// 事件发生时间
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index:idx_power_events_time,sort:desc"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (PowerEvent) TableName() string { return "power_events" }
