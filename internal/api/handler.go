package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/panel-relay/internal/journal"
	"github.com/taoyao-code/panel-relay/internal/relay"
)

// Relay 控制 API 需要的桥接器能力
type Relay interface {
	Snapshot() relay.Snapshot
	SendPower(on bool, source string) error
	TogglePower(source string) (bool, error)
}

// Store 事件日志查询能力（可选，nil 时相关路由返回 404）
type Store interface {
	RecentSessions(ctx context.Context, limit int) ([]journal.LinkSession, error)
	RecentPowerEvents(ctx context.Context, limit int) ([]journal.PowerEvent, error)
}

// ConfigDumper 运行配置导出（脱敏后）
type ConfigDumper interface {
	Dump() ([]byte, error)
}

// Handler 控制 API 处理器
type Handler struct {
	bridge Relay
	cfg    ConfigDumper
	store  Store
	logger *zap.Logger
}

// NewHandler 创建控制 API 处理器
func NewHandler(bridge Relay, cfg ConfigDumper, store Store, logger *zap.Logger) *Handler {
	return &Handler{
		bridge: bridge,
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// Status 返回桥接器运行时快照
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.bridge.Snapshot())
}

// Config 返回脱敏后的运行配置（YAML）
func (h *Handler) Config(c *gin.Context) {
	b, err := h.cfg.Dump()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/yaml; charset=utf-8", b)
}

// powerRequest 电源指令请求体。
// toggle 为 true 时忽略 on 字段，行为等同一次物理按键。
type powerRequest struct {
	On     *bool `json:"on"`
	Toggle bool  `json:"toggle"`
}

// Power 下发电源指令
func (h *Handler) Power(c *gin.Context) {
	var req powerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Toggle && req.On == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either on or toggle is required"})
		return
	}

	var (
		on  bool
		err error
	)
	if req.Toggle {
		on, err = h.bridge.TogglePower("api")
	} else {
		on = *req.On
		err = h.bridge.SendPower(on, "api")
	}

	if errors.Is(err, relay.ErrNoLink) {
		c.JSON(http.StatusConflict, gin.H{"error": "no peer link"})
		return
	}
	if err != nil {
		h.logger.Error("power command failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"power_on": on})
}

// Sessions 查询最近的链路会话
func (h *Handler) Sessions(c *gin.Context) {
	sessions, err := h.store.RecentSessions(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// PowerEvents 查询最近的电源事件
func (h *Handler) PowerEvents(c *gin.Context) {
	events, err := h.store.RecentPowerEvents(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func queryLimit(c *gin.Context) int {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if vv, e := strconv.Atoi(v); e == nil {
			limit = vv
		}
	}
	return limit
}
