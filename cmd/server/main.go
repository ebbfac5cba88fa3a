package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/panel-relay/internal/api"
	cfgpkg "github.com/taoyao-code/panel-relay/internal/config"
	"github.com/taoyao-code/panel-relay/internal/gpio"
	"github.com/taoyao-code/panel-relay/internal/health"
	"github.com/taoyao-code/panel-relay/internal/httpserver"
	"github.com/taoyao-code/panel-relay/internal/journal"
	"github.com/taoyao-code/panel-relay/internal/logging"
	"github.com/taoyao-code/panel-relay/internal/metrics"
	"github.com/taoyao-code/panel-relay/internal/relay"
	"github.com/taoyao-code/panel-relay/internal/serialport"
	"github.com/taoyao-code/panel-relay/internal/tcpserver"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 3) 指标注册与处理器
	reg := metrics.NewRegistry()
	m := metrics.NewAppMetrics(reg)
	var metricsHandler = metrics.Handler(reg)
	if !cfg.Metrics.Enable {
		metricsHandler = nil
	}

	// 4) 事件日志（可选）
	var (
		repo    *journal.Repository
		relayJr relay.Journal
		apiSt   api.Store
	)
	if cfg.Journal.Enable {
		repo, err = journal.Open(cfg.Journal, log)
		if err != nil {
			log.Fatal("journal open error", zap.Error(err))
		}
		defer func() { _ = repo.Close() }()
		relayJr, apiSt = repo, repo
		log.Info("journal enabled")
	}

	// 5) 面板串口
	port, err := serialport.Open(cfg.Serial)
	if err != nil {
		log.Fatal("serial open error",
			zap.String("device", cfg.Serial.Device), zap.Error(err))
	}
	defer func() { _ = port.Close() }()
	log.Info("serial port open",
		zap.String("device", cfg.Serial.Device),
		zap.Int("baud", cfg.Serial.BaudRate))

	// 6) 帧中继桥
	keepalive := time.Duration(0)
	if cfg.Keepalive.Enable {
		keepalive = cfg.Keepalive.Interval
	}
	bridge := relay.New(port, log, m, relay.Options{
		BufferSize:        cfg.Relay.BufferSize,
		KeepaliveInterval: keepalive,
		Journal:           relayJr,
	})

	// 7) 电源键与输出脚（可选，设备上才有 sysfs）
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.GPIO.Enable {
		fs := gpio.NewSysfs(cfg.GPIO.BasePath)
		for _, pin := range cfg.GPIO.OutputPins {
			if err := fs.InitOutput(pin); err != nil {
				log.Fatal("gpio output init error", zap.Int("pin", pin), zap.Error(err))
			}
		}
		pk, err := gpio.InitPowerKey(fs, cfg.GPIO.PowerKeyPin)
		if err != nil {
			log.Fatal("power key init error",
				zap.Int("pin", cfg.GPIO.PowerKeyPin), zap.Error(err))
		}
		defer func() { _ = pk.Close() }()
		go bridge.WatchPowerKey(rootCtx, pk)
		log.Info("power key armed", zap.Int("pin", pk.Pin()))
	}

	// 8) 就绪状态与健康检查
	readiness := health.New()
	readiness.SetSerialReady(true)
	agg := health.NewAggregator(
		health.NewSerialChecker(cfg.Serial.Device),
		health.NewLinkChecker(bridge),
	)
	if repo != nil {
		agg.AddChecker(health.NewJournalChecker(repo.DB()))
	}

	// 9) HTTP 服务：健康检查、指标、控制 API
	apiHandler := api.NewHandler(bridge, cfg, apiSt, log)
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, readiness.Ready,
		func(r *gin.Engine) { health.RegisterHTTPRoutes(r, agg) },
		func(r *gin.Engine) { api.RegisterRoutes(r, apiHandler, log) },
	)

	// 10) TCP 对端监听
	tcpSrv := tcpserver.New(cfg.TCP, log)
	tcpSrv.SetHandler(bridge.HandleLink)
	tcpSrv.SetMetricsCallbacks(m.TCPAccepted.Inc, m.TCPRejected.Inc)

	// 并行启动
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()
	if err := tcpSrv.Start(); err != nil {
		log.Fatal("tcp server start error", zap.Error(err))
	}
	readiness.SetTCPReady(true)

	// 信号处理，优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	cancel()
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(ctx)
	_ = tcpSrv.Shutdown(ctx)
}
