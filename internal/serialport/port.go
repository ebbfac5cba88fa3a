// Package serialport 打开并配置面板 UART。
// 波特率/数据位/raw 模式等线路设置全部交给 goburrow/serial，
// 协议核心只拿到一个双工字节通道。
package serialport

import (
	"fmt"

	"github.com/goburrow/serial"

	cfgpkg "github.com/taoyao-code/panel-relay/internal/config"
)

// Open 按配置打开串口。Timeout 作用于单次 Read，
// 使读循环得以周期性醒来检查关闭信号。
func Open(cfg cfgpkg.SerialConfig) (serial.Port, error) {
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Device, err)
	}
	return port, nil
}
