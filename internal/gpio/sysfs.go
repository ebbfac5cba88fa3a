// Package gpio 通过 sysfs 虚拟文件系统（/sys/class/gpio/gpio<N>/...）
// 操作数字 IO 脚。路径前缀可替换，便于用临时目录做测试替身，
// 协议引擎不感知具体后端。
package gpio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Direction 引脚方向
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Edge 边沿触发模式
type Edge string

const (
	EdgeNone    Edge = "none"
	EdgeRising  Edge = "rising"
	EdgeFalling Edge = "falling"
)

// Sysfs sysfs GPIO 能力入口
type Sysfs struct {
	base string
}

// NewSysfs 创建以 base 为根的 GPIO 访问器；base 为空时取 /sys/class/gpio
func NewSysfs(base string) *Sysfs {
	if base == "" {
		base = "/sys/class/gpio"
	}
	return &Sysfs{base: base}
}

func (s *Sysfs) pinDir(pin int) string {
	return filepath.Join(s.base, fmt.Sprintf("gpio%d", pin))
}

// Export 导出引脚。目录已存在时为空操作（幂等）。
func (s *Sysfs) Export(pin int) error {
	if _, err := os.Stat(s.pinDir(pin)); err == nil {
		return nil
	}
	return writeAttr(filepath.Join(s.base, "export"), strconv.Itoa(pin))
}

// SetDirection 设置方向（in/out）
func (s *Sysfs) SetDirection(pin int, d Direction) error {
	return writeAttr(filepath.Join(s.pinDir(pin), "direction"), string(d))
}

// SetActiveLow 设置极性；true 为低有效
func (s *Sysfs) SetActiveLow(pin int, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeAttr(filepath.Join(s.pinDir(pin), "active_low"), val)
}

// SetEdge 设置边沿触发模式
func (s *Sysfs) SetEdge(pin int, e Edge) error {
	return writeAttr(filepath.Join(s.pinDir(pin), "edge"), string(e))
}

// WriteValue 写引脚电平（0/1）
func (s *Sysfs) WriteValue(pin int, v int) error {
	val := "0"
	if v != 0 {
		val = "1"
	}
	return writeAttr(filepath.Join(s.pinDir(pin), "value"), val)
}

// ReadValue 读引脚电平
func (s *Sysfs) ReadValue(pin int) (int, error) {
	raw, err := os.ReadFile(filepath.Join(s.pinDir(pin), "value"))
	if err != nil {
		return 0, fmt.Errorf("gpio%d read value: %w", pin, err)
	}
	if len(bytes.TrimSpace(raw)) > 0 && bytes.TrimSpace(raw)[0] == '1' {
		return 1, nil
	}
	return 0, nil
}

// ValuePath 引脚 value 文件路径（供边沿等待打开文件描述符）
func (s *Sysfs) ValuePath(pin int) string {
	return filepath.Join(s.pinDir(pin), "value")
}

// InitOutput 初始化输出脚：按需导出、方向设 out、写初值 0。
// 初值写的是 pin 本身；旧实现在这里写死了另一个引脚号，属缺陷，
// 已向系统负责人通报（见 DESIGN.md）。
func (s *Sysfs) InitOutput(pin int) error {
	if err := s.Export(pin); err != nil {
		return err
	}
	if err := s.SetDirection(pin, Out); err != nil {
		return err
	}
	return s.WriteValue(pin, 0)
}

func writeAttr(path, val string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(val); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
