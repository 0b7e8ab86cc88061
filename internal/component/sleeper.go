package component

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Sleeper 模拟物理设备耗时的时间源
// clock.Clock 天然满足该接口
type Sleeper interface {
	Sleep(d time.Duration)
}

// ScaledSleeper 按比例缩放等待时间，scale 为 0 时不等待
type ScaledSleeper struct {
	clock clock.Clock
	scale float64
}

// NewScaledSleeper 基于系统时钟创建一个时间源
func NewScaledSleeper(scale float64) *ScaledSleeper {
	return NewScaledSleeperWithClock(clock.New(), scale)
}

func NewScaledSleeperWithClock(c clock.Clock, scale float64) *ScaledSleeper {
	return &ScaledSleeper{clock: c, scale: scale}
}

func (s *ScaledSleeper) Sleep(d time.Duration) {
	scaled := time.Duration(float64(d) * s.scale)
	if scaled <= 0 {
		return
	}
	s.clock.Sleep(scaled)
}
