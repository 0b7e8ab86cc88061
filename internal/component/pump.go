package component

import (
	"time"

	"github.com/pkg/errors"
)

// WaterSource 是水泵取水的来源
type WaterSource interface {
	WithdrawWater(volume float64) error
}

// WaterPump 水泵，pumpingCapacity 为每小时的泵水量
type WaterPump struct {
	pumpingCapacity float64
	sleeper         Sleeper
}

func NewWaterPump(pumpingCapacity float64, sleeper Sleeper) *WaterPump {
	return &WaterPump{pumpingCapacity: pumpingCapacity, sleeper: sleeper}
}

func (p *WaterPump) PumpingCapacity() float64 {
	return p.pumpingCapacity
}

// PumpingTime 计算泵送 volume 所需的时间 (毫秒)，系数 2 为模拟余量
func (p *WaterPump) PumpingTime(volume float64) float64 {
	return (volume / p.pumpingCapacity) * 1000 * 2
}

// PumpWater 阻塞泵送耗时后从水箱取水，返回耗时 (毫秒)
func (p *WaterPump) PumpWater(volume float64, tank WaterSource) (float64, error) {
	pumpingTime := p.PumpingTime(volume)
	p.sleeper.Sleep(time.Duration(pumpingTime * float64(time.Millisecond)))

	if err := tank.WithdrawWater(volume); err != nil {
		return pumpingTime, errors.Wrap(err, "pump water")
	}
	return pumpingTime, nil
}
