package component

import (
	"time"

	"github.com/pkg/errors"
)

// DefaultGrindVolume 每次研磨消耗的豆量
const DefaultGrindVolume = 0.2

// BeanSource 是磨豆机取豆的来源
type BeanSource interface {
	WithdrawCoffee(volume float64) error
}

// CoffeeGrinder 磨豆机，grindingTime 单位为秒
type CoffeeGrinder struct {
	grindingTime float64
	grindVolume  float64
	sleeper      Sleeper
}

func NewCoffeeGrinder(grindingTime, grindVolume float64, sleeper Sleeper) *CoffeeGrinder {
	if grindVolume <= 0 {
		grindVolume = DefaultGrindVolume
	}
	return &CoffeeGrinder{grindingTime: grindingTime, grindVolume: grindVolume, sleeper: sleeper}
}

func (g *CoffeeGrinder) GrindingTime() float64 { return g.grindingTime }
func (g *CoffeeGrinder) GrindVolume() float64  { return g.grindVolume }

// GrindCoffee 阻塞研磨耗时后从豆仓取豆，返回研磨耗时 (秒)
func (g *CoffeeGrinder) GrindCoffee(tank BeanSource) (float64, error) {
	g.sleeper.Sleep(time.Duration(g.grindingTime * float64(time.Second)))

	if err := tank.WithdrawCoffee(g.grindVolume); err != nil {
		return g.grindingTime, errors.Wrap(err, "grind coffee")
	}
	return g.grindingTime, nil
}
