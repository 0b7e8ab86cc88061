package machine

import "coffee-machine-demo/internal/cupboard"

// Snapshot 是咖啡机当前状态的只读视图
type Snapshot struct {
	Plugged      bool                `json:"plugged"`
	OutOfOrder   bool                `json:"out_of_order"`
	Capabilities Capabilities        `json:"capabilities"`
	WaterVolume  float64             `json:"water_volume"`
	WaterMax     float64             `json:"water_max"`
	BeanVolume   float64             `json:"bean_volume"`
	BeanMax      float64             `json:"bean_max"`
	CoffeeType   cupboard.CoffeeType `json:"coffee_type,omitempty"`
}

func (m *CoffeeMachine) Snapshot() Snapshot {
	return Snapshot{
		Plugged:      m.IsPlugged(),
		OutOfOrder:   m.IsOutOfOrder(),
		Capabilities: m.capabilities,
		WaterVolume:  m.waterTank.ActualVolume(),
		WaterMax:     m.waterTank.MaxVolume(),
		BeanVolume:   m.beanTank.ActualVolume(),
		BeanMax:      m.beanTank.MaxVolume(),
		CoffeeType:   m.beanTank.CoffeeType(),
	}
}
