package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 定义 Prometheus 监控指标
var (
	// OrdersInQueue 仪表盘：当前等待冲泡的订单数量
	OrdersInQueue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coffee_orders_in_queue",
		Help: "The number of orders currently waiting in the priority queue",
	})

	// BrewsTotal 计数器：冲泡总数，按状态 (success/failed) 和咖啡品种分类
	BrewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coffee_brews_total",
		Help: "The total number of brew attempts",
	}, []string{"status", "coffee_type"})

	// StepDuration 直方图：研磨和泵水的模拟耗时
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coffee_step_duration_seconds",
		Help:    "Simulated time spent in each brewing step",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})

	// TankLevel 仪表盘：水箱和豆仓当前余量
	TankLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "coffee_tank_level",
		Help: "Current volume in each tank",
	}, []string{"tank"})

	// MachineOutOfOrder 仪表盘：机器是否处于故障状态 (0/1)
	MachineOutOfOrder = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coffee_machine_out_of_order",
		Help: "Whether the coffee machine is out of order",
	})
)
