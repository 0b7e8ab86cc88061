package component

import (
	"testing"
	"time"

	"coffee-machine-demo/internal/cupboard"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleeper 记录请求的等待时间但不真正等待
type recordingSleeper struct {
	slept []time.Duration
}

func (r *recordingSleeper) Sleep(d time.Duration) {
	r.slept = append(r.slept, d)
}

func TestWaterTank_AddWater(t *testing.T) {
	tank := NewWaterTank(0, 10)

	require.NoError(t, tank.AddWater(5))
	assert.Equal(t, 5.0, tank.ActualVolume())

	require.NoError(t, tank.AddWater(3))
	assert.Equal(t, 8.0, tank.ActualVolume())
}

func TestWaterTank_AddWaterClampsToMax(t *testing.T) {
	tank := NewWaterTank(0, 10)

	require.NoError(t, tank.AddWater(15))
	assert.Equal(t, tank.MaxVolume(), tank.ActualVolume())

	require.NoError(t, tank.AddWater(1))
	assert.Equal(t, 10.0, tank.ActualVolume())
}

func TestWaterTank_RejectsNegativeVolume(t *testing.T) {
	tank := NewWaterTank(0, 10)

	err := tank.AddWater(-1)
	assert.True(t, errors.Is(err, ErrInvalidVolume))
	assert.Zero(t, tank.ActualVolume())
}

func TestWaterTank_WithdrawBeyondActualFails(t *testing.T) {
	tank := NewWaterTank(0, 10)
	require.NoError(t, tank.AddWater(2))

	err := tank.WithdrawWater(2.5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientResource))

	var resErr *InsufficientResourceError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, ResourceWater, resErr.Resource)
	assert.Equal(t, 2.5, resErr.Requested)
	assert.Equal(t, 2.0, resErr.Available)

	assert.Equal(t, 2.0, tank.ActualVolume(), "failed withdrawal must not touch the tank")

	require.NoError(t, tank.WithdrawWater(1.5))
	assert.Equal(t, 0.5, tank.ActualVolume())
}

func TestWaterTank_KeepsMinVolumeAsInformation(t *testing.T) {
	tank := NewWaterTank(1, 10)
	assert.Equal(t, 1.0, tank.MinVolume())

	require.NoError(t, tank.AddWater(0.5))
	require.NoError(t, tank.WithdrawWater(0.5))
	assert.Zero(t, tank.ActualVolume())
}

func TestBeanTank_AddCoffee(t *testing.T) {
	tank := NewBeanTank(0, 10)
	assert.Empty(t, tank.CoffeeType())

	require.NoError(t, tank.AddCoffee(3, cupboard.Moka))
	assert.Equal(t, cupboard.Moka, tank.CoffeeType())
	assert.Equal(t, 3.0, tank.ActualVolume())

	require.NoError(t, tank.AddCoffee(30, cupboard.Moka))
	assert.Equal(t, 10.0, tank.ActualVolume())
}

func TestBeanTank_RejectsDifferentType(t *testing.T) {
	tank := NewBeanTank(0, 10)
	require.NoError(t, tank.AddCoffee(3, cupboard.Moka))

	err := tank.AddCoffee(3, cupboard.Arabica)
	assert.True(t, errors.Is(err, ErrIncompatibleCoffeeType))
	assert.Equal(t, cupboard.Moka, tank.CoffeeType())
	assert.Equal(t, 3.0, tank.ActualVolume())
}

func TestBeanTank_EmptiedTankAcceptsNewType(t *testing.T) {
	tank := NewBeanTank(0, 10)
	require.NoError(t, tank.AddCoffee(0.4, cupboard.Moka))

	require.NoError(t, tank.WithdrawCoffee(0.4))
	assert.Empty(t, tank.CoffeeType())

	require.NoError(t, tank.AddCoffee(1, cupboard.Arabica))
	assert.Equal(t, cupboard.Arabica, tank.CoffeeType())
}

func TestBeanTank_GroundOutTankAcceptsNewType(t *testing.T) {
	tank := NewBeanTank(0, 10)
	grinder := NewCoffeeGrinder(2, 0.2, &recordingSleeper{})
	require.NoError(t, tank.AddCoffee(1.0, cupboard.Arabica))

	for i := 0; i < 5; i++ {
		_, err := grinder.GrindCoffee(tank)
		require.NoError(t, err, "grind %d", i+1)
	}
	assert.Zero(t, tank.ActualVolume())
	assert.Empty(t, tank.CoffeeType())

	require.NoError(t, tank.AddCoffee(1.0, cupboard.Moka))
	assert.Equal(t, cupboard.Moka, tank.CoffeeType())

	_, err := grinder.GrindCoffee(NewBeanTank(0, 10))
	assert.True(t, errors.Is(err, ErrInsufficientResource))
}

func TestWaterTank_RepeatedWithdrawalsDrainToZero(t *testing.T) {
	tank := NewWaterTank(0, 10)
	require.NoError(t, tank.AddWater(1.0))

	for i := 0; i < 10; i++ {
		require.NoError(t, tank.WithdrawWater(0.1), "withdrawal %d", i+1)
	}
	assert.Zero(t, tank.ActualVolume())

	err := tank.WithdrawWater(0.1)
	assert.True(t, errors.Is(err, ErrInsufficientResource))
}

func TestBeanTank_WithdrawBeyondActualFails(t *testing.T) {
	tank := NewBeanTank(0, 10)
	require.NoError(t, tank.AddCoffee(0.1, cupboard.Bahia))

	err := tank.WithdrawCoffee(0.2)
	assert.True(t, errors.Is(err, ErrInsufficientResource))
	assert.Equal(t, 0.1, tank.ActualVolume())
	assert.Equal(t, cupboard.Bahia, tank.CoffeeType())
}

func TestWaterPump_PumpWater(t *testing.T) {
	pumpingCapacity := 700.0
	waterVolume := 0.15
	expected := (waterVolume / pumpingCapacity) * 1000 * 2

	tank := NewWaterTank(0, 10)
	require.NoError(t, tank.AddWater(5))
	sleeper := &recordingSleeper{}
	pump := NewWaterPump(pumpingCapacity, sleeper)

	actual, err := pump.PumpWater(waterVolume, tank)
	require.NoError(t, err)

	assert.Equal(t, expected, actual)
	assert.InDelta(t, 0.4286, actual, 0.0001)
	require.Len(t, sleeper.slept, 1)
	assert.Equal(t, time.Duration(expected*float64(time.Millisecond)), sleeper.slept[0])
	assert.InDelta(t, 4.85, tank.ActualVolume(), 1e-9)
}

func TestWaterPump_PropagatesLackOfWater(t *testing.T) {
	tank := NewWaterTank(0, 10)
	pump := NewWaterPump(700, &recordingSleeper{})

	_, err := pump.PumpWater(0.15, tank)
	assert.True(t, errors.Is(err, ErrInsufficientResource))
}

func TestCoffeeGrinder_GrindCoffee(t *testing.T) {
	grindingTimeExpected := 2.0
	tank := NewBeanTank(0, 10)
	require.NoError(t, tank.AddCoffee(5, cupboard.Arabica))
	sleeper := &recordingSleeper{}
	grinder := NewCoffeeGrinder(grindingTimeExpected, 0, sleeper)

	actual, err := grinder.GrindCoffee(tank)
	require.NoError(t, err)

	assert.Equal(t, grindingTimeExpected, actual)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.slept)
	assert.InDelta(t, 5-DefaultGrindVolume, tank.ActualVolume(), 1e-9)
}

func TestCoffeeGrinder_PropagatesLackOfBeans(t *testing.T) {
	grinder := NewCoffeeGrinder(2, 0.5, &recordingSleeper{})
	tank := NewBeanTank(0, 10)
	require.NoError(t, tank.AddCoffee(0.3, cupboard.Arabica))

	_, err := grinder.GrindCoffee(tank)
	assert.True(t, errors.Is(err, ErrInsufficientResource))
	assert.Equal(t, 0.3, tank.ActualVolume())
}

func TestScaledSleeper(t *testing.T) {
	mock := clock.NewMock()
	sleeper := NewScaledSleeperWithClock(mock, 0)

	// scale 为 0 时立即返回，不依赖 mock 时钟推进
	sleeper.Sleep(time.Hour)

	done := make(chan struct{})
	scaled := NewScaledSleeperWithClock(mock, 0.5)
	go func() {
		scaled.Sleep(2 * time.Second)
		close(done)
	}()

	// 等待 goroutine 注册定时器后推进时钟
	time.Sleep(10 * time.Millisecond)
	mock.Add(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scaled sleep did not return after advancing the clock")
	}
}
