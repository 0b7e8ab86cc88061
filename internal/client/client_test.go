package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"coffee-machine-demo/internal/api"
	"coffee-machine-demo/internal/component"
	"coffee-machine-demo/internal/cupboard"
	"coffee-machine-demo/internal/engine"
	"coffee-machine-demo/internal/event"
	"coffee-machine-demo/internal/fsm"
	"coffee-machine-demo/internal/handlers"
	"coffee-machine-demo/internal/machine"
	"coffee-machine-demo/internal/types"
	"coffee-machine-demo/internal/util"
	"coffee-machine-demo/internal/web"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSampler float64

func (f fixedSampler) NormFloat64() float64 { return float64(f) }

// traceRecorder 记录服务端收到的 Trace ID
type traceRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *traceRecorder) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.ids = append(r.ids, req.Header.Get(util.TraceHeader))
		r.mu.Unlock()
		next.ServeHTTP(w, req)
	})
}

func (r *traceRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ids) == 0 {
		return ""
	}
	return r.ids[len(r.ids)-1]
}

func setupEspressoServer(t *testing.T, sample float64) (*Client, *traceRecorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := machine.NewEspresso(0, 5, 0, 5, 700,
		machine.WithSleeper(component.NewScaledSleeper(0)),
		machine.WithSampler(fixedSampler(sample)),
		machine.WithLogger(logger))

	bus := event.NewBus()
	tracker := web.NewStateTracker(nil)
	handlers.RegisterEventHandlers(bus, tracker, logger)
	brewEngine, err := engine.NewBrewEngine(m, nil, true, logger, bus)
	require.NoError(t, err)
	scheduler := engine.NewScheduler(brewEngine, 0, nil, bus, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go scheduler.Start(ctx)

	rec := &traceRecorder{}
	server := httptest.NewServer(rec.wrap(api.NewServer(m, scheduler, tracker, nil, bus, logger).Router()))
	t.Cleanup(server.Close)

	return New(server.URL+"/", logger), rec
}

func waitForOrder(t *testing.T, c *Client, id string) web.OrderState {
	t.Helper()
	var state web.OrderState
	require.Eventually(t, func() bool {
		global, err := c.State(context.Background())
		if err != nil {
			return false
		}
		var ok bool
		state, ok = global.Orders[id]
		return ok && (state.Status == string(fsm.StateServed) || state.Status == string(fsm.StateFailed))
	}, 5*time.Second, 10*time.Millisecond)
	return state
}

func TestClient_BrewCremaOnEspresso(t *testing.T) {
	c, rec := setupEspressoServer(t, 0)
	ctx := util.ContextWithTraceID(context.Background(), "barista-trace")

	snapshot, err := c.Plug(ctx)
	require.NoError(t, err)
	assert.True(t, snapshot.Plugged)
	assert.True(t, snapshot.Capabilities.Crema)
	assert.Equal(t, "barista-trace", rec.last())

	_, err = c.AddWater(ctx, 2)
	require.NoError(t, err)
	snapshot, err = c.AddBeans(ctx, 1, cupboard.ArabicaCrema)
	require.NoError(t, err)
	assert.Equal(t, cupboard.ArabicaCrema, snapshot.CoffeeType)

	id, err := c.SubmitOrder(ctx, cupboard.ArabicaCrema, types.ContainerSpec{Kind: cupboard.KindMug, Capacity: 0.3}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	state := waitForOrder(t, c, id)
	assert.Equal(t, string(fsm.StateServed), state.Status)
	assert.Equal(t, cupboard.KindMug, state.Container)

	global, err := c.State(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.7, global.Machine.WaterVolume, 1e-9)
	assert.InDelta(t, 0.8, global.Machine.BeanVolume, 1e-9)
}

func TestClient_ReturnsAPIError(t *testing.T) {
	c, _ := setupEspressoServer(t, 0)
	ctx := context.Background()

	_, err := c.AddBeans(ctx, 1, cupboard.Moka)
	require.NoError(t, err)

	_, err = c.AddBeans(ctx, 1, cupboard.Bahia)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "different from the coffee type already in the tank")

	_, err = c.AddWater(ctx, -3)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestClient_FaultAfterBrewBlocksNextOrder(t *testing.T) {
	c, _ := setupEspressoServer(t, 2)
	ctx := context.Background()

	_, err := c.Plug(ctx)
	require.NoError(t, err)
	_, err = c.AddWater(ctx, 1)
	require.NoError(t, err)
	_, err = c.AddBeans(ctx, 1, cupboard.Robusta)
	require.NoError(t, err)

	id, err := c.SubmitOrder(ctx, cupboard.Robusta, types.ContainerSpec{Kind: cupboard.KindCup, Capacity: 0.1}, 0)
	require.NoError(t, err)
	assert.Equal(t, string(fsm.StateServed), waitForOrder(t, c, id).Status)

	require.Eventually(t, func() bool {
		global, err := c.State(ctx)
		return err == nil && global.Machine.OutOfOrder
	}, 5*time.Second, 10*time.Millisecond)

	_, err = c.SubmitOrder(ctx, cupboard.Robusta, types.ContainerSpec{Kind: cupboard.KindCup, Capacity: 0.1}, 0)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	check, err := c.CheckFailure(ctx)
	require.NoError(t, err)
	assert.False(t, check.Tripped)
	assert.True(t, check.OutOfOrder)
}

func TestClient_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	c := New(server.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.State(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
