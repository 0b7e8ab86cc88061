package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coffee-machine-demo/internal/cupboard"
	"coffee-machine-demo/internal/machine"
	"coffee-machine-demo/internal/types"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(id string) *types.Order {
	return &types.Order{
		ID:         id,
		CoffeeType: cupboard.Moka,
		Container:  types.ContainerSpec{Kind: cupboard.KindMug, Capacity: 0.3},
		Priority:   2,
	}
}

func TestStateTracker_TracksOrdersAndMachine(t *testing.T) {
	st := NewStateTracker(nil)

	st.AddOrder(testOrder("o1"))
	st.UpdateOrderState("o1", machine.StepGrinding, "GRINDING", nil)
	st.UpdateOrderState("ghost", machine.StepPumping, "PUMPING", nil)
	st.UpdateMachine(machine.Snapshot{Plugged: true, WaterVolume: 3})

	snapshot := st.GetStateSnapshot()
	require.Len(t, snapshot.Orders, 1)
	o := snapshot.Orders["o1"]
	assert.Equal(t, "GRINDING", o.Status)
	assert.Equal(t, machine.StepGrinding, o.Step)
	assert.Equal(t, cupboard.KindMug, o.Container)
	assert.True(t, snapshot.Machine.Plugged)

	st.UpdateOrderState("o1", machine.StepGrinding, "FAILED", errors.New("boom"))
	assert.Equal(t, "boom", st.GetStateSnapshot().Orders["o1"].Error)

	// 快照是副本，修改不影响内部状态
	snapshot.Orders["o1"] = OrderState{}
	assert.Equal(t, "FAILED", st.GetStateSnapshot().Orders["o1"].Status)
}

func TestStateTracker_ServeOrderRecordsVolume(t *testing.T) {
	st := NewStateTracker(nil)
	st.AddOrder(testOrder("o1"))
	st.UpdateOrderState("o1", machine.StepPumping, "PUMPING", nil)

	st.ServeOrder("o1", cupboard.NewMug(0.3).Fill(0.3, cupboard.Moka))
	st.ServeOrder("ghost", nil)

	snapshot := st.GetStateSnapshot()
	require.Len(t, snapshot.Orders, 1)
	o := snapshot.Orders["o1"]
	assert.Equal(t, "SERVED", o.Status)
	assert.Empty(t, o.Step)
	assert.Equal(t, 0.3, o.Served)
}

func TestHub_PushesLatestStateToNewClients(t *testing.T) {
	hub := NewHub(slog.Default())
	go hub.Run()
	st := NewStateTracker(hub)
	st.AddOrder(testOrder("o1"))

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var state GlobalState
	require.NoError(t, json.Unmarshal(message, &state))
	assert.Contains(t, state.Orders, "o1")

	st.UpdateMachine(machine.Snapshot{OutOfOrder: true})
	_, message, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(message, &state))
	assert.True(t, state.Machine.OutOfOrder)
}
