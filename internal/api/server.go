package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"coffee-machine-demo/internal/cupboard"
	"coffee-machine-demo/internal/engine"
	"coffee-machine-demo/internal/event"
	"coffee-machine-demo/internal/machine"
	"coffee-machine-demo/internal/types"
	"coffee-machine-demo/internal/util"
	"coffee-machine-demo/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// VolumeRequest 是加水请求体
type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

// BeansRequest 是加豆请求体
type BeansRequest struct {
	Volume     float64             `json:"volume"`
	CoffeeType cupboard.CoffeeType `json:"coffee_type"`
}

// OrderRequest 是下单请求体
type OrderRequest struct {
	CoffeeType cupboard.CoffeeType `json:"coffee_type"`
	Container  types.ContainerSpec `json:"container"`
	Priority   int                 `json:"priority"`
}

// OrderAccepted 是下单成功的响应体
type OrderAccepted struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// FailureCheckResponse 是故障抽样的响应体
type FailureCheckResponse struct {
	Tripped    bool `json:"tripped"`      // 本次抽样是否使机器进入故障
	OutOfOrder bool `json:"out_of_order"` // 机器当前是否故障
}

// ErrorResponse 是所有错误响应的统一格式
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server 把咖啡机、调度器和状态面板暴露为 HTTP 接口
type Server struct {
	machine   *machine.CoffeeMachine
	scheduler *engine.Scheduler
	tracker   *web.StateTracker
	hub       *web.Hub
	eventBus  *event.Bus
	logger    *slog.Logger
}

// NewServer 创建 API 服务，hub 为 nil 时不注册 /ws
func NewServer(
	m *machine.CoffeeMachine,
	scheduler *engine.Scheduler,
	tracker *web.StateTracker,
	hub *web.Hub,
	bus *event.Bus,
	logger *slog.Logger,
) *Server {
	return &Server{
		machine:   m,
		scheduler: scheduler,
		tracker:   tracker,
		hub:       hub,
		eventBus:  bus,
		logger:    logger.With("component", "api"),
	}
}

// Router 返回注册了所有路由的 http.Handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(traceMiddleware)

	r.Handle("/metrics", promhttp.Handler())
	if s.hub != nil {
		r.HandleFunc("/ws", s.hub.ServeWs)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/plug", s.handlePlug)
		r.Post("/water", s.handleWater)
		r.Post("/beans", s.handleBeans)
		r.Post("/orders", s.handleOrder)
		r.Post("/failure-check", s.handleFailureCheck)
	})
	return r
}

// traceMiddleware 读取或生成 Trace ID，并写回响应头
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(util.TraceHeader)
		if traceID == "" {
			traceID = util.NewTraceID()
		}
		w.Header().Set(util.TraceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(util.ContextWithTraceID(r.Context(), traceID)))
	})
}

func (s *Server) requestLogger(r *http.Request) *slog.Logger {
	if traceID, ok := util.TraceIDFromContext(r.Context()); ok {
		return s.logger.With("trace_id", traceID)
	}
	return s.logger
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state := s.tracker.GetStateSnapshot()
	state.Machine = s.machine.Snapshot()
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handlePlug(w http.ResponseWriter, r *http.Request) {
	s.machine.PlugToElectricalPlug()
	snapshot := s.machine.Snapshot()
	s.eventBus.Publish(event.Event{Type: event.MachinePlugged, Machine: snapshot})
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleWater(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)
	var req VolumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("解析加水请求失败", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.machine.AddWaterInTank(req.Volume); err != nil {
		logger.Warn("加水失败", "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	logger.Info("水箱已补充", "volume", req.Volume)
	s.refilled(w)
}

func (s *Server) handleBeans(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)
	var req BeansRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("解析加豆请求失败", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	coffeeType, err := cupboard.ParseCoffeeType(string(req.CoffeeType))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := s.machine.AddCoffeeInBeanTank(req.Volume, coffeeType); err != nil {
		logger.Warn("加豆失败", "error", err, "coffee_type", coffeeType)
		writeError(w, statusFor(err), err)
		return
	}
	logger.Info("豆仓已补充", "volume", req.Volume, "coffee_type", coffeeType)
	s.refilled(w)
}

func (s *Server) refilled(w http.ResponseWriter) {
	snapshot := s.machine.Snapshot()
	s.eventBus.Publish(event.Event{Type: event.TankRefilled, Machine: snapshot})
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("解析订单请求失败", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o := &types.Order{
		ID:         util.NewOrderID(),
		CoffeeType: req.CoffeeType,
		Container:  req.Container,
		Priority:   req.Priority,
	}
	if err := s.scheduler.SubmitOrder(o); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, OrderAccepted{Status: "accepted", ID: o.ID})
}

func (s *Server) handleFailureCheck(w http.ResponseWriter, r *http.Request) {
	tripped := s.machine.CoffeeMachineFailure()
	snapshot := s.machine.Snapshot()
	if tripped {
		s.eventBus.Publish(event.Event{Type: event.MachineFault, Machine: snapshot})
	}
	writeJSON(w, http.StatusOK, FailureCheckResponse{Tripped: tripped, OutOfOrder: snapshot.OutOfOrder})
}

// statusFor 把领域错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, machine.ErrMachineNotPlugged),
		errors.Is(err, machine.ErrContainerNotEmpty),
		errors.Is(err, engine.ErrMachineOutOfOrder):
		return http.StatusConflict
	case errors.Is(err, machine.ErrInsufficientResource),
		errors.Is(err, machine.ErrIncompatibleCoffeeType),
		errors.Is(err, machine.ErrCoffeeTypeMismatch),
		errors.Is(err, machine.ErrUnsupportedCapability),
		errors.Is(err, engine.ErrOrderRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, machine.ErrInvalidVolume),
		errors.Is(err, cupboard.ErrUnknownCoffeeType),
		errors.Is(err, cupboard.ErrUnknownContainerKind),
		errors.Is(err, cupboard.ErrInvalidCapacity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
