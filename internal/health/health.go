package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status — состояние компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

const defaultCheckTimeout = 2 * time.Second

// Check — результат проверки одного компонента.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response — тело ответа /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент.
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler агрегирует проверки компонентов сервиса.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
	timeout   time.Duration
	now       func() time.Time
}

// NewHandler создаёт health handler.
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
		timeout:   defaultCheckTimeout,
		now:       time.Now,
	}
}

// RegisterChecker регистрирует проверку компонента под именем name.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Evaluate выполняет все проверки и сводит их в общий статус.
func (h *Handler) Evaluate(ctx context.Context) Response {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	checks := make(map[string]Check, len(names))
	overall := StatusHealthy
	for _, name := range names {
		check := checkers[name].Check(ctx)
		checks[name] = check
		switch {
		case check.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case check.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	return Response{
		Status:        overall,
		Timestamp:     h.now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(h.now().Sub(h.startTime).Seconds()),
	}
}

// ServeHTTP отдаёт агрегированный статус; unhealthy отвечает 503.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.Evaluate(r.Context())

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler отвечает 200, пока процесс жив.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler отвечает 503, пока хотя бы один компонент unhealthy.
// Degraded не снимает сервис с трафика.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if h.Evaluate(r.Context()).Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// PingChecker считает компонент unhealthy, если ping вернул ошибку.
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker создаёт проверку поверх функции ping (БД, Redis, Kafka).
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := c.ping(ctx)
	check := Check{Name: c.name, Status: StatusHealthy, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// DegradedChecker понижает статус до degraded, но не до unhealthy:
// планировщик, отставший от расписания, или открытый breaker доставки.
type DegradedChecker struct {
	name  string
	check func() (ok bool, message string)
}

// NewDegradedChecker создаёт проверку, которая никогда не снимает сервис с трафика.
func NewDegradedChecker(name string, check func() (bool, string)) *DegradedChecker {
	return &DegradedChecker{name: name, check: check}
}

func (c *DegradedChecker) Check(context.Context) Check {
	ok, message := c.check()
	check := Check{Name: c.name, Status: StatusHealthy, Message: message}
	if !ok {
		check.Status = StatusDegraded
	}
	return check
}
