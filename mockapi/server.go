// Package mockapi is a mock SaaS API simulating the external services the
// harness tools call, with configurable failure scenarios.
package mockapi

import (
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Config controls the injected failure behavior.
type Config struct {
	FailureRate float64 // chance of a random API error
	TimeoutRate float64 // chance of a stalled response
	MinDelay    time.Duration
	MaxDelay    time.Duration
	TimeoutHold time.Duration
	Seed        int64 // 0 seeds from the clock
}

// DefaultConfig mirrors the reference failure mix.
func DefaultConfig() Config {
	return Config{
		FailureRate: 0.2,
		TimeoutRate: 0.1,
		MinDelay:    100 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
		TimeoutHold: 5 * time.Second,
	}
}

// Server holds the mock API handlers.
type Server struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// NewServer creates a mock API server with the given failure configuration.
func NewServer(cfg Config) *Server {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Server{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// RegisterRoutes registers the mock API routes on an echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/", s.Health)
	e.POST("/api/weather", s.Weather)
	e.POST("/api/customer", s.Customer)
}

// Health is the health check endpoint.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy", "service": "mock saas api"})
}

type weatherRequest struct {
	Location string `json:"location"`
	Units    string `json:"units"`
}

type weatherResponse struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Conditions  string  `json:"conditions"`
	Humidity    int     `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

var conditions = []string{"sunny", "cloudy", "rainy", "stormy", "foggy", "snowy"}

// Weather is the mock weather endpoint.
func (s *Server) Weather(c echo.Context) error {
	var req weatherRequest
	if err := c.Bind(&req); err != nil || req.Location == "" {
		return c.String(http.StatusBadRequest, "bad request: location is required")
	}

	s.simulateDelay()
	if status, msg := s.maybeFail(); status != 0 {
		return c.String(status, msg)
	}

	s.mu.Lock()
	resp := weatherResponse{
		Location:    req.Location,
		Temperature: float64(int(s.rng.Float64()*450-100)) / 10,
		Conditions:  conditions[s.rng.Intn(len(conditions))],
		Humidity:    30 + s.rng.Intn(61),
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, resp)
}

type customerRequest struct {
	CustomerID string `json:"customer_id"`
}

type customerResponse struct {
	CustomerID  string `json:"customer_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Status      string `json:"status"`
	TotalOrders int    `json:"total_orders"`
}

// Customer is the mock customer lookup endpoint. Non-numeric IDs do not exist.
func (s *Server) Customer(c echo.Context) error {
	var req customerRequest
	if err := c.Bind(&req); err != nil || req.CustomerID == "" {
		return c.String(http.StatusBadRequest, "bad request: customer_id is required")
	}

	s.simulateDelay()
	if status, msg := s.maybeFail(); status != 0 {
		return c.String(status, msg)
	}

	for _, r := range req.CustomerID {
		if r < '0' || r > '9' {
			return c.String(http.StatusNotFound, fmt.Sprintf("customer %s not found", req.CustomerID))
		}
	}

	s.mu.Lock()
	orders := s.rng.Intn(20)
	s.mu.Unlock()
	return c.JSON(http.StatusOK, customerResponse{
		CustomerID:  req.CustomerID,
		Name:        "Jamie Example",
		Email:       fmt.Sprintf("customer%s@example.com", req.CustomerID),
		Status:      "active",
		TotalOrders: orders,
	})
}

func (s *Server) simulateDelay() {
	if s.cfg.MaxDelay <= 0 {
		return
	}
	s.mu.Lock()
	span := s.cfg.MaxDelay - s.cfg.MinDelay
	delay := s.cfg.MinDelay
	if span > 0 {
		delay += time.Duration(s.rng.Int63n(int64(span)))
	}
	s.mu.Unlock()
	time.Sleep(delay)
}

var errorScenarios = []struct {
	status int
	detail string
}{
	{http.StatusInternalServerError, "internal server error"},
	{http.StatusServiceUnavailable, "service temporarily unavailable"},
	{http.StatusTooManyRequests, "rate limit exceeded"},
	{http.StatusUnauthorized, "invalid API key"},
	{http.StatusBadRequest, "bad request: invalid parameters"},
}

func (s *Server) maybeFail() (int, string) {
	s.mu.Lock()
	roll := s.rng.Float64()
	pick := s.rng.Intn(len(errorScenarios))
	s.mu.Unlock()

	if roll < s.cfg.TimeoutRate {
		time.Sleep(s.cfg.TimeoutHold)
		return http.StatusGatewayTimeout, "gateway timeout"
	}
	if roll < s.cfg.TimeoutRate+s.cfg.FailureRate {
		scenario := errorScenarios[pick]
		return scenario.status, scenario.detail
	}
	return 0, ""
}
