package gateway

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	errordefs "github.com/P3dro7wz/Luxy/internal/errors"
	"github.com/P3dro7wz/Luxy/internal/metrics"
)

// newBreaker builds the circuit breaker guarding gateway calls.
// Only transport failures and 5xx replies count against the gateway; a 4xx
// is a well-formed answer and keeps the circuit closed.
//   - Max 3 probe requests in half-open state
//   - Counts reset every minute while closed
//   - 30 seconds open before probing again
//   - Opens after 5 consecutive failures, or 60% failures over at least 10 requests
func newBreaker(name string, logger *slog.Logger, m *metrics.Metrics) *gobreaker.CircuitBreaker[reply] {
	m.GatewayBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[reply](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errordefs.Is(err, errordefs.LUXY_NETWORK)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("gateway circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			m.GatewayBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}
