package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ae-risk-core/internal/domain"
)

const collaboratorName = "openFDA"

// ResilientCountSource is the production domain.ReportCountSource: an
// openFDA client behind a circuit breaker, fronted by an in-process
// expirable LRU and a shared Redis cache. When the breaker is open, cached
// counts are served if available.
type ResilientCountSource struct {
	client  *OpenFDAClient
	cache   *CacheClient
	local   *expirable.LRU[string, *domain.ReportCounts]
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewResilientCountSource wires the openFDA client with its caches and
// circuit breaker. The Redis cache is optional; pass nil to run with the
// local LRU only.
func NewResilientCountSource(client *OpenFDAClient, cache *CacheClient, cacheConfig domain.CacheConfig, logger *logrus.Logger) *ResilientCountSource {
	size := cacheConfig.LocalSize
	if size <= 0 {
		size = 512
	}
	ttl := cacheConfig.LocalTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        collaboratorName,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientCountSource{
		client:  client,
		cache:   cache,
		local:   expirable.NewLRU[string, *domain.ReportCounts](size, nil, ttl),
		breaker: breaker,
		logger:  logger,
	}
}

// ReportCounts implements domain.ReportCountSource with two cache levels in
// front of the rate-limited openFDA client.
func (r *ResilientCountSource) ReportCounts(ctx context.Context, product, event string) (*domain.ReportCounts, error) {
	key := product + "\x00" + event

	if counts, ok := r.local.Get(key); ok {
		return counts, nil
	}
	if counts, found := r.cachedCounts(ctx, product, event); found {
		r.local.Add(key, counts)
		return counts, nil
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.FetchCounts(ctx, product, event)
	})
	if err != nil {
		// An open breaker still serves stale cached counts when present.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			if counts, found := r.cachedCounts(ctx, product, event); found {
				r.logger.WithFields(logrus.Fields{
					"product": product,
					"event":   event,
				}).Warn("Serving cached counts while circuit breaker is open")
				return counts, nil
			}
			err = fmt.Errorf("service unavailable (circuit breaker open): %w", err)
		}
		return nil, &domain.CollaboratorError{
			Source:  collaboratorName,
			Product: product,
			Event:   event,
			Err:     err,
		}
	}

	counts := result.(*domain.ReportCounts)
	r.local.Add(key, counts)
	if r.cache != nil {
		if cacheErr := r.cache.SetReportCounts(ctx, counts, 0); cacheErr != nil {
			// Cache failures never fail the request.
			r.logger.WithError(cacheErr).Warn("Failed to cache report counts")
		}
	}
	return counts, nil
}

func (r *ResilientCountSource) cachedCounts(ctx context.Context, product, event string) (*domain.ReportCounts, bool) {
	if r.cache == nil {
		return nil, false
	}
	counts, found, err := r.cache.GetReportCounts(ctx, product, event)
	if err != nil {
		r.logger.WithError(err).Warn("Report-count cache lookup failed")
		return nil, false
	}
	return counts, found
}

// BreakerCounts exposes circuit-breaker statistics for monitoring.
func (r *ResilientCountSource) BreakerCounts() gobreaker.Counts {
	return r.breaker.Counts()
}

// BreakerState returns the current circuit-breaker state.
func (r *ResilientCountSource) BreakerState() gobreaker.State {
	return r.breaker.State()
}

// Close releases the Redis connection if one is configured.
func (r *ResilientCountSource) Close() error {
	if r.cache != nil {
		return r.cache.Close()
	}
	return nil
}
