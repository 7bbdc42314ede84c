// Command riskcore reads one JSON request from stdin, runs the requested
// statistical operation, and writes the JSON result to stdout. Logs go to
// stderr so stdout stays machine-readable.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ae-risk-core/internal/config"
	"github.com/ae-risk-core/internal/domain"
	"github.com/ae-risk-core/internal/estimators"
	"github.com/ae-risk-core/internal/mitigation"
	"github.com/ae-risk-core/internal/signal"
	"github.com/ae-risk-core/pkg/external"
)

// request is the single-shot CLI request envelope. Exactly one operation is
// selected by Op; the matching payload must be present.
type request struct {
	Op string `json:"op"`

	// estimate / compare
	Model  string       `json:"model,omitempty"`
	Models []string     `json:"models,omitempty"`
	Data   estimateData `json:"data,omitempty"`

	// signal: inline counts, or a product x events sweep via openFDA
	Counts  *domain.ReportCounts `json:"counts,omitempty"`
	Product string               `json:"product,omitempty"`
	Events  []string             `json:"events,omitempty"`

	// mitigate / montecarlo
	BaselineRisk *float64                      `json:"baseline_risk,omitempty"`
	AEType       string                        `json:"ae_type,omitempty"`
	Strategies   []string                      `json:"strategies,omitempty"`
	MonteCarlo   *mitigation.MonteCarloRequest `json:"monte_carlo,omitempty"`
}

// estimateData is the typed estimator payload; optional fields are pointers
// so absence is distinguishable from zero.
type estimateData struct {
	Events       *int                 `json:"events,omitempty"`
	N            *int                 `json:"n,omitempty"`
	NNew         *int                 `json:"n_new,omitempty"`
	Target       *string              `json:"target,omitempty"`
	Horizon      *float64             `json:"horizon,omitempty"`
	Continuity   *bool                `json:"continuity,omitempty"`
	Prior        *domain.PriorSpec    `json:"prior,omitempty"`
	Studies      []domain.StudyRecord `json:"studies,omitempty"`
	Categories   []domain.StudyRecord `json:"categories,omitempty"`
	Observations []domain.Observation `json:"observations,omitempty"`
}

func (d estimateData) toInput() domain.Input {
	in := domain.Input{}
	if d.Events != nil {
		in[estimators.FieldEvents] = *d.Events
	}
	if d.N != nil {
		in[estimators.FieldN] = *d.N
	}
	if d.NNew != nil {
		in[estimators.FieldNNew] = *d.NNew
	}
	if d.Target != nil {
		in[estimators.FieldTarget] = *d.Target
	}
	if d.Horizon != nil {
		in[estimators.FieldHorizon] = *d.Horizon
	}
	if d.Continuity != nil {
		in[estimators.FieldContinuity] = *d.Continuity
	}
	if d.Prior != nil {
		in[estimators.FieldPrior] = d.Prior
	}
	if d.Studies != nil {
		in[estimators.FieldStudies] = d.Studies
	}
	if d.Categories != nil {
		in[estimators.FieldCategories] = d.Categories
	}
	if d.Observations != nil {
		in[estimators.FieldObservations] = d.Observations
	}
	return in
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := configManager.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration validation failed: %v\n", err)
		os.Exit(1)
	}
	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fail(logger, fmt.Errorf("failed to decode request: %w", err))
	}

	result, err := dispatch(cfg, logger, &req)
	if err != nil {
		fail(logger, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fail(logger, fmt.Errorf("failed to encode result: %w", err))
	}
}

func fail(logger *logrus.Logger, err error) {
	logger.WithError(err).Error("Request failed")
	json.NewEncoder(os.Stdout).Encode(map[string]string{"error": err.Error()})
	os.Exit(1)
}

func dispatch(cfg *domain.Config, logger *logrus.Logger, req *request) (any, error) {
	switch req.Op {
	case "estimate":
		registry := estimators.NewRegistry(logger)
		if req.Model == "" {
			return nil, domain.NewValidationError("model", "estimator identifier is required", req.Model)
		}
		return registry.EstimateRisk(req.Model, req.Data.toInput())

	case "compare":
		registry := estimators.NewRegistry(logger)
		return registry.CompareModels(req.Data.toInput(), req.Models...), nil

	case "signal":
		engine := signal.NewEngine(logger)
		if req.Counts != nil {
			return engine.Assess(*req.Counts)
		}
		source := external.NewResilientCountSource(
			external.NewOpenFDAClient(cfg.FAERS), nil, cfg.Cache, logger)
		defer source.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		return engine.AssessProducts(ctx, source, req.Product, req.Events)

	case "mitigate":
		engine := mitigation.NewEngine(mitigation.NewRegistry(logger), logger)
		if req.BaselineRisk == nil {
			return nil, domain.NewValidationError("baseline_risk", "baseline risk is required", nil)
		}
		return engine.CalculateMitigatedRisk(*req.BaselineRisk, req.AEType, req.Strategies)

	case "montecarlo":
		engine := mitigation.NewEngine(mitigation.NewRegistry(logger), logger)
		if req.MonteCarlo == nil {
			return nil, domain.NewValidationError("monte_carlo", "monte_carlo parameters are required", nil)
		}
		mc := *req.MonteCarlo
		if mc.Samples == 0 {
			mc.Samples = cfg.MonteCarlo.Samples
		}
		if mc.Seed == 0 {
			mc.Seed = cfg.MonteCarlo.Seed
		}
		return engine.MonteCarloMitigatedRisk(mc)

	default:
		return nil, domain.NewValidationError("op", "unknown operation", req.Op)
	}
}
