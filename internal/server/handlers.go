package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/exchange"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/marketdata"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/orchestrator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/robustness"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/simulator"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/strategy"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

type accountBody struct {
	UserID      string `json:"user_id"`
	Exchange    string `json:"exchange"`
	AccountType string `json:"account_type"`
}

func (a accountBody) key(strategyID string) (orchestrator.Key, error) {
	if a.UserID == "" || a.Exchange == "" || a.AccountType == "" {
		return orchestrator.Key{}, errors.New(errors.ErrCodeInvalidParameter,
			"user_id, exchange and account_type are required")
	}

	return orchestrator.Key{
		Account: exchange.AccountRef{
			UserID:      a.UserID,
			Exchange:    a.Exchange,
			AccountType: a.AccountType,
		},
		StrategyID: strategyID,
	}, nil
}

type startBody struct {
	accountBody
	Symbol string         `json:"symbol"`
	Spec   *strategy.Spec `json:"spec"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body startBody
	if !s.decode(w, r, &body) {
		return
	}

	key, err := body.key(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	if body.Spec == nil || body.Symbol == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidParameter, "spec and symbol are required"))

		return
	}

	if err := s.orch.Start(r.Context(), key, body.Spec, body.Symbol); err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(s.orch.Status(key))})
}

type stopBody struct {
	accountBody
	ForceClose bool `json:"force_close"`
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var body stopBody
	if !s.decode(w, r, &body) {
		return
	}

	key, err := body.key(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	if err := s.orch.Stop(r.Context(), key, body.ForceClose); err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(types.StatusStopped)})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.orch.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.orch.Resume)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, transition func(orchestrator.Key) error) {
	var body accountBody
	if !s.decode(w, r, &body) {
		return
	}

	key, err := body.key(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	if err := transition(key); err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(s.orch.Status(key))})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	body := accountBody{
		UserID:      query.Get("user_id"),
		Exchange:    query.Get("exchange"),
		AccountType: query.Get("account_type"),
	}

	key, err := body.key(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	if snapshot, ok := s.orch.Snapshot(key); ok {
		s.writeJSON(w, http.StatusOK, snapshot)

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(types.StatusStopped)})
}

type backtestBody struct {
	Spec           *strategy.Spec  `json:"spec"`
	Symbol         string          `json:"symbol"`
	Timeframe      types.Timeframe `json:"timeframe"`
	Days           int             `json:"days"`
	InitialCapital float64         `json:"initial_capital"`
}

// fetchCandles loads and validates the requested window for backtest and
// optimization calls.
func (s *Server) fetchCandles(r *http.Request, body *backtestBody) ([]types.Candle, error) {
	if body.Spec == nil || body.Symbol == "" || body.Days <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "spec, symbol and days are required")
	}

	if err := body.Spec.Validate(); err != nil {
		return nil, err
	}

	timeframe := body.Timeframe
	if timeframe == "" {
		timeframe = body.Spec.PrimaryTimeframe
	}

	raw, err := marketdata.FetchDays(r.Context(), s.provider, body.Symbol, timeframe, body.Days)
	if err != nil {
		return nil, err
	}

	return marketdata.Prepare(raw, s.log)
}

func (body *backtestBody) capital() float64 {
	if body.InitialCapital > 0 {
		return body.InitialCapital
	}

	return 10000
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var body backtestBody
	if !s.decode(w, r, &body) {
		return
	}

	candles, err := s.fetchCandles(r, &body)
	if err != nil {
		s.writeError(w, err)

		return
	}

	report, err := s.sim.Run(simulator.Params{
		Spec:           body.Spec,
		InitialCapital: body.capital(),
		Costs:          simulator.DefaultCostModel(),
	}, s.engine.Bind(body.Spec), candles)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

type optimizeBody struct {
	backtestBody
	// Mode selects the analysis: montecarlo, walkforward, grid or genetic.
	Mode            string                 `json:"mode"`
	Parameters      []robustness.Parameter `json:"parameters"`
	Iterations      int                    `json:"iterations"`
	Seed            int64                  `json:"seed"`
	InSampleBars    int                    `json:"in_sample_bars"`
	OutOfSampleBars int                    `json:"out_of_sample_bars"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var body optimizeBody
	if !s.decode(w, r, &body) {
		return
	}

	candles, err := s.fetchCandles(r, &body.backtestBody)
	if err != nil {
		s.writeError(w, err)

		return
	}

	var result any

	switch strings.ToLower(body.Mode) {
	case "montecarlo":
		result, err = s.runMonteCarlo(&body, candles)
	case "walkforward":
		result, err = s.runner.WalkForward(body.Spec, candles, robustness.WalkForwardParams{
			InSampleBars:    body.InSampleBars,
			OutOfSampleBars: body.OutOfSampleBars,
			Parameters:      body.Parameters,
			InitialCapital:  body.capital(),
			Costs:           simulator.DefaultCostModel(),
		})
	case "grid":
		result, err = s.runner.OptimizeGrid(body.Spec, candles, s.optimizeParams(&body))
	case "genetic":
		genetic := robustness.DefaultGeneticParams()
		if body.Seed != 0 {
			genetic.Seed = body.Seed
		}

		result, err = s.runner.OptimizeGenetic(body.Spec, candles, s.optimizeParams(&body), genetic)
	default:
		err = errors.Newf(errors.ErrCodeInvalidParameter, "unknown optimization mode: %s", body.Mode)
	}

	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) optimizeParams(body *optimizeBody) robustness.OptimizeParams {
	return robustness.OptimizeParams{
		Parameters:     body.Parameters,
		InitialCapital: body.capital(),
		Costs:          simulator.DefaultCostModel(),
	}
}

// runMonteCarlo backtests the spec once to obtain the realized trade sequence,
// then resamples it.
func (s *Server) runMonteCarlo(body *optimizeBody, candles []types.Candle) (*robustness.MonteCarloResult, error) {
	report, err := s.sim.Run(simulator.Params{
		Spec:           body.Spec,
		InitialCapital: body.capital(),
		Costs:          simulator.DefaultCostModel(),
	}, s.engine.Bind(body.Spec), candles)
	if err != nil {
		return nil, err
	}

	iterations := body.Iterations
	if iterations <= 0 {
		iterations = 1000
	}

	return robustness.RunMonteCarlo(report.Trades, robustness.MonteCarloParams{
		Iterations:     iterations,
		Seed:           body.Seed,
		InitialCapital: body.capital(),
	})
}
