package arima

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hydrostat/resforecast/internal/stats"
	"github.com/hydrostat/resforecast/pkg/errors"
)

// Criterion names the information criterion used to score candidates.
type Criterion string

const (
	CriterionAIC  Criterion = "aic"
	CriterionAICc Criterion = "aicc"
	CriterionBIC  Criterion = "bic"
)

// Score extracts the criterion value from a fitted model.
func (c Criterion) Score(m *Model) float64 {
	switch c {
	case CriterionBIC:
		return m.BIC
	case CriterionAIC:
		return m.AIC
	default:
		return m.AICc
	}
}

// SelectConfig bounds the stepwise order search.
type SelectConfig struct {
	MaxP      int       // maximum AR order
	MaxQ      int       // maximum MA order
	MaxD      int       // cap on auto-detected differencing
	FixedD    int       // differencing degree when >= 0; auto-detect otherwise
	Criterion Criterion // scoring criterion, AICc by default
	Workers   int       // candidate fit workers; <= 0 means GOMAXPROCS
}

// DefaultSelectConfig returns the default search bounds.
func DefaultSelectConfig() *SelectConfig {
	return &SelectConfig{
		MaxP:      5,
		MaxQ:      5,
		MaxD:      2,
		FixedD:    -1,
		Criterion: CriterionAICc,
	}
}

// Candidate is the outcome of one candidate fit during the search. Failed
// fits are collected rather than aborting the search; they carry the error
// and an infinite score.
type Candidate struct {
	Order Order
	Score float64
	Model *Model
	Err   error
}

// Selection is the result of the stepwise order search.
type Selection struct {
	Order      Order
	Model      *Model
	Score      float64
	Criterion  Criterion
	Evaluated  int
	Candidates []Candidate // every candidate tried, ranked by score
}

// NDiffs determines the differencing degree by repeated unit-root testing:
// difference until the ADF test classifies the series stationary or maxD
// is reached. maxD of zero or less means no differencing is permitted.
func NDiffs(values []float64, maxD int) int {
	if maxD <= 0 {
		return 0
	}
	current := values
	for d := 0; d < maxD; d++ {
		result, err := stats.ADF(current, 0)
		if err != nil {
			return d
		}
		if result.IsStationary {
			return d
		}
		current = difference(current)
		if len(current) < 12 {
			return d + 1
		}
	}
	return maxD
}

// Select runs a stepwise greedy search over the (p, q) lattice for the
// order minimizing the configured criterion. It starts from a small set of
// baseline candidates and repeatedly moves to the best improving neighbor
// until no neighbor improves the score or the bounds are exhausted.
// Candidate fits within a round are independent and evaluated on a bounded
// worker pool; the outcome is identical for any worker count.
func Select(ctx context.Context, values []float64, cfg *SelectConfig, logger *logrus.Logger) (*Selection, error) {
	if cfg == nil {
		cfg = DefaultSelectConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}

	d := cfg.FixedD
	if d < 0 {
		d = NDiffs(values, cfg.MaxD)
		logger.WithField("d", d).Debug("Auto-detected differencing degree")
	}

	search := &searcher{
		values:  values,
		d:       d,
		cfg:     cfg,
		logger:  logger,
		tried:   make(map[Order]bool),
		workers: cfg.Workers,
	}
	if search.workers <= 0 {
		search.workers = runtime.GOMAXPROCS(0)
	}

	start := []Order{
		{0, d, 0}, {1, d, 0}, {0, d, 1}, {1, d, 1}, {2, d, 2},
	}
	best, err := search.evaluateRound(ctx, start, nil)
	if err != nil {
		return nil, err
	}

	for {
		neighbors := []Order{
			{best.Order.P + 1, d, best.Order.Q},
			{best.Order.P - 1, d, best.Order.Q},
			{best.Order.P, d, best.Order.Q + 1},
			{best.Order.P, d, best.Order.Q - 1},
			{best.Order.P + 1, d, best.Order.Q + 1},
			{best.Order.P - 1, d, best.Order.Q - 1},
		}
		next, err := search.evaluateRound(ctx, neighbors, best)
		if err != nil {
			return nil, err
		}
		if next == best {
			break
		}
		best = next
	}

	sort.SliceStable(search.all, func(a, b int) bool {
		return search.all[a].Score < search.all[b].Score
	})

	logger.WithFields(logrus.Fields{
		"order":     best.Order.String(),
		"criterion": string(search.criterion()),
		"score":     best.Score,
		"evaluated": search.evaluated,
	}).Info("Order selection complete")

	return &Selection{
		Order:      best.Order,
		Model:      best.Model,
		Score:      best.Score,
		Criterion:  search.criterion(),
		Evaluated:  search.evaluated,
		Candidates: search.all,
	}, nil
}

// searcher tracks state across stepwise rounds.
type searcher struct {
	values    []float64
	d         int
	cfg       *SelectConfig
	logger    *logrus.Logger
	tried     map[Order]bool
	all       []Candidate
	evaluated int
	workers   int
}

func (s *searcher) criterion() Criterion {
	if s.cfg.Criterion == "" {
		return CriterionAICc
	}
	return s.cfg.Criterion
}

// evaluateRound fits every untried in-bounds candidate of the round and
// returns the incumbent or an improving candidate. With no incumbent and
// no viable candidate the search fails.
func (s *searcher) evaluateRound(ctx context.Context, orders []Order, incumbent *Candidate) (*Candidate, error) {
	jobs := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.P < 0 || o.P > s.cfg.MaxP || o.Q < 0 || o.Q > s.cfg.MaxQ {
			continue
		}
		if s.tried[o] {
			continue
		}
		s.tried[o] = true
		jobs = append(jobs, o)
	}

	results, err := s.fitAll(ctx, jobs)
	if err != nil {
		return nil, err
	}

	best := incumbent
	for i := range results {
		cand := &results[i]
		s.all = append(s.all, *cand)
		if cand.Err != nil {
			s.logger.WithFields(logrus.Fields{
				"order": cand.Order.String(),
				"error": cand.Err.Error(),
			}).Debug("Candidate fit failed, skipping")
			continue
		}
		s.evaluated++
		if best == nil || cand.Score < best.Score {
			best = cand
		}
	}

	if best == nil {
		return nil, errors.WrapError(errors.ErrNoViableModel, errors.ErrorTypeModel,
			errors.CodeSelectionFailed, "no starting candidate converged")
	}
	return best, nil
}

// fitAll evaluates candidate orders on the worker pool. Results come back
// in submission order so selection is deterministic.
func (s *searcher) fitAll(ctx context.Context, orders []Order) ([]Candidate, error) {
	results := make([]Candidate, len(orders))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := s.workers
	if workers > len(orders) {
		workers = len(orders)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = s.fitCandidate(orders[idx])
			}
		}()
	}

	var ctxErr error
dispatch:
	for i := range orders {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if ctxErr != nil {
		return nil, errors.WrapError(ctxErr, errors.ErrorTypeModel,
			errors.CodeSelectionFailed, "order search cancelled")
	}
	return results, nil
}

// fitCandidate fits one order, converting a failed fit into a failed
// candidate result instead of an aborted search.
func (s *searcher) fitCandidate(order Order) Candidate {
	model := New(order)
	if err := model.Fit(s.values); err != nil {
		return Candidate{Order: order, Score: math.Inf(1), Err: err}
	}
	return Candidate{Order: order, Score: s.criterion().Score(model), Model: model}
}
