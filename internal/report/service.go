package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/shopspring/decimal"
)

// DailyReport is the ranking for one collection plus the streak after it.
type DailyReport struct {
	Type          models.CollectionType `json:"type"`
	Date          string                `json:"date"`
	Ranking       Ranking               `json:"ranking"`
	Streak        models.StreakState    `json:"streak"`
	StreakUpdated bool                  `json:"streakUpdated"`
}

// Service builds rankings and daily reports over the result and streak repositories.
type Service struct {
	results  interfaces.ResultStorage
	streaks  interfaces.StreakStorage
	roster   []string
	location *time.Location
	logger   *common.Logger

	// guards the streak read-modify-write within this process
	mu sync.Mutex
}

// NewService creates a report service. roster is the configured store order;
// when empty, every stored result is ranked.
func NewService(results interfaces.ResultStorage, streaks interfaces.StreakStorage, roster []string, loc *time.Location, logger *common.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		results:  results,
		streaks:  streaks,
		roster:   roster,
		location: loc,
		logger:   logger,
	}
}

// Ranking ranks the latest stored result of every store in roster.
// Stores without a stored result are ranked with 0 and outcome zero.
func (s *Service) Ranking(ctx context.Context, roster []string) (Ranking, error) {
	results, err := s.load(ctx, roster, "")
	if err != nil {
		return Ranking{}, err
	}
	return BuildRanking(results), nil
}

// RankingOfType ranks the roster using only results from collections of typ.
// Results from the other collection type count as no data. An empty typ ranks
// every latest result.
func (s *Service) RankingOfType(ctx context.Context, typ models.CollectionType) (Ranking, error) {
	results, err := s.load(ctx, s.roster, "")
	if err != nil {
		return Ranking{}, err
	}
	if typ != "" {
		for i, r := range results {
			if r.Type != typ {
				results[i] = noData(r.Store)
			}
		}
	}
	return BuildRanking(results), nil
}

// Streak returns the stored streak state.
func (s *Service) Streak(ctx context.Context) (models.StreakState, error) {
	return s.streaks.GetStreak(ctx)
}

// DailyReport ranks today's results and, for the final collection, advances the
// streak once per calendar day.
func (s *Service) DailyReport(ctx context.Context, typ models.CollectionType, today time.Time) (DailyReport, error) {
	date := models.CivilDate(today, s.location)

	results, err := s.load(ctx, s.roster, date)
	if err != nil {
		return DailyReport{}, err
	}

	report := DailyReport{
		Type:    typ,
		Date:    date,
		Ranking: BuildRanking(results),
	}

	if typ != models.CollectionFinal {
		streak, err := s.streaks.GetStreak(ctx)
		if err != nil {
			return DailyReport{}, fmt.Errorf("loading streak: %w", err)
		}
		report.Streak = streak
		return report, nil
	}

	leader, ok := report.Ranking.Leader()
	if !ok {
		s.logger.Warn().Str("date", date).Msg("No store with positive sales, streak left unchanged")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := false
	streak, err := s.streaks.UpdateStreak(ctx, func(current models.StreakState) (models.StreakState, bool) {
		next, changed := UpdateStreak(current, leader.Store, date)
		updated = changed
		return next, changed
	})
	if err != nil {
		return DailyReport{}, fmt.Errorf("updating streak: %w", err)
	}

	report.Streak = streak
	report.StreakUpdated = updated

	s.logger.Info().
		Str("date", date).
		Str("leader", streak.CurrentTopStore).
		Int("streak_days", streak.StreakDays).
		Bool("updated", updated).
		Msg("Streak evaluated")

	return report, nil
}

// load returns one result per roster store. When date is set, results collected
// on another civil date count as no data.
func (s *Service) load(ctx context.Context, roster []string, date string) ([]models.StoreResult, error) {
	if len(roster) == 0 {
		all, err := s.results.ListResults(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing results: %w", err)
		}
		for i, r := range all {
			all[i] = s.current(r, date)
		}
		return all, nil
	}

	out := make([]models.StoreResult, 0, len(roster))
	for _, store := range roster {
		r, err := s.results.GetResult(ctx, store)
		if errors.Is(err, interfaces.ErrNotFound) {
			out = append(out, noData(store))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading result for %s: %w", store, err)
		}
		out = append(out, s.current(r, date))
	}
	return out, nil
}

func (s *Service) current(r models.StoreResult, date string) models.StoreResult {
	if date == "" || models.CivilDate(r.CollectedAt, s.location) == date {
		return r
	}
	return noData(r.Store)
}

func noData(store string) models.StoreResult {
	return models.StoreResult{
		Store:   store,
		Amount:  decimal.Zero,
		Outcome: models.OutcomeZero,
		Source:  models.SourceNone,
	}
}
