package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/storetally/internal/models"
)

// Slot is one scheduled daily collection.
type Slot struct {
	Type models.CollectionType
	At   string // HH:MM in the configured timezone
}

// NextRun returns the first occurrence of hh:mm in loc strictly after now.
func NextRun(now time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule time %q: %w", hhmm, err)
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, clock.Hour(), clock.Minute(), 0, 0, loc)
	}
	return next, nil
}

// Slots returns the configured midday and final slots.
func (a *App) Slots() []Slot {
	return []Slot{
		{Type: models.CollectionMidday, At: a.Config.Schedule.Midday},
		{Type: models.CollectionFinal, At: a.Config.Schedule.Final},
	}
}

type pending struct {
	slot Slot
	at   time.Time
}

// RunScheduler runs the midday and final collections every day until ctx is
// cancelled. A failed run is logged and the schedule continues.
func (a *App) RunScheduler(ctx context.Context) error {
	return a.runSchedule(ctx, a.Slots(), func(ctx context.Context, typ models.CollectionType) error {
		_, err := a.RunCollection(ctx, typ)
		return err
	})
}

func (a *App) runSchedule(ctx context.Context, slots []Slot, run func(context.Context, models.CollectionType) error) error {
	queue := make([]pending, 0, len(slots))
	for _, s := range slots {
		at, err := NextRun(a.now(), s.At, a.Location)
		if err != nil {
			return err
		}
		queue = append(queue, pending{slot: s, at: at})
	}
	if len(queue) == 0 {
		<-ctx.Done()
		return nil
	}

	for {
		sort.SliceStable(queue, func(i, j int) bool { return queue[i].at.Before(queue[j].at) })
		next := &queue[0]

		a.Logger.Info().
			Str("type", string(next.slot.Type)).
			Str("at", next.at.Format(time.RFC3339)).
			Msg("next collection scheduled")

		timer := time.NewTimer(next.at.Sub(a.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if err := run(ctx, next.slot.Type); err != nil {
			a.Logger.Error().Str("type", string(next.slot.Type)).Err(err).Msg("scheduled collection failed")
		}

		at, _ := NextRun(a.now(), next.slot.At, a.Location)
		next.at = at
	}
}
