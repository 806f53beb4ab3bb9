package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/spread/internal/domain/dedupe"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/schedule"
)

// Validate checks each match on its own and rejects duplicate keys and
// participants playing twice on one calendar day.
// Every error wraps model.ErrDataIntegrity.
func Validate(ctx context.Context, matches []model.Match) error {
	seen := dedupe.NewInMemoryDeduper(dedupe.WithSizeHint(len(matches)))
	played := make(map[fixture]model.MatchKey, 2*len(matches))
	for _, m := range matches {
		if err := ValidateMatch(m); err != nil {
			return err
		}
		if seen.SeenAndRecord(ctx, m.Key()) {
			return fmt.Errorf("duplicate match %s: %w", m.Key(), model.ErrDataIntegrity)
		}
		day := schedule.Truncate(m.Date)
		for _, p := range []string{m.Home, m.Away} {
			f := fixture{participant: p, day: day}
			if other, ok := played[f]; ok {
				return fmt.Errorf("match %s: %s already plays %s on %s: %w",
					m.Key(), p, other, day.Format(time.DateOnly), model.ErrDataIntegrity)
			}
			played[f] = m.Key()
		}
	}
	return nil
}

type fixture struct {
	participant string
	day         time.Time
}

// ValidateMatch checks a single match record.
func ValidateMatch(m model.Match) error {
	switch {
	case m.Season == "" || m.MatchID == "":
		return fmt.Errorf("match %s: season and match id are required: %w", m.Key(), model.ErrDataIntegrity)
	case m.Home == "" || m.Away == "":
		return fmt.Errorf("match %s: home and away are required: %w", m.Key(), model.ErrDataIntegrity)
	case m.Home == m.Away:
		return fmt.Errorf("match %s: %s cannot play itself: %w", m.Key(), m.Home, model.ErrDataIntegrity)
	case m.HomeScore < 0 || m.AwayScore < 0:
		return fmt.Errorf("match %s: negative score: %w", m.Key(), model.ErrDataIntegrity)
	case m.Date.IsZero():
		return fmt.Errorf("match %s: date is required: %w", m.Key(), model.ErrDataIntegrity)
	}
	return nil
}

// ValidateEntry checks a schedule entry.
func ValidateEntry(e model.ScheduleEntry) error {
	switch {
	case e.Home == "" || e.Away == "":
		return fmt.Errorf("entry %s: home and away are required: %w", e.Key(), model.ErrDataIntegrity)
	case e.Home == e.Away:
		return fmt.Errorf("entry %s: %s cannot play itself: %w", e.Key(), e.Home, model.ErrDataIntegrity)
	case e.Date.IsZero():
		return fmt.Errorf("entry %s: date is required: %w", e.Key(), model.ErrDataIntegrity)
	}
	return nil
}
