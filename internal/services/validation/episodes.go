// Package validation replays documented historical bubbles through the
// fitting pipeline and scores how well the published results are reproduced.
package validation

import (
	"fmt"
	"sort"
	"time"

	"BubbleScope/internal/domain/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var episodes = map[string]models.Episode{
	"1987-10": {
		ID:         "1987-10",
		Name:       "Black Monday",
		Symbol:     "^GSPC",
		Start:      day(1985, time.July, 1),
		End:        day(1987, time.October, 31),
		CrashDate:  day(1987, time.October, 19),
		Beta:       0.33,
		Omega:      7.4,
		BetaTol:    0.05,
		OmegaTol:   0.3,
		CutoffDays: 30,
		Reference:  "Sornette, Johansen & Bouchaud (1996), Stock market crashes, precursors and replicas, J. Phys. I France 6, 167-175",
		Expected: &models.BubbleStats{
			TotalGain:  65.2,
			PeakGain:   85.1,
			MaxDecline: 28.2,
			Samples:    706,
		},
		BubbleType: models.BubbleFinancialCrisis,
	},
	"2000-03": {
		ID:         "2000-03",
		Name:       "Dot-com bubble",
		Symbol:     "NASDAQCOM",
		Start:      day(1995, time.January, 1),
		End:        day(2002, time.December, 31),
		CrashDate:  day(2000, time.March, 10),
		Beta:       0.33,
		Omega:      6.0,
		BetaTol:    0.05,
		OmegaTol:   0.5,
		CutoffDays: 30,
		Reference:  "Johansen & Sornette (2000), The Nasdaq crash of April 2000: yet another example of log-periodicity in a speculative bubble ending in a crash",
		BubbleType: models.BubbleTech,
	},
}

// Episode returns a documented episode by id.
func Episode(id string) (models.Episode, error) {
	ep, ok := episodes[id]
	if !ok {
		return models.Episode{}, fmt.Errorf("%w: %q", models.ErrEpisodeNotFound, id)
	}
	return ep, nil
}

// Episodes lists every documented episode ordered by crash date.
func Episodes() []models.Episode {
	out := make([]models.Episode, 0, len(episodes))
	for _, ep := range episodes {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CrashDate.Before(out[j].CrashDate) })
	return out
}
