package matcher

import (
	"sort"

	"github.com/shenikar/safety_dispatch/internal/models"
)

// Candidate - волонтер, отобранный для уведомления
type Candidate struct {
	Responder  *models.Responder
	DistanceKM *float64
}

// SelectCandidates отбирает доступных волонтеров по возрастанию расстояния до места.
// При равном расстоянии первым идет тот, кто позже переключил доступность.
// Волонтеры без координат и записи без места ранжируются только по времени переключения.
// k <= 0 означает всех доступных.
func SelectCandidates(roster []*models.Responder, at *models.Location, k int) []Candidate {
	candidates := make([]Candidate, 0, len(roster))
	for _, r := range roster {
		if r == nil || !r.Available {
			continue
		}
		c := Candidate{Responder: r}
		if at != nil && r.Location != nil {
			d := at.DistanceKM(*r.Location)
			c.DistanceKM = &d
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch {
		case a.DistanceKM != nil && b.DistanceKM == nil:
			return true
		case a.DistanceKM == nil && b.DistanceKM != nil:
			return false
		case a.DistanceKM != nil && *a.DistanceKM != *b.DistanceKM:
			return *a.DistanceKM < *b.DistanceKM
		}
		return a.Responder.AvailabilityChangedAt.After(b.Responder.AvailabilityChangedAt)
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
