package matcher

import (
	"testing"
	"time"

	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responderAt(id string, available bool, loc *models.Location, toggled time.Time) *models.Responder {
	return &models.Responder{ID: id, Available: available, Location: loc, AvailabilityChangedAt: toggled}
}

func ids(candidates []Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Responder.ID)
	}
	return out
}

func TestSelectCandidates(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	incident := &models.Location{Latitude: 40.0, Longitude: -73.0}
	near := &models.Location{Latitude: 40.001, Longitude: -73.0}
	mid := &models.Location{Latitude: 40.05, Longitude: -73.0}
	far := &models.Location{Latitude: 41.0, Longitude: -73.0}

	t.Run("filters unavailable and ranks by distance", func(t *testing.T) {
		roster := []*models.Responder{
			responderAt("far", true, far, base),
			responderAt("off", false, near, base),
			responderAt("near", true, near, base),
			responderAt("mid", true, mid, base),
		}

		got := SelectCandidates(roster, incident, 5)
		assert.Equal(t, []string{"near", "mid", "far"}, ids(got))
		require.NotNil(t, got[0].DistanceKM)
		assert.Less(t, *got[0].DistanceKM, *got[1].DistanceKM)
	})

	t.Run("equal distance prefers most recent toggle", func(t *testing.T) {
		roster := []*models.Responder{
			responderAt("old", true, near, base),
			responderAt("new", true, near, base.Add(time.Minute)),
		}

		assert.Equal(t, []string{"new", "old"}, ids(SelectCandidates(roster, incident, 5)))
	})

	t.Run("caps at k", func(t *testing.T) {
		roster := []*models.Responder{
			responderAt("a", true, far, base),
			responderAt("b", true, mid, base),
			responderAt("c", true, near, base),
		}

		assert.Equal(t, []string{"c", "b"}, ids(SelectCandidates(roster, incident, 2)))
	})

	t.Run("k zero takes everyone", func(t *testing.T) {
		roster := []*models.Responder{
			responderAt("a", true, far, base),
			responderAt("b", true, mid, base),
			responderAt("c", true, near, base),
		}

		assert.Len(t, SelectCandidates(roster, incident, 0), 3)
	})

	t.Run("responders without location go last", func(t *testing.T) {
		roster := []*models.Responder{
			responderAt("unknown", true, nil, base.Add(time.Hour)),
			responderAt("far", true, far, base),
		}

		got := SelectCandidates(roster, incident, 0)
		assert.Equal(t, []string{"far", "unknown"}, ids(got))
		assert.Nil(t, got[1].DistanceKM)
	})

	t.Run("no incident location ranks by toggle", func(t *testing.T) {
		roster := []*models.Responder{
			responderAt("first", true, near, base),
			responderAt("second", true, far, base.Add(time.Second)),
		}

		assert.Equal(t, []string{"second", "first"}, ids(SelectCandidates(roster, nil, 0)))
	})

	t.Run("empty roster", func(t *testing.T) {
		assert.Empty(t, SelectCandidates(nil, incident, 5))
	})
}
