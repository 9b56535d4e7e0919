package timeline

import (
	"testing"
	"time"

	"github.com/jonathan/talent-compass/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTimeline() (*Timeline, *fakeClock) {
	clock := &fakeClock{now: t0}
	return New(WithClock(clock.Now)), clock
}

func obs(cat types.BehaviorCategory, conf float64) types.SessionInsight {
	return types.SessionInsight{Observation: string(cat), Category: cat, Confidence: conf}
}

func tagged(cat types.BehaviorCategory, conf float64, dim types.Dimension) types.SessionInsight {
	o := obs(cat, conf)
	o.Dimension = dim
	return o
}

func add(t *testing.T, tl *Timeline, clock *fakeClock, step time.Duration, insights ...types.SessionInsight) {
	t.Helper()
	for _, in := range insights {
		clock.Advance(step)
		require.NoError(t, tl.AddObservation(in))
	}
}

func TestAddObservation_Snapshots(t *testing.T) {
	tl, clock := newTimeline()

	add(t, tl, clock, 10*time.Second, obs(types.CategoryCuriosity, 0.4))
	add(t, tl, clock, 20*time.Second, obs(types.CategoryCuriosity, 0.8)) // exactly 30s: not yet
	assert.Empty(t, tl.Snapshots())

	add(t, tl, clock, time.Second, obs(types.CategoryFocus, 0.5))
	snaps := tl.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, t0.Add(31*time.Second), snaps[0].Timestamp)
	assert.InDelta(t, 0.6, snaps[0].Categories[types.CategoryCuriosity], 1e-9)
	assert.InDelta(t, 0.5, snaps[0].Categories[types.CategoryFocus], 1e-9)

	add(t, tl, clock, 15*time.Second, obs(types.CategoryCuriosity, 0.9))
	assert.Len(t, tl.Snapshots(), 1)

	add(t, tl, clock, 16*time.Second, obs(types.CategoryCuriosity, 0.1))
	snaps = tl.Snapshots()
	require.Len(t, snaps, 2)
	// running average across every observation so far, not just the recent window
	assert.InDelta(t, (0.4+0.8+0.9+0.1)/4, snaps[1].Categories[types.CategoryCuriosity], 1e-9)
}

func TestAddObservation_StampsMissingTimestamp(t *testing.T) {
	tl, clock := newTimeline()
	add(t, tl, clock, 5*time.Second, obs(types.CategoryEmpathy, 0.5))

	explicit := obs(types.CategoryEmpathy, 0.5)
	explicit.Timestamp = t0.Add(-time.Hour)
	require.NoError(t, tl.AddObservation(explicit))

	got := tl.Observations()
	assert.Equal(t, t0.Add(5*time.Second), got[0].Timestamp)
	assert.Equal(t, t0.Add(-time.Hour), got[1].Timestamp)
}

func TestAddObservation_Rejects(t *testing.T) {
	tl, _ := newTimeline()

	err := tl.AddObservation(obs("boredom", 0.5))
	assert.ErrorIs(t, err, ErrInvalidObservation)
	assert.ErrorIs(t, err, types.ErrUnknownCategory)

	assert.ErrorIs(t, tl.AddObservation(obs(types.CategoryFocus, 1.2)), ErrInvalidObservation)
	assert.ErrorIs(t, tl.AddObservation(tagged(types.CategoryFocus, 0.2, "zodiac")), types.ErrUnknownDimension)
	assert.Zero(t, tl.Len())
}

func TestComputeTrends(t *testing.T) {
	tl, clock := newTimeline()
	add(t, tl, clock, time.Second,
		obs(types.CategoryCuriosity, 0.2),
		obs(types.CategoryHesitation, 0.9),
		obs(types.CategoryCuriosity, 0.5),
		obs(types.CategoryFocus, 0.5),
		obs(types.CategoryHesitation, 0.8),
		obs(types.CategoryCuriosity, 0.9),
		obs(types.CategoryFocus, 0.55),
		obs(types.CategoryHesitation, 0.3),
		obs(types.CategoryFocus, 0.5),
		obs(types.CategoryFocus, 0.52),
		obs(types.CategoryEmpathy, 0.1),
		obs(types.CategoryEmpathy, 0.9),
	)

	trends := tl.ComputeTrends()
	require.Len(t, trends, 3, "empathy has only 2 samples")

	// curiosity [0.2 | 0.5 0.9]: delta 0.5
	assert.Equal(t, types.CategoryCuriosity, trends[0].Category)
	assert.Equal(t, types.TrendRising, trends[0].Direction)
	assert.InDelta(t, 0.2, trends[0].StartAvg, 1e-9)
	assert.InDelta(t, 0.7, trends[0].EndAvg, 1e-9)
	assert.Equal(t, 3, trends[0].SampleCount)

	// hesitation [0.9 | 0.8 0.3]: delta -0.35
	assert.Equal(t, types.CategoryHesitation, trends[1].Category)
	assert.Equal(t, types.TrendFalling, trends[1].Direction)
	assert.InDelta(t, -0.35, trends[1].Delta, 1e-9)

	// focus [0.5 0.55 | 0.5 0.52]: delta -0.015
	assert.Equal(t, types.CategoryFocus, trends[2].Category)
	assert.Equal(t, types.TrendStable, trends[2].Direction)
}

func TestComputeTrends_TwoSamplesNeverTrend(t *testing.T) {
	tl, clock := newTimeline()
	add(t, tl, clock, time.Second, obs(types.CategoryLeadership, 0.1), obs(types.CategoryLeadership, 0.9))
	assert.Empty(t, tl.ComputeTrends())
}

func TestFindCorrelations_Floor(t *testing.T) {
	tests := []struct {
		name      string
		untagged  float64
		wantFound bool
	}{
		// global curiosity = (0.8+0.8+x+x)/4, topic average 0.8
		{name: "difference of exactly 0.15 is included", untagged: 0.5, wantFound: true},
		{name: "difference of 0.14 is excluded", untagged: 0.52, wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, clock := newTimeline()
			add(t, tl, clock, time.Second,
				tagged(types.CategoryCuriosity, 0.8, types.Investigative),
				tagged(types.CategoryCuriosity, 0.8, types.Investigative),
				obs(types.CategoryCuriosity, tt.untagged),
				obs(types.CategoryCuriosity, tt.untagged),
			)

			got := tl.FindCorrelations()
			if !tt.wantFound {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, types.Investigative, got[0].Topic)
			assert.Equal(t, types.CategoryCuriosity, got[0].Category)
			assert.Equal(t, types.EffectIncrease, got[0].Effect)
			assert.InDelta(t, 0.15, got[0].Strength, 1e-9)
			assert.Contains(t, got[0].Description, "Investigative")
		})
	}
}

func TestFindCorrelations_SingleTaggedObservationIgnored(t *testing.T) {
	tl, clock := newTimeline()
	add(t, tl, clock, time.Second,
		tagged(types.CategoryFrustration, 0.9, types.Conventional),
		obs(types.CategoryFrustration, 0.1),
		obs(types.CategoryFrustration, 0.1),
	)
	assert.Empty(t, tl.FindCorrelations())
}

func TestFindCorrelations_DecreaseAndOrdering(t *testing.T) {
	tl, clock := newTimeline()
	add(t, tl, clock, time.Second,
		tagged(types.CategoryEnthusiasm, 0.2, types.Conventional),
		tagged(types.CategoryEnthusiasm, 0.2, types.Conventional),
		tagged(types.CategoryEnthusiasm, 0.9, types.Artistic),
		tagged(types.CategoryEnthusiasm, 1.0, types.Artistic),
		obs(types.CategoryEnthusiasm, 0.6),
	)
	// global = 2.9/5 = 0.58; conventional 0.2 (-0.38), artistic 0.95 (+0.37)
	got := tl.FindCorrelations()
	require.Len(t, got, 2)
	assert.Equal(t, types.Conventional, got[0].Topic)
	assert.Equal(t, types.EffectDecrease, got[0].Effect)
	assert.Equal(t, types.Artistic, got[1].Topic)
	assert.Equal(t, types.EffectIncrease, got[1].Effect)
	assert.Greater(t, got[0].Strength, got[1].Strength)
}

func TestGenerateNarrative(t *testing.T) {
	tl, clock := newTimeline()
	assert.Equal(t, NoObservationsNarrative, tl.GenerateNarrative())

	add(t, tl, clock, time.Minute,
		tagged(types.CategoryCuriosity, 0.2, types.Social),
		tagged(types.CategoryCuriosity, 0.5, types.Social),
		obs(types.CategoryCuriosity, 0.9),
		obs(types.CategoryFocus, 0.9),
	)

	n := tl.GenerateNarrative()
	assert.Contains(t, n, "Recorded 4 behavioral observations over 3 minutes.")
	assert.Contains(t, n, "Curiosity rose from 20% to 70%.")
	assert.Contains(t, n, "when discussing Social")
	assert.Equal(t, n, tl.GenerateNarrative())
}

func TestGenerateNarrative_NoTrends(t *testing.T) {
	tl, clock := newTimeline()
	add(t, tl, clock, 5*time.Second, obs(types.CategoryAnalytical, 0.7))
	n := tl.GenerateNarrative()
	assert.Contains(t, n, "Recorded 1 behavioral observation over 0 seconds.")
	assert.Contains(t, n, "No clear trends yet.")
}

func TestClear(t *testing.T) {
	tl, clock := newTimeline()
	add(t, tl, clock, 40*time.Second, obs(types.CategoryFocus, 0.5), obs(types.CategoryFocus, 0.6))
	require.NotEmpty(t, tl.Snapshots())

	tl.Clear()
	assert.Zero(t, tl.Len())
	assert.Empty(t, tl.Snapshots())
	assert.Equal(t, NoObservationsNarrative, tl.GenerateNarrative())

	// snapshot interval restarts at clear time
	add(t, tl, clock, 20*time.Second, obs(types.CategoryFocus, 0.5))
	assert.Empty(t, tl.Snapshots())
}

func TestObservations_ReturnsCopy(t *testing.T) {
	tl, clock := newTimeline()
	add(t, tl, clock, time.Second, obs(types.CategoryFocus, 0.5))
	got := tl.Observations()
	got[0].Confidence = 0
	assert.Equal(t, 0.5, tl.Observations()[0].Confidence)
}
