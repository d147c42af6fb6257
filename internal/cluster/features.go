package cluster

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/mikey/mailbox-auditor/internal/core"
)

// Feature vector layout, fixed order. Volume is log-compressed against
// the cap before scaling so a single huge sender cannot dominate the
// distance calculations.
const (
	featureVolume    = 0
	featureUnread    = 1
	featureOpen      = 2
	featureIgnorance = 3
	intentOffset     = 4
	tierOffset       = 9
	featureDim       = 13
)

var intentIndex = map[core.IntentLabel]int{
	core.IntentPromotional:   0,
	core.IntentTransactional: 1,
	core.IntentInformational: 2,
	core.IntentSocial:        3,
	core.IntentOther:         4,
}

var tierIndex = map[core.EngagementTier]int{
	core.TierHigh:   0,
	core.TierMedium: 1,
	core.TierLow:    2,
	core.TierZero:   3,
}

// buildFeatures converts sender stats into fixed-order numeric vectors
func buildFeatures(senders []core.SenderStats, volumeCap int) [][]float64 {
	vectors := make([][]float64, len(senders))
	capLog := math.Log1p(float64(volumeCap))
	for i, s := range senders {
		v := make([]float64, featureDim)

		volume := math.Log1p(float64(s.MessageCount)) / capLog
		if volume > 1 {
			volume = 1
		}
		v[featureVolume] = volume
		v[featureUnread] = s.UnreadRate
		v[featureOpen] = s.OpenRate
		v[featureIgnorance] = s.IgnoranceScore

		if idx, ok := intentIndex[s.Intent]; ok {
			v[intentOffset+idx] = 1
		}
		if idx, ok := tierIndex[s.Tier]; ok {
			v[tierOffset+idx] = 1
		}

		vectors[i] = v
	}
	return vectors
}

// scaleFeatures z-scores every dimension in place so all features span
// comparable ranges. A dimension with zero variance carries no
// discriminative signal and is zeroed out.
func scaleFeatures(vectors [][]float64) error {
	if len(vectors) == 0 {
		return nil
	}
	column := make([]float64, len(vectors))
	for d := 0; d < featureDim; d++ {
		for i, v := range vectors {
			column[i] = v[d]
		}
		mean, err := stats.Mean(column)
		if err != nil {
			return fmt.Errorf("failed to scale feature %d: %w", d, err)
		}
		stddev, err := stats.StandardDeviationPopulation(column)
		if err != nil {
			return fmt.Errorf("failed to scale feature %d: %w", d, err)
		}
		for _, v := range vectors {
			if stddev == 0 {
				v[d] = 0
			} else {
				v[d] = (v[d] - mean) / stddev
			}
		}
	}
	return nil
}

func distSq(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// nearest returns the index of the closest centroid and the squared
// distance to it
func nearest(v []float64, centroids [][]float64) (int, float64) {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range centroids {
		if d := distSq(v, c); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
