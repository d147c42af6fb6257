package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/mikey/mailbox-auditor/internal/core"
)

// Engine groups senders by engagement shape using seeded k-means over
// the scaled feature vectors. Cluster labels are arbitrary and not
// stable across runs; consumers must key off the centroid statistics.
type Engine struct {
	logger        *zap.Logger
	volumeCap     int
	maxIterations int
	seed          int64
}

// NewEngine creates a new clustering engine
func NewEngine(logger *zap.Logger, volumeCap int, maxIterations int, seed int64) *Engine {
	if maxIterations <= 0 {
		maxIterations = 100
	}
	return &Engine{
		logger:        logger,
		volumeCap:     volumeCap,
		maxIterations: maxIterations,
		seed:          seed,
	}
}

// Cluster partitions the senders into k groups. Fails explicitly when
// fewer senders than clusters are available; meaningful groupings need
// well more than k senders, but k is the hard floor.
func (e *Engine) Cluster(senders []core.SenderStats, k int) ([]core.SenderCluster, error) {
	if k < 1 {
		return nil, fmt.Errorf("cluster count must be at least 1, got %d", k)
	}
	if len(senders) < k {
		return nil, core.NewInsufficientDataError("cluster senders", k, len(senders))
	}

	vectors := buildFeatures(senders, e.volumeCap)
	if err := scaleFeatures(vectors); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(e.seed))
	centroids := seedCentroids(vectors, k, rng)
	assignments := e.iterate(vectors, centroids)

	groups := make([][]int, k)
	for i, c := range assignments {
		groups[c] = append(groups[c], i)
	}

	clusters := make([]core.SenderCluster, 0, k)
	for label, members := range groups {
		if len(members) == 0 {
			continue
		}

		addresses := make([]string, len(members))
		ignorance := make([]float64, len(members))
		openRates := make([]float64, len(members))
		volumes := make([]float64, len(members))
		for i, idx := range members {
			addresses[i] = senders[idx].Address
			ignorance[i] = senders[idx].IgnoranceScore
			openRates[i] = senders[idx].OpenRate
			volumes[i] = float64(senders[idx].MessageCount)
		}

		meanIgnorance, err := stats.Mean(ignorance)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cluster stats: %w", err)
		}
		meanOpenRate, err := stats.Mean(openRates)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cluster stats: %w", err)
		}
		meanVolume, err := stats.Mean(volumes)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cluster stats: %w", err)
		}

		clusters = append(clusters, core.SenderCluster{
			Label:         label,
			Members:       addresses,
			Size:          len(members),
			Centroid:      centroids[label],
			MeanIgnorance: meanIgnorance,
			MeanOpenRate:  meanOpenRate,
			MeanVolume:    meanVolume,
			// Larger clusters of high-ignorance senders are more
			// worth addressing.
			PriorityScore: meanIgnorance * math.Log1p(float64(len(members))),
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].PriorityScore != clusters[j].PriorityScore {
			return clusters[i].PriorityScore > clusters[j].PriorityScore
		}
		if clusters[i].Size != clusters[j].Size {
			return clusters[i].Size > clusters[j].Size
		}
		return clusters[i].Label < clusters[j].Label
	})

	e.logger.Info("Clustered senders",
		zap.Int("senders", len(senders)),
		zap.Int("requested", k),
		zap.Int("clusters", len(clusters)))

	return clusters, nil
}

// iterate runs Lloyd's algorithm until assignments stabilize or the
// iteration budget runs out
func (e *Engine) iterate(vectors [][]float64, centroids [][]float64) []int {
	k := len(centroids)
	assignments := make([]int, len(vectors))

	for iter := 0; iter < e.maxIterations; iter++ {
		changed := iter == 0
		for i, v := range vectors {
			idx, _ := nearest(v, centroids)
			if idx != assignments[i] {
				assignments[i] = idx
				changed = true
			}
		}
		if !changed {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, featureDim)
		}
		for i, v := range vectors {
			c := assignments[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += x
			}
		}

		for c := range centroids {
			if counts[c] == 0 {
				// Reseed an emptied cluster to the point farthest
				// from its current centroid.
				centroids[c] = cloneVector(vectors[farthest(vectors, centroids, assignments)])
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	return assignments
}

// seedCentroids picks the initial centroids k-means++ style: the first
// uniformly at random, each following one proportional to its squared
// distance from the nearest already-chosen centroid.
func seedCentroids(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, cloneVector(vectors[rng.Intn(len(vectors))]))

	for len(centroids) < k {
		weights := make([]float64, len(vectors))
		var total float64
		for i, v := range vectors {
			_, d := nearest(v, centroids)
			weights[i] = d
			total += d
		}
		if total == 0 {
			// All remaining points coincide with chosen centroids.
			centroids = append(centroids, cloneVector(vectors[rng.Intn(len(vectors))]))
			continue
		}

		target := rng.Float64() * total
		var cumulative float64
		picked := len(vectors) - 1
		for i, w := range weights {
			cumulative += w
			if cumulative >= target {
				picked = i
				break
			}
		}
		centroids = append(centroids, cloneVector(vectors[picked]))
	}

	return centroids
}

// farthest returns the index of the point with the greatest distance to
// its assigned centroid
func farthest(vectors [][]float64, centroids [][]float64, assignments []int) int {
	best := 0
	var bestDist float64
	for i, v := range vectors {
		if d := distSq(v, centroids[assignments[i]]); d > bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
