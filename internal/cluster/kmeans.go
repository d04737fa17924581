package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	defaultMaxIterations = 100
	convergenceEpsilon   = 1e-6
)

// kMeans partitions the rows of data into k groups and returns one
// assignment index per row. Seeding is k-means++ style from a fixed source so
// identical input always yields identical assignments.
func kMeans(data *mat.Dense, k int, seed int64, maxIterations int) ([]int, error) {
	rows, cols := data.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("empty feature matrix")
	}
	if k <= 0 || k > rows {
		return nil, fmt.Errorf("invalid cluster count %d for %d points", k, rows)
	}
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(data, k, rng)
	assignments := make([]int, rows)

	for iteration := 0; iteration < maxIterations; iteration++ {
		assignPoints(data, centroids, assignments)

		next := updateCentroids(data, centroids, assignments, k)
		movement := centroidMovement(centroids, next)
		centroids = next

		if movement < convergenceEpsilon {
			break
		}
	}

	assignPoints(data, centroids, assignments)
	return assignments, nil
}

func seedCentroids(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	rows, cols := data.Dims()
	centroids := mat.NewDense(k, cols, nil)

	first := rng.Intn(rows)
	centroids.SetRow(0, mat.Row(nil, first, data))

	distances := make([]float64, rows)
	for c := 1; c < k; c++ {
		var total float64
		for i := 0; i < rows; i++ {
			best := math.Inf(1)
			point := mat.Row(nil, i, data)
			for j := 0; j < c; j++ {
				if d := squaredDistance(point, mat.Row(nil, j, centroids)); d < best {
					best = d
				}
			}
			distances[i] = best
			total += best
		}

		chosen := 0
		if total > 0 {
			target := rng.Float64() * total
			var cumulative float64
			for i, d := range distances {
				cumulative += d
				if cumulative >= target {
					chosen = i
					break
				}
			}
		} else {
			chosen = rng.Intn(rows)
		}
		centroids.SetRow(c, mat.Row(nil, chosen, data))
	}
	return centroids
}

func assignPoints(data, centroids *mat.Dense, assignments []int) {
	rows, _ := data.Dims()
	k, _ := centroids.Dims()

	for i := 0; i < rows; i++ {
		point := mat.Row(nil, i, data)
		best := 0
		bestDistance := math.Inf(1)
		for c := 0; c < k; c++ {
			if d := squaredDistance(point, mat.Row(nil, c, centroids)); d < bestDistance {
				bestDistance = d
				best = c
			}
		}
		assignments[i] = best
	}
}

func updateCentroids(data, previous *mat.Dense, assignments []int, k int) *mat.Dense {
	rows, cols := data.Dims()
	next := mat.NewDense(k, cols, nil)
	counts := make([]int, k)

	for i := 0; i < rows; i++ {
		c := assignments[i]
		counts[c]++
		for j := 0; j < cols; j++ {
			next.Set(c, j, next.At(c, j)+data.At(i, j))
		}
	}

	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			next.SetRow(c, mat.Row(nil, c, previous))
			continue
		}
		for j := 0; j < cols; j++ {
			next.Set(c, j, next.At(c, j)/float64(counts[c]))
		}
	}
	return next
}

func centroidMovement(previous, next *mat.Dense) float64 {
	k, _ := previous.Dims()
	var total float64
	for c := 0; c < k; c++ {
		total += math.Sqrt(squaredDistance(mat.Row(nil, c, previous), mat.Row(nil, c, next)))
	}
	return total
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
