package cluster

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/mat"
)

// CosineDistance returns 1 - cos(a, b). A zero vector has similarity 0 to
// everything. The result is clamped to [0, 2].
func CosineDistance(a, b *mat.VecDense) float64 {
	na, nb := mat.Norm(a, 2), mat.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - mat.Dot(a, b)/(na*nb)
	switch {
	case d < 0:
		return 0
	case d > 2:
		return 2
	}
	return d
}

// DistanceMatrix returns the symmetric matrix of pairwise cosine distances
// with a zero diagonal.
func DistanceMatrix(vecs []*mat.VecDense) *mat.SymDense {
	n := len(vecs)
	if n == 0 {
		return nil
	}
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m.SetSym(i, j, CosineDistance(vecs[i], vecs[j]))
		}
	}
	return m
}

// Components partitions the points of dist into groups of indices.
//
// A point is core when at least minNeighbors points, itself included, lie
// within eps. Core points within eps of each other are connected and each
// connected component forms a group. A non-core point within eps of some
// core point joins the group of the first such core point; any other point
// becomes its own group. With minNeighbors <= 1 every point is core and the
// result is plain transitive connectivity.
//
// Groups list indices in ascending order and are ordered by their smallest
// index.
func Components(dist *mat.SymDense, eps float64, minNeighbors int) [][]int {
	if dist == nil {
		return nil
	}
	n, _ := dist.Dims()

	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || dist.At(i, j) <= eps {
				neighbors[i] = append(neighbors[i], j)
			}
		}
	}
	core := make([]bool, n)
	for i := range neighbors {
		core[i] = len(neighbors[i]) >= minNeighbors
	}

	g := simple.NewUndirectedGraph()
	for i := 0; i < n; i++ {
		if core[i] {
			g.AddNode(simple.Node(int64(i)))
		}
	}
	for i := 0; i < n; i++ {
		if !core[i] {
			continue
		}
		for _, j := range neighbors[i] {
			if j > i && core[j] {
				g.SetEdge(g.NewEdge(simple.Node(int64(i)), simple.Node(int64(j))))
			}
		}
	}

	label := make([]int, n)
	for i := range label {
		label[i] = -1
	}
	var groups [][]int
	for _, comp := range sortedComponents(topo.ConnectedComponents(g)) {
		for _, i := range comp {
			label[i] = len(groups)
		}
		groups = append(groups, comp)
	}

	for i := 0; i < n; i++ {
		if core[i] {
			continue
		}
		for _, j := range neighbors[i] {
			if j != i && core[j] {
				label[i] = label[j]
				groups[label[j]] = append(groups[label[j]], i)
				break
			}
		}
		if label[i] < 0 {
			label[i] = len(groups)
			groups = append(groups, []int{i})
		}
	}

	for _, grp := range groups {
		sort.Ints(grp)
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a][0] < groups[b][0] })
	return groups
}

func sortedComponents(comps [][]graph.Node) [][]int {
	out := make([][]int, 0, len(comps))
	for _, comp := range comps {
		ids := make([]int, 0, len(comp))
		for _, node := range comp {
			ids = append(ids, int(node.ID()))
		}
		sort.Ints(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(a, b int) bool { return out[a][0] < out[b][0] })
	return out
}
