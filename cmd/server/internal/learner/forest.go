package learner

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// MinTrainingSamples 训练所需的最少反馈条数，低于此值不更新参数
const MinTrainingSamples = 5

// ErrInsufficientData 反馈历史不足以训练时返回
var ErrInsufficientData = errors.New("learner: insufficient feedback records for training")

const (
	numTrees    = 20
	maxDepth    = 3
	minLeafSize = 2
)

// Model 从反馈历史训练出的情绪回归模型
// 由袋装回归树集成而成，同时给出每个特征的重要性与其与情绪的
// 带符号相关性；模型每次重训全量重建，不做增量更新
type Model struct {
	trees        []*treeNode
	importances  []float64
	correlations []float64
	samples      int
}

// treeNode 回归树节点；leaf 为真时 value 即叶子均值
type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// Train 以特征矩阵与情绪得分训练模型
// features 每行对应一条反馈记录的特征向量，moods 为 1-5 的情绪分。
// 样本数低于 MinTrainingSamples 时返回 ErrInsufficientData。
// 训练过程使用固定随机种子，重复训练结果可复现。
func Train(features [][]float64, moods []float64) (*Model, error) {
	n := len(features)
	if n != len(moods) {
		return nil, errors.New("learner: features and moods length mismatch")
	}
	if n < MinTrainingSamples {
		return nil, ErrInsufficientData
	}

	dims := len(features[0])
	rng := rand.New(rand.NewSource(42))

	m := &Model{
		importances:  make([]float64, dims),
		correlations: make([]float64, dims),
		samples:      n,
	}

	// 袋装：每棵树在自助采样上拟合，重要性按方差削减量累计
	for t := 0; t < numTrees; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		m.trees = append(m.trees, fitTree(features, moods, sample, 0, m.importances))
	}

	// 重要性归一化到 [0,1] 且总和为 1
	sum := 0.0
	for _, v := range m.importances {
		sum += v
	}
	if sum > 0 {
		for i := range m.importances {
			m.importances[i] /= sum
		}
	}

	for d := 0; d < dims; d++ {
		col := make([]float64, n)
		for i := range features {
			col[i] = features[i][d]
		}
		m.correlations[d] = pearson(col, moods)
	}

	return m, nil
}

// Predict 预测给定特征向量对应的情绪得分（树均值）
func (m *Model) Predict(x []float64) float64 {
	if len(m.trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range m.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(m.trees))
}

// Importance 第 i 个特征的归一化重要性
func (m *Model) Importance(i int) float64 {
	if i < 0 || i >= len(m.importances) {
		return 0
	}
	return m.importances[i]
}

// Correlation 第 i 个特征与情绪得分的 Pearson 相关系数
func (m *Model) Correlation(i int) float64 {
	if i < 0 || i >= len(m.correlations) {
		return 0
	}
	return m.correlations[i]
}

// Samples 训练样本数
func (m *Model) Samples() int { return m.samples }

func (t *treeNode) predict(x []float64) float64 {
	for !t.leaf {
		if x[t.feature] <= t.threshold {
			t = t.left
		} else {
			t = t.right
		}
	}
	return t.value
}

// fitTree 在给定样本下标上递归拟合回归树
// importances 按「方差削减量 × 样本数」累计，与 sklearn 的
// impurity-based importance 同构
func fitTree(features [][]float64, moods []float64, idx []int, depth int, importances []float64) *treeNode {
	mean, variance := meanVariance(moods, idx)
	if depth >= maxDepth || len(idx) < 2*minLeafSize || variance == 0 {
		return &treeNode{leaf: true, value: mean}
	}

	bestFeature, bestThreshold := -1, 0.0
	bestScore := variance * float64(len(idx))
	var bestLeft, bestRight []int

	dims := len(features[0])
	for d := 0; d < dims; d++ {
		thresholds := candidateThresholds(features, idx, d)
		for _, th := range thresholds {
			var left, right []int
			for _, i := range idx {
				if features[i][d] <= th {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			if len(left) < minLeafSize || len(right) < minLeafSize {
				continue
			}
			_, lv := meanVariance(moods, left)
			_, rv := meanVariance(moods, right)
			score := lv*float64(len(left)) + rv*float64(len(right))
			if score < bestScore {
				bestScore = score
				bestFeature = d
				bestThreshold = th
				bestLeft, bestRight = left, right
			}
		}
	}

	if bestFeature < 0 {
		return &treeNode{leaf: true, value: mean}
	}

	importances[bestFeature] += variance*float64(len(idx)) - bestScore

	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      fitTree(features, moods, bestLeft, depth+1, importances),
		right:     fitTree(features, moods, bestRight, depth+1, importances),
	}
}

// candidateThresholds 相邻唯一值的中点作为候选分裂阈值
func candidateThresholds(features [][]float64, idx []int, d int) []float64 {
	vals := make([]float64, 0, len(idx))
	seen := map[float64]bool{}
	for _, i := range idx {
		v := features[i][d]
		if !seen[v] {
			seen[v] = true
			vals = append(vals, v)
		}
	}
	if len(vals) < 2 {
		return nil
	}
	sort.Float64s(vals)
	out := make([]float64, 0, len(vals)-1)
	for i := 1; i < len(vals); i++ {
		out = append(out, (vals[i-1]+vals[i])/2)
	}
	return out
}

func meanVariance(y []float64, idx []int) (mean, variance float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	for _, i := range idx {
		mean += y[i]
	}
	mean /= float64(len(idx))
	for _, i := range idx {
		d := y[i] - mean
		variance += d * d
	}
	variance /= float64(len(idx))
	return mean, variance
}

// pearson 两列数据的 Pearson 相关系数，方差为零时返回 0
func pearson(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}
