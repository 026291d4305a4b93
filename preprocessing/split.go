package preprocessing

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TrainTestSplit は 0..n-1 の行インデックスを訓練用とテスト用に分割する
//
// seed で初期化した PCG による順列を作り、先頭 ceil(testSize*n) 件をテスト、
// 残りを訓練に割り当てる。同じ n, testSize, seed なら常に同じ分割になる。
// どちらかが空になる場合は DataError を返す。
func TrainTestSplit(n int, testSize float64, seed uint64) (trainIdx, testIdx []int, err error) {
	if testSize <= 0 || testSize >= 1 || math.IsNaN(testSize) {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	if n <= 0 {
		return nil, nil, errors.NewDataError("split", errors.ErrEmptyData.Error())
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest >= n {
		return nil, nil, errors.NewDataError("split",
			"training partition would be empty; need more rows or a smaller test size")
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(n)

	testIdx = append([]int(nil), perm[:nTest]...)
	trainIdx = append([]int(nil), perm[nTest:]...)
	return trainIdx, testIdx, nil
}

// SelectRows は X から idx の行を順に取り出した新しい行列を返す
func SelectRows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, row := range idx {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(row, j))
		}
	}
	return out
}

// SelectElements は y から idx の要素を順に取り出した新しいベクトルを返す
func SelectElements(y mat.Vector, idx []int) *mat.VecDense {
	out := mat.NewVecDense(len(idx), nil)
	for i, row := range idx {
		out.SetVec(i, y.AtVec(row))
	}
	return out
}
