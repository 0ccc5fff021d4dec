package analyzer

import (
	"math"

	"github.com/steosofficial/steoslattice/lattice"
)

// minusLogEpsilon - разница логарифмов, начиная с которой меньшим слагаемым пренебрегают.
const minusLogEpsilon = 50.0

// logSumExp возвращает log(exp(x) + exp(y)) без переполнения.
func logSumExp(x, y float64) float64 {
	vmin, vmax := min(x, y), max(x, y)
	if math.IsInf(vmax, -1) {
		return vmax
	}
	if vmax > vmin+minusLogEpsilon {
		return vmax
	}
	return vmax + math.Log(math.Exp(vmin-vmax)+1.0)
}

// forwardBackward считает прямые и обратные потенциалы в логарифмах, статсумму Z
// (альфа EOS) и маргинальные вероятности узлов и ребер при температуре theta.
// Узел без ребер с нужной стороны получает -Inf.
func forwardBackward(l *lattice.Lattice) {
	theta := l.Theta()
	begins, ends := l.BeginNodes(), l.EndNodes()
	size := l.Size()

	l.Node(l.BOS()).Alpha = 0
	for pos := 0; pos <= size; pos++ {
		for id := begins[pos]; id != lattice.NilNode; {
			n := l.Node(id)
			n.Alpha = math.Inf(-1)
			for p := n.LPath; p != lattice.NilPath; {
				path := l.Path(p)
				n.Alpha = logSumExp(n.Alpha, -theta*float64(path.Cost)+l.Node(path.LNode).Alpha)
				p = path.LNext
			}
			id = n.BNext
		}
	}

	l.Node(l.EOS()).Beta = 0
	for pos := size; pos >= 0; pos-- {
		for id := ends[pos]; id != lattice.NilNode; {
			n := l.Node(id)
			if n.Stat != lattice.EOSNode {
				n.Beta = math.Inf(-1)
				for p := n.RPath; p != lattice.NilPath; {
					path := l.Path(p)
					n.Beta = logSumExp(n.Beta, -theta*float64(path.Cost)+l.Node(path.RNode).Beta)
					p = path.RNext
				}
			}
			id = n.ENext
		}
	}

	z := l.Node(l.EOS()).Alpha
	l.SetZ(z)

	bos := l.Node(l.BOS())
	bos.Prob = math.Exp(bos.Alpha + bos.Beta - z)
	for pos := 0; pos <= size; pos++ {
		for id := begins[pos]; id != lattice.NilNode; {
			n := l.Node(id)
			n.Prob = math.Exp(n.Alpha + n.Beta - z)
			for p := n.LPath; p != lattice.NilPath; {
				path := l.Path(p)
				path.Prob = math.Exp(l.Node(path.LNode).Alpha - theta*float64(path.Cost) + n.Beta - z)
				p = path.LNext
			}
			id = n.BNext
		}
	}
}
