package analyzer

import (
	"fmt"

	"github.com/steosofficial/steoslattice/lattice"
)

// analyze строит решетку предложения и декодирует ее в режимах, заданных запросом
// решетки. Результат публикуется вызывающим (Lattice.Finish) только при успехе.
func (s *snapshot) analyze(l *lattice.Lattice) error {
	if !l.HasSentence() {
		return lattice.ErrNoSentence
	}

	if l.HasRequest(lattice.Partial) {
		if err := l.ApplyAnnotation(); err != nil {
			return err
		}
	} else if l.HasConstraint() {
		l.SetBoundaryConstraint(0, lattice.TokenBoundary)
		l.SetBoundaryConstraint(l.Size(), lattice.TokenBoundary)
	}

	if l.Size() > s.maxSentenceSize {
		return fmt.Errorf("%w: %d байт (допустимо %d)", lattice.ErrTooLongSentence, l.Size(), s.maxSentenceSize)
	}

	l.Prepare()

	allPaths := l.HasRequest(lattice.NBest) || l.HasRequest(lattice.MarginalProb)
	if err := s.viterbi(l, allPaths); err != nil {
		return err
	}
	if l.HasRequest(lattice.MarginalProb) {
		forwardBackward(l)
	}
	buildBestLattice(l)
	if l.HasRequest(lattice.AllMorphs) {
		buildAllLattice(l)
	}
	if l.HasRequest(lattice.NBest) {
		l.InitNBest()
	}
	return nil
}

// --- ДИНАМИКА ---

// viterbi проходит позиции слева направо. В каждой позиции, где заканчивается
// хотя бы один узел, строятся кандидаты и соединяются с узлами, оканчивающимися
// в ней. При allPaths сохраняются все ребра (нужны для N-best и вероятностей).
func (s *snapshot) viterbi(l *lattice.Lattice, allPaths bool) error {
	size := l.Size()
	begins, ends := l.BeginNodes(), l.EndNodes()
	constrained := l.HasConstraint()

	bos := s.newBoundaryNode(l, 0, lattice.BOSNode)
	l.SetBOS(bos.ID)
	ends[0] = bos.ID

	for pos := 0; pos < size; pos++ {
		if ends[pos] == lattice.NilNode {
			continue
		}
		right := s.lookup(l, pos)
		if constrained {
			right = s.filterNode(l, right, pos)
		}
		begins[pos] = right
		if !s.connect(l, pos, right, allPaths) {
			return fmt.Errorf("%w: нет соединения в позиции %d", lattice.ErrTooLongSentence, pos)
		}
	}

	// EOS присоединяется в последней позиции, где что-то заканчивается:
	// пробелы в конце предложения входят в его RLength.
	eos := s.newBoundaryNode(l, size, lattice.EOSNode)
	l.SetEOS(eos.ID)
	for pos := size; pos >= 0; pos-- {
		if ends[pos] == lattice.NilNode {
			continue
		}
		eos.RLength = size - pos
		if !s.connect(l, pos, eos.ID, allPaths) {
			return fmt.Errorf("%w: нет соединения с концом предложения", lattice.ErrTooLongSentence)
		}
		break
	}

	ends[0] = bos.ID
	begins[size] = eos.ID
	return nil
}

// connect находит для каждого узла списка right лучшего левого соседа среди
// узлов, оканчивающихся в pos, и добавляет узел в список концов. При равной
// стоимости выигрывает сосед, встреченный первым. Возвращает false, если
// левых соседей нет.
func (s *snapshot) connect(l *lattice.Lattice, pos int, right lattice.NodeID, allPaths bool) bool {
	ends := l.EndNodes()
	for rid := right; rid != lattice.NilNode; {
		rnode := l.Node(rid)
		best := lattice.NilNode
		var bestCost int64

		for lid := ends[pos]; lid != lattice.NilNode; {
			lnode := l.Node(lid)
			local := int64(s.matrix.Cost(lnode.RcAttr, rnode.LcAttr)) + int64(rnode.WCost)
			cost := lnode.Cost + local
			if best == lattice.NilNode || cost < bestCost {
				best, bestCost = lid, cost
			}
			if allPaths {
				p := l.NewPath()
				p.Cost = local
				p.LNode, p.RNode = lid, rid
				p.LNext, rnode.LPath = rnode.LPath, p.ID
				p.RNext, lnode.RPath = lnode.RPath, p.ID
			}
			lid = lnode.ENext
		}
		if best == lattice.NilNode {
			return false
		}

		rnode.Prev = best
		rnode.Next = lattice.NilNode
		rnode.Cost = bestCost
		x := pos + rnode.RLength
		rnode.ENext = ends[x]
		ends[x] = rid
		rid = rnode.BNext
	}
	return true
}

// --- РЕЗУЛЬТАТЫ ---

// buildBestLattice разворачивает цепочку Prev от EOS в цепочку Next и помечает лучший путь.
func buildBestLattice(l *lattice.Lattice) {
	id := l.EOS()
	for {
		n := l.Node(id)
		if n.Prev == lattice.NilNode {
			return
		}
		n.IsBest = true
		l.Node(n.Prev).Next = id
		id = n.Prev
	}
}

// buildAllLattice связывает через Prev/Next все узлы решетки по позициям начала:
// BOS, затем кандидаты каждой позиции, EOS последним.
func buildAllLattice(l *lattice.Lattice) {
	prev := l.BOS()
	for _, head := range l.BeginNodes() {
		for id := head; id != lattice.NilNode; id = l.Node(id).BNext {
			l.Node(prev).Next = id
			l.Node(id).Prev = prev
			prev = id
		}
	}
}
