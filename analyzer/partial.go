package analyzer

import (
	"github.com/steosofficial/steoslattice/lattice"
)

// filterNode оставляет из кандидатов позиции pos только совместимые с ограничениями:
// узел не пересекает ближайшую жесткую границу (strong), не заканчивается внутри
// навязанного слова и подходит под навязанные признаки. Неизвестные слова,
// заходящие за strong, укорачиваются. Если не остается ничего, строятся
// неизвестные слова до ближайшей допустимой позиции (weak), а в крайнем случае
// узел с навязанными признаками. Результат никогда не пуст.
func (s *snapshot) filterNode(l *lattice.Lattice, head lattice.NodeID, pos int) lattice.NodeID {
	strong, weak := l.NextBoundaries(pos)
	feature := l.FeatureConstraint(pos)

	if result := filterCandidates(l, head, pos, strong, feature); result != lattice.NilNode {
		return result
	}

	unk := s.unknownNodes(l, pos, weak)
	if result := filterCandidates(l, unk, pos, strong, feature); result != lattice.NilNode {
		return result
	}

	tok := &s.unkTokens[s.defaultType][0]
	n := l.NewNode()
	setToken(n, s.unk, tok)
	switch {
	case feature != "" && feature != "*":
		n.Feature = feature
	case s.unkFeature != "":
		n.Feature = s.unkFeature
	}
	n.WCost = 0
	n.Begin = pos
	n.Length = weak - pos
	n.RLength = weak - pos
	n.Stat = lattice.UnknownNode
	n.CharType = s.defaultType
	return n.ID
}

// filterCandidates перестраивает цепочку BNext, выбрасывая неподходящие узлы.
func filterCandidates(l *lattice.Lattice, head lattice.NodeID, pos, strong int, feature string) lattice.NodeID {
	result, prev := lattice.NilNode, lattice.NilNode
	for id := head; id != lattice.NilNode; id = l.Node(id).BNext {
		n := l.Node(id)
		if n.Stat == lattice.UnknownNode && pos+n.RLength > strong {
			diff := pos + n.RLength - strong
			n.RLength -= diff
			n.Length -= diff
		}
		if n.Length <= 0 || pos+n.RLength > strong {
			continue
		}
		if l.BoundaryConstraint(pos+n.RLength) == lattice.InsideToken {
			continue
		}
		if feature != "" && feature != "*" && !partialMatch(feature, n.Feature) {
			continue
		}
		if prev == lattice.NilNode {
			result = id
		} else {
			l.Node(prev).BNext = id
		}
		prev = id
	}
	if prev != lattice.NilNode {
		l.Node(prev).BNext = lattice.NilNode
	}
	return result
}

// partialMatch сравнивает признаки поле за полем по общей длине.
// Поле "*" в pattern совпадает с любым значением.
func partialMatch(pattern, feature string) bool {
	p, f := splitFeature(pattern), splitFeature(feature)
	for i := range min(len(p), len(f)) {
		if p[i] != "*" && p[i] != f[i] {
			return false
		}
	}
	return true
}
