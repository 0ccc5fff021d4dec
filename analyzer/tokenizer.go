package analyzer

import (
	"github.com/steosofficial/steoslattice/dictionary"
	"github.com/steosofficial/steoslattice/lattice"
)

// lookup строит список кандидатов, начинающихся в позиции pos.
//
// Пробелы перед словом пропускаются и входят в RLength узла. Сначала ищутся
// словарные слова (системный словарь, затем пользовательские). Неизвестные слова
// строятся, если словарных нет или класс первого символа требует их всегда (Invoke):
// одно слово на всю серию однотипных символов (Group, не длиннее maxGrouping
// символов) и "лесенка" длиной 1..Length символов. Если не построилось ничего,
// добавляется неизвестное слово из одного символа. После пробелов до конца
// предложения кандидатов нет.
func (s *snapshot) lookup(l *lattice.Lattice, pos int) lattice.NodeID {
	text := l.Bytes()
	end := len(text)
	if l.HasConstraint() {
		end, _ = l.NextBoundaries(pos)
	}

	skip, cinfo, mblen, _ := s.chars.SeekToOtherType(text[pos:end], s.space)
	begin := pos + skip
	if begin >= end {
		return lattice.NilNode
	}

	result := lattice.NilNode
	for _, d := range s.dics {
		d.CommonPrefixSearch(text[begin:end], func(r dictionary.Result) {
			tokens := d.Tokens(r)
			for i := range tokens {
				n := l.NewNode()
				setToken(n, d, &tokens[i])
				n.Begin = begin
				n.Length = r.Length
				n.RLength = begin - pos + r.Length
				n.Stat = lattice.NormalNode
				n.CharType = cinfo.DefaultType
				n.BNext = result
				result = n.ID
			}
		})
	}
	if result != lattice.NilNode && !cinfo.Invoke {
		return result
	}

	first := begin + mblen
	// Конец узла-группы, если он построен: "лесенка" его не повторяет.
	groupEnd := -1
	if cinfo.Group {
		n, _, _, clen := s.chars.SeekToOtherType(text[first:end], cinfo)
		if clen+1 <= s.maxGrouping {
			groupEnd = first + n
			result = s.addUnknown(l, result, pos, begin, groupEnd, cinfo)
		}
	}

	e := first
	for i := 1; i <= int(cinfo.Length); i++ {
		if e != groupEnd {
			result = s.addUnknown(l, result, pos, begin, e, cinfo)
		}
		if e >= end {
			break
		}
		info, size := s.chars.CharInfo(text[e:end])
		if !cinfo.IsKindOf(info) {
			break
		}
		e += size
	}

	if result == lattice.NilNode {
		result = s.addUnknown(l, result, pos, begin, first, cinfo)
	}
	return result
}

// addUnknown добавляет в голову списка head по узлу на каждую запись unk.dic
// для класса cinfo. Узел покрывает [begin, stop), а с пробелами - [pos, stop).
func (s *snapshot) addUnknown(l *lattice.Lattice, head lattice.NodeID, pos, begin, stop int, cinfo dictionary.CharInfo) lattice.NodeID {
	tokens := s.unkTokens[cinfo.DefaultType]
	for i := range tokens {
		n := l.NewNode()
		setToken(n, s.unk, &tokens[i])
		if s.unkFeature != "" {
			n.Feature = s.unkFeature
		}
		n.Begin = begin
		n.Length = stop - begin
		n.RLength = stop - pos
		n.Stat = lattice.UnknownNode
		n.CharType = cinfo.DefaultType
		n.BNext = head
		head = n.ID
	}
	return head
}

// unknownNodes строит неизвестные слова ровно на отрезке [pos, stop) без пропуска пробелов.
func (s *snapshot) unknownNodes(l *lattice.Lattice, pos, stop int) lattice.NodeID {
	cinfo, _ := s.chars.CharInfo(l.Bytes()[pos:stop])
	return s.addUnknown(l, lattice.NilNode, pos, pos, stop, cinfo)
}

func setToken(n *lattice.Node, d *dictionary.Dictionary, t *dictionary.Token) {
	n.LcAttr = t.LcAttr
	n.RcAttr = t.RcAttr
	n.PosID = t.PosID
	n.WCost = t.WCost
	n.Feature = d.Feature(t)
}

// newBoundaryNode создает BOS или EOS в позиции pos.
func (s *snapshot) newBoundaryNode(l *lattice.Lattice, pos int, stat lattice.Stat) *lattice.Node {
	n := l.NewNode()
	n.Stat = stat
	n.Begin = pos
	n.Feature = s.bosFeature
	return n
}
