package lattice

import (
	"fmt"
	"strconv"
	"strings"
)

// BestPath возвращает узлы текущего пути без BOS и EOS: лучшего, а после Next
// очередного из N-best. В режиме AllMorphs до первого Next ссылки Next проходят
// по всем узлам, поэтому лучший путь собирается по флагу IsBest.
func (l *Lattice) BestPath() []NodeID {
	if !l.available {
		return nil
	}
	byFlag := l.HasRequest(AllMorphs) && !l.nbest.advanced
	var out []NodeID
	l.walk(func(id NodeID, n *Node) {
		if !byFlag || n.IsBest {
			out = append(out, id)
		}
	})
	return out
}

// walk обходит цепочку Next от BOS до EOS, пропуская сами BOS и EOS.
func (l *Lattice) walk(fn func(NodeID, *Node)) {
	if l.bos == NilNode {
		return
	}
	for id := l.Node(l.bos).Next; id != NilNode; {
		n := l.Node(id)
		if n.Stat == EOSNode {
			return
		}
		if n.Stat != BOSNode {
			fn(id, n)
		}
		id = n.Next
	}
}

func (l *Lattice) writeNode(sb *strings.Builder, id NodeID, n *Node) {
	sb.WriteString(l.Surface(id))
	sb.WriteByte('\t')
	sb.WriteString(n.Feature)
	sb.WriteByte('\t')
	sb.WriteString(strconv.Itoa(int(n.WCost)))
	sb.WriteByte('\n')
}

// String возвращает результат в текстовом виде: строка "поверхность\tпризнаки\tстоимость"
// на каждое слово и "EOS" в конце. В режиме AllMorphs выводятся все узлы решетки.
// Если результата нет, возвращается пустая строка.
func (l *Lattice) String() string {
	if !l.available {
		return ""
	}
	var sb strings.Builder
	l.walk(func(id NodeID, n *Node) { l.writeNode(&sb, id, n) })
	sb.WriteString("EOS\n")
	return sb.String()
}

// NBestString перезапускает перебор и выводит до n лучших путей подряд,
// каждый со своим "EOS".
func (l *Lattice) NBestString(n int) (string, error) {
	if err := l.resultErr(); err != nil {
		return "", err
	}
	if !l.HasRequest(NBest) {
		return "", fmt.Errorf("решетка разобрана без режима NBest")
	}
	if n <= 0 || n > NBestMax {
		return "", fmt.Errorf("неверное число путей %d (допустимо 1..%d)", n, NBestMax)
	}
	l.InitNBest()
	var sb strings.Builder
	for i := 0; i < n && l.Next(); i++ {
		l.walk(func(id NodeID, node *Node) { l.writeNode(&sb, id, node) })
		sb.WriteString("EOS\n")
	}
	return sb.String(), nil
}
