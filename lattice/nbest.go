package lattice

import "container/heap"

// NBestMax - наибольшее число путей, которое можно запросить за один раз.
const NBestMax = 512

// nbestElement - частичный путь от некоторого узла до EOS.
type nbestElement struct {
	node NodeID
	next int32 // Элемент ближе к EOS, -1 у самого EOS.
	gx   int64 // Стоимость от узла до EOS.
	fx   int64 // gx плюс точная стоимость лучшего пути от BOS до узла.
	seq  uint64
	// onBest - элемент целиком лежит на пути Витерби (узлы с IsBest).
	onBest bool
}

// Compile time check to ensure elementQueue satisfies the heap interface.
var _ heap.Interface = (*elementQueue)(nil)

// elementQueue - min-куча индексов элементов по fx. При равных fx раньше
// выходит элемент пути Витерби, затем добавленный раньше.
type elementQueue struct {
	elements *[]nbestElement
	items    []int32
}

func (q *elementQueue) Len() int { return len(q.items) }

func (q *elementQueue) Less(i, j int) bool {
	a, b := &(*q.elements)[q.items[i]], &(*q.elements)[q.items[j]]
	if a.fx != b.fx {
		return a.fx < b.fx
	}
	if a.onBest != b.onBest {
		return a.onBest
	}
	return a.seq < b.seq
}

func (q *elementQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *elementQueue) Push(x any) { q.items = append(q.items, x.(int32)) }

func (q *elementQueue) Pop() any {
	n := len(q.items)
	it := q.items[n-1]
	q.items = q.items[:n-1]
	return it
}

// nbestGenerator перебирает пути решетки в порядке неубывания стоимости (A*).
// Эвристика - стоимость Витерби от BOS до узла, она точна, поэтому первым
// выходит лучший путь, а каждый полный путь выходит ровно один раз.
type nbestGenerator struct {
	elements []nbestElement
	queue    elementQueue
	seq      uint64
	active   bool
	advanced bool // Next уже переписал ссылки хотя бы одного пути.
}

func (g *nbestGenerator) reset() {
	g.elements = g.elements[:0]
	g.queue.items = g.queue.items[:0]
	g.seq = 0
	g.active = false
	g.advanced = false
}

func (g *nbestGenerator) push(e nbestElement) {
	e.seq = g.seq
	g.seq++
	g.elements = append(g.elements, e)
	heap.Push(&g.queue, int32(len(g.elements)-1))
}

// InitNBest (пере)запускает перебор путей от EOS. Вызывается декодером после
// построения решетки со всеми ребрами.
func (l *Lattice) InitNBest() {
	g := &l.nbest
	g.reset()
	g.queue.elements = &g.elements
	if l.eos == NilNode {
		return
	}
	g.active = true
	g.push(nbestElement{node: l.eos, next: -1, fx: l.Node(l.eos).Cost, onBest: true})
}

// Next переходит к следующему по стоимости пути: ссылки Prev/Next узлов
// переписываются вдоль нового пути. Первый вызов дает путь Витерби и при
// равных стоимостях.
// Возвращает false, когда пути кончились или решетка разобрана не в режиме NBest.
func (l *Lattice) Next() bool {
	g := &l.nbest
	if !l.available || !g.active {
		return false
	}
	for g.queue.Len() > 0 {
		top := heap.Pop(&g.queue).(int32)
		e := g.elements[top]
		node := l.Node(e.node)

		if node.Stat == BOSNode {
			for i := top; g.elements[i].next >= 0; i = g.elements[i].next {
				cur, nxt := g.elements[i], g.elements[g.elements[i].next]
				l.Node(cur.node).Next = nxt.node
				l.Node(nxt.node).Prev = cur.node
			}
			g.advanced = true
			return true
		}

		for p := node.LPath; p != NilPath; {
			path := l.Path(p)
			left := l.Node(path.LNode)
			g.push(nbestElement{
				node:   path.LNode,
				next:   top,
				gx:     path.Cost + e.gx,
				fx:     left.Cost + path.Cost + e.gx,
				onBest: e.onBest && (left.IsBest || left.Stat == BOSNode),
			})
			p = path.LNext
		}
	}
	return false
}
