// Package lattice содержит решетку разбора одного предложения: узлы-кандидаты,
// ребра между ними, ограничения частичного разбора и результаты декодирования
// (лучший путь, N-best, маргинальные вероятности).
//
// Решетка не потокобезопасна: одна решетка - одна горутина. Все узлы и ребра
// живут в арене решетки и действительны только до следующего разбора.
package lattice

import (
	"errors"
)

// --- РЕЖИМЫ ЗАПРОСА ---

// Request - битовая маска режимов разбора.
type Request uint32

const (
	OneBest          Request = 1
	NBest            Request = 2
	Partial          Request = 4
	MarginalProb     Request = 8
	Alternative      Request = 16
	AllMorphs        Request = 32
	AllocateSentence Request = 64
)

// DefaultTheta - температура прямого-обратного прохода по умолчанию.
const DefaultTheta = 0.75

// --- ОШИБКИ ---

var (
	// ErrNoSentence - разбор вызван до SetSentence.
	ErrNoSentence = errors.New("предложение не задано")
	// ErrTooLongSentence - решетка не связна или предложение слишком длинное.
	ErrTooLongSentence = errors.New("слишком длинное предложение")
	// ErrMalformedPartial - неверная разметка в режиме частичного разбора.
	ErrMalformedPartial = errors.New("неверная разметка частичного разбора")
	// ErrNotAvailable - результата нет: разбор не выполнялся или завершился ошибкой.
	ErrNotAvailable = errors.New("результат разбора недоступен")
)

// --- РЕШЕТКА ---

// Lattice - решетка разбора одного предложения.
type Lattice struct {
	sentence    []byte
	hasSentence bool
	annotated   bool

	request Request
	theta   float64
	z       float64

	// Индекс - байтовое смещение, размер len(sentence)+1.
	beginNodes []NodeID
	endNodes   []NodeID
	bos, eos   NodeID

	nodes chunkList[Node]
	paths chunkList[Path]

	boundary []Boundary
	features []string

	available bool
	err       error
	nbest     nbestGenerator

	release func()
}

// New создает пустую решетку в режиме OneBest.
func New() *Lattice {
	return &Lattice{
		request: OneBest,
		theta:   DefaultTheta,
		bos:     NilNode,
		eos:     NilNode,
		nodes:   newChunkList[Node](nodeChunkSize),
		paths:   newChunkList[Path](pathChunkSize),
	}
}

// SetSentence задает новое предложение. Сбрасывает результаты и ограничения
// предыдущего разбора. Строка копируется.
func (l *Lattice) SetSentence(s string) {
	l.Clear()
	l.sentence = append(l.sentence[:0], s...)
	l.hasSentence = true
}

// Clear сбрасывает решетку в начальное состояние, сохраняя режим запроса и theta.
// Отпускает модель, удерживаемую с последнего разбора.
func (l *Lattice) Clear() {
	l.Prepare()
	l.sentence = l.sentence[:0]
	l.hasSentence = false
	l.annotated = false
	l.boundary = nil
	l.features = nil
	l.Hold(nil)
}

// Prepare очищает арену и списки узлов перед разбором текущего предложения.
// Предложение и ограничения сохраняются.
func (l *Lattice) Prepare() {
	l.nodes.reset()
	l.paths.reset()
	n := len(l.sentence) + 1
	l.beginNodes = resetIDs(l.beginNodes, n)
	l.endNodes = resetIDs(l.endNodes, n)
	l.bos, l.eos = NilNode, NilNode
	l.z = 0
	l.available = false
	l.err = nil
	l.nbest.reset()
}

func resetIDs(ids []NodeID, n int) []NodeID {
	if cap(ids) < n {
		ids = make([]NodeID, n)
	}
	ids = ids[:n]
	for i := range ids {
		ids[i] = NilNode
	}
	return ids
}

// Hold запоминает функцию освобождения ресурсов, на которые ссылаются узлы
// (например, отображенный в память словарь). Предыдущая функция вызывается сразу.
func (l *Lattice) Hold(release func()) {
	if l.release != nil {
		l.release()
	}
	l.release = release
}

// --- ДОСТУП К ДАННЫМ ---

func (l *Lattice) Sentence() string     { return string(l.sentence) }
func (l *Lattice) Bytes() []byte        { return l.sentence }
func (l *Lattice) Size() int            { return len(l.sentence) }
func (l *Lattice) HasSentence() bool    { return l.hasSentence }
func (l *Lattice) Theta() float64       { return l.theta }
func (l *Lattice) SetTheta(t float64)   { l.theta = t }
func (l *Lattice) Z() float64           { return l.z }
func (l *Lattice) SetZ(z float64)       { l.z = z }
func (l *Lattice) Request() Request     { return l.request }
func (l *Lattice) SetRequest(r Request) { l.request = r }

func (l *Lattice) AddRequest(r Request)    { l.request |= r }
func (l *Lattice) RemoveRequest(r Request) { l.request &^= r }

// HasRequest сообщает, включены ли все биты r.
func (l *Lattice) HasRequest(r Request) bool { return l.request&r == r }

// BeginNodes возвращает головы списков узлов по позиции начала.
// Срез принадлежит решетке и изменяется декодером.
func (l *Lattice) BeginNodes() []NodeID { return l.beginNodes }

// EndNodes возвращает головы списков узлов по позиции конца.
func (l *Lattice) EndNodes() []NodeID { return l.endNodes }

func (l *Lattice) BOS() NodeID { return l.bos }
func (l *Lattice) EOS() NodeID { return l.eos }

func (l *Lattice) SetBOS(id NodeID) { l.bos = id }
func (l *Lattice) SetEOS(id NodeID) { l.eos = id }

// NewNode выделяет узел в арене. Все ссылки узла пустые.
func (l *Lattice) NewNode() *Node {
	n, idx := l.nodes.alloc()
	n.ID = NodeID(idx)
	n.Prev, n.Next, n.ENext, n.BNext = NilNode, NilNode, NilNode, NilNode
	n.LPath, n.RPath = NilPath, NilPath
	return n
}

// NewPath выделяет ребро в арене.
func (l *Lattice) NewPath() *Path {
	p, idx := l.paths.alloc()
	p.ID = PathID(idx)
	p.LNode, p.RNode = NilNode, NilNode
	p.LNext, p.RNext = NilPath, NilPath
	return p
}

// Node возвращает узел по индексу.
func (l *Lattice) Node(id NodeID) *Node { return l.nodes.at(int32(id)) }

// Path возвращает ребро по индексу.
func (l *Lattice) Path(id PathID) *Path { return l.paths.at(int32(id)) }

func (l *Lattice) NodeCount() int { return l.nodes.len() }
func (l *Lattice) PathCount() int { return l.paths.len() }

// Surface возвращает поверхностную форму узла.
func (l *Lattice) Surface(id NodeID) string {
	n := l.Node(id)
	if n.Begin < 0 || n.Begin+n.Length > len(l.sentence) {
		return ""
	}
	return string(l.sentence[n.Begin : n.Begin+n.Length])
}

// --- СОСТОЯНИЕ РЕЗУЛЬТАТА ---

// Finish фиксирует итог разбора. При err != nil результат недоступен.
func (l *Lattice) Finish(err error) {
	l.err = err
	l.available = err == nil
}

// IsAvailable сообщает, есть ли у решетки результат последнего разбора.
func (l *Lattice) IsAvailable() bool { return l.available }

// Err возвращает причину неудачи последнего разбора.
func (l *Lattice) Err() error { return l.err }

// What возвращает текст ошибки последнего разбора или пустую строку.
func (l *Lattice) What() string {
	if l.err == nil {
		return ""
	}
	return l.err.Error()
}

func (l *Lattice) resultErr() error {
	if l.available {
		return nil
	}
	if l.err != nil {
		return l.err
	}
	return ErrNotAvailable
}
