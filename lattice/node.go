package lattice

import "fmt"

// NodeID - индекс узла в арене решетки.
type NodeID int32

// PathID - индекс ребра в арене решетки.
type PathID int32

const (
	NilNode NodeID = -1
	NilPath PathID = -1
)

// Stat - вид узла.
type Stat uint8

const (
	NormalNode  Stat = 0 // Словарное слово.
	UnknownNode Stat = 1 // Неизвестное слово, построенное по классу символов.
	BOSNode     Stat = 2 // Начало предложения.
	EOSNode     Stat = 3 // Конец предложения.
	EONNode     Stat = 4 // Конец N-best перечисления.
)

func (s Stat) String() string {
	switch s {
	case NormalNode:
		return "NOR"
	case UnknownNode:
		return "UNK"
	case BOSNode:
		return "BOS"
	case EOSNode:
		return "EOS"
	case EONNode:
		return "EON"
	default:
		return fmt.Sprintf("stat(%d)", uint8(s))
	}
}

// Node - кандидат-морфема в решетке. Все ссылки - индексы в арене той же решетки.
type Node struct {
	ID NodeID

	Prev  NodeID // Предыдущий узел лучшего (или текущего N-best) пути.
	Next  NodeID // Следующий узел лучшего (или текущего N-best) пути.
	ENext NodeID // Следующий узел, оканчивающийся в той же позиции.
	BNext NodeID // Следующий узел, начинающийся в той же позиции.
	LPath PathID // Первое ребро слева (ребра связаны через Path.LNext).
	RPath PathID // Первое ребро справа (ребра связаны через Path.RNext).

	Begin   int // Смещение поверхностной формы в байтах (после пропущенных пробелов).
	Length  int // Длина поверхностной формы в байтах.
	RLength int // Длина вместе с пропущенными перед словом пробелами.

	Feature  string
	LcAttr   uint16
	RcAttr   uint16
	PosID    uint16
	CharType uint8
	Stat     Stat
	IsBest   bool

	Alpha float64 // Логарифм прямого потенциала.
	Beta  float64 // Логарифм обратного потенциала.
	Prob  float64 // Маргинальная вероятность.

	WCost int16 // Стоимость слова.
	Cost  int64 // Накопленная стоимость лучшего пути от BOS до узла включительно.
}

// Start возвращает позицию в решетке, с которой узел начинается (включая пробелы).
func (n *Node) Start() int { return n.Begin + n.Length - n.RLength }

// End возвращает позицию, в которой узел заканчивается.
func (n *Node) End() int { return n.Begin + n.Length }

// Path - ребро между двумя соседними узлами.
type Path struct {
	ID PathID

	LNode NodeID
	RNode NodeID
	LNext PathID // Следующее ребро с тем же правым узлом.
	RNext PathID // Следующее ребро с тем же левым узлом.

	Cost int64 // Стоимость перехода плюс стоимость правого слова.
	Prob float64
}
