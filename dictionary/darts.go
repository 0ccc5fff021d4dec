package dictionary

import (
	"errors"
	"unsafe"
)

// unit - ячейка двойного массива: base и check, 8 байт.
// Переход из состояния b по байту c: p = b + c + 1, переход есть, если check[p] == b.
// Конец ключа кодируется переходом с кодом 0, а в base такой ячейки лежит -value-1.
type unit struct {
	Base  int32
	Check uint32
}

const unitSize = int(unsafe.Sizeof(unit{}))

type doubleArray struct {
	units []unit
}

func (da *doubleArray) commonPrefixSearch(key []byte, fn func(value int32, length int)) {
	units := da.units
	if len(units) == 0 {
		return
	}
	b := units[0].Base
	for i := 0; i < len(key); i++ {
		if p := int(b); p >= 0 && p < len(units) {
			if n := units[p].Base; units[p].Check == uint32(b) && n < 0 {
				fn(-n-1, i)
			}
		}
		p := int(b) + int(key[i]) + 1
		if p < 0 || p >= len(units) || units[p].Check != uint32(b) {
			return
		}
		b = units[p].Base
	}
	if p := int(b); p >= 0 && p < len(units) {
		if n := units[p].Base; units[p].Check == uint32(b) && n < 0 {
			fn(-n-1, len(key))
		}
	}
}

func (da *doubleArray) exactMatchSearch(key []byte) (int32, bool) {
	units := da.units
	if len(units) == 0 {
		return 0, false
	}
	b := units[0].Base
	for i := 0; i < len(key); i++ {
		p := int(b) + int(key[i]) + 1
		if p < 0 || p >= len(units) || units[p].Check != uint32(b) {
			return 0, false
		}
		b = units[p].Base
	}
	p := int(b)
	if p < 0 || p >= len(units) {
		return 0, false
	}
	if n := units[p].Base; units[p].Check == uint32(b) && n < 0 {
		return -n - 1, true
	}
	return 0, false
}

// --- ПОСТРОЕНИЕ ---

var errUnsortedKeys = errors.New("ключи двойного массива не отсортированы")

// dartsNode - узел при построении: код перехода, глубина
// и полуинтервал ключей [left, right), проходящих через узел.
type dartsNode struct {
	code        int
	depth       int
	left, right int
}

type dartsBuilder struct {
	keys         [][]byte
	values       []int32
	units        []unit
	used         []bool
	size         int
	nextCheckPos int
}

// buildDoubleArray строит двойной массив по отсортированным уникальным ключам.
func buildDoubleArray(keys [][]byte, values []int32) ([]unit, error) {
	b := &dartsBuilder{keys: keys, values: values}
	b.resize(8192)
	b.units[0].Base = 1
	if len(keys) == 0 {
		return b.units[:2], nil
	}

	root := dartsNode{left: 0, right: len(keys), depth: 0}
	siblings, err := b.fetch(root)
	if err != nil {
		return nil, err
	}
	begin, err := b.insert(siblings)
	if err != nil {
		return nil, err
	}
	b.units[0].Base = int32(begin)

	// Отрезаем неиспользованный хвост, но оставляем запас на переход по любому байту,
	// чтобы поиск не выходил за границы на коротких массивах.
	size := b.size + 256
	if size > len(b.units) {
		b.resize(size)
	}
	return b.units[:size], nil
}

func (b *dartsBuilder) resize(n int) {
	if n <= len(b.units) {
		return
	}
	units := make([]unit, n)
	copy(units, b.units)
	used := make([]bool, n)
	copy(used, b.used)
	b.units = units
	b.used = used
}

func (b *dartsBuilder) fetch(parent dartsNode) ([]dartsNode, error) {
	var siblings []dartsNode
	prev := 0
	for i := parent.left; i < parent.right; i++ {
		key := b.keys[i]
		if len(key) < parent.depth {
			continue
		}
		cur := 0
		if len(key) != parent.depth {
			cur = int(key[parent.depth]) + 1
		}
		if prev > cur {
			return nil, errUnsortedKeys
		}
		if cur != prev || len(siblings) == 0 {
			if len(siblings) != 0 {
				siblings[len(siblings)-1].right = i
			}
			siblings = append(siblings, dartsNode{code: cur, depth: parent.depth + 1, left: i})
		}
		prev = cur
	}
	if len(siblings) != 0 {
		siblings[len(siblings)-1].right = parent.right
	}
	return siblings, nil
}

func (b *dartsBuilder) insert(siblings []dartsNode) (int, error) {
	first := siblings[0].code
	last := siblings[len(siblings)-1].code

	pos := max(first+1, b.nextCheckPos) - 1
	nonzero := 0
	found := false
	begin := 0

next:
	for {
		pos++
		b.resize(pos + 1)
		if b.units[pos].Check != 0 {
			nonzero++
			continue
		}
		if !found {
			b.nextCheckPos = pos
			found = true
		}

		begin = pos - first
		if len(b.units) <= begin+last {
			b.resize((begin + last + 1) * 105 / 100)
		}
		if b.used[begin] {
			continue
		}
		for _, s := range siblings[1:] {
			if b.units[begin+s.code].Check != 0 {
				continue next
			}
		}
		break
	}

	if float64(nonzero)/float64(pos-b.nextCheckPos+1) >= 0.95 {
		b.nextCheckPos = pos
	}

	b.used[begin] = true
	b.size = max(b.size, begin+last+1)

	for _, s := range siblings {
		b.units[begin+s.code].Check = uint32(begin)
	}

	for _, s := range siblings {
		children, err := b.fetch(s)
		if err != nil {
			return 0, err
		}
		if len(children) == 0 {
			b.units[begin+s.code].Base = -b.values[s.left] - 1
			continue
		}
		h, err := b.insert(children)
		if err != nil {
			return 0, err
		}
		b.units[begin+s.code].Base = int32(h)
	}
	return begin, nil
}
