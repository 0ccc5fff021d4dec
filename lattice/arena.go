package lattice

const (
	nodeChunkSize = 512
	pathChunkSize = 2048
)

// chunkList - арена фиксированных блоков. Элементы не перемещаются при росте,
// поэтому указатели, полученные через at, живут до reset.
// reset не освобождает блоки, а переиспользует их в следующем разборе.
type chunkList[T any] struct {
	chunkSize int
	chunks    [][]T
	n         int
}

func newChunkList[T any](chunkSize int) chunkList[T] {
	return chunkList[T]{chunkSize: chunkSize}
}

// alloc возвращает обнуленный элемент и его индекс.
func (c *chunkList[T]) alloc() (*T, int32) {
	i := c.n / c.chunkSize
	if i == len(c.chunks) {
		c.chunks = append(c.chunks, make([]T, c.chunkSize))
	}
	p := &c.chunks[i][c.n%c.chunkSize]
	var zero T
	*p = zero
	idx := int32(c.n)
	c.n++
	return p, idx
}

func (c *chunkList[T]) at(i int32) *T {
	return &c.chunks[int(i)/c.chunkSize][int(i)%c.chunkSize]
}

func (c *chunkList[T]) len() int { return c.n }

func (c *chunkList[T]) reset() { c.n = 0 }
