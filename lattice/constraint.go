package lattice

// Boundary - ограничение на границу слова в байтовой позиции.
type Boundary uint8

const (
	AnyBoundary   Boundary = 0 // Ограничения нет.
	TokenBoundary Boundary = 1 // Ни один узел не может пересекать позицию.
	InsideToken   Boundary = 2 // Ни один узел не может заканчиваться в позиции.
)

// SetBoundaryConstraint задает ограничение на границу в позиции pos (0..Size()).
func (l *Lattice) SetBoundaryConstraint(pos int, b Boundary) {
	if pos < 0 || pos > len(l.sentence) {
		return
	}
	if l.boundary == nil {
		l.boundary = make([]Boundary, len(l.sentence)+1)
	}
	l.boundary[pos] = b
}

// BoundaryConstraint возвращает ограничение в позиции pos.
func (l *Lattice) BoundaryConstraint(pos int) Boundary {
	if pos < 0 || pos >= len(l.boundary) {
		return AnyBoundary
	}
	return l.boundary[pos]
}

// SetFeatureConstraint требует, чтобы отрезок [begin, end) был одним словом
// с признаками, совместимыми с feature. "*" в поле признака совпадает с чем угодно.
func (l *Lattice) SetFeatureConstraint(begin, end int, feature string) {
	end = min(end, len(l.sentence))
	if begin < 0 || begin >= end || feature == "" {
		return
	}
	if l.features == nil {
		l.features = make([]string, len(l.sentence)+1)
	}
	l.SetBoundaryConstraint(begin, TokenBoundary)
	l.SetBoundaryConstraint(end, TokenBoundary)
	for i := begin + 1; i < end; i++ {
		l.SetBoundaryConstraint(i, InsideToken)
	}
	l.features[begin] = feature
}

// FeatureConstraint возвращает признаки, навязанные слову, начинающемуся в pos.
func (l *Lattice) FeatureConstraint(pos int) string {
	if pos < 0 || pos >= len(l.features) {
		return ""
	}
	return l.features[pos]
}

// HasConstraint сообщает, задано ли хотя бы одно ограничение.
func (l *Lattice) HasConstraint() bool { return l.boundary != nil }

// NextBoundaries возвращает ближайшую после pos позицию TokenBoundary (strong)
// и ближайшую после pos позицию, не помеченную InsideToken (weak).
// Если ограничений нет, обе равны Size().
func (l *Lattice) NextBoundaries(pos int) (strong, weak int) {
	size := len(l.sentence)
	strong, weak = size, size
	weakFound := false
	for i := pos + 1; i <= size; i++ {
		b := l.BoundaryConstraint(i)
		if !weakFound && b != InsideToken {
			weak = i
			weakFound = true
		}
		if b == TokenBoundary {
			strong = i
			break
		}
	}
	return strong, weak
}
