package lattice

import (
	"fmt"
	"strings"
)

// ApplyAnnotation разбирает разметку частичного разбора и заменяет ею предложение.
//
// Каждая строка разметки - "поверхность" или "поверхность\tпризнаки", строка "EOS"
// завершает разметку. Предложение заменяется склейкой поверхностей, на краях
// каждого слова ставится TokenBoundary, а слово с признаками дополнительно
// получает ограничение по признакам. Повторный вызов для того же предложения
// ничего не делает.
func (l *Lattice) ApplyAnnotation() error {
	if l.annotated {
		return nil
	}

	type token struct {
		surface, feature string
	}
	var tokens []token
	var sb strings.Builder

	lines := strings.Split(string(l.sentence), "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "EOS" {
			break
		}
		surface, feature, hasFeature := strings.Cut(line, "\t")
		if hasFeature && (surface == "" || feature == "") {
			return fmt.Errorf("%w: строка %d: %q", ErrMalformedPartial, i+1, line)
		}
		if surface == "" {
			continue
		}
		tokens = append(tokens, token{surface: surface, feature: feature})
		sb.WriteString(surface)
	}

	l.sentence = append(l.sentence[:0], sb.String()...)
	l.boundary = nil
	l.features = nil
	l.annotated = true

	pos := 0
	for _, t := range tokens {
		end := pos + len(t.surface)
		l.SetBoundaryConstraint(pos, TokenBoundary)
		l.SetBoundaryConstraint(end, TokenBoundary)
		if t.feature != "" {
			l.SetFeatureConstraint(pos, end, t.feature)
		}
		pos = end
	}
	return nil
}
