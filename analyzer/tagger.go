package analyzer

import (
	"context"
	"fmt"

	"github.com/steosofficial/steoslattice/lattice"
)

// Tagger - удобная обертка над моделью и собственной решеткой. Один Tagger
// используется одной горутиной, модель при этом разделяется со всеми остальными.
type Tagger struct {
	model   *Model
	lattice *lattice.Lattice
	request lattice.Request
	theta   float64
}

// NewTagger создает теггер с режимом и theta из настроек модели.
func (m *Model) NewTagger() *Tagger {
	return &Tagger{
		model:   m,
		lattice: lattice.New(),
		request: m.config.Request(),
		theta:   m.config.Theta,
	}
}

func (t *Tagger) Request() lattice.Request     { return t.request }
func (t *Tagger) SetRequest(r lattice.Request) { t.request = r }
func (t *Tagger) Theta() float64               { return t.theta }
func (t *Tagger) SetTheta(theta float64)       { t.theta = theta }

// Lattice возвращает решетку последнего разбора.
func (t *Tagger) Lattice() *lattice.Lattice { return t.lattice }

func (t *Tagger) parse(sentence string, request lattice.Request) error {
	l := t.lattice
	l.SetRequest(request)
	l.SetTheta(t.theta)
	l.SetSentence(sentence)
	return t.model.ParseLattice(l)
}

// ParseLattice разбирает решетку, подготовленную вызывающим (предложение,
// режим и ограничения задаются на самой решетке).
func (t *Tagger) ParseLattice(l *lattice.Lattice) error {
	return t.model.ParseLattice(l)
}

// Parse разбирает предложение и возвращает результат в текстовом виде.
func (t *Tagger) Parse(sentence string) (string, error) {
	if err := t.parse(sentence, t.request); err != nil {
		return "", err
	}
	return t.lattice.String(), nil
}

// ParseToMorphemes разбирает предложение и возвращает слова лучшего пути.
func (t *Tagger) ParseToMorphemes(sentence string) ([]Morpheme, error) {
	if err := t.parse(sentence, t.request); err != nil {
		return nil, err
	}
	return Morphemes(t.lattice), nil
}

// ParseNBest возвращает n лучших разборов подряд, каждый с "EOS" в конце.
func (t *Tagger) ParseNBest(n int, sentence string) (string, error) {
	if n <= 0 || n > lattice.NBestMax {
		return "", fmt.Errorf("неверное число путей %d (допустимо 1..%d)", n, lattice.NBestMax)
	}
	if err := t.parse(sentence, nbestRequest(t.request)); err != nil {
		return "", err
	}
	return t.lattice.NBestString(n)
}

// nbestRequest включает N-best. AllMorphs снимается: перебор переписывает Next
// вдоль каждого пути.
func nbestRequest(r lattice.Request) lattice.Request {
	return (r | lattice.NBest) &^ lattice.AllMorphs
}

// ParseNBestInit разбирает предложение для последовательного перебора путей через NextMorphemes.
func (t *Tagger) ParseNBestInit(sentence string) error {
	return t.parse(sentence, nbestRequest(t.request))
}

// NextMorphemes возвращает следующий по стоимости путь. Первый вызов после
// ParseNBestInit дает лучший путь, false означает, что пути кончились.
func (t *Tagger) NextMorphemes() ([]Morpheme, bool) {
	l := t.lattice
	if !l.HasRequest(lattice.NBest) || !l.Next() {
		return nil, false
	}
	return Morphemes(l), true
}

// ParseList разбирает предложения параллельно с режимом и theta теггера
// (без N-best). Решетка теггера не используется.
func (t *Tagger) ParseList(ctx context.Context, sentences []string) ([][]Morpheme, error) {
	return t.model.parseList(ctx, sentences, t.request, t.theta)
}

// Close отпускает модель, удерживаемую решеткой с последнего разбора.
func (t *Tagger) Close() {
	t.lattice.Clear()
}
