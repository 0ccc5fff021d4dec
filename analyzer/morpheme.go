// morpheme.go превращает узлы решетки в самостоятельные значения Morpheme,
// которые можно хранить после следующего разбора и сериализовать в JSON.
package analyzer

import (
	"encoding/csv"
	"strings"

	"github.com/steosofficial/steoslattice/lattice"
)

// Morpheme - слово лучшего пути вместе с разобранными признаками словаря
// (порядок полей IPADIC: часть речи, три уточнения, тип и форма спряжения,
// начальная форма, чтение, произношение). Незаполненное поле "*" дает пустую строку.
type Morpheme struct {
	Surface         string   `json:"surface"`                    // Поверхностная форма
	Feature         string   `json:"feature"`                    // Строка признаков целиком
	PartOfSpeech    string   `json:"part_of_speech"`             // Часть речи
	POSDetails      []string `json:"pos_details,omitempty"`      // Уточнения части речи
	ConjugationType string   `json:"conjugation_type,omitempty"` // Тип спряжения
	ConjugationForm string   `json:"conjugation_form,omitempty"` // Форма спряжения
	BaseForm        string   `json:"base_form,omitempty"`        // Начальная форма
	Reading         string   `json:"reading,omitempty"`          // Чтение
	Pronunciation   string   `json:"pronunciation,omitempty"`    // Произношение
	Begin           int      `json:"begin"`                      // Байтовое смещение начала
	End             int      `json:"end"`                        // Байтовое смещение конца
	WordCost        int      `json:"word_cost"`
	Cost            int64    `json:"cost"`           // Накопленная стоимость пути
	Prob            float64  `json:"prob,omitempty"` // Маргинальная вероятность (режим MarginalProb)
	Unknown         bool     `json:"unknown"`
	PosID           uint16   `json:"pos_id"`
}

// Morphemes возвращает слова лучшего пути решетки (или текущего пути N-best).
// Строки копируются, поэтому результат не зависит от модели и решетки.
func Morphemes(l *lattice.Lattice) []Morpheme {
	if !l.IsAvailable() {
		return nil
	}
	ids := l.BestPath()
	out := make([]Morpheme, 0, len(ids))
	for _, id := range ids {
		out = append(out, newMorpheme(l.Surface(id), l.Node(id)))
	}
	return out
}

func newMorpheme(surface string, n *lattice.Node) Morpheme {
	m := Morpheme{
		Surface:  surface,
		Feature:  strings.Clone(n.Feature),
		Begin:    n.Begin,
		End:      n.End(),
		WordCost: int(n.WCost),
		Cost:     n.Cost,
		Prob:     n.Prob,
		Unknown:  n.Stat == lattice.UnknownNode,
		PosID:    n.PosID,
	}

	fields := splitFeature(m.Feature)
	field := func(i int) string {
		if i >= len(fields) || fields[i] == "*" {
			return ""
		}
		return fields[i]
	}
	m.PartOfSpeech = field(0)
	for i := 1; i <= 3; i++ {
		if d := field(i); d != "" {
			m.POSDetails = append(m.POSDetails, d)
		}
	}
	m.ConjugationType = field(4)
	m.ConjugationForm = field(5)
	m.BaseForm = field(6)
	m.Reading = field(7)
	m.Pronunciation = field(8)
	return m
}

// splitFeature разбивает строку признаков как запись CSV: поле в кавычках
// может содержать запятую.
func splitFeature(feature string) []string {
	if !strings.Contains(feature, `"`) {
		return strings.Split(feature, ",")
	}
	r := csv.NewReader(strings.NewReader(feature))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	fields, err := r.Read()
	if err != nil {
		return strings.Split(feature, ",")
	}
	return fields
}
