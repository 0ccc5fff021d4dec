package analyzer

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steosofficial/steoslattice/connector"
	"github.com/steosofficial/steoslattice/dictionary"
	"github.com/steosofficial/steoslattice/lattice"
)

func parseLattice(t *testing.T, m *Model, sentence string, request lattice.Request) *lattice.Lattice {
	t.Helper()
	l := m.NewLattice()
	l.SetRequest(request)
	l.SetSentence(sentence)
	require.NoError(t, m.ParseLattice(l))
	t.Cleanup(l.Clear)
	return l
}

func TestParse_Scenario(t *testing.T) {
	m := newToyModel(t, nil)
	tg := m.NewTagger()
	defer tg.Close()

	out, err := tg.Parse("AB")
	require.NoError(t, err)
	assert.Equal(t, "AB\tnoun,general,*,*,*,*,AB,eibi,eibi\t15\nEOS\n", out)

	ms, err := tg.ParseToMorphemes("AB")
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, Morpheme{
		Surface:       "AB",
		Feature:       "noun,general,*,*,*,*,AB,eibi,eibi",
		PartOfSpeech:  "noun",
		POSDetails:    []string{"general"},
		BaseForm:      "AB",
		Reading:       "eibi",
		Pronunciation: "eibi",
		Begin:         0,
		End:           2,
		WordCost:      15,
		Cost:          15,
		PosID:         1,
	}, ms[0])
}

func TestParse_BestPathIsMinimal(t *testing.T) {
	m := newToyModel(t, nil)

	for _, sentence := range []string{"A", "AB", "ABC", "CAB", "ABCAB", "BCCAB", "CCCA"} {
		t.Run(sentence, func(t *testing.T) {
			paths := bruteForce(sentence)
			require.NotEmpty(t, paths)
			_, want := minCost(paths)

			l := parseLattice(t, m, sentence, lattice.OneBest)
			assert.Equal(t, want, l.Node(l.EOS()).Cost)

			ms := Morphemes(l)
			key := surfaces(ms)
			assert.Equal(t, want, paths[key], "путь %s", key)

			// Слова лучшего пути покрывают предложение без пропусков.
			pos := 0
			for _, mo := range ms {
				assert.Equal(t, pos, mo.Begin)
				pos = mo.End
			}
			assert.Equal(t, len(sentence), pos)
		})
	}
}

func TestParse_AllMorphs(t *testing.T) {
	m := newToyModel(t, nil)
	l := parseLattice(t, m, "AB", lattice.OneBest|lattice.AllMorphs)

	out := l.String()
	assert.Equal(t, 4, strings.Count(out, "\n"), out) // A, AB, B и EOS.
	assert.Contains(t, out, "A\tnoun,general,*,*,*,*,A,ei,ei\t10\n")
	assert.Contains(t, out, "B\tnoun,general,*,*,*,*,B,bi,bi\t10\n")

	// Лучший путь по-прежнему выделяется флагом IsBest.
	assert.Equal(t, "AB", surfaces(Morphemes(l)))
}

func TestParse_NBest(t *testing.T) {
	m := newToyModel(t, nil)
	tg := m.NewTagger()
	defer tg.Close()

	const sentence = "ABCAB"
	paths := bruteForce(sentence)

	best, err := tg.ParseToMorphemes(sentence)
	require.NoError(t, err)

	require.NoError(t, tg.ParseNBestInit(sentence))
	seen := make(map[string]bool)
	var costs []int64
	for {
		ms, ok := tg.NextMorphemes()
		if !ok {
			break
		}
		key := surfaces(ms)
		require.Contains(t, paths, key)
		require.False(t, seen[key], "путь %s выдан повторно", key)
		seen[key] = true
		costs = append(costs, paths[key])
		if len(costs) == 1 {
			assert.Equal(t, surfaces(best), key)
		}
	}
	assert.Len(t, seen, len(paths))
	assert.IsNonDecreasing(t, costs)

	out, err := tg.ParseNBest(2, sentence)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "EOS\n"))

	_, err = tg.ParseNBest(0, sentence)
	assert.Error(t, err)
	_, err = tg.ParseNBest(lattice.NBestMax+1, sentence)
	assert.Error(t, err)
}

// newTieModel строит модель, в которой "AB" и "A|B" стоят одинаково.
func newTieModel(t *testing.T) *Model {
	t.Helper()
	dir := newToyDicDir(t)
	writeDictionary(t, filepath.Join(dir, SysDicFile), dictionary.SysDic, []dictionary.Entry{
		{Surface: "A", LeftID: 1, RightID: 1, PosID: 1, Cost: 5, Feature: "noun,general,*,*,*,*,A,ei,ei"},
		{Surface: "B", LeftID: 1, RightID: 1, PosID: 1, Cost: 5, Feature: "noun,general,*,*,*,*,B,bi,bi"},
		{Surface: "AB", LeftID: 1, RightID: 1, PosID: 1, Cost: 10, Feature: "noun,general,*,*,*,*,AB,eibi,eibi"},
	})
	require.NoError(t, connector.New(toySize, toySize).WriteFile(filepath.Join(dir, MatrixFile)))

	m, err := NewModel(WithConfig(toyConfig(dir)), WithLogger(NoopLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestParse_NBestTie(t *testing.T) {
	m := newTieModel(t)
	tg := m.NewTagger()
	defer tg.Close()

	best, err := tg.ParseToMorphemes("AB")
	require.NoError(t, err)
	assert.Equal(t, "A|B", surfaces(best))

	require.NoError(t, tg.ParseNBestInit("AB"))
	first, ok := tg.NextMorphemes()
	require.True(t, ok)
	assert.Equal(t, "A|B", surfaces(first))
	second, ok := tg.NextMorphemes()
	require.True(t, ok)
	assert.Equal(t, "AB", surfaces(second))
	_, ok = tg.NextMorphemes()
	assert.False(t, ok)

	out, err := tg.ParseNBest(1, "AB")
	require.NoError(t, err)
	assert.Equal(t, "A\tnoun,general,*,*,*,*,A,ei,ei\t5\nB\tnoun,general,*,*,*,*,B,bi,bi\t5\nEOS\n", out)
}

func TestParse_NBestAllMorphs(t *testing.T) {
	m := newTieModel(t)
	l := parseLattice(t, m, "AB", lattice.OneBest|lattice.NBest|lattice.AllMorphs)

	// До перебора решетка содержит все узлы, лучший путь берется по IsBest.
	assert.Equal(t, 3, strings.Count(l.String(), "noun"))
	assert.Equal(t, "A|B", surfaces(Morphemes(l)))

	var got []string
	for l.Next() {
		got = append(got, surfaces(Morphemes(l)))
	}
	assert.Equal(t, []string{"A|B", "AB"}, got)
}

func TestParse_MarginalProb(t *testing.T) {
	m := newToyModel(t, nil)

	for _, theta := range []float64{lattice.DefaultTheta, 0.1} {
		for _, sentence := range []string{"AB", "ABCAB", "CCAB"} {
			l := m.NewLattice()
			l.SetRequest(lattice.OneBest | lattice.MarginalProb)
			l.SetTheta(theta)
			l.SetSentence(sentence)
			require.NoError(t, m.ParseLattice(l))

			assert.InDelta(t, logPartition(bruteForce(sentence), theta), l.Z(), 1e-9)

			for i := 0; i < l.NodeCount(); i++ {
				p := l.Node(lattice.NodeID(i)).Prob
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0+1e-9)
			}

			// Любой путь начинается ровно одним узлом в позиции 0.
			var sum float64
			for id := l.BeginNodes()[0]; id != lattice.NilNode; id = l.Node(id).BNext {
				sum += l.Node(id).Prob
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
			assert.InDelta(t, 1.0, l.Node(l.EOS()).Prob, 1e-9)

			var pathSum float64
			for p := l.Node(l.BOS()).RPath; p != lattice.NilPath; p = l.Path(p).RNext {
				pathSum += l.Path(p).Prob
			}
			assert.InDelta(t, 1.0, pathSum, 1e-9)

			for _, mo := range Morphemes(l) {
				assert.Greater(t, mo.Prob, 0.0)
			}
			l.Clear()
		}
	}
}

func TestParse_Unknown(t *testing.T) {
	t.Run("группа", func(t *testing.T) {
		m := newToyModel(t, nil)
		l := parseLattice(t, m, "AB123", lattice.OneBest)
		ms := Morphemes(l)
		require.Len(t, ms, 2)
		assert.Equal(t, "AB", ms[0].Surface)
		assert.False(t, ms[0].Unknown)
		assert.Equal(t, "123", ms[1].Surface)
		assert.True(t, ms[1].Unknown)
		assert.Equal(t, "unk", ms[1].PartOfSpeech)
	})

	t.Run("предел группы", func(t *testing.T) {
		m := newToyModel(t, func(c *Config) { c.MaxGroupingSize = 3 })
		l := parseLattice(t, m, "12345", lattice.OneBest)
		ms := Morphemes(l)
		// Из позиций 0 и 1 серия длиннее трех символов, поэтому там только одиночные узлы.
		assert.Equal(t, "1|2|345", surfaces(ms))
		pos := 0
		for _, mo := range ms {
			assert.True(t, mo.Unknown)
			assert.Equal(t, pos, mo.Begin)
			assert.LessOrEqual(t, mo.End-mo.Begin, 3)
			pos = mo.End
		}
		assert.Equal(t, 5, pos)
	})

	t.Run("лесенка без группы", func(t *testing.T) {
		dir := newToyDicDir(t)
		charDef := strings.Replace(toyCharDef, "NUMERIC 1 1 0", "NUMERIC 1 1 2", 1)
		require.NoError(t, os.WriteFile(filepath.Join(dir, CharDefFile), []byte(charDef), 0o644))
		cfg := toyConfig(dir)
		cfg.MaxGroupingSize = 1
		m, err := NewModel(WithConfig(cfg), WithLogger(NoopLogger()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = m.Close() })

		l := parseLattice(t, m, "12", lattice.OneBest)
		var lengths []int
		for id := l.BeginNodes()[0]; id != lattice.NilNode; id = l.Node(id).BNext {
			lengths = append(lengths, l.Node(id).Length)
		}
		// Группа не строится, узел длины 2 дает "лесенка" (по узлу на запись NUMERIC).
		assert.ElementsMatch(t, []int{1, 1, 2, 2}, lengths)
	})

	t.Run("символ вне словаря", func(t *testing.T) {
		m := newToyModel(t, nil)
		l := parseLattice(t, m, "AxB", lattice.OneBest)
		ms := Morphemes(l)
		require.Len(t, ms, 3)
		assert.Equal(t, "x", ms[1].Surface)
		assert.Equal(t, "unk,ALPHA,*,*,*,*,*", ms[1].Feature)
	})

	t.Run("unk-feature", func(t *testing.T) {
		m := newToyModel(t, func(c *Config) { c.UnkFeature = "UNKNOWN" })
		l := parseLattice(t, m, "Ax", lattice.OneBest)
		ms := Morphemes(l)
		require.Len(t, ms, 2)
		assert.Equal(t, "UNKNOWN", ms[1].Feature)
	})

	t.Run("не-ASCII", func(t *testing.T) {
		m := newToyModel(t, nil)
		l := parseLattice(t, m, "AЖЖB", lattice.OneBest)
		ms := Morphemes(l)
		require.Len(t, ms, 3)
		assert.Equal(t, "ЖЖ", ms[1].Surface)
		assert.Equal(t, "unk,DEFAULT,*,*,*,*,*", ms[1].Feature)
	})
}

func TestParse_Whitespace(t *testing.T) {
	m := newToyModel(t, nil)

	l := parseLattice(t, m, "A  B ", lattice.OneBest)
	ids := l.BestPath()
	require.Len(t, ids, 2)

	a, b := l.Node(ids[0]), l.Node(ids[1])
	assert.Equal(t, "A", l.Surface(ids[0]))
	assert.Equal(t, "B", l.Surface(ids[1]))
	assert.Equal(t, 3, b.Begin)
	assert.Equal(t, 3, b.RLength)
	assert.Equal(t, a.End(), b.Start())

	eos := l.Node(l.EOS())
	assert.Equal(t, 1, eos.RLength)
	assert.Equal(t, l.Size(), eos.End())

	ms := Morphemes(l)
	assert.Equal(t, "A|B", surfaces(ms))

	l = parseLattice(t, m, "   ", lattice.OneBest)
	assert.Empty(t, l.BestPath())
	assert.Equal(t, "EOS\n", l.String())

	l = parseLattice(t, m, "", lattice.OneBest)
	assert.Equal(t, "EOS\n", l.String())
}

func TestParse_Partial(t *testing.T) {
	m := newToyModel(t, nil)

	t.Run("границы разметки", func(t *testing.T) {
		l := parseLattice(t, m, "A\nB\nEOS\n", lattice.OneBest|lattice.Partial)
		assert.Equal(t, "AB", l.Sentence())
		assert.Equal(t, "A|B", surfaces(Morphemes(l)))
	})

	t.Run("признаки с шаблоном", func(t *testing.T) {
		l := parseLattice(t, m, "AB\t*,general\nC\n", lattice.OneBest|lattice.Partial)
		ms := Morphemes(l)
		require.Len(t, ms, 2)
		assert.Equal(t, "AB", ms[0].Surface)
		assert.False(t, ms[0].Unknown)
		assert.Equal(t, "C", ms[1].Surface)
	})

	t.Run("навязанные признаки", func(t *testing.T) {
		l := parseLattice(t, m, "AB\tforced,tag\n", lattice.OneBest|lattice.Partial)
		ms := Morphemes(l)
		require.Len(t, ms, 1)
		assert.Equal(t, "AB", ms[0].Surface)
		assert.Equal(t, "forced,tag", ms[0].Feature)
		assert.True(t, ms[0].Unknown)
	})

	t.Run("признаки неизвестного слова", func(t *testing.T) {
		l := parseLattice(t, m, "A\nxy\tunk,ALPHA\n", lattice.OneBest|lattice.Partial)
		ms := Morphemes(l)
		require.Len(t, ms, 2)
		assert.Equal(t, "xy", ms[1].Surface)
		assert.Equal(t, "unk,ALPHA,*,*,*,*,*", ms[1].Feature)
	})

	t.Run("неверная разметка", func(t *testing.T) {
		l := m.NewLattice()
		l.SetRequest(lattice.OneBest | lattice.Partial)
		l.SetSentence("A\t\n")
		err := m.ParseLattice(l)
		require.ErrorIs(t, err, lattice.ErrMalformedPartial)
		assert.False(t, l.IsAvailable())
		assert.Empty(t, l.String())
		l.Clear()
	})
}

func TestParse_APIConstraints(t *testing.T) {
	m := newToyModel(t, nil)

	l := m.NewLattice()
	defer l.Clear()
	l.SetSentence("ABCAB")
	l.SetBoundaryConstraint(1, lattice.TokenBoundary)
	l.SetFeatureConstraint(3, 5, "noun")
	require.NoError(t, m.ParseLattice(l))

	ids := l.BestPath()
	require.NotEmpty(t, ids)
	for _, id := range ids {
		n := l.Node(id)
		assert.False(t, n.Begin < 1 && n.End() > 1, "узел %s пересекает границу", l.Surface(id))
	}
	last := l.Node(ids[len(ids)-1])
	assert.Equal(t, "AB", l.Surface(ids[len(ids)-1]))
	assert.Equal(t, "noun,general,*,*,*,*,AB,eibi,eibi", last.Feature)
}

func TestParse_Errors(t *testing.T) {
	m := newToyModel(t, func(c *Config) { c.MaxSentenceSize = 4 })

	l := m.NewLattice()
	assert.ErrorIs(t, m.ParseLattice(l), lattice.ErrNoSentence)

	l.SetSentence("ABCAB")
	err := m.ParseLattice(l)
	require.ErrorIs(t, err, lattice.ErrTooLongSentence)
	assert.False(t, l.IsAvailable())
	assert.NotEmpty(t, l.What())
	assert.Nil(t, Morphemes(l))

	l.SetSentence("AB")
	require.NoError(t, m.ParseLattice(l))
	assert.True(t, l.IsAvailable())
	assert.Empty(t, l.What())
	l.Clear()
}

func TestLogSumExp(t *testing.T) {
	assert.InDelta(t, math.Log(2), logSumExp(0, 0), 1e-12)
	assert.Equal(t, 10.0, logSumExp(10, -100))
	assert.Equal(t, 3.0, logSumExp(math.Inf(-1), 3))
	assert.True(t, math.IsInf(logSumExp(math.Inf(-1), math.Inf(-1)), -1))
}
