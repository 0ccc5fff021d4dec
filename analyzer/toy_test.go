package analyzer

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steosofficial/steoslattice/connector"
	"github.com/steosofficial/steoslattice/dictionary"
)

// --- ИГРУШЕЧНАЯ МОДЕЛЬ ---

// Контексты: 0 - BOS/EOS, 1 - существительное, 2 - глагол.
const toySize = 3

var toyEntries = []dictionary.Entry{
	{Surface: "A", LeftID: 1, RightID: 1, PosID: 1, Cost: 10, Feature: "noun,general,*,*,*,*,A,ei,ei"},
	{Surface: "B", LeftID: 1, RightID: 1, PosID: 1, Cost: 10, Feature: "noun,general,*,*,*,*,B,bi,bi"},
	{Surface: "AB", LeftID: 1, RightID: 1, PosID: 1, Cost: 15, Feature: "noun,general,*,*,*,*,AB,eibi,eibi"},
	{Surface: "C", LeftID: 2, RightID: 2, PosID: 2, Cost: 5, Feature: "verb,main,*,*,godan,base,C,si,si"},
	{Surface: "BC", LeftID: 1, RightID: 2, PosID: 3, Cost: 12, Feature: "noun,suffix,*,*,*,*,BC,bisi,bisi"},
	{Surface: "CA", LeftID: 2, RightID: 1, PosID: 3, Cost: 9, Feature: "verb,compound,*,*,*,*,CA,siei,siei"},
}

// toyCosts - ненулевые стоимости переходов, ключ - (правый контекст левого, левый контекст правого).
var toyCosts = map[[2]int]int16{
	{1, 2}: 3,
	{2, 1}: 4,
	{2, 2}: 7,
	{0, 2}: 2,
	{2, 0}: -1,
}

var toyUnknown = []dictionary.Entry{
	{Surface: "DEFAULT", LeftID: 1, RightID: 1, Cost: 1000, Feature: "unk,DEFAULT,*,*,*,*,*"},
	{Surface: "SPACE", LeftID: 1, RightID: 1, Cost: 1000, Feature: "unk,SPACE,*,*,*,*,*"},
	{Surface: "ALPHA", LeftID: 1, RightID: 1, Cost: 1000, Feature: "unk,ALPHA,*,*,*,*,*"},
	{Surface: "NUMERIC", LeftID: 1, RightID: 1, Cost: 400, Feature: "unk,NUMERIC,*,*,*,*,*"},
	{Surface: "NUMERIC", LeftID: 2, RightID: 2, Cost: 450, Feature: "unk,NUMERIC,verb,*,*,*,*"},
}

// ALPHA не строит неизвестных слов при наличии словарных и не группирует,
// NUMERIC группирует и строит их всегда.
const toyCharDef = `
DEFAULT 0 1 0
SPACE   0 1 0
ALPHA   0 0 1
NUMERIC 1 1 0

0x0020 SPACE
0x0009 SPACE
0x0030..0x0039 NUMERIC
0x0041..0x005A ALPHA
0x0061..0x007A ALPHA
`

func toyMatrix() *connector.Matrix {
	m := connector.New(toySize, toySize)
	for k, c := range toyCosts {
		m.Set(k[0], k[1], c)
	}
	return m
}

func writeDictionary(tb testing.TB, path string, typ dictionary.Type, entries []dictionary.Entry) {
	tb.Helper()
	b := dictionary.NewBuilder(typ, toySize, toySize)
	for _, e := range entries {
		require.NoError(tb, b.Add(e))
	}
	require.NoError(tb, b.WriteFile(path))
}

// newToyDicDir собирает во временном каталоге полный каталог словаря.
func newToyDicDir(tb testing.TB) string {
	tb.Helper()
	dir := tb.TempDir()
	writeDictionary(tb, filepath.Join(dir, SysDicFile), dictionary.SysDic, toyEntries)
	writeDictionary(tb, filepath.Join(dir, UnkDicFile), dictionary.UnkDic, toyUnknown)
	require.NoError(tb, toyMatrix().WriteFile(filepath.Join(dir, MatrixFile)))
	require.NoError(tb, os.WriteFile(filepath.Join(dir, CharDefFile), []byte(toyCharDef), 0o644))
	return dir
}

func toyConfig(dicdir string) *Config {
	cfg := DefaultConfig()
	cfg.DicDir = dicdir
	return &cfg
}

func newToyModel(tb testing.TB, mutate func(*Config)) *Model {
	tb.Helper()
	cfg := toyConfig(newToyDicDir(tb))
	if mutate != nil {
		mutate(cfg)
	}
	m, err := NewModel(WithConfig(cfg), WithLogger(NoopLogger()))
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = m.Close() })
	return m
}

// --- ПОЛНЫЙ ПЕРЕБОР ---

func toyConnection(rc, lc uint16) int64 {
	return int64(toyCosts[[2]int{int(rc), int(lc)}])
}

// bruteForce перебирает все разбиения s на словарные слова и возвращает их
// стоимости, ключ - поверхности через "|".
func bruteForce(s string) map[string]int64 {
	out := make(map[string]int64)
	var dfs func(pos int, rc uint16, cost int64, words []string)
	dfs = func(pos int, rc uint16, cost int64, words []string) {
		if pos == len(s) {
			out[strings.Join(words, "|")] = cost + toyConnection(rc, 0)
			return
		}
		for _, e := range toyEntries {
			if strings.HasPrefix(s[pos:], e.Surface) {
				next := cost + toyConnection(rc, e.LeftID) + int64(e.Cost)
				dfs(pos+len(e.Surface), e.RightID, next, append(words[:len(words):len(words)], e.Surface))
			}
		}
	}
	dfs(0, 0, 0, nil)
	return out
}

func minCost(paths map[string]int64) (string, int64) {
	best, cost := "", int64(math.MaxInt64)
	for k, c := range paths {
		if c < cost {
			best, cost = k, c
		}
	}
	return best, cost
}

// logPartition возвращает log(sum(exp(-theta*cost))) по всем путям.
func logPartition(paths map[string]int64, theta float64) float64 {
	vmax := math.Inf(-1)
	for _, c := range paths {
		vmax = max(vmax, -theta*float64(c))
	}
	var sum float64
	for _, c := range paths {
		sum += math.Exp(-theta*float64(c) - vmax)
	}
	return vmax + math.Log(sum)
}

func surfaces(ms []Morpheme) string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Surface
	}
	return strings.Join(out, "|")
}
