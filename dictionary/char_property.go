package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultCharDef - таблица классов символов, которая используется,
// если в каталоге словаря нет своего char.def.
// Строка класса: ИМЯ INVOKE GROUP LENGTH.
// Строка символов: 0xXXXX[..0xYYYY] КЛАСС [КЛАСС...], первый класс - основной.
const DefaultCharDef = `
DEFAULT      0 1 0
SPACE        0 1 0
KANJI        0 0 2
SYMBOL       1 1 0
NUMERIC      1 1 0
ALPHA        1 1 0
HIRAGANA     0 1 2
KATAKANA     1 1 2
KANJINUMERIC 1 1 0
GREEK        1 1 0
CYRILLIC     1 1 0

0x0020 SPACE
0x00D0 SPACE
0x0009 SPACE
0x000B SPACE
0x000A SPACE
0x0021..0x002F SYMBOL
0x0030..0x0039 NUMERIC
0x003A..0x0040 SYMBOL
0x0041..0x005A ALPHA
0x005B..0x0060 SYMBOL
0x0061..0x007A ALPHA
0x007B..0x007E SYMBOL
0x00A1..0x00BF SYMBOL
0x00C0..0x00FF ALPHA
0x0100..0x017F ALPHA
0x0391..0x03C9 GREEK
0x0400..0x04F9 CYRILLIC
0x2000..0x206F SYMBOL
0x3000 SPACE
0x3001..0x303F SYMBOL
0x3041..0x309F HIRAGANA
0x30A1..0x30FF KATAKANA
0x30FC KATAKANA HIRAGANA
0x4E00..0x9FFF KANJI
0x3005 KANJI
0x3007 KANJINUMERIC KANJI
0x4E00 KANJINUMERIC KANJI
0x4E8C KANJINUMERIC KANJI
0x4E09 KANJINUMERIC KANJI
0x56DB KANJINUMERIC KANJI
0x4E94 KANJINUMERIC KANJI
0x516D KANJINUMERIC KANJI
0x4E03 KANJINUMERIC KANJI
0x516B KANJINUMERIC KANJI
0x4E5D KANJINUMERIC KANJI
0x5341 KANJINUMERIC KANJI
0x767E KANJINUMERIC KANJI
0x5343 KANJINUMERIC KANJI
0x4E07 KANJINUMERIC KANJI
0x5104 KANJINUMERIC KANJI
0x5146 KANJINUMERIC KANJI
0xFF10..0xFF19 NUMERIC
0xFF21..0xFF3A ALPHA
0xFF41..0xFF5A ALPHA
0xFF01..0xFF0F SYMBOL
0xFF1A..0xFF20 SYMBOL
0xFF3B..0xFF40 SYMBOL
0xFF5B..0xFF65 SYMBOL
0xFF66..0xFF9D KATAKANA
`

const (
	maxCategories = 32
	tableSize     = 0x10000
)

// CharInfo - свойства класса символа.
type CharInfo struct {
	Type        uint32 // Битовая маска всех классов символа.
	DefaultType uint8  // Основной класс (индекс в Names).
	Length      uint8  // Сколько "лесенкой" строить неизвестных слов длиной 1..Length.
	Group       bool   // Строить ли одно неизвестное слово из всей серии однотипных символов.
	Invoke      bool   // Строить ли неизвестные слова, даже если нашлись словарные.
}

// IsKindOf сообщает, есть ли у двух символов общий класс.
func (c CharInfo) IsKindOf(o CharInfo) bool { return c.Type&o.Type != 0 }

// CharProperty - таблица классов символов. Неизменяема после загрузки.
type CharProperty struct {
	names []string
	table []CharInfo // Индекс - кодовая точка из BMP.
	dflt  CharInfo
}

type categoryDef struct {
	invoke, group bool
	length        int
}

type rangeDef struct {
	lo, hi rune
	cats   []string
}

// DefaultCharProperty собирает таблицу по DefaultCharDef.
func DefaultCharProperty() *CharProperty {
	p, err := ParseCharDef(strings.NewReader(DefaultCharDef))
	if err != nil {
		panic(err)
	}
	return p
}

// OpenCharDef читает char.def из файла.
func OpenCharDef(path string) (*CharProperty, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer f.Close()
	p, err := ParseCharDef(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParseCharDef разбирает описание классов символов.
func ParseCharDef(r io.Reader) (*CharProperty, error) {
	defs := make(map[string]categoryDef)
	ids := make(map[string]int)
	var names []string
	var ranges []rangeDef

	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if strings.HasPrefix(fields[0], "0x") {
			if len(fields) < 2 {
				return nil, fmt.Errorf("строка %d: не указан класс", lineNo)
			}
			lo, hi, err := parseRange(fields[0])
			if err != nil {
				return nil, fmt.Errorf("строка %d: %w", lineNo, err)
			}
			ranges = append(ranges, rangeDef{lo: lo, hi: hi, cats: fields[1:]})
			continue
		}

		if len(fields) < 4 {
			return nil, fmt.Errorf("строка %d: ожидалось ИМЯ INVOKE GROUP LENGTH", lineNo)
		}
		invoke, err1 := strconv.Atoi(fields[1])
		group, err2 := strconv.Atoi(fields[2])
		length, err3 := strconv.Atoi(fields[3])
		if err1 != nil || err2 != nil || err3 != nil || length < 0 || length > 0xff {
			return nil, fmt.Errorf("строка %d: неверное описание класса %s", lineNo, fields[0])
		}
		if _, ok := ids[fields[0]]; ok {
			return nil, fmt.Errorf("строка %d: класс %s описан дважды", lineNo, fields[0])
		}
		if len(names) == maxCategories {
			return nil, fmt.Errorf("слишком много классов символов (максимум %d)", maxCategories)
		}
		ids[fields[0]] = len(names)
		names = append(names, fields[0])
		defs[fields[0]] = categoryDef{invoke: invoke != 0, group: group != 0, length: length}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения char.def: %w", err)
	}

	if _, ok := ids["DEFAULT"]; !ok {
		return nil, fmt.Errorf("класс DEFAULT не описан")
	}
	if _, ok := ids["SPACE"]; !ok {
		return nil, fmt.Errorf("класс SPACE не описан")
	}

	encode := func(cats []string) (CharInfo, error) {
		var info CharInfo
		for i, name := range cats {
			id, ok := ids[name]
			if !ok {
				return info, fmt.Errorf("неизвестный класс %s", name)
			}
			info.Type |= 1 << uint(id)
			if i == 0 {
				d := defs[name]
				info.DefaultType = uint8(id)
				info.Length = uint8(d.length)
				info.Group = d.group
				info.Invoke = d.invoke
			}
		}
		return info, nil
	}

	dflt, _ := encode([]string{"DEFAULT"})
	p := &CharProperty{names: names, table: make([]CharInfo, tableSize), dflt: dflt}
	for i := range p.table {
		p.table[i] = dflt
	}
	for _, rd := range ranges {
		info, err := encode(rd.cats)
		if err != nil {
			return nil, err
		}
		for c := rd.lo; c <= rd.hi && c < tableSize; c++ {
			p.table[c] = info
		}
	}
	return p, nil
}

func parseRange(s string) (rune, rune, error) {
	lo, hi, isRange := strings.Cut(s, "..")
	a, err := strconv.ParseUint(strings.TrimPrefix(lo, "0x"), 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("неверная кодовая точка %s", lo)
	}
	if !isRange {
		return rune(a), rune(a), nil
	}
	b, err := strconv.ParseUint(strings.TrimPrefix(hi, "0x"), 16, 32)
	if err != nil || b < a {
		return 0, 0, fmt.Errorf("неверный диапазон %s", s)
	}
	return rune(a), rune(b), nil
}

// Names возвращает имена классов в порядке описания.
func (p *CharProperty) Names() []string { return p.names }

// Name возвращает имя класса по его индексу.
func (p *CharProperty) Name(id uint8) string {
	if int(id) >= len(p.names) {
		return ""
	}
	return p.names[id]
}

// Info возвращает свойства кодовой точки.
func (p *CharProperty) Info(r rune) CharInfo {
	if r >= 0 && r < tableSize {
		return p.table[r]
	}
	return p.dflt
}

// CharInfo декодирует первый символ s и возвращает его свойства и длину в байтах.
// Некорректный байт UTF-8 считается отдельным символом класса DEFAULT.
func (p *CharProperty) CharInfo(s []byte) (CharInfo, int) {
	r, size := utf8.DecodeRune(s)
	if r == utf8.RuneError && size <= 1 {
		return p.dflt, max(size, 1)
	}
	return p.Info(r), size
}

// SeekToOtherType пропускает символы, однотипные c (с цепочкой: каждый следующий
// сравнивается с предыдущим). Возвращает число пропущенных байт, свойства символа,
// на котором остановились (или последнего пропущенного), его длину и число символов.
func (p *CharProperty) SeekToOtherType(s []byte, c CharInfo) (n int, last CharInfo, mblen, clen int) {
	last = c
	for n < len(s) {
		info, size := p.CharInfo(s[n:])
		last, mblen = info, size
		if !c.IsKindOf(info) {
			break
		}
		n += size
		clen++
		c = info
	}
	return n, last, mblen, clen
}
