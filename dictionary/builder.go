package dictionary

import (
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Entry - одна строка исходного словаря.
type Entry struct {
	Surface string
	LeftID  uint16
	RightID uint16
	PosID   uint16
	Cost    int16
	Feature string
}

// Builder собирает бинарный словарь из записей.
// Формат результата совпадает с тем, что читает Open.
type Builder struct {
	Type    Type
	LSize   int
	RSize   int
	Charset string

	entries []Entry
}

// NewBuilder создает сборщик словаря для матрицы размера lsize x rsize.
func NewBuilder(typ Type, lsize, rsize int) *Builder {
	return &Builder{Type: typ, LSize: lsize, RSize: rsize, Charset: "UTF-8"}
}

// Add добавляет запись. Контексты проверяются по размерам матрицы:
// правый контекст индексирует строки (LSize), левый - столбцы (RSize).
func (b *Builder) Add(e Entry) error {
	if e.Surface == "" {
		return errors.New("пустая поверхностная форма")
	}
	if int(e.RightID) >= b.LSize || int(e.LeftID) >= b.RSize {
		return fmt.Errorf("неверные контексты lid=%d rid=%d для %q", e.LeftID, e.RightID, e.Surface)
	}
	b.entries = append(b.entries, e)
	return nil
}

// Len возвращает количество добавленных записей.
func (b *Builder) Len() int { return len(b.entries) }

// ReadCSV читает записи вида "surface,lid,rid,cost,feature...". Признаки могут
// содержать запятые: все поля после четвертого склеиваются обратно.
func (b *Builder) ReadCSV(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comment = '#'

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("ошибка чтения CSV: %w", err)
		}
		if len(record) < 5 {
			return fmt.Errorf("ошибка формата: %s", strings.Join(record, ","))
		}
		lid, err := strconv.ParseUint(record[1], 10, 16)
		if err != nil {
			return fmt.Errorf("неверный lid в %q: %w", record[0], err)
		}
		rid, err := strconv.ParseUint(record[2], 10, 16)
		if err != nil {
			return fmt.Errorf("неверный rid в %q: %w", record[0], err)
		}
		cost, err := strconv.ParseInt(record[3], 10, 16)
		if err != nil {
			return fmt.Errorf("неверная стоимость в %q: %w", record[0], err)
		}
		err = b.Add(Entry{
			Surface: record[0],
			LeftID:  uint16(lid),
			RightID: uint16(rid),
			Cost:    int16(cost),
			Feature: strings.Join(record[4:], ","),
		})
		if err != nil {
			return err
		}
	}
}

// Bytes собирает образ словаря.
func (b *Builder) Bytes() ([]byte, error) {
	// Признаки пишем в порядке добавления, каждый со своим нулевым байтом.
	var fbuf bytes.Buffer
	type item struct {
		surface string
		token   Token
	}
	items := make([]item, len(b.entries))
	for i, e := range b.entries {
		items[i] = item{
			surface: e.Surface,
			token: Token{
				LcAttr:  e.LeftID,
				RcAttr:  e.RightID,
				PosID:   e.PosID,
				WCost:   e.Cost,
				Feature: uint32(fbuf.Len()),
			},
		}
		fbuf.WriteString(e.Feature)
		fbuf.WriteByte(0)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].surface < items[j].surface })

	// Омографы лежат в таблице подряд; значение ключа - их число и индекс первого.
	var keys [][]byte
	var values []int32
	for i := 0; i < len(items); {
		j := i
		for j < len(items) && items[j].surface == items[i].surface {
			j++
		}
		if j-i > MaxHomographs {
			return nil, fmt.Errorf("слишком много омографов для %q: %d", items[i].surface, j-i)
		}
		keys = append(keys, []byte(items[i].surface))
		values = append(values, int32(j-i)|int32(i)<<8)
		i = j
	}

	units, err := buildDoubleArray(keys, values)
	if err != nil {
		return nil, fmt.Errorf("ошибка построения двойного массива: %w", err)
	}

	var tbuf bytes.Buffer
	for _, it := range items {
		if err := binary.Write(&tbuf, binary.LittleEndian, it.token); err != nil {
			return nil, err
		}
	}
	for tbuf.Len()%8 != 0 {
		_ = binary.Write(&tbuf, binary.LittleEndian, Token{})
	}

	var dbuf bytes.Buffer
	if err := binary.Write(&dbuf, binary.LittleEndian, units); err != nil {
		return nil, err
	}

	header := Header{
		Version: DicVersion,
		Type:    uint32(b.Type),
		LexSize: uint32(len(items)),
		LSize:   uint32(b.LSize),
		RSize:   uint32(b.RSize),
		DSize:   uint32(dbuf.Len()),
		TSize:   uint32(tbuf.Len()),
		FSize:   uint32(fbuf.Len()),
	}
	copy(header.Charset[:31], b.Charset)
	total := HeaderSize + dbuf.Len() + tbuf.Len() + fbuf.Len()
	header.Magic = uint32(total) ^ MagicID

	out := bytes.NewBuffer(make([]byte, 0, total))
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	out.Write(dbuf.Bytes())
	out.Write(tbuf.Bytes())
	out.Write(fbuf.Bytes())
	return out.Bytes(), nil
}

// WriteFile собирает словарь и записывает его в файл.
func (b *Builder) WriteFile(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ошибка записи словаря %s: %w", path, err)
	}
	return nil
}
