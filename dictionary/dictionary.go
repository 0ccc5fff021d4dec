// Package dictionary содержит бинарный словарь морфем: заголовок, двойной массив (trie),
// таблицу токенов и пул признаков. Файл словаря отображается в память через mmap,
// поэтому загрузка не копирует данные в "кучу" Go, а несколько анализаторов
// могут разделять один и тот же словарь только на чтение.
package dictionary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// --- КОНСТАНТЫ ФОРМАТА ---

const (
	// MagicID - маска, с которой XOR-ится размер файла в поле Magic.
	MagicID uint32 = 0xef718f77
	// DicVersion - единственная поддерживаемая версия бинарного формата.
	DicVersion uint32 = 102
	// HeaderSize - размер фиксированного заголовка: 10 полей uint32 и 32 байта кодировки.
	HeaderSize = 10*4 + 32
	// MaxHomographs - сколько токенов может висеть на одной поверхностной форме
	// (в значении trie под счетчик отведено 8 бит).
	MaxHomographs = 0xff
)

// Type - тип словаря.
type Type uint32

const (
	SysDic Type = 0 // Системный словарь.
	UsrDic Type = 1 // Пользовательский словарь.
	UnkDic Type = 2 // Словарь неизвестных слов (ключи - имена классов символов).
)

func (t Type) String() string {
	switch t {
	case SysDic:
		return "sys"
	case UsrDic:
		return "usr"
	case UnkDic:
		return "unk"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

var (
	// ErrBrokenDictionary - файл обрезан, поврежден или не является словарем.
	ErrBrokenDictionary = errors.New("словарь поврежден")
	// ErrIncompatibleVersion - версия формата не совпадает с DicVersion.
	ErrIncompatibleVersion = errors.New("несовместимая версия словаря")
)

// VersionError уточняет ErrIncompatibleVersion найденной версией.
type VersionError struct {
	Version uint32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("несовместимая версия словаря: %d (ожидалась %d)", e.Version, DicVersion)
}

func (e *VersionError) Unwrap() error { return ErrIncompatibleVersion }

// --- СТРУКТУРЫ ДАННЫХ ---

// Header - заголовок бинарного файла словаря.
// Порядок и размер полей совпадают с файлом байт в байт.
type Header struct {
	Magic    uint32   // Размер файла XOR MagicID.
	Version  uint32   // Версия формата.
	Type     uint32   // Тип словаря (sys/usr/unk).
	LexSize  uint32   // Количество токенов.
	LSize    uint32   // Количество правых контекстов левого узла (строки матрицы).
	RSize    uint32   // Количество левых контекстов правого узла (столбцы матрицы).
	DSize    uint32   // Размер двойного массива в байтах.
	TSize    uint32   // Размер таблицы токенов в байтах.
	FSize    uint32   // Размер пула признаков в байтах.
	Reserved uint32   // Не используется.
	Charset  [32]byte // Кодировка, дополненная нулями.
}

// Token - запись таблицы токенов. 16 байт, без выравнивающих дыр.
type Token struct {
	LcAttr   uint16 // Левый контекст.
	RcAttr   uint16 // Правый контекст.
	PosID    uint16 // ID части речи.
	WCost    int16  // Стоимость слова.
	Feature  uint32 // Смещение строки признаков в пуле.
	Compound uint32 // Зарезервировано.
}

// Result - одно совпадение префиксного поиска.
type Result struct {
	Value  int32 // Количество токенов (младшие 8 бит) и индекс первого токена.
	Length int   // Длина совпавшего ключа в байтах.
}

// TokenSize возвращает, сколько токенов относится к совпадению.
func (r Result) TokenSize() int { return int(r.Value & 0xff) }

// TokenIndex возвращает индекс первого токена совпадения.
func (r Result) TokenIndex() int { return int(r.Value >> 8) }

// Info - сводка о словаре для логов и проверок совместимости.
type Info struct {
	Filename string
	Charset  string
	Size     uint32
	Type     Type
	LSize    uint32
	RSize    uint32
	Version  uint32
}

// Dictionary - открытый словарь. Неизменяем после загрузки, безопасен
// для одновременного чтения из любого числа горутин.
type Dictionary struct {
	filename string
	header   Header
	charset  string

	// Срезы указывают прямо в отображенную память (или в переданный буфер).
	da       doubleArray
	tokens   []Token
	features []byte

	// Ссылка на mmap-объект, чтобы память оставалась доступной до Close.
	mmapFile mmap.MMap
}

// --- ЗАГРУЗКА ---

// Open отображает файл словаря в память и проверяет его целостность.
func Open(path string) (*Dictionary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	mmapFile, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("ошибка mmap.Map %s: %w", path, err)
	}

	d, err := parse(mmapFile)
	if err != nil {
		_ = mmapFile.Unmap()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.filename = path
	d.mmapFile = mmapFile
	return d, nil
}

// Load разбирает словарь из буфера в памяти. Буфер не копируется,
// если он выровнен на 8 байт, и не должен изменяться после вызова.
func Load(b []byte) (*Dictionary, error) {
	if len(b) > 0 && uintptr(unsafe.Pointer(&b[0]))%8 != 0 {
		aligned := make([]uint64, (len(b)+7)/8)
		buf := unsafe.Slice((*byte)(unsafe.Pointer(&aligned[0])), len(aligned)*8)[:len(b)]
		copy(buf, b)
		b = buf
	}
	return parse(b)
}

func parse(b []byte) (*Dictionary, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: файл слишком мал для заголовка", ErrBrokenDictionary)
	}

	var header Header
	if err := binary.Read(bytes.NewReader(b[:HeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("ошибка чтения заголовка: %w", err)
	}
	if uint64(header.Magic^MagicID) != uint64(len(b)) {
		return nil, fmt.Errorf("%w: неверная сигнатура файла", ErrBrokenDictionary)
	}
	if header.Version != DicVersion {
		return nil, &VersionError{Version: header.Version}
	}

	// Проверяем, что секции ровно покрывают файл.
	dEnd := uint64(HeaderSize) + uint64(header.DSize)
	tEnd := dEnd + uint64(header.TSize)
	fEnd := tEnd + uint64(header.FSize)
	if fEnd != uint64(len(b)) {
		return nil, fmt.Errorf("%w: размеры секций не совпадают с размером файла", ErrBrokenDictionary)
	}
	if header.DSize%uint32(unitSize) != 0 || header.TSize%uint32(unsafe.Sizeof(Token{})) != 0 {
		return nil, fmt.Errorf("%w: невыровненные секции", ErrBrokenDictionary)
	}

	d := &Dictionary{
		header:   header,
		charset:  string(bytes.TrimRight(header.Charset[:], "\x00")),
		da:       doubleArray{units: bytesToSlice[unit](b[HeaderSize:dEnd])},
		tokens:   bytesToSlice[Token](b[dEnd:tEnd]),
		features: b[tEnd:fEnd],
	}
	if len(d.da.units) == 0 {
		return nil, fmt.Errorf("%w: пустой двойной массив", ErrBrokenDictionary)
	}
	return d, nil
}

// Close освобождает отображение файла. После Close ни токены,
// ни строки признаков словаря использовать нельзя.
func (d *Dictionary) Close() error {
	if d.mmapFile == nil {
		return nil
	}
	err := d.mmapFile.Unmap()
	d.mmapFile = nil
	d.da = doubleArray{}
	d.tokens = nil
	d.features = nil
	return err
}

// bytesToSlice создает срез поверх области байт без копирования.
func bytesToSlice[T any](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	var t T
	size := int(unsafe.Sizeof(t))
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size)
}

// --- ПОИСК ---

// CommonPrefixSearch вызывает fn для каждой записи словаря, поверхностная форма
// которой является префиксом key. Совпадения идут в порядке роста длины.
func (d *Dictionary) CommonPrefixSearch(key []byte, fn func(Result)) {
	d.da.commonPrefixSearch(key, func(value int32, length int) {
		fn(Result{Value: value, Length: length})
	})
}

// ExactMatchSearch ищет ключ целиком.
func (d *Dictionary) ExactMatchSearch(key []byte) (Result, bool) {
	value, ok := d.da.exactMatchSearch(key)
	if !ok {
		return Result{}, false
	}
	return Result{Value: value, Length: len(key)}, true
}

// Tokens возвращает токены совпадения. Срез указывает в словарь.
func (d *Dictionary) Tokens(r Result) []Token {
	start := r.TokenIndex()
	end := start + r.TokenSize()
	if start < 0 || end > len(d.tokens) {
		return nil
	}
	return d.tokens[start:end]
}

// AllTokens возвращает всю таблицу токенов (включая выравнивающие записи в хвосте).
func (d *Dictionary) AllTokens() []Token { return d.tokens }

// Feature возвращает строку признаков токена. Строка указывает прямо
// в память словаря и действительна до Close.
func (d *Dictionary) Feature(t *Token) string {
	if int(t.Feature) >= len(d.features) {
		return ""
	}
	b := d.features[t.Feature:]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// --- МЕТАДАННЫЕ ---

func (d *Dictionary) Filename() string { return d.filename }
func (d *Dictionary) Charset() string  { return d.charset }
func (d *Dictionary) Version() uint32  { return d.header.Version }
func (d *Dictionary) Type() Type       { return Type(d.header.Type) }
func (d *Dictionary) LexSize() int     { return int(d.header.LexSize) }
func (d *Dictionary) LSize() int       { return int(d.header.LSize) }
func (d *Dictionary) RSize() int       { return int(d.header.RSize) }

// Info возвращает сводку о словаре.
func (d *Dictionary) Info() Info {
	return Info{
		Filename: d.filename,
		Charset:  d.charset,
		Size:     d.header.LexSize,
		Type:     d.Type(),
		LSize:    d.header.LSize,
		RSize:    d.header.RSize,
		Version:  d.header.Version,
	}
}
