// Package connector хранит матрицу стоимостей соединения двух соседних морфем.
// Строка матрицы - правый контекст левого узла, столбец - левый контекст правого узла.
package connector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

const headerSize = 8

// ErrBrokenMatrix - файл матрицы обрезан или поврежден.
var ErrBrokenMatrix = errors.New("матрица соединений повреждена")

// Matrix - плотная таблица cost[rc + lsize*lc]. Неизменяема после загрузки.
type Matrix struct {
	lsize, rsize int
	costs        []int16

	mmapFile mmap.MMap
}

// New создает матрицу lsize x rsize, заполненную нулями.
func New(lsize, rsize int) *Matrix {
	return &Matrix{lsize: lsize, rsize: rsize, costs: make([]int16, lsize*rsize)}
}

// Open отображает бинарную матрицу в память: u32 lsize, u32 rsize, затем lsize*rsize int16.
func Open(path string) (*Matrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	mmapFile, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("ошибка mmap.Map %s: %w", path, err)
	}
	m, err := parse(mmapFile)
	if err != nil {
		_ = mmapFile.Unmap()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.mmapFile = mmapFile
	return m, nil
}

// Load разбирает бинарную матрицу из буфера. Буфер копируется.
func Load(b []byte) (*Matrix, error) {
	m, err := parse(b)
	if err != nil {
		return nil, err
	}
	m.costs = append([]int16(nil), m.costs...)
	return m, nil
}

func parse(b []byte) (*Matrix, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("%w: файл слишком мал для заголовка", ErrBrokenMatrix)
	}
	lsize := binary.LittleEndian.Uint32(b[0:4])
	rsize := binary.LittleEndian.Uint32(b[4:8])
	if uint64(len(b)) != headerSize+2*uint64(lsize)*uint64(rsize) {
		return nil, fmt.Errorf("%w: размер %dx%d не совпадает с размером файла", ErrBrokenMatrix, lsize, rsize)
	}
	m := &Matrix{lsize: int(lsize), rsize: int(rsize)}
	if body := b[headerSize:]; len(body) > 0 {
		if uintptr(unsafe.Pointer(&body[0]))%2 != 0 {
			m.costs = make([]int16, len(body)/2)
			_ = binary.Read(bytes.NewReader(body), binary.LittleEndian, m.costs)
		} else {
			m.costs = unsafe.Slice((*int16)(unsafe.Pointer(&body[0])), len(body)/2)
		}
	}
	return m, nil
}

// OpenText читает текстовую матрицу (matrix.def).
func OpenText(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer f.Close()
	m, err := ParseText(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseText разбирает текстовую форму: первая строка "lsize rsize",
// далее тройки "l r cost", где l - правый контекст левого узла.
func ParseText(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	var m *Matrix
	for lineNo := 1; scanner.Scan(); lineNo++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if m == nil {
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w: строка %d: ожидался размер матрицы", ErrBrokenMatrix, lineNo)
			}
			lsize, err1 := strconv.Atoi(fields[0])
			rsize, err2 := strconv.Atoi(fields[1])
			if err1 != nil || err2 != nil || lsize <= 0 || rsize <= 0 {
				return nil, fmt.Errorf("%w: строка %d: неверный размер матрицы", ErrBrokenMatrix, lineNo)
			}
			m = New(lsize, rsize)
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: строка %d: ожидалось \"l r cost\"", ErrBrokenMatrix, lineNo)
		}
		l, err1 := strconv.Atoi(fields[0])
		rr, err2 := strconv.Atoi(fields[1])
		cost, err3 := strconv.ParseInt(fields[2], 10, 16)
		if err1 != nil || err2 != nil || err3 != nil || !m.IsValid(l, rr) {
			return nil, fmt.Errorf("%w: строка %d: неверная запись", ErrBrokenMatrix, lineNo)
		}
		m.Set(l, rr, int16(cost))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения матрицы: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: пустой файл", ErrBrokenMatrix)
	}
	return m, nil
}

// WriteBinary пишет матрицу в бинарном формате, который читает Open.
func (m *Matrix) WriteBinary(w io.Writer) error {
	header := [2]uint32{uint32(m.lsize), uint32(m.rsize)}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, m.costs)
}

// WriteFile пишет бинарную матрицу в файл.
func (m *Matrix) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := m.WriteBinary(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("ошибка записи матрицы %s: %w", path, err)
	}
	return nil
}

// Close освобождает отображение файла, если оно было.
func (m *Matrix) Close() error {
	if m.mmapFile == nil {
		return nil
	}
	err := m.mmapFile.Unmap()
	m.mmapFile = nil
	m.costs = nil
	return err
}

func (m *Matrix) LeftSize() int  { return m.lsize }
func (m *Matrix) RightSize() int { return m.rsize }

// IsValid проверяет пару (правый контекст левого узла, левый контекст правого узла).
func (m *Matrix) IsValid(rc, lc int) bool {
	return rc >= 0 && rc < m.lsize && lc >= 0 && lc < m.rsize
}

// Set задает стоимость перехода. Только для матриц, созданных через New или ParseText.
func (m *Matrix) Set(rc, lc int, cost int16) {
	m.costs[rc+m.lsize*lc] = cost
}

// Cost возвращает стоимость перехода от узла с правым контекстом rc
// к узлу с левым контекстом lc.
func (m *Matrix) Cost(rc, lc uint16) int {
	return int(m.costs[int(rc)+m.lsize*int(lc)])
}
