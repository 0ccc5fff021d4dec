// Этот файл содержит модель анализатора: системный и пользовательские словари,
// словарь неизвестных слов, таблицу классов символов и матрицу соединений.
// Бинарные таблицы отображаются в память через mmap, поэтому загрузка почти
// не расходует "кучу" Go, а одну модель разделяют все горутины разбора.
//
// Модель можно заменить "на лету" (Swap, Reload): разборы, которые уже идут,
// дорабатывают на старом снимке, и его память освобождается после последнего из них.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/steosofficial/steoslattice/connector"
	"github.com/steosofficial/steoslattice/dictionary"
	"github.com/steosofficial/steoslattice/lattice"
)

// --- ФАЙЛЫ КАТАЛОГА СЛОВАРЯ ---

const (
	SysDicFile     = "sys.dic"
	UnkDicFile     = "unk.dic"
	MatrixFile     = "matrix.bin"
	MatrixTextFile = "matrix.def"
	CharDefFile    = "char.def"
)

// --- СНИМОК МОДЕЛИ ---

var generation atomic.Uint64

// snapshot - неизменяемый набор таблиц с подсчетом ссылок. Одна ссылка
// принадлежит модели, остальные - решеткам, которые сейчас на нем разбирают.
type snapshot struct {
	refs atomic.Int64
	gen  uint64

	dicdir string
	sys    *dictionary.Dictionary
	user   []*dictionary.Dictionary
	unk    *dictionary.Dictionary
	dics   []*dictionary.Dictionary // Порядок поиска: системный, затем пользовательские.
	matrix *connector.Matrix
	chars  *dictionary.CharProperty

	unkTokens   [][]dictionary.Token // Индекс - класс символа.
	space       dictionary.CharInfo
	defaultType uint8

	bosFeature      string
	unkFeature      string
	maxGrouping     int
	maxSentenceSize int

	logger *Logger
}

func loadSnapshot(cfg *Config, logger *Logger) (*snapshot, error) {
	gen := generation.Add(1)
	s := &snapshot{
		gen:             gen,
		dicdir:          cfg.DicDir,
		bosFeature:      cfg.BOSFeature,
		unkFeature:      cfg.UnkFeature,
		maxGrouping:     cfg.MaxGroupingSize,
		maxSentenceSize: cfg.MaxSentenceSize,
		logger:          logger.WithGeneration(gen),
	}
	s.refs.Store(1)

	if err := s.open(cfg); err != nil {
		_ = s.close()
		return nil, err
	}
	return s, nil
}

func (s *snapshot) open(cfg *Config) error {
	var err error
	if s.sys, err = openDictionary(filepath.Join(cfg.DicDir, SysDicFile), dictionary.SysDic); err != nil {
		return fmt.Errorf("ошибка загрузки системного словаря: %w", err)
	}
	if s.unk, err = openDictionary(filepath.Join(cfg.DicDir, UnkDicFile), dictionary.UnkDic); err != nil {
		return fmt.Errorf("ошибка загрузки словаря неизвестных слов: %w", err)
	}
	for _, path := range cfg.UserDic {
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.DicDir, path)
		}
		d, err := openDictionary(path, dictionary.UsrDic)
		if err != nil {
			return fmt.Errorf("ошибка загрузки пользовательского словаря: %w", err)
		}
		s.user = append(s.user, d)
	}
	if s.matrix, err = openMatrix(cfg.DicDir); err != nil {
		return fmt.Errorf("ошибка загрузки матрицы соединений: %w", err)
	}
	if s.chars, err = openCharProperty(cfg.DicDir); err != nil {
		return fmt.Errorf("ошибка загрузки классов символов: %w", err)
	}

	// Все словари должны быть согласованы с матрицей.
	for _, d := range append([]*dictionary.Dictionary{s.sys, s.unk}, s.user...) {
		if err := checkDictionary(d, s.matrix); err != nil {
			return err
		}
	}

	// У каждого класса символов должна быть запись в unk.dic.
	names := s.chars.Names()
	s.unkTokens = make([][]dictionary.Token, len(names))
	for id, name := range names {
		r, ok := s.unk.ExactMatchSearch([]byte(name))
		if !ok {
			return fmt.Errorf("%w: нет записи для класса %s в %s", ErrIncompatibleModel, name, UnkDicFile)
		}
		s.unkTokens[id] = s.unk.Tokens(r)
		if len(s.unkTokens[id]) == 0 {
			return fmt.Errorf("%w: пустая запись класса %s в %s", ErrIncompatibleModel, name, UnkDicFile)
		}
		if name == "DEFAULT" {
			s.defaultType = uint8(id)
		}
	}
	s.space = s.chars.Info(' ')
	s.dics = append([]*dictionary.Dictionary{s.sys}, s.user...)
	return nil
}

func openDictionary(path string, want dictionary.Type) (*dictionary.Dictionary, error) {
	d, err := dictionary.Open(path)
	if err != nil {
		return nil, err
	}
	if d.Type() != want {
		_ = d.Close()
		return nil, fmt.Errorf("%s: ожидался словарь типа %s, а не %s", path, want, d.Type())
	}
	return d, nil
}

// openMatrix предпочитает бинарную матрицу и читает текстовую, только если бинарной нет.
func openMatrix(dicdir string) (*connector.Matrix, error) {
	bin := filepath.Join(dicdir, MatrixFile)
	if _, err := os.Stat(bin); err == nil {
		return connector.Open(bin)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return connector.OpenText(filepath.Join(dicdir, MatrixTextFile))
}

func openCharProperty(dicdir string) (*dictionary.CharProperty, error) {
	path := filepath.Join(dicdir, CharDefFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return dictionary.DefaultCharProperty(), nil
	}
	return dictionary.OpenCharDef(path)
}

func checkDictionary(d *dictionary.Dictionary, m *connector.Matrix) error {
	if d.LSize() != m.LeftSize() || d.RSize() != m.RightSize() {
		return &SizeMismatchError{
			Dictionary:  d.Filename(),
			DicLSize:    d.LSize(),
			DicRSize:    d.RSize(),
			MatrixLSize: m.LeftSize(),
			MatrixRSize: m.RightSize(),
		}
	}
	tokens := d.AllTokens()
	if d.LexSize() < len(tokens) {
		tokens = tokens[:d.LexSize()]
	}
	for i := range tokens {
		if !m.IsValid(int(tokens[i].RcAttr), int(tokens[i].LcAttr)) {
			return &ContextIDError{
				Dictionary: d.Filename(),
				Token:      i,
				LcAttr:     tokens[i].LcAttr,
				RcAttr:     tokens[i].RcAttr,
			}
		}
	}
	return nil
}

// acquire берет ссылку, если снимок еще жив.
func (s *snapshot) acquire() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release отпускает ссылку. Последняя ссылка закрывает таблицы.
func (s *snapshot) release() {
	if s.refs.Add(-1) == 0 {
		err := s.close()
		s.logger.LogReclaim(context.Background(), err)
	}
}

func (s *snapshot) close() error {
	var errs []error
	if s.sys != nil {
		errs = append(errs, s.sys.Close())
	}
	if s.unk != nil {
		errs = append(errs, s.unk.Close())
	}
	for _, d := range s.user {
		errs = append(errs, d.Close())
	}
	if s.matrix != nil {
		errs = append(errs, s.matrix.Close())
	}
	return errors.Join(errs...)
}

// --- МОДЕЛЬ ---

// Model - разделяемая модель анализатора. Безопасна для одновременного
// использования из любого числа горутин.
type Model struct {
	current atomic.Pointer[snapshot]
	config  Config
	logger  *Logger
}

// NewModel загружает модель. Без WithConfig настройки читаются через
// EnvConfigPath, каталог словаря можно переопределить EnvDicDir или WithDicDir.
func NewModel(opts ...Option) (*Model, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var cfg Config
	if o.config != nil {
		cfg = *o.config
	} else {
		var err error
		if cfg, err = readConfig(""); err != nil {
			return nil, err
		}
	}
	if o.dicdir != "" {
		cfg.DicDir = o.dicdir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		level, _ := ParseLevel(cfg.LogLevel)
		logger = NewTextLogger(level)
	}

	s, err := loadSnapshot(&cfg, logger)
	lexSize, lsize, rsize := 0, 0, 0
	if err == nil {
		lexSize, lsize, rsize = s.sys.LexSize(), s.matrix.LeftSize(), s.matrix.RightSize()
	}
	logger.LogLoad(context.Background(), cfg.DicDir, lexSize, lsize, rsize, err)
	if err != nil {
		return nil, err
	}

	m := &Model{config: cfg, logger: logger}
	m.current.Store(s)
	return m, nil
}

// Config возвращает настройки, с которыми модель создана.
func (m *Model) Config() Config { return m.config }

func (m *Model) Logger() *Logger { return m.logger }

func (m *Model) acquire() (*snapshot, error) {
	for {
		s := m.current.Load()
		if s == nil {
			return nil, ErrModelClosed
		}
		if s.acquire() {
			return s, nil
		}
		// Снимок освободили между Load и acquire: читаем указатель заново.
	}
}

// Swap забирает таблицы модели next и атомарно ставит их на место текущих.
// После Swap модель next пуста. Разборы, начатые до Swap, дорабатывают
// на старых таблицах.
func (m *Model) Swap(next *Model) error {
	if next == m {
		return nil
	}
	s := next.current.Swap(nil)
	if s == nil {
		return ErrModelClosed
	}
	m.install(s)
	return nil
}

// Reload заново загружает каталог словаря и заменяет им текущие таблицы.
func (m *Model) Reload() error {
	s, err := loadSnapshot(&m.config, m.logger)
	if err != nil {
		m.logger.LogLoad(context.Background(), m.config.DicDir, 0, 0, 0, err)
		return err
	}
	m.install(s)
	return nil
}

func (m *Model) install(s *snapshot) {
	old := m.current.Swap(s)
	var oldGen uint64
	if old != nil {
		oldGen = old.gen
		old.release()
	}
	m.logger.LogSwap(context.Background(), oldGen, s.gen)
}

// Close отпускает таблицы модели. Память освобождается, когда завершится
// последний разбор, который их использует.
func (m *Model) Close() error {
	if s := m.current.Swap(nil); s != nil {
		s.release()
	}
	return nil
}

// DictionaryInfo возвращает сводку по словарям текущего снимка.
func (m *Model) DictionaryInfo() ([]dictionary.Info, error) {
	s, err := m.acquire()
	if err != nil {
		return nil, err
	}
	defer s.release()

	infos := []dictionary.Info{s.sys.Info(), s.unk.Info()}
	for _, d := range s.user {
		infos = append(infos, d.Info())
	}
	return infos, nil
}

// NewLattice создает решетку с режимом и theta из настроек модели.
func (m *Model) NewLattice() *lattice.Lattice {
	l := lattice.New()
	l.SetRequest(m.config.Request())
	l.SetTheta(m.config.Theta)
	return l
}

// ParseLattice разбирает предложение решетки. Решетка удерживает снимок модели
// до следующего разбора или Clear, поэтому признаки узлов остаются доступными
// и после замены модели.
func (m *Model) ParseLattice(l *lattice.Lattice) error {
	s, err := m.acquire()
	if err != nil {
		l.Finish(err)
		return err
	}
	l.Hold(s.release)

	err = s.analyze(l)
	l.Finish(err)
	m.logger.LogParse(context.Background(), l.Size(), err)
	return err
}

// --- ПАКЕТНЫЙ РАЗБОР ---

// ParseList разбирает предложения конкурентно, используя пул воркеров. У каждого
// воркера своя решетка. Результаты идут в порядке входа. Первая ошибка или
// отмена ctx останавливает раздачу работы.
func (m *Model) ParseList(ctx context.Context, sentences []string) ([][]Morpheme, error) {
	return m.parseList(ctx, sentences, m.config.Request(), m.config.Theta)
}

func (m *Model) parseList(ctx context.Context, sentences []string, request lattice.Request, theta float64) ([][]Morpheme, error) {
	const chunkSize = 256
	numWorkers := runtime.NumCPU()

	results := make([][]Morpheme, len(sentences))
	g, ctx := errgroup.WithContext(ctx)

	// Канал для отправки "пакетов" (начал чанков) в воркеры.
	chunksCh := make(chan int, numWorkers)

	// Диспетчер нарезает вход на чанки.
	g.Go(func() error {
		defer close(chunksCh)
		for i := 0; i < len(sentences); i += chunkSize {
			select {
			case chunksCh <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < numWorkers; w++ {
		g.Go(func() error {
			l := lattice.New()
			l.SetRequest(request &^ lattice.NBest)
			l.SetTheta(theta)
			defer l.Clear()

			for start := range chunksCh {
				end := min(start+chunkSize, len(sentences))
				for i := start; i < end; i++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					l.SetSentence(sentences[i])
					if err := m.ParseLattice(l); err != nil {
						return fmt.Errorf("предложение %d: %w", i, err)
					}
					results[i] = Morphemes(l)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	m.logger.LogBatch(ctx, len(sentences), err)
	if err != nil {
		return nil, err
	}
	return results, nil
}
