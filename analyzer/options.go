package analyzer

type options struct {
	config *Config
	dicdir string
	logger *Logger
}

// Option настраивает NewModel.
type Option func(*options)

// WithConfig задает конфигурацию целиком. Без нее используется LoadConfig("").
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithDicDir переопределяет каталог словаря.
func WithDicDir(dir string) Option {
	return func(o *options) {
		o.dicdir = dir
	}
}

// WithLogger задает логгер. Без него уровень берется из log-level конфигурации.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
