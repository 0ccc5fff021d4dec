package analyzer

// NewToyDicDir открывает игрушечный каталог словаря внешним тестам пакета.
var NewToyDicDir = newToyDicDir
