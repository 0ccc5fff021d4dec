package analyzer

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompatibleModel - словарь, матрица и таблица неизвестных слов не согласованы.
	ErrIncompatibleModel = errors.New("словарь и матрица соединений несовместимы")
	// ErrModelClosed - модель закрыта или ее снимок уже отдан через Swap.
	ErrModelClosed = errors.New("модель закрыта")
	// ErrInvalidConfig - конфигурация не прошла проверку.
	ErrInvalidConfig = errors.New("неверная конфигурация")
)

// SizeMismatchError - размеры матрицы не совпадают с размерами, объявленными словарем.
type SizeMismatchError struct {
	Dictionary  string
	DicLSize    int
	DicRSize    int
	MatrixLSize int
	MatrixRSize int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("словарь %s (%dx%d) несовместим с матрицей соединений (%dx%d)",
		e.Dictionary, e.DicLSize, e.DicRSize, e.MatrixLSize, e.MatrixRSize)
}

func (e *SizeMismatchError) Unwrap() error { return ErrIncompatibleModel }

// ContextIDError - токен словаря ссылается на контекст вне матрицы.
type ContextIDError struct {
	Dictionary string
	Token      int
	LcAttr     uint16
	RcAttr     uint16
}

func (e *ContextIDError) Error() string {
	return fmt.Sprintf("словарь %s: токен %d ссылается на контексты lc=%d rc=%d вне матрицы",
		e.Dictionary, e.Token, e.LcAttr, e.RcAttr)
}

func (e *ContextIDError) Unwrap() error { return ErrIncompatibleModel }
