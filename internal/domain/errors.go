package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNewsletterNotFound = errors.New("newsletter not found")
	ErrSectionNotFound    = errors.New("section not found")
	ErrReadingNotFound    = errors.New("reading not found")
	ErrBuildLogNotFound   = errors.New("build log entry not found")
	ErrSourceNotFound     = errors.New("source not found")
	ErrNoSnapshot         = errors.New("no content synced yet")

	// ErrUnknownSection возвращается, если заголовок раздела не входит в каталог промптов.
	ErrUnknownSection = errors.New("unknown section type")
	// ErrNoContentGenerated возвращается, если в ответе модели нет текстового блока.
	ErrNoContentGenerated = errors.New("no content generated")
	// ErrAnalysisNotJSON возвращается, если ответ модели не является одним JSON-объектом.
	ErrAnalysisNotJSON = errors.New("analysis response is not a JSON object")
	// ErrGenerationInProgress возвращается, если генерация раздела уже выполняется.
	ErrGenerationInProgress = errors.New("generation already in progress for this section")
	// ErrBuildLogFinalized возвращается при попытке править финализированную запись.
	ErrBuildLogFinalized = errors.New("build log entry is finalized")
	// ErrCompletionNotConfigured возвращается, если не задан ключ сервиса генерации.
	ErrCompletionNotConfigured = errors.New("completion service is not configured")
)

// ValidationError описывает некорректный ввод.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError создаёт ошибку валидации поля.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError возвращается при нарушении уникальности и несёт уже существующую запись.
type ConflictError struct {
	Message  string
	Existing any
}

func (e *ConflictError) Error() string {
	return e.Message
}
