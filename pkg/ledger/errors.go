package ledger

import (
	"errors"
	"fmt"
)

// Error classes. Every error a Store returns matches at most one of them with errors.Is.
var (
	// ErrValidation is returned when input is rejected before any state changes
	ErrValidation = errors.New("ledger: invalid input")

	// ErrNotFound is returned when an operation references something that does not exist
	ErrNotFound = errors.New("ledger: not found")

	// ErrPersistence is returned when the mutation was applied in memory but could not
	// be written. The next successful write or Flush stores it.
	ErrPersistence = errors.New("ledger: persistence failed")

	// ErrNotReady is returned by mutations attempted before Load completed
	ErrNotReady = errors.New("ledger: store not ready")
)

var (
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrEmptyDescription = fmt.Errorf("%w: description is empty", ErrValidation)
	ErrEmptyName        = fmt.Errorf("%w: name is empty", ErrValidation)
	ErrInvalidKind      = fmt.Errorf("%w: kind must be income or expense", ErrValidation)
	ErrInvalidTerm      = fmt.Errorf("%w: term must be a positive number of months or years", ErrValidation)
	ErrUnknownAccount   = fmt.Errorf("%w: unknown account", ErrValidation)

	ErrUnknownTransaction = fmt.Errorf("%w: unknown transaction", ErrNotFound)
	ErrUnknownGoal        = fmt.Errorf("%w: unknown goal", ErrNotFound)
	ErrUndoExpired        = fmt.Errorf("%w: nothing to undo", ErrNotFound)
)

// IsValidation reports whether err rejected the input before any state changed.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether err names a transaction, goal or undo that does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPersistence reports whether the change was applied in memory but not written.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// ClassifyError returns a short classification of err for metrics labels.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUndoExpired):
		return "undo_expired"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "other"
	}
}

// FailureMessage is the pt-BR user-facing text for a failed operation.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotReady):
		return "Aguarde o carregamento dos dados"
	case errors.Is(err, ErrEmptyName):
		return "O nome não pode estar vazio"
	case errors.Is(err, ErrEmptyDescription):
		return "Informe uma descrição"
	case errors.Is(err, ErrInvalidAmount):
		return "Informe um valor maior que zero"
	case errors.Is(err, ErrUnknownAccount):
		return "Conta não encontrada"
	case errors.Is(err, ErrValidation):
		return "Dados inválidos"
	case errors.Is(err, ErrUnknownTransaction):
		return "Movimentação não encontrada"
	case errors.Is(err, ErrUnknownGoal):
		return "Meta não encontrada"
	case errors.Is(err, ErrUndoExpired):
		return "Não é mais possível desfazer"
	case errors.Is(err, ErrNotFound):
		return "Item não encontrado"
	case errors.Is(err, ErrPersistence):
		return "Não foi possível salvar os dados"
	default:
		return "Algo deu errado"
	}
}
