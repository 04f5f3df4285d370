package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Kind — класс ошибки ядра.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// ConflictReason уточняет, почему слот недоступен.
type ConflictReason string

const (
	ReasonAlreadyBooked ConflictReason = "already_booked"
	ReasonHeldByOther   ConflictReason = "held_by_other"
	ReasonNotAvailable  ConflictReason = "not_available"
	ReasonSlotStarted   ConflictReason = "slot_started"
)

// Error — ошибка ядра. Реализует GRPCStatus, так что status.Code(err) отдаёт нужный код.
type Error struct {
	Kind    Kind
	Reason  ConflictReason
	SlotID  uuid.UUID // слот, из-за которого операция не прошла (если есть)
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code(), e.Message)
}

func (e *Error) Code() codes.Code {
	switch e.Kind {
	case KindInvalidInput:
		return codes.InvalidArgument
	case KindNotFound:
		return codes.NotFound
	case KindConflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

func invalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func slotNotFound(id uuid.UUID) *Error {
	return &Error{Kind: KindNotFound, SlotID: id, Message: fmt.Sprintf("slot %s not found", id)}
}

func conflict(id uuid.UUID, reason ConflictReason) *Error {
	return &Error{
		Kind:    KindConflict,
		Reason:  reason,
		SlotID:  id,
		Message: fmt.Sprintf("slot %s is unavailable: %s", id, reason),
	}
}

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// AsError достаёт *Error из цепочки.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind проверяет класс ошибки.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// wrapStorage оборачивает ошибку хранилища, не трогая уже типизированные.
func wrapStorage(msg string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("%s: not found", msg)
	}
	return internal(msg, err)
}
