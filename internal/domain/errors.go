package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errores de dominio (sentinels). Los tipos enriquecidos de abajo envuelven
// a uno de ellos, de modo que errors.Is sigue funcionando en la capa HTTP.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("registro duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto de estado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrCooldown          = errors.New("solicitud en periodo de espera")
	ErrRateLimited       = errors.New("demasiadas solicitudes")
	ErrPrimaryWrite      = errors.New("fallo de escritura en el almacén principal")
	ErrSecondaryWrite    = errors.New("fallo de escritura en el almacén secundario")
	ErrConfiguration     = errors.New("configuración incompleta")
)

// FieldError describe un problema asociado a un campo de la entrada.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors agrupa errores por campo. Kind es ErrInvalidInput o ErrDuplicate.
type FieldErrors struct {
	Kind   error
	Fields []FieldError
}

// NewValidationError crea un error de validación con los campos dados.
func NewValidationError(fields ...FieldError) *FieldErrors {
	return &FieldErrors{Kind: ErrInvalidInput, Fields: fields}
}

// NewDuplicateError crea un error de unicidad con los campos dados.
func NewDuplicateError(fields ...FieldError) *FieldErrors {
	return &FieldErrors{Kind: ErrDuplicate, Fields: fields}
}

// Add agrega un error de campo. Un mismo campo no se repite.
func (e *FieldErrors) Add(field, message string) {
	for _, f := range e.Fields {
		if f.Field == field {
			return
		}
	}
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Empty indica si no se registró ningún campo.
func (e *FieldErrors) Empty() bool { return e == nil || len(e.Fields) == 0 }

// OrNil devuelve nil cuando no hay campos; útil al final de una validación.
func (e *FieldErrors) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *FieldErrors) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, strings.Join(parts, "; "))
}

func (e *FieldErrors) Unwrap() error { return e.Kind }

// StockShortage detalle de un producto sin existencias suficientes.
type StockShortage struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	AreaID      string `json:"area_id"`
	Requested   int64  `json:"requested"`
	Available   int64  `json:"available"`
}

// Shortfall unidades faltantes.
func (s StockShortage) Shortfall() int64 { return s.Requested - s.Available }

// InsufficientStockError lista todos los productos cortos de una operación.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		name := s.ProductName
		if name == "" {
			name = s.ProductID
		}
		parts = append(parts, fmt.Sprintf("%s (solicitado %d, disponible %d)", name, s.Requested, s.Available))
	}
	return fmt.Sprintf("%v: %s", ErrInsufficientStock, strings.Join(parts, ", "))
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// CooldownError rechazo reciente vigente; RetryAfter es el primer instante en que se puede reintentar.
type CooldownError struct {
	RetryAfter time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%v: reintente después de %s", ErrCooldown, e.RetryAfter.UTC().Format(time.RFC3339))
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }

// StoreWriteError fallo de infraestructura en un paso concreto de una saga.
type StoreWriteError struct {
	Kind error
	Step string
	Err  error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("%v (%s): %v", e.Kind, e.Step, e.Err)
}

func (e *StoreWriteError) Unwrap() []error { return []error{e.Kind, e.Err} }

// PrimaryWrite envuelve un fallo del almacén de documentos.
func PrimaryWrite(step string, err error) error {
	return &StoreWriteError{Kind: ErrPrimaryWrite, Step: step, Err: err}
}

// SecondaryWrite envuelve un fallo del almacén relacional.
func SecondaryWrite(step string, err error) error {
	return &StoreWriteError{Kind: ErrSecondaryWrite, Step: step, Err: err}
}

// IsDomainError indica si err ya pertenece a la taxonomía de dominio.
func IsDomainError(err error) bool {
	for _, k := range []error{
		ErrNotFound, ErrInvalidInput, ErrDuplicate, ErrUnauthorized, ErrForbidden,
		ErrConflict, ErrInsufficientStock, ErrCooldown, ErrRateLimited,
		ErrPrimaryWrite, ErrSecondaryWrite, ErrConfiguration,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
