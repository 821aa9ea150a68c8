// Package validator проверяет целостность сохраненных версионированных записей
// и восстанавливает их повторным применением истории.
package validator

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iudanet/gophsync/internal/crypto"
	"github.com/iudanet/gophsync/internal/models"
)

// DefaultMaxClockSkew допустимое опережение timestamp записи относительно текущего времени
const DefaultMaxClockSkew = 5 * time.Minute

// Result результат проверки записи
type Result struct {
	Errors  []error
	IsValid bool
}

// Validator stateless проверка записей; безопасен для конкурентного использования
type Validator struct {
	clock        clockwork.Clock
	maxClockSkew time.Duration
}

// Option настраивает Validator
type Option func(*Validator)

// WithMaxClockSkew задает допустимое опережение timestamp
func WithMaxClockSkew(skew time.Duration) Option {
	return func(v *Validator) {
		v.maxClockSkew = skew
	}
}

// WithClock задает источник времени
func WithClock(clock clockwork.Clock) Option {
	return func(v *Validator) {
		v.clock = clock
	}
}

// New создает Validator
func New(opts ...Option) *Validator {
	v := &Validator{
		clock:        clockwork.NewRealClock(),
		maxClockSkew: DefaultMaxClockSkew,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate проверяет запись и возвращает все найденные ошибки.
// Ошибки имеют тип *ValidationError.
func (v *Validator) Validate(record *models.VersionedData) Result {
	if record == nil {
		return Result{Errors: []error{&ValidationError{Field: "record", Reason: "is nil"}}}
	}

	var errs []error
	missing := func(field string) {
		errs = append(errs, &ValidationError{Field: field, Reason: "is required"})
	}

	// Обязательные поля
	if record.Data == nil {
		missing("data")
	}
	if record.Version <= 0 {
		missing("version")
	}
	if record.Timestamp <= 0 {
		missing("timestamp")
	}
	if record.UserID == "" {
		missing("userId")
	}
	if record.DeviceID == "" {
		missing("deviceId")
	}
	if record.Hash == "" {
		missing("hash")
	}
	if record.VectorClock == nil {
		missing("vectorClock")
	}

	limit := v.clock.Now().Add(v.maxClockSkew).UnixMilli()
	if record.Timestamp > limit {
		errs = append(errs, &ValidationError{Field: "timestamp", Reason: "is too far in the future"})
	}

	if record.Data != nil && record.Hash != "" {
		if err := crypto.VerifyHash(record.Data, record.Hash); err != nil {
			errs = append(errs, &ValidationError{Field: "hash", Reason: err.Error()})
		}
	}

	return Result{Errors: errs, IsValid: len(errs) == 0}
}
