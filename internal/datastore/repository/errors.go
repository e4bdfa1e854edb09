package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/errors"
)

const component = "datastore.repository"

// Sentinel errors for repository operations.
var (
	ErrUserNotFound           = errors.NewStd("user not found")
	ErrTypeNotFound           = errors.NewStd("type not found")
	ErrDeviceNotFound         = errors.NewStd("device not found")
	ErrFrequencyNotFound      = errors.NewStd("frequency not found")
	ErrAudioInterfaceNotFound = errors.NewStd("audio interface not found")
	ErrSourceNotFound         = errors.NewStd("source not found")
	ErrChannelNotFound        = errors.NewStd("channel not found")
	ErrInputNotFound          = errors.NewStd("input not found")
	ErrConfigurationNotFound  = errors.NewStd("configuration not found")
	ErrChannelSettingNotFound = errors.NewStd("channel setting not found")

	// ErrReference indicates a foreign key pointing at a row that does not exist.
	ErrReference = errors.NewStd("referenced record does not exist")

	// ErrDuplicateKey indicates a unique constraint violation.
	ErrDuplicateKey = errors.NewStd("duplicate key")

	// ErrStaleVersion indicates the row changed after the caller read it.
	ErrStaleVersion = errors.NewStd("record was modified by someone else")

	// ErrInUse indicates a delete refused because other rows still reference the record.
	ErrInUse = errors.NewStd("record is still referenced")

	// ErrInvalidInput indicates a field failed validation.
	ErrInvalidInput = errors.NewStd("invalid input")

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.NewStd("invalid email or password")
)

// Resource names used in error context and messages
const (
	resUser            = "user"
	resType            = "type"
	resDevice          = "device"
	resFrequency       = "frequency"
	resAudioInterface  = "audio interface"
	resSource          = "source"
	resChannel         = "channel"
	resInput           = "input"
	resConfiguration   = "configuration"
	resChannelSetting  = "channel setting"
	resInputConnection = "input connection"
)

func notFoundError(sentinel error, resource string, id any) error {
	return errors.New(sentinel).
		Component(component).
		Category(errors.CategoryNotFound).
		Context("resource", resource).
		Context("id", fmt.Sprint(id)).
		Build()
}

// invalidField reports a validation failure on one field
func invalidField(field, message string) error {
	return errors.New(fmt.Errorf("%w: %s %s", ErrInvalidInput, field, message)).
		Component(component).
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

// referenceError reports a foreign key pointing at a missing row
func referenceError(resource string, id uint) error {
	return errors.New(fmt.Errorf("%w: %s %d", ErrReference, resource, id)).
		Component(component).
		Category(errors.CategoryReferential).
		Context("resource", resource).
		Context("id", id).
		Build()
}

func staleError(resource string, id uint) error {
	return errors.New(fmt.Errorf("%w: %s %d", ErrStaleVersion, resource, id)).
		Component(component).
		Category(errors.CategoryConflict).
		Context("resource", resource).
		Context("id", id).
		Build()
}

func inUseError(resource string, id uint, references int64) error {
	return errors.New(fmt.Errorf("%w: %s %d has %d dependent records", ErrInUse, resource, id, references)).
		Component(component).
		Category(errors.CategoryConflict).
		Context("resource", resource).
		Context("id", id).
		Context("references", references).
		Build()
}

// dbError classifies a GORM error. Unique and foreign key violations keep
// their own categories so handlers can answer 409 and 422 instead of 500.
func dbError(err error, operation, resource string) error {
	if err == nil {
		return nil
	}

	// already classified by a nested call
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return err
	}

	builder := errors.New(err).
		Component(component).
		Context("operation", operation).
		Context("resource", resource)

	switch {
	case isDuplicateKey(err):
		builder = errors.New(fmt.Errorf("%w: %s already exists", ErrDuplicateKey, resource)).
			Component(component).
			Category(errors.CategoryConflict).
			Context("operation", operation).
			Context("resource", resource).
			Context("cause", err.Error())
	case isForeignKeyViolation(err):
		builder = errors.New(fmt.Errorf("%w: %w", ErrReference, err)).
			Component(component).
			Category(errors.CategoryReferential).
			Context("operation", operation).
			Context("resource", resource)
	case errors.Is(err, context.Canceled):
		builder = builder.Category(errors.CategoryCancellation)
	case errors.Is(err, context.DeadlineExceeded):
		builder = builder.Category(errors.CategoryTimeout)
	default:
		builder = builder.Category(errors.CategoryDatabase).Priority(errors.PriorityHigh)
	}

	return builder.Build()
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") || strings.Contains(msg, "a foreign key constraint fails")
}
