// Package repository provides one repository per console entity.
//
// Every repository offers Create, GetByID, Update, List, Count and Delete.
// Update takes a typed patch whose nil members leave columns untouched and
// whose Version member, when set, must match the stored row.
//
// Errors are *errors.EnhancedError values wrapping the sentinels in
// errors.go, so both errors.Is(err, ErrChannelNotFound) and
// errors.IsCategory(err, errors.CategoryReferential) work.
//
// Foreign keys are checked before every write so that a missing reference
// is reported the same way on SQLite and MySQL; deletes detach or remove
// dependent rows inside the same transaction.
package repository
