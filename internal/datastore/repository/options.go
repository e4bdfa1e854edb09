package repository

import "gorm.io/gorm"

// ListOptions limits a listing. Zero values mean no limit and no offset.
type ListOptions struct {
	Limit  int
	Offset int
}

func (o ListOptions) scope(db *gorm.DB) *gorm.DB {
	if o.Limit > 0 {
		db = db.Limit(o.Limit)
	}
	if o.Offset > 0 {
		db = db.Offset(o.Offset)
	}
	return db
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items []T
	Total int64
	Page  int // 1-based
	Size  int
}

// TotalPages returns the number of pages needed for Total items.
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

// Ref patches a nullable reference column. A nil *Ref leaves the column
// alone, a Ref with a nil ID clears it.
type Ref struct {
	ID *uint
}

// SetRef returns a patch value pointing the reference at id.
func SetRef(id uint) *Ref {
	return &Ref{ID: &id}
}

// ClearRef returns a patch value that nulls the reference.
func ClearRef() *Ref {
	return &Ref{}
}

// RefFrom returns SetRef(*id) or ClearRef() when id is nil.
func RefFrom(id *uint) *Ref {
	if id == nil {
		return ClearRef()
	}
	return SetRef(*id)
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// patchRef applies ref to dst and records the column when it changed.
func patchRef(cols map[string]any, column string, dst **uint, ref *Ref) {
	if ref == nil {
		return
	}
	if ref.ID == nil {
		*dst = nil
		cols[column] = nil
		return
	}
	id := *ref.ID
	*dst = &id
	cols[column] = id
}

// patchValue applies v to dst and records the column.
func patchValue[T any](cols map[string]any, column string, dst *T, v *T) {
	if v == nil {
		return
	}
	*dst = *v
	cols[column] = *v
}
