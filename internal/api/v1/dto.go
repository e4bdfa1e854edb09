package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/datastore/repository"
)

// Listing limits
const (
	defaultLimit = 50
	maxLimit     = 500
)

// OptionalID is a nullable reference in a patch body. An absent member
// leaves the column alone, null clears it and a number points it elsewhere.
type OptionalID struct {
	Set bool
	ID  *uint
}

// UnmarshalJSON records that the member was present.
func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.ID = nil
		return nil
	}
	var id uint
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	o.ID = &id
	return nil
}

// Ref converts o to the repository patch value.
func (o OptionalID) Ref() *repository.Ref {
	if !o.Set {
		return nil
	}
	return repository.RefFrom(o.ID)
}

// ListResponse is one page of a listing.
type ListResponse[E any] struct {
	Items  []E   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// listOptions reads ?limit= and ?offset=.
func listOptions(ctx echo.Context) (repository.ListOptions, error) {
	opts := repository.ListOptions{Limit: defaultLimit}
	if v := ctx.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			return opts, invalid("limit must be between 1 and " + strconv.Itoa(maxLimit))
		}
		opts.Limit = n
	}
	if v := ctx.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, invalid("offset must be a non-negative number")
		}
		opts.Offset = n
	}
	return opts, nil
}

// bind decodes the request body into req; malformed JSON is a validation error.
func bind(ctx echo.Context, req any) error {
	if err := (&echo.DefaultBinder{}).BindBody(ctx, req); err != nil {
		return invalid("malformed request body")
	}
	return nil
}

func listEntities[E any](c *Controller, ctx echo.Context, entity string,
	list func(context.Context, repository.ListOptions) ([]E, error),
	count func(context.Context) (int64, error),
) error {
	opts, err := listOptions(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid paging parameters")
	}
	rctx := ctx.Request().Context()
	total, err := count(rctx)
	if err != nil {
		return c.HandleError(ctx, err, "failed to count "+entity+" records")
	}
	items, err := list(rctx, opts)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list "+entity+" records")
	}
	if items == nil {
		items = []E{}
	}
	return ctx.JSON(http.StatusOK, ListResponse[E]{Items: items, Total: total, Limit: opts.Limit, Offset: opts.Offset})
}

func getEntity[E any](c *Controller, ctx echo.Context, entity string, get func(context.Context, uint) (*E, error)) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	e, err := get(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to get "+entity)
	}
	return ctx.JSON(http.StatusOK, e)
}

func (c *Controller) deleteEntity(ctx echo.Context, entity string, del func(context.Context, uint) error) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	err = del(ctx.Request().Context(), id)
	c.record(entity, "delete", err)
	if err != nil {
		return c.HandleError(ctx, err, "failed to delete "+entity)
	}
	c.log.Info("record deleted", logFields(ctx, entity, id)...)
	return ctx.NoContent(http.StatusNoContent)
}

// created answers 201 with the record and logs the write.
func (c *Controller) created(ctx echo.Context, entity string, id uint, body any) error {
	c.record(entity, "create", nil)
	c.log.Info("record created", logFields(ctx, entity, id)...)
	return ctx.JSON(http.StatusCreated, body)
}

// updated answers 200 with the record and logs the write.
func (c *Controller) updated(ctx echo.Context, entity string, id uint, body any) error {
	c.record(entity, "update", nil)
	c.log.Info("record updated", logFields(ctx, entity, id)...)
	return ctx.JSON(http.StatusOK, body)
}

// failed records a failed write and answers with the error.
func (c *Controller) failed(ctx echo.Context, entity, operation string, err error) error {
	c.record(entity, operation, err)
	return c.HandleError(ctx, err, "failed to "+operation+" "+entity)
}
