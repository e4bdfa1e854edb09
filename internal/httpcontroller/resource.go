package httpcontroller

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/api/auth"
	"github.com/tphakala/console-panel/internal/api/middleware"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
	"github.com/tphakala/console-panel/internal/logger"
)

const pageSize = 25

// record is satisfied by the pointer type of every entity.
type record[E any] interface {
	*E
	entities.Record
}

// Field kinds rendered by the form template
const (
	kindText     = "text"
	kindTextarea = "textarea"
	kindEmail    = "email"
	kindPassword = "password"
	kindNumber   = "number"
	kindPercent  = "percent"
	kindCheckbox = "checkbox"
	kindSelect   = "select"
)

// field describes one form input.
type field struct {
	Name     string
	Label    string
	Kind     string
	Required bool
	Step     string
	Help     string
	// Lookup fills a select from the lookups cache; Choices is a fixed list
	Lookup  string
	Choices []option
}

// fieldView is a field with its current value and options.
type fieldView struct {
	field
	Value   string
	Options []option
}

type column[E any] struct {
	header string
	cell   func(ctx context.Context, e *E) string
}

// resource wires the list, form and delete pages of one entity to its repository.
type resource[E any, P record[E]] struct {
	ctl       *Controller
	name      string // path segment and lookup name
	entity    string // singular, for messages and metrics
	title     string
	adminOnly bool

	fields     []field
	editFields []field // defaults to fields
	columns    []column[E]

	list     func(ctx context.Context, opts repository.ListOptions) ([]E, error)
	count    func(ctx context.Context) (int64, error)
	search   func(ctx context.Context, term string) ([]E, error)
	get      func(ctx context.Context, id uint) (*E, error)
	values   func(e *E) map[string]string
	describe func(e *E) string
	create   func(c echo.Context, f *form) (*E, error)
	update   func(c echo.Context, id uint, f *form) (*E, error)
	remove   func(c echo.Context, id uint) error
}

// routable erases the type parameters of resource.
type routable interface {
	register(g *echo.Group, mw *auth.Middleware)
	nav() (name, title string)
}

func (r *resource[E, P]) nav() (name, title string) {
	return r.name, r.title
}

func (r *resource[E, P]) register(g *echo.Group, mw *auth.Middleware) {
	var guard []echo.MiddlewareFunc
	if r.adminOnly {
		guard = append(guard, mw.RequireAdmin)
	}
	base := "/" + r.name
	g.GET(base, r.listPage)
	g.GET(base+"/new", r.newPage, guard...)
	g.POST(base, r.createRecord, guard...)
	g.GET(base+"/:id/edit", r.editPage, guard...)
	g.POST(base+"/:id", r.updateRecord, guard...)
	g.POST(base+"/:id/delete", r.deleteRecord, guard...)
}

func (r *resource[E, P]) canWrite(c echo.Context) bool {
	return !r.adminOnly || auth.CurrentUser(c).IsAdmin()
}

type listView struct {
	Resource string
	Title    string
	Headers  []string
	Rows     []rowView
	CanWrite bool
	Search   bool
	Query    string
	Page     int
	Pages    int
	Total    int64
}

type rowView struct {
	ID    uint
	Cells []string
}

func (r *resource[E, P]) listPage(c echo.Context) error {
	ctx := c.Request().Context()
	query := strings.TrimSpace(c.QueryParam("q"))
	page := max(int(queryUint(c, "page")), 1)

	var (
		items []E
		total int64
		err   error
	)
	if query != "" && r.search != nil {
		items, err = r.search(ctx, query)
		total = int64(len(items))
	} else {
		if total, err = r.count(ctx); err == nil {
			items, err = r.list(ctx, repository.ListOptions{Limit: pageSize, Offset: (page - 1) * pageSize})
		}
	}
	if err != nil {
		return err
	}

	view := listView{
		Resource: r.name,
		Title:    r.title,
		CanWrite: r.canWrite(c),
		Search:   r.search != nil,
		Query:    query,
		Page:     page,
		Pages:    max(int((total+pageSize-1)/pageSize), 1),
		Total:    total,
	}
	for _, col := range r.columns {
		view.Headers = append(view.Headers, col.header)
	}
	for i := range items {
		e := &items[i]
		row := rowView{ID: P(e).GetID()}
		for _, col := range r.columns {
			row.Cells = append(row.Cells, col.cell(ctx, e))
		}
		view.Rows = append(view.Rows, row)
	}
	return r.ctl.render(c, http.StatusOK, "list", r.name, r.title, view)
}

type formView struct {
	Resource string
	Title    string
	Action   string
	Fields   []fieldView
	Version  uint
	Error    string
	Editing  bool
	ID       uint
}

func (r *resource[E, P]) formFields(editing bool) []field {
	if editing && r.editFields != nil {
		return r.editFields
	}
	return r.fields
}

// renderForm shows the create form (id 0) or the edit form with values.
// Nil values show the draft pending in the session, which is consumed.
func (r *resource[E, P]) renderForm(c echo.Context, status int, id, version uint, values map[string]string, problem error) error {
	ctx := c.Request().Context()
	editing := id != 0
	if values == nil {
		values = r.ctl.sessions.Load(c).TakeForm(r.name)
	}

	view := formView{
		Resource: r.name,
		Title:    "New " + r.entity,
		Action:   "/" + r.name,
		Version:  version,
		Editing:  editing,
		ID:       id,
	}
	if editing {
		view.Title = "Edit " + r.entity
		view.Action = "/" + r.name + "/" + strconv.FormatUint(uint64(id), 10)
	}
	if problem != nil {
		view.Error = problem.Error()
	}

	for _, fd := range r.formFields(editing) {
		fv := fieldView{field: fd, Value: values[fd.Name], Options: fd.Choices}
		if fd.Lookup != "" {
			opts, err := r.ctl.lookups.options(ctx, fd.Lookup)
			if err != nil {
				return err
			}
			fv.Options = opts
		}
		view.Fields = append(view.Fields, fv)
	}
	return r.ctl.render(c, status, "form", r.name, view.Title, view)
}

func (r *resource[E, P]) newPage(c echo.Context) error {
	return r.renderForm(c, http.StatusOK, 0, 0, nil, nil)
}

func (r *resource[E, P]) editPage(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	e, err := r.get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return r.renderForm(c, http.StatusOK, id, P(e).GetVersion(), r.values(e), nil)
}

func (r *resource[E, P]) createRecord(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form")
	}
	f := newForm(params)
	f.required(true, r.formFields(false))

	e, err := r.create(c, f)
	r.ctl.recordEntity(r.entity, "create", err)
	if err != nil {
		return r.rejectForm(c, err, 0, f)
	}

	r.ctl.lookups.invalidate(r.name)
	r.ctl.log.Info("record created",
		logger.String("entity", r.entity),
		logger.Uint("id", P(e).GetID()),
		logger.Uint("user_id", auth.CurrentUser(c).ID))
	return r.ctl.redirect(c, "/"+r.name, FlashSuccess, "Created "+r.entity+" "+quote(r.describe(e))+".")
}

func (r *resource[E, P]) updateRecord(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form")
	}
	f := newForm(params)
	f.required(false, r.formFields(true))

	e, err := r.update(c, id, f)
	r.ctl.recordEntity(r.entity, "update", err)
	if err != nil {
		return r.rejectForm(c, err, id, f)
	}

	r.ctl.lookups.invalidate(r.name)
	r.ctl.log.Info("record updated",
		logger.String("entity", r.entity),
		logger.Uint("id", id),
		logger.Uint("version", P(e).GetVersion()),
		logger.Uint("user_id", auth.CurrentUser(c).ID))
	return r.ctl.redirect(c, "/"+r.name, FlashSuccess, "Saved "+r.entity+" "+quote(r.describe(e))+".")
}

// rejectForm re-renders the submitted form with the error. The submitted
// values pass through the session and are consumed by this render, so the
// next visit to the form starts empty. Storage failures go to the error
// page instead.
func (r *resource[E, P]) rejectForm(c echo.Context, err error, id uint, f *form) error {
	status := middleware.StatusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusNotFound && id != 0 {
		return err
	}
	var version uint
	if v := f.version(); v != nil {
		version = *v
	}
	r.ctl.sessions.Load(c).RememberForm(r.name, f.flat())
	return r.renderForm(c, status, id, version, nil, err)
}

func (r *resource[E, P]) deleteRecord(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	err = r.remove(c, id)
	r.ctl.recordEntity(r.entity, "delete", err)
	if err != nil {
		if middleware.StatusFor(err) >= http.StatusInternalServerError {
			return err
		}
		return r.ctl.redirect(c, "/"+r.name, FlashError, "Could not delete "+r.entity+": "+err.Error())
	}

	r.ctl.lookups.flush()
	r.ctl.log.Info("record deleted",
		logger.String("entity", r.entity),
		logger.Uint("id", id),
		logger.Uint("user_id", auth.CurrentUser(c).ID))
	return r.ctl.redirect(c, "/"+r.name, FlashSuccess, "Deleted "+r.entity+" #"+strconv.FormatUint(uint64(id), 10)+".")
}

func quote(s string) string {
	if s == "" {
		return ""
	}
	return "“" + s + "”"
}

// idString renders an optional ID as a select value.
func idString(id *uint) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
