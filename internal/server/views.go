package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gurujiride/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{"index", "list", "offer", "feedback", "privacy", "error"}

var funcs = template.FuncMap{
	"date": func(d *time.Time) string {
		if d == nil {
			return "Any day"
		}
		return d.Format("Mon, Jan 2 2006")
	},
	"clock": func(c *storage.Clock) string {
		if c == nil {
			return "any time"
		}
		return c.String()
	},
	"utc": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
	"stamp": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04 UTC")
	},
}

// views holds one template set per page, each set shares layout and row fragments
type views struct {
	pages map[string]*template.Template
	rows  *template.Template
}

func loadViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/rows.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		v.pages[name] = t
	}

	rows, err := template.New("fragments").Funcs(funcs).ParseFS(templateFS, "templates/rows.html")
	if err != nil {
		return nil, fmt.Errorf("parsing rows template: %w", err)
	}
	v.rows = rows

	return v, nil
}

// page carries fields every view shows in the layout
type page struct {
	Title     string
	RequestID string
	Degraded  bool
	Notice    *notice
}

type notice struct {
	Outcome storage.Outcome
	Text    string
}

// Failed is true when the notice reports that nothing was stored
func (n *notice) Failed() bool {
	return n.Outcome != storage.Saved
}

var noticeTexts = map[string]map[storage.Outcome]string{
	"request": {
		storage.Saved:         "Your ride request is posted.",
		storage.SavedDegraded: "Your ride request could not be saved right now and is not posted. Please try again later.",
	},
	"offer": {
		storage.Saved:         "Your ride offer is posted.",
		storage.SavedDegraded: "Your ride offer could not be saved right now and is not posted. Please try again later.",
	},
	"feedback": {
		storage.Saved:         "Thank you, your feedback was received.",
		storage.SavedDegraded: "Thank you. We could not store your feedback right now, please try again later.",
	},
}

// noticeFrom reads the outcome carried through a redirect by the status query parameter
func noticeFrom(r *http.Request, kind string) *notice {
	o, ok := storage.ParseOutcome(r.URL.Query().Get("status"))
	if !ok {
		return nil
	}
	text, ok := noticeTexts[kind][o]
	if !ok {
		return nil
	}
	return &notice{Outcome: o, Text: text}
}

type indexView struct {
	page
	Form     rideRequestForm
	Errors   fieldErrors
	Recent   []storage.RideRequest
	Skip     int
	Take     int
	NextSkip int
}

type offerView struct {
	page
	Form   offerForm
	Errors fieldErrors
	Recent []storage.OfferRide
}

type feedbackView struct {
	page
	Form      feedbackForm
	Errors    fieldErrors
	Submitted bool
}

type listView struct {
	page
	Filters url.Values
	Query   storage.ListQuery
	Result  storage.Page
}

// Param returns raw filter value to refill the filter form
func (v listView) Param(key string) string {
	return v.Filters.Get(key)
}

// PageURL links to page n keeping every other filter
func (v listView) PageURL(n int) string {
	q := cloneValues(v.Filters)
	q.Set("page", strconv.Itoa(n))
	q.Set("pageSize", strconv.Itoa(v.Query.PageSize))
	return "/list?" + q.Encode()
}

// SortURL links to the listing sorted by key, repeating the current key flips direction
func (v listView) SortURL(key string) string {
	q := cloneValues(v.Filters)
	dir := "asc"
	if storage.SortKey(key) == v.Query.SortBy && !v.Query.Desc {
		dir = "desc"
	}
	q.Set("sortBy", key)
	q.Set("sortDir", dir)
	q.Del("page")
	return "/list?" + q.Encode()
}

// HasPrev and HasNext drive pagination links
func (v listView) HasPrev() bool { return v.Result.Page > 1 }
func (v listView) HasNext() bool { return v.Result.Page < v.Result.TotalPages() }

func (v listView) PrevURL() string { return v.PageURL(v.Result.Page - 1) }
func (v listView) NextURL() string { return v.PageURL(v.Result.Page + 1) }

func cloneValues(in url.Values) url.Values {
	out := make(url.Values, len(in))
	for k, vs := range in {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// render executes page template into a buffer first so a template failure never leaves half a page
func (h *handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	t, ok := h.views.pages[name]
	if !ok {
		h.logger.Errorf("Unknown view %q", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Errorf("rendering %s view for request %s: %v", name, requestID(r.Context()), err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Errorf("writing rendered view to ResponseWriter: %v", err)
	}
}
