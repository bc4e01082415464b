package server

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"gurujiride/internal/fallback"
	"gurujiride/internal/storage"
	"gurujiride/internal/storage/zapadapter"
)

const (
	defaultTake = 11
	maxTake     = 200
)

// Store is the part of storage.Store used by handlers
type Store interface {
	Ready(ctx context.Context, table string) bool
	Capabilities() map[string]bool
	CreateRideRequest(ctx context.Context, r storage.RideRequest) (int64, error)
	CreateOffer(ctx context.Context, o storage.OfferRide) (int64, error)
	CreateFeedback(ctx context.Context, f storage.Feedback) (int64, error)
	RecentRideRequests(ctx context.Context, skip, take int) ([]storage.RideRequest, error)
	RecentOffers(ctx context.Context, skip, take int) ([]storage.OfferRide, error)
	ListRideRequests(ctx context.Context, q storage.ListQuery) (storage.Page, error)
}

type handler struct {
	logger   *zap.SugaredLogger
	store    Store
	views    *views
	validate *validator.Validate
	parsers  fastjson.ParserPool
	now      func() time.Time
}

func (h *handler) routes() map[string]http.Handler {
	return map[string]http.Handler{
		"GET /{$}":       http.HandlerFunc(h.index),
		"POST /{$}":      acceptSubmission(http.HandlerFunc(h.createRideRequest)),
		"GET /list":      http.HandlerFunc(h.list),
		"GET /more":      http.HandlerFunc(h.more),
		"GET /offer":     http.HandlerFunc(h.offer),
		"POST /offer":    acceptSubmission(http.HandlerFunc(h.createOffer)),
		"GET /feedback":  http.HandlerFunc(h.feedback),
		"POST /feedback": acceptSubmission(http.HandlerFunc(h.createFeedback)),
		"GET /privacy":   http.HandlerFunc(h.privacy),
		"GET /error":     noCache(http.HandlerFunc(h.errorPage)),
		"GET /healthz":   http.HandlerFunc(h.healthz),
		"GET /static/":   http.FileServer(http.FS(staticFS)),
	}
}

func requestID(ctx context.Context) string {
	id, _ := zapadapter.IDFromContext(ctx)
	return id
}

// intParam reads integer query parameter, missing or malformed values yield def, the result is clamped to [lo, hi]
func intParam(q url.Values, key string, def, lo, hi int) int {
	v, err := strconv.Atoi(strings.TrimSpace(q.Get(key)))
	if err != nil {
		v = def
	}
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}

// recentRideRequests serves sample data whenever the table is not ready or the query fails
func (h *handler) recentRideRequests(ctx context.Context, skip, take int) ([]storage.RideRequest, bool) {
	if !h.store.Ready(ctx, storage.TableRideRequests) {
		return fallback.RideRequests(h.now(), take, skip), true
	}

	requests, err := h.store.RecentRideRequests(ctx, skip, take)
	if err != nil {
		h.logger.Warnf("Serving sample ride requests for request %s: %v", requestID(ctx), err)
		return fallback.RideRequests(h.now(), take, skip), true
	}

	return requests, false
}

func (h *handler) recentOffers(ctx context.Context, skip, take int) ([]storage.OfferRide, bool) {
	if !h.store.Ready(ctx, storage.TableOfferRides) {
		return fallback.Offers(h.now(), take, skip), true
	}

	offers, err := h.store.RecentOffers(ctx, skip, take)
	if err != nil {
		h.logger.Warnf("Serving sample ride offers for request %s: %v", requestID(ctx), err)
		return fallback.Offers(h.now(), take, skip), true
	}

	return offers, false
}

func (h *handler) listRideRequests(ctx context.Context, q storage.ListQuery) (storage.Page, bool) {
	if !h.store.Ready(ctx, storage.TableRideRequests) {
		return fallback.Page(h.now(), q), true
	}

	page, err := h.store.ListRideRequests(ctx, q)
	if err != nil {
		h.logger.Warnf("Serving sample listing for request %s: %v", requestID(ctx), err)
		return fallback.Page(h.now(), q), true
	}

	return page, false
}

// outcome logs failed create calls, the submission flow goes on either way
func (h *handler) outcome(ctx context.Context, what string, err error) storage.Outcome {
	o := storage.OutcomeOf(err)
	if o == storage.SavedDegraded {
		h.logger.Errorf("%s was not persisted (request %s): %v", what, requestID(ctx), err)
	}
	return o
}

// index handles GET requests on "/" endpoint
func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip := intParam(q, "skip", 0, 0, math.MaxInt32)
	take := intParam(q, "take", defaultTake, 1, maxTake)

	now := h.now()
	form := rideRequestForm{
		Date: now.Format("2006-01-02"),
		Time: now.Format("15:04"),
	}

	h.renderIndex(w, r, http.StatusOK, form, nil, skip, take)
}

func (h *handler) renderIndex(w http.ResponseWriter, r *http.Request, status int, form rideRequestForm, errs fieldErrors, skip, take int) {
	recent, degraded := h.recentRideRequests(r.Context(), skip, take)

	h.render(w, r, status, "index", indexView{
		page: page{
			Title:     "Request a ride",
			RequestID: requestID(r.Context()),
			Degraded:  degraded,
			Notice:    noticeFrom(r, "request"),
		},
		Form:     form,
		Errors:   errs,
		Recent:   recent,
		Skip:     skip,
		Take:     take,
		NextSkip: skip + len(recent),
	})
}

// createRideRequest handles POST requests on "/" endpoint
func (h *handler) createRideRequest(w http.ResponseWriter, r *http.Request) {
	get, err := h.values(w, r)
	if err != nil {
		http.Error(w, "Can not read submitted form", http.StatusBadRequest)
		return
	}

	var form rideRequestForm
	form.bind(get)

	if errs := check(h.validate, form); errs != nil {
		if isJSON(r) {
			writeErrors(w, errs)
			return
		}
		h.renderIndex(w, r, http.StatusUnprocessableEntity, form, errs, 0, defaultTake)
		return
	}

	id, err := h.store.CreateRideRequest(r.Context(), form.entity())
	o := h.outcome(r.Context(), "Ride request", err)

	if isJSON(r) {
		writeOutcome(w, id, o)
		return
	}
	http.Redirect(w, r, "/?status="+o.String(), http.StatusSeeOther)
}

// more handles GET requests on "/more" endpoint, it returns the next rows of recent ride requests
func (h *handler) more(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip := intParam(q, "skip", 0, 0, math.MaxInt32)
	take := intParam(q, "take", defaultTake, 1, maxTake)

	recent, degraded := h.recentRideRequests(r.Context(), skip, take)
	if degraded {
		w.Header().Set("X-Sample-Data", "true")
	}

	if wantsJSON(r) {
		var a fastjson.Arena
		arr := a.NewArray()
		for i, req := range recent {
			arr.SetArrayItem(i, rideRequestJSON(&a, req))
		}
		o := a.NewObject()
		o.Set("items", arr)
		o.Set("next", a.NewNumberInt(skip+len(recent)))
		o.Set("sample", jsonBool(&a, degraded))
		writeJSON(w, http.StatusOK, o)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.views.rows.ExecuteTemplate(w, "rows", recent); err != nil {
		h.logger.Errorf("rendering rows for request %s: %v", requestID(r.Context()), err)
	}
}

// listQuery reads filters of "/list" endpoint, malformed values are ignored.
// A missing page size means the default one, an explicit one is clamped to the allowed range.
func listQuery(q url.Values) storage.ListQuery {
	lq := storage.ListQuery{
		Pickup:   q.Get("pickup"),
		Dropoff:  q.Get("dropoff"),
		SortBy:   storage.ParseSortKey(q.Get("sortBy")),
		Desc:     strings.EqualFold(strings.TrimSpace(q.Get("sortDir")), "desc"),
		Page:     intParam(q, "page", 1, math.MinInt32, math.MaxInt32),
		PageSize: intParam(q, "pageSize", storage.DefaultPageSize, storage.MinPageSize, storage.MaxPageSize),
	}

	if d, err := storage.ParseDate(strings.TrimSpace(q.Get("dateFrom"))); err == nil {
		lq.DateFrom = &d
	}
	if d, err := storage.ParseDate(strings.TrimSpace(q.Get("dateTo"))); err == nil {
		lq.DateTo = &d
	}
	if c, err := storage.ParseClock(strings.TrimSpace(q.Get("timeFrom"))); err == nil {
		lq.TimeFrom = &c
	}
	if c, err := storage.ParseClock(strings.TrimSpace(q.Get("timeTo"))); err == nil {
		lq.TimeTo = &c
	}
	if includeAll, err := strconv.ParseBool(strings.TrimSpace(q.Get("includeAll"))); err == nil {
		lq.UpcomingOnly = !includeAll
	}

	return lq.Normalize()
}

// list handles GET requests on "/list" endpoint
func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := listQuery(q)
	result, degraded := h.listRideRequests(r.Context(), lq)

	h.render(w, r, http.StatusOK, "list", listView{
		page: page{
			Title:     "Find a ride",
			RequestID: requestID(r.Context()),
			Degraded:  degraded,
		},
		Filters: q,
		Query:   lq,
		Result:  result,
	})
}

// offer handles GET requests on "/offer" endpoint
func (h *handler) offer(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	h.renderOffer(w, r, http.StatusOK, offerForm{Date: now.Format("2006-01-02")}, nil)
}

func (h *handler) renderOffer(w http.ResponseWriter, r *http.Request, status int, form offerForm, errs fieldErrors) {
	recent, degraded := h.recentOffers(r.Context(), 0, defaultTake)

	h.render(w, r, status, "offer", offerView{
		page: page{
			Title:     "Offer a ride",
			RequestID: requestID(r.Context()),
			Degraded:  degraded,
			Notice:    noticeFrom(r, "offer"),
		},
		Form:   form,
		Errors: errs,
		Recent: recent,
	})
}

// createOffer handles POST requests on "/offer" endpoint
func (h *handler) createOffer(w http.ResponseWriter, r *http.Request) {
	get, err := h.values(w, r)
	if err != nil {
		http.Error(w, "Can not read submitted form", http.StatusBadRequest)
		return
	}

	var form offerForm
	form.bind(get)

	if errs := check(h.validate, form); errs != nil {
		if isJSON(r) {
			writeErrors(w, errs)
			return
		}
		h.renderOffer(w, r, http.StatusUnprocessableEntity, form, errs)
		return
	}

	id, err := h.store.CreateOffer(r.Context(), form.entity())
	o := h.outcome(r.Context(), "Ride offer", err)

	if isJSON(r) {
		writeOutcome(w, id, o)
		return
	}
	http.Redirect(w, r, "/offer?status="+o.String(), http.StatusSeeOther)
}

// feedback handles GET requests on "/feedback" endpoint, after a submission it shows the acknowledgment
func (h *handler) feedback(w http.ResponseWriter, r *http.Request) {
	n := noticeFrom(r, "feedback")
	h.render(w, r, http.StatusOK, "feedback", feedbackView{
		page: page{
			Title:     "Feedback",
			RequestID: requestID(r.Context()),
			Notice:    n,
		},
		Submitted: n != nil,
	})
}

// createFeedback handles POST requests on "/feedback" endpoint
func (h *handler) createFeedback(w http.ResponseWriter, r *http.Request) {
	get, err := h.values(w, r)
	if err != nil {
		http.Error(w, "Can not read submitted form", http.StatusBadRequest)
		return
	}

	var form feedbackForm
	form.bind(get)

	if errs := check(h.validate, form); errs != nil {
		if isJSON(r) {
			writeErrors(w, errs)
			return
		}
		h.render(w, r, http.StatusUnprocessableEntity, "feedback", feedbackView{
			page: page{
				Title:     "Feedback",
				RequestID: requestID(r.Context()),
			},
			Form:   form,
			Errors: errs,
		})
		return
	}

	id, err := h.store.CreateFeedback(r.Context(), form.entity())
	o := h.outcome(r.Context(), "Feedback", err)

	if isJSON(r) {
		writeOutcome(w, id, o)
		return
	}
	http.Redirect(w, r, "/feedback?status="+o.String(), http.StatusSeeOther)
}

func (h *handler) privacy(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "privacy", page{Title: "Privacy"})
}

// errorPage handles GET requests on "/error" endpoint
func (h *handler) errorPage(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusOK)
}

// internalError answers a request that failed outside the modeled paths
func (h *handler) internalError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	h.renderError(w, r, http.StatusInternalServerError)
}

func (h *handler) renderError(w http.ResponseWriter, r *http.Request, status int) {
	h.render(w, r, status, "error", page{
		Title:     "Error",
		RequestID: requestID(r.Context()),
	})
}

// healthz handles GET requests on "/healthz" endpoint
func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	var a fastjson.Arena
	schema := a.NewObject()
	for table, ready := range h.store.Capabilities() {
		schema.Set(table, jsonBool(&a, ready))
	}

	o := a.NewObject()
	o.Set("status", a.NewString("ok"))
	o.Set("schema", schema)
	writeJSON(w, http.StatusOK, o)
}
