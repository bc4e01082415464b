package server

import (
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fastjson"

	"gurujiride/internal/storage"
)

// wantsJSON reports whether client prefers JSON over HTML
func wantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == "application/json" {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v *fastjson.Value) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(v.MarshalTo(nil))
}

func jsonBool(a *fastjson.Arena, b bool) *fastjson.Value {
	if b {
		return a.NewTrue()
	}
	return a.NewFalse()
}

func jsonOptional(a *fastjson.Arena, s string) *fastjson.Value {
	if s == "" {
		return a.NewNull()
	}
	return a.NewString(s)
}

// writeErrors answers a rejected JSON submission
func writeErrors(w http.ResponseWriter, errs fieldErrors) {
	var a fastjson.Arena
	fields := a.NewObject()
	for field, msg := range errs {
		fields.Set(field, a.NewString(msg))
	}

	o := a.NewObject()
	o.Set("outcome", a.NewString(storage.Rejected.String()))
	o.Set("errors", fields)
	writeJSON(w, http.StatusUnprocessableEntity, o)
}

// writeOutcome answers an accepted JSON submission, degraded outcome is 202 since nothing was stored
func writeOutcome(w http.ResponseWriter, id int64, outcome storage.Outcome) {
	status := http.StatusCreated
	if outcome != storage.Saved {
		status = http.StatusAccepted
		id = 0
	}

	var a fastjson.Arena
	o := a.NewObject()
	o.Set("id", a.NewNumberString(strconv.FormatInt(id, 10)))
	o.Set("outcome", a.NewString(outcome.String()))
	writeJSON(w, status, o)
}

func rideRequestJSON(a *fastjson.Arena, r storage.RideRequest) *fastjson.Value {
	var tod string
	if r.Time != nil {
		tod = r.Time.String()
	}

	o := a.NewObject()
	o.Set("id", a.NewNumberString(strconv.FormatInt(r.ID, 10)))
	o.Set("pickup", a.NewString(r.Pickup))
	o.Set("dropoff", a.NewString(r.Dropoff))
	o.Set("name", a.NewString(r.Name))
	o.Set("contact", a.NewString(r.Contact))
	o.Set("date", jsonOptional(a, storage.FormatDate(r.Date)))
	o.Set("time", jsonOptional(a, tod))
	o.Set("createdAt", a.NewString(r.CreatedAt.UTC().Format(time.RFC3339)))
	return o
}
