package server

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gurujiride/internal/storage/zapadapter"
	mytesting "gurujiride/internal/testing"
)

func statusOkHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// echoHandler writes back the body it received
func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := ioutil.ReadAll(r.Body)
	w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
	_, _ = w.Write(body)
}

func TestAcceptSubmission_JSON(t *testing.T) {
	t.Parallel()

	raw := `{"pickup":"` + mytesting.RandString() + `"}`
	req, err := http.NewRequest("POST", "/", bytes.NewBufferString(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	rr := httptest.NewRecorder()
	acceptSubmission(http.HandlerFunc(echoHandler)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, raw, rr.Body.String())
}

func TestAcceptSubmission_Form(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest("POST", "/", bytes.NewBufferString("pickup="+mytesting.RandString()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	acceptSubmission(http.HandlerFunc(statusOkHandler)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAcceptSubmission_NoContentType(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest("POST", "/", bytes.NewBufferString("pickup="+mytesting.RandString()))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	acceptSubmission(http.HandlerFunc(echoHandler)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/x-www-form-urlencoded", rr.Header().Get("Content-Type"))
}

func TestAcceptSubmission_MalformedContentType(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest("POST", "/", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "1:2\n+/-")

	rr := httptest.NewRecorder()
	acceptSubmission(http.HandlerFunc(statusOkHandler)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Malformed Content-Type header\n", rr.Body.String())
}

func TestAcceptSubmission_UnsupportedContentType(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest("POST", "/", bytes.NewBufferString("pickup"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")

	rr := httptest.NewRecorder()
	acceptSubmission(http.HandlerFunc(statusOkHandler)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	require.Equal(t, "Content-Type header must be a form or application/json\n", rr.Body.String())
}

func TestAcceptSubmission_EmptyJSON(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest("POST", "/", bytes.NewBuffer(nil))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	acceptSubmission(http.HandlerFunc(statusOkHandler)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "No body provided\n", rr.Body.String())
}

func TestAcceptSubmission_MalformedJSON(t *testing.T) {
	t.Parallel()

	// missing opening quotation mark after colon
	payload := bytes.NewBufferString(`{"pickup":` + mytesting.RandString() + `"}`)
	req, err := http.NewRequest("POST", "/", payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	acceptSubmission(http.HandlerFunc(statusOkHandler)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Malformed JSON\n", rr.Body.String())
}

func TestNoCache(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest("GET", "/", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	noCache(http.HandlerFunc(statusOkHandler)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", rr.Header().Get("Cache-Control"))
	require.Equal(t, "no-cache", rr.Header().Get("Pragma"))
}

func TestLog(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = zapadapter.IDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	req, err := http.NewRequest("GET", "/list?page=2", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	log(next, zap.New(core)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusTeapot, rr.Code)
	id := rr.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)
	require.Equal(t, id, seen)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "incoming http request", entries[0].Message)
	require.Equal(t, "/list?page=2", entries[0].ContextMap()["uri"])
	require.Equal(t, id, entries[1].ContextMap()["id"])
	require.Equal(t, int64(http.StatusTeapot), entries[1].ContextMap()["status"])
}

func TestRecoverPanic(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	fail := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	req, err := http.NewRequest("GET", "/", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	recoverPanic(next, zap.New(core), fail).ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, 1, logs.FilterMessage("panic while serving http request").Len())
}

func TestRecoverPanic_ResponseStarted(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("boom")
	})
	failed := false
	fail := func(w http.ResponseWriter, _ *http.Request) {
		failed = true
		w.WriteHeader(http.StatusInternalServerError)
	}

	req, err := http.NewRequest("GET", "/", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	recoverPanic(next, zap.New(core), fail).ServeHTTP(rr, req)

	require.False(t, failed)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, "partial", rr.Body.String())

	entries := logs.FilterMessage("panic while serving http request").All()
	require.Len(t, entries, 1)
	require.Equal(t, int64(http.StatusAccepted), entries[0].ContextMap()["status"])
}
