package server

import (
	"bytes"
	"io"
	"io/ioutil"
	"mime"
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"gurujiride/internal/storage/zapadapter"
)

// acceptSubmission is a middleware pre-processing each form submission
// it allows url-encoded, multipart and JSON bodies, blank Content-Type header is treated as url-encoded form
// JSON bodies must be valid JSON
func acceptSubmission(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// check "Content-Type" header
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			next.ServeHTTP(w, r)
			return
		}

		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			http.Error(w, "Malformed Content-Type header", http.StatusBadRequest)
			return
		}

		switch mt {
		case "application/x-www-form-urlencoded", "multipart/form-data":
			next.ServeHTTP(w, r)
			return
		case "application/json":
		default:
			http.Error(w, "Content-Type header must be a form or application/json", http.StatusUnsupportedMediaType)
			return
		}

		// check if provided request body is valid JSON
		var bodyBuf bytes.Buffer
		bodyReader := io.TeeReader(io.LimitReader(r.Body, maxBodyBytes), &bodyBuf)
		body, err := ioutil.ReadAll(bodyReader)
		if err != nil {
			http.Error(w, "Can not read request body", http.StatusBadRequest)
			return
		}

		if len(body) == 0 {
			http.Error(w, "No body provided", http.StatusBadRequest)
			return
		}

		err = fastjson.ValidateBytes(body)
		if err != nil {
			http.Error(w, "Malformed JSON", http.StatusBadRequest)
			return
		}

		r.Body = ioutil.NopCloser(&bodyBuf)

		next.ServeHTTP(w, r)
	})
}

// noCache forbids any caching of the response
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status code written by the wrapped handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// log assigns request id, stores it in request context and X-Request-ID header and logs the request
func log(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := xid.New().String()

		ctx := zapadapter.NewContextWithID(r.Context(), id)
		rwID := r.WithContext(ctx)
		w.Header().Set("X-Request-ID", id)

		logger.Info("incoming http request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.String("ip", r.RemoteAddr),
		)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, rwID)

		logger.Info("http request completed",
			zap.String("id", id),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// recoverPanic logs a panic raised by next and answers with fail unless a response is already underway
func recoverPanic(next http.Handler, logger *zap.Logger, fail http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			id, _ := zapadapter.IDFromContext(r.Context())
			logger.Error("panic while serving http request",
				zap.String("id", id),
				zap.Any("panic", rec),
				zap.Int("status", sr.status),
				zap.Stack("stack"),
			)
			if sr.status != 0 {
				return
			}
			fail(w, r)
		}()

		next.ServeHTTP(sr, r)
	})
}
