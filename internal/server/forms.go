package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fastjson"

	"gurujiride/internal/storage"
)

// maxBodyBytes bounds form and JSON bodies, the largest valid submission is well below it
const maxBodyBytes = 64 << 10

var errNotObject = errors.New("JSON body must be an object")

// fieldErrors maps form field name to a message shown next to it
type fieldErrors map[string]string

type rideRequestForm struct {
	Pickup  string `form:"pickup" validate:"required,max=100"`
	Dropoff string `form:"dropoff" validate:"required,max=100"`
	Name    string `form:"name" validate:"required,max=100"`
	Contact string `form:"contact" validate:"required,max=200"`
	Date    string `form:"date" validate:"omitempty,isodate"`
	Time    string `form:"time" validate:"omitempty,clock"`
}

type offerForm struct {
	Pickup  string `form:"pickup" validate:"required,max=100"`
	Dropoff string `form:"dropoff" validate:"required,max=100"`
	Name    string `form:"name" validate:"required,max=100"`
	Contact string `form:"contact" validate:"required,max=200"`
	Date    string `form:"date" validate:"omitempty,isodate"`
	Time    string `form:"time" validate:"omitempty,clock"`
	Note    string `form:"note" validate:"max=1000"`
}

type feedbackForm struct {
	Name     string `form:"name" validate:"required,max=100"`
	Email    string `form:"email" validate:"required,email,max=200"`
	Message  string `form:"message" validate:"required,max=1000"`
	Category string `form:"category" validate:"max=100"`
}

func (f *rideRequestForm) bind(get func(string) string) {
	f.Pickup = get("pickup")
	f.Dropoff = get("dropoff")
	f.Name = get("name")
	f.Contact = get("contact")
	f.Date = get("date")
	f.Time = get("time")
}

func (f *offerForm) bind(get func(string) string) {
	f.Pickup = get("pickup")
	f.Dropoff = get("dropoff")
	f.Name = get("name")
	f.Contact = get("contact")
	f.Date = get("date")
	f.Time = get("time")
	f.Note = get("note")
}

func (f *feedbackForm) bind(get func(string) string) {
	f.Name = get("name")
	f.Email = get("email")
	f.Message = get("message")
	f.Category = get("category")
}

// entity must be called on a validated form only
func (f rideRequestForm) entity() storage.RideRequest {
	return storage.RideRequest{
		Pickup:  f.Pickup,
		Dropoff: f.Dropoff,
		Name:    f.Name,
		Contact: f.Contact,
		Date:    optionalDate(f.Date),
		Time:    optionalClock(f.Time),
	}
}

func (f offerForm) entity() storage.OfferRide {
	return storage.OfferRide{
		Pickup:  f.Pickup,
		Dropoff: f.Dropoff,
		Name:    f.Name,
		Contact: f.Contact,
		Date:    optionalDate(f.Date),
		Time:    optionalClock(f.Time),
		Note:    f.Note,
	}
}

func (f feedbackForm) entity() storage.Feedback {
	return storage.Feedback{
		Name:     f.Name,
		Email:    f.Email,
		Message:  f.Message,
		Category: f.Category,
	}
}

func optionalDate(s string) *time.Time {
	d, err := storage.ParseDate(s)
	if err != nil {
		return nil
	}
	return &d
}

func optionalClock(s string) *storage.Clock {
	c, err := storage.ParseClock(s)
	if err != nil {
		return nil
	}
	return &c
}

// newValidator reports fields by their form names and knows date and time of day inputs
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("form")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// registration fails only on empty tag or nil func
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := storage.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := storage.ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// check validates form struct and returns nil when it is valid
func check(v *validator.Validate, form interface{}) fieldErrors {
	err := v.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fieldErrors{"": err.Error()}
	}

	out := make(fieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Use at most %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "isodate":
		return "Enter a date as YYYY-MM-DD."
	case "clock":
		return "Enter a time as HH:MM."
	default:
		return "This value is not valid."
	}
}

// isJSON reports whether request body is declared as JSON
func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// values returns a getter of trimmed submitted values read from a form or a JSON object body
func (h *handler) values(w http.ResponseWriter, r *http.Request) (func(string) string, error) {
	if !isJSON(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if isMultipart(r) {
			if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
				return nil, err
			}
		} else if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return func(key string) string {
			return strings.TrimSpace(r.PostFormValue(key))
		}, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	parser := h.parsers.Get()
	defer h.parsers.Put(parser)
	v, err := parser.ParseBytes(body)
	if err != nil {
		return nil, err
	}
	obj, err := v.Object()
	if err != nil {
		return nil, errNotObject
	}

	fields := make(map[string]string, obj.Len())
	obj.Visit(func(key []byte, v *fastjson.Value) {
		switch v.Type() {
		case fastjson.TypeString:
			fields[string(key)] = string(v.GetStringBytes())
		case fastjson.TypeNull:
		default:
			fields[string(key)] = v.String()
		}
	})

	return func(key string) string {
		return strings.TrimSpace(fields[key])
	}, nil
}
