package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Lookup answers the existence and uniqueness questions of body validation.
type Lookup interface {
	CategoryChecker
	ExistingProductIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
	ProductNameTaken(ctx context.Context, name string, exceptID int64) (bool, error)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// fieldKey turns a validator namespace such as "StoreOrderRequest.products[0].quantity"
// into the API key "products.0.quantity".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	return indexPattern.ReplaceAllString(ns, ".$1")
}

var wildcardPattern = regexp.MustCompile(`\.\d+`)

// messageFor finds the message for key and rule in messages, where list
// positions in the table are written as "*".
func messageFor(messages map[string]string, key, rule string) string {
	pattern := wildcardPattern.ReplaceAllString(key, ".*")
	if msg, ok := messages[pattern+"."+rule]; ok {
		return msg
	}
	return fmt.Sprintf("The %s field is invalid.", strings.ReplaceAll(key, "_", " "))
}

// collect runs the struct rules of v into errs using messages.
func collect(errs *Errors, v any, messages map[string]string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		key := fieldKey(fe)
		errs.Add(key, messageFor(messages, key, fe.Tag()))
	}
	return nil
}

// decodeJSON decodes body into dst. A value of the wrong JSON type is
// reported as a field error with the "type" rule.
func decodeJSON(body []byte, dst any, errs *Errors, messages map[string]string) (bool, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	err := json.Unmarshal(body, dst)
	if err == nil {
		return true, nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		errs.Add(typeErr.Field, messageFor(messages, typeErr.Field, "type"))
		return false, nil
	}
	return false, &BodyError{Err: err}
}

// blank reports a JSON null or a string that is empty after trimming.
func blank(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if string(raw) == "null" {
		return true
	}
	var s string
	return json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) == ""
}

// nilIfEmpty drops empty strings so they count as absent.
func nilIfEmpty(fields ...**string) {
	for _, f := range fields {
		if *f != nil && strings.TrimSpace(**f) == "" {
			*f = nil
		}
	}
}

// BodyError is returned for a request body that is not a JSON object.
type BodyError struct {
	Err error
}

func (e *BodyError) Error() string {
	return "malformed JSON body: " + e.Err.Error()
}

func (e *BodyError) Unwrap() error {
	return e.Err
}

func readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return nil, &BodyError{Err: err}
	}
	return body, nil
}
