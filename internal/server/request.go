package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/orderdesk/internal/validation"
)

const maxBodyBytes = 1 << 20

const (
	msgInvalidBoolean  = "Must be a valid boolean."
	msgInvalidString   = "Not a valid string."
	msgInvalidNumber   = "A valid number is required."
	msgIncorrectPKType = "Incorrect type. Expected pk value, received %s."
)

// jsonBody is a decoded request object. Values keep their raw JSON so
// numbers and strings can both be accepted where a field is textual.
type jsonBody map[string]json.RawMessage

func bindBody(c *gin.Context) (jsonBody, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, ErrJSONParse
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return jsonBody{}, nil
	}

	var body jsonBody
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil || body == nil {
		return nil, ErrJSONParse
	}
	return body, nil
}

var errNotText = errors.New("not a string or number")

// text returns the field as text. Absent fields are nil, null is the empty
// string, numbers keep their literal form. Any other JSON type is errNotText.
func (b jsonBody) text(field string) (*string, error) {
	raw, ok := b[field]
	if !ok {
		return nil, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		empty := ""
		return &empty, nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		v := n.String()
		return &v, nil
	}
	return nil, errNotText
}

// kind names the JSON type of field the way the error messages expect.
func (b jsonBody) kind(field string) string {
	trimmed := bytes.TrimSpace(b[field])
	if len(trimmed) == 0 {
		return "str"
	}
	switch trimmed[0] {
	case '[':
		return "list"
	case '{':
		return "dict"
	case 't', 'f':
		return "bool"
	}
	return "str"
}

// fieldReader reads typed fields from a body and collects type errors.
type fieldReader struct {
	body jsonBody
	errs validation.Errors
}

func newFieldReader(body jsonBody) *fieldReader {
	return &fieldReader{body: body, errs: validation.Errors{}}
}

func (r *fieldReader) read(field, message string) *string {
	v, err := r.body.text(field)
	if err != nil {
		r.errs.Add(field, message)
	}
	return v
}

// text reads a string field.
func (r *fieldReader) text(field string) *string {
	return r.read(field, msgInvalidString)
}

// number reads a decimal field given as a string or a number.
func (r *fieldReader) number(field string) *string {
	return r.read(field, msgInvalidNumber)
}

// pk reads a primary key reference.
func (r *fieldReader) pk(field string) *string {
	return r.read(field, fmt.Sprintf(msgIncorrectPKType, r.body.kind(field)))
}

func (r *fieldReader) boolean(field string) *bool {
	v, err := r.body.boolean(field)
	if err != nil {
		r.errs.Add(field, msgInvalidBoolean)
	}
	return v
}

// err returns the collected type errors, or nil.
func (r *fieldReader) err() error {
	return r.errs.Err()
}

var errInvalidBoolean = errors.New("invalid boolean")

// boolean accepts JSON booleans plus the usual textual and numeric forms.
func (b jsonBody) boolean(field string) (*bool, error) {
	raw, ok := b[field]
	if !ok {
		return nil, nil
	}

	var v bool
	if err := json.Unmarshal(raw, &v); err == nil {
		return &v, nil
	}

	text, err := b.text(field)
	if err != nil {
		return nil, errInvalidBoolean
	}
	if text == nil {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(*text)) {
	case "":
		return nil, nil
	case "on", "yes", "y":
		v = true
		return &v, nil
	case "off", "no", "n":
		v = false
		return &v, nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(*text))
	if err != nil {
		return nil, errInvalidBoolean
	}
	return &parsed, nil
}
