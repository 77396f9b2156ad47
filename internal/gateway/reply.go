package gateway

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// reply is a gateway answer decoded tolerantly: scalar fields of the top
// level object and of a nested "data" object are kept as strings, anything
// else is skipped.
type reply struct {
	fields  map[string]string
	success *bool
}

var messageKeys = []string{"message", "mensagem", "error_message", "error", "erro", "detail"}

// positiveStatus lists the status values that do not signal failure.
var positiveStatus = map[string]bool{
	"":         true,
	"success":  true,
	"ok":       true,
	"created":  true,
	"approved": true,
	"pending":  true,
}

func decodeReply(data []byte) (reply, error) {
	r := reply{fields: map[string]string{}}
	if len(strings.TrimSpace(string(data))) == 0 {
		return r, errors.New("empty body")
	}
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return r, errors.New("body is not an object")
	}
	if err := r.decodeObject(d, true); err != nil {
		return r, err
	}
	return r, nil
}

func (r *reply) decodeObject(d *jx.Decoder, top bool) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		k := string(key)
		switch d.Next() {
		case jx.String:
			v, err := d.Str()
			if err != nil {
				return errors.Wrapf(err, "field %q", k)
			}
			r.set(k, v)
		case jx.Number:
			v, err := d.Num()
			if err != nil {
				return errors.Wrapf(err, "field %q", k)
			}
			r.set(k, string(v))
		case jx.Bool:
			v, err := d.Bool()
			if err != nil {
				return errors.Wrapf(err, "field %q", k)
			}
			if k == "success" && top {
				r.success = &v
			}
		case jx.Object:
			if top && k == "data" {
				return r.decodeObject(d, false)
			}
			return d.Skip()
		default:
			return d.Skip()
		}
		return nil
	})
}

// set keeps the first value seen for a key, so top-level fields win over
// nested ones.
func (r *reply) set(k, v string) {
	if _, ok := r.fields[k]; !ok {
		r.fields[k] = v
	}
}

// first returns the first non-empty field among keys.
func (r reply) first(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r.fields[k]); v != "" {
			return v
		}
	}
	return ""
}

func (r reply) message() string {
	return r.first(messageKeys...)
}

func (r reply) status() string {
	return strings.ToLower(r.first("status"))
}

// failed reports a negative success or status discriminator.
func (r reply) failed() bool {
	if r.success != nil && !*r.success {
		return true
	}
	s := r.status()
	if positiveStatus[s] {
		return false
	}
	// Numeric statuses mirror HTTP codes.
	if code, err := strconv.Atoi(s); err == nil {
		return code >= 400
	}
	return true
}
