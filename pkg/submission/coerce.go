package submission

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-formrules/pkg/formdef"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// coerce converts a raw answer into its stored form. A false return with a
// nil error means the answer is empty and nothing is stored.
func coerce(field formdef.FieldDescriptor, value any) (Response, bool, error) {
	out := Response{Field: field.Name, Label: field.DisplayLabel(), Type: field.Type}
	if value == nil {
		return out, false, nil
	}

	if field.Type == formdef.FieldTypeBoolean {
		b, err := toBool(value)
		if err != nil {
			return out, false, err
		}
		out.Bool = &b
		return out, true, nil
	}
	if formdef.IsEmpty(value) {
		return out, false, nil
	}

	switch field.Type {
	case formdef.FieldTypeNumber:
		n, ok := formdef.Number(value)
		if !ok {
			return out, false, errors.New("expects a numeric value")
		}
		out.Number = &n
	case formdef.FieldTypeDate, formdef.FieldTypeDatetime:
		t, err := parseTime(formdef.Stringify(value))
		if err != nil {
			return out, false, err
		}
		if field.Type == formdef.FieldTypeDate {
			out.Text = t.Format(dateLayout)
		} else {
			out.Text = t.Format(datetimeLayout)
		}
	case formdef.FieldTypeMultiSelection:
		switch value.(type) {
		case []any, []string:
		default:
			return out, false, errors.New("expects a list of selections")
		}
		out.Options = formdef.StringList(value)
	case formdef.FieldTypeGPSPoint:
		p, err := toPoint(value)
		if err != nil {
			return out, false, err
		}
		out.Point = &p
	case formdef.FieldTypeImage:
		a, err := toAttachment(field.Name, value)
		if err != nil {
			return out, false, err
		}
		out.Attachment = &a
	default:
		out.Text = formdef.Stringify(value)
	}
	return out, true, nil
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true, nil
		case "", "false", "0", "no", "off":
			return false, nil
		}
	default:
		if n, ok := formdef.Number(v); ok {
			return n != 0, nil
		}
	}
	return false, errors.New("expects a yes/no value")
}

func parseTime(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("expects a date in YYYY-MM-DD form")
}

func toPoint(value any) (Point, error) {
	var lat, lng any
	switch v := value.(type) {
	case map[string]any:
		lat, lng = v["latitude"], v["longitude"]
	case []any:
		if len(v) == 2 {
			lat, lng = v[0], v[1]
		}
	case []float64:
		if len(v) == 2 {
			lat, lng = v[0], v[1]
		}
	case Point:
		return v, nil
	}
	latN, okLat := formdef.Number(lat)
	lngN, okLng := formdef.Number(lng)
	if !okLat || !okLng {
		return Point{}, errors.New("expects a GPS point with latitude and longitude")
	}
	if latN < -90 || latN > 90 || lngN < -180 || lngN > 180 {
		return Point{}, errors.New("has coordinates out of range")
	}
	return Point{Latitude: latN, Longitude: lngN}, nil
}

func toAttachment(field string, value any) (Attachment, error) {
	switch v := value.(type) {
	case map[string]any:
		name := strings.TrimSpace(formdef.Stringify(v["name"]))
		data := strings.TrimSpace(formdef.Stringify(v["data"]))
		if name == "" || data == "" {
			return Attachment{}, errors.New("expects an image with name and data")
		}
		if !isBase64(data) {
			return Attachment{}, errors.New("has image data that is not base64 encoded")
		}
		return Attachment{Name: name, Data: data}, nil
	case string:
		data := strings.TrimSpace(v)
		if !isBase64(data) {
			return Attachment{}, errors.New("has image data that is not base64 encoded")
		}
		return Attachment{Name: field, Data: data}, nil
	case json.Number:
		id, err := v.Int64()
		if err != nil || id <= 0 {
			return Attachment{}, errors.New("expects an attachment id")
		}
		return Attachment{ID: id}, nil
	default:
		n, ok := formdef.Number(v)
		if !ok || n <= 0 || n != float64(int64(n)) {
			return Attachment{}, errors.New("expects an attachment id")
		}
		return Attachment{ID: int64(n)}, nil
	}
}

func isBase64(data string) bool {
	_, err := base64.StdEncoding.DecodeString(data)
	return err == nil
}
