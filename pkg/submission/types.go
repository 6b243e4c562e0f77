package submission

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formrules/pkg/formdef"
)

// Source identifies the channel a submission arrived through.
type Source string

const (
	SourceAdmin  Source = "admin"
	SourceMobile Source = "mobile"
	SourcePortal Source = "portal"
	SourceCLI    Source = "cli"
)

// State is the review state of a stored submission.
type State string

const (
	StateSubmitted State = "submitted"
	StateValidated State = "validated"
	StateRejected  State = "rejected"
)

// Point is a GPS coordinate.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Attachment is an image answer: either inline base64 data or a reference
// to an attachment stored elsewhere.
type Attachment struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Data string `json:"data,omitempty"`
}

// Response is one coerced answer. Exactly one value member is set, chosen by
// Type: Text for text, computed_text, date, datetime and selection.
type Response struct {
	Field      string            `json:"field"`
	Label      string            `json:"label"`
	Type       formdef.FieldType `json:"type"`
	Text       string            `json:"text,omitempty"`
	Number     *float64          `json:"number,omitempty"`
	Bool       *bool             `json:"bool,omitempty"`
	Options    []string          `json:"options,omitempty"`
	Point      *Point            `json:"point,omitempty"`
	Attachment *Attachment       `json:"attachment,omitempty"`
}

// Display renders the answer for listings.
func (r Response) Display() string {
	switch {
	case r.Number != nil:
		return formdef.Stringify(*r.Number)
	case r.Bool != nil:
		if *r.Bool {
			return "Yes"
		}
		return "No"
	case r.Options != nil:
		return strings.Join(r.Options, ", ")
	case r.Point != nil:
		return strconv.FormatFloat(r.Point.Latitude, 'f', -1, 64) + ", " +
			strconv.FormatFloat(r.Point.Longitude, 'f', -1, 64)
	case r.Attachment != nil:
		if r.Attachment.Name != "" {
			return r.Attachment.Name
		}
		return "attachment #" + strconv.FormatInt(r.Attachment.ID, 10)
	default:
		return r.Text
	}
}

// Submission is a stored, validated set of answers for one farmer.
type Submission struct {
	ID            string          `json:"id"`
	FarmerID      string          `json:"farmer_id"`
	FormName      string          `json:"form_name,omitempty"`
	FormVersion   formdef.Version `json:"form_version,omitempty"`
	FormVersionID int64           `json:"form_version_id,omitempty"`
	Source        Source          `json:"source"`
	State         State           `json:"state"`
	SubmittedBy   string          `json:"submitted_by,omitempty"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	Responses     []Response      `json:"responses"`
}

// Response returns the answer for field.
func (s Submission) Response(field string) (Response, bool) {
	for _, r := range s.Responses {
		if r.Field == field {
			return r, true
		}
	}
	return Response{}, false
}
