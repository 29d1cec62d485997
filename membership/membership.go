// Package membership checks external sport-association membership numbers
// and explains why a number was rejected.
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/league-registration/metadata"
)

var (
	ErrMemberNotFound = errors.New("membership number not found")
	ErrUnavailable    = errors.New("membership verification unavailable")
)

// Request is what the registrant claims about themselves.
type Request struct {
	Number          string
	FirstName       string
	LastName        string
	DateOfBirth     time.Time
	RequiredThrough time.Time
}

// Record is what the association has on file. Missing pieces stay zero.
type Record struct {
	Number      string     `json:"number"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	ExpiresOn   *time.Time `json:"expiresOn,omitempty"`
	Status      string     `json:"status"`
}

type Verifier interface {
	Lookup(ctx context.Context, number string) (*Record, error)
}

type Reason string

const (
	ReasonNameMismatch Reason = "name_mismatch"
	ReasonDOBMismatch  Reason = "dob_mismatch"
	ReasonExpired      Reason = "expired"
	ReasonInactive     Reason = "inactive"
	ReasonIncomplete   Reason = "incomplete"
	ReasonNotFound     Reason = "not_found"
)

const dateLayout = "01/02/2006"

// Result of comparing a request against the association's record.
type Result struct {
	Valid   bool     `json:"valid"`
	Reasons []Reason `json:"reasons,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Evaluate compares req with rec. now is used when the job sets no
// RequiredThrough date.
func Evaluate(req Request, rec *Record, now time.Time) Result {
	if rec == nil {
		return Result{Reasons: []Reason{ReasonNotFound}, Message: Explain(req, nil, []Reason{ReasonNotFound})}
	}

	var reasons []Reason
	incomplete := strings.TrimSpace(rec.LastName) == "" || rec.ExpiresOn == nil || strings.TrimSpace(rec.Status) == ""

	if rec.LastName != "" && req.LastName != "" && !sameName(rec.LastName, req.LastName) {
		reasons = append(reasons, ReasonNameMismatch)
	} else if rec.FirstName != "" && req.FirstName != "" && !sameName(rec.FirstName, req.FirstName) {
		reasons = append(reasons, ReasonNameMismatch)
	}
	if rec.DateOfBirth != nil && !req.DateOfBirth.IsZero() && !sameDay(*rec.DateOfBirth, req.DateOfBirth) {
		reasons = append(reasons, ReasonDOBMismatch)
	}
	if rec.ExpiresOn != nil {
		required := req.RequiredThrough
		if required.IsZero() {
			required = now
		}
		if rec.ExpiresOn.Before(truncateDay(required)) {
			reasons = append(reasons, ReasonExpired)
		}
	}
	if rec.Status != "" && !strings.EqualFold(strings.TrimSpace(rec.Status), "active") {
		reasons = append(reasons, ReasonInactive)
	}
	if len(reasons) == 0 && incomplete {
		reasons = append(reasons, ReasonIncomplete)
	}

	if len(reasons) == 0 {
		return Result{Valid: true}
	}
	return Result{Reasons: reasons, Message: Explain(req, rec, reasons)}
}

// Explain renders the message shown next to the membership field. The first
// specific reason decides the wording; incomplete data gets generic guidance.
func Explain(req Request, rec *Record, reasons []Reason) string {
	if len(reasons) == 0 {
		return ""
	}
	switch reasons[0] {
	case ReasonNotFound:
		return fmt.Sprintf("Membership number %s was not found. Check the number on your membership card.", req.Number)
	case ReasonNameMismatch:
		return fmt.Sprintf("Membership %s is registered to %s %s, which does not match %s %s. Enter the player's name exactly as it appears on the membership.",
			rec.Number, rec.FirstName, rec.LastName, req.FirstName, req.LastName)
	case ReasonDOBMismatch:
		return fmt.Sprintf("The date of birth on membership %s (%s) does not match the date of birth entered (%s).",
			rec.Number, rec.DateOfBirth.Format(dateLayout), req.DateOfBirth.Format(dateLayout))
	case ReasonExpired:
		required := req.RequiredThrough
		if required.IsZero() {
			return fmt.Sprintf("Membership %s expired on %s. Renew the membership and try again.", rec.Number, rec.ExpiresOn.Format(dateLayout))
		}
		return fmt.Sprintf("Membership %s expires on %s, but this event requires a membership valid through %s. Renew the membership and try again.",
			rec.Number, rec.ExpiresOn.Format(dateLayout), required.Format(dateLayout))
	case ReasonInactive:
		return fmt.Sprintf("Membership %s is currently %s. Only active memberships can be used to register.", rec.Number, strings.ToLower(rec.Status))
	default:
		return fmt.Sprintf("We could not fully verify membership %s because the association returned incomplete information. Confirm the number and the player's details, or contact the association.", req.Number)
	}
}

func sameName(a, b string) bool {
	return metadata.NormalizeKey(a) == metadata.NormalizeKey(b)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
