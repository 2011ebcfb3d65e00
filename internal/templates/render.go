package templates

import (
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/maribelreyes/omflow-backend/pkg/enums"
)

// Input carries the contact attributes and job payload available to a template.
type Input struct {
	Email     string
	FirstName string
	Payload   map[string]any
}

// Rendered is the subject/body pair handed to the mailer.
type Rendered struct {
	Subject string
	HTML    string
}

// Renderer maps job types to rendered emails. Rendering is pure: no I/O, no
// clock, everything comes from the input.
type Renderer struct {
	baseURL string
}

// NewRenderer builds a renderer whose unsubscribe links point at baseURL.
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: baseURL}
}

// Render produces the email for a job. The switch is exhaustive over the
// closed job-type enum; anything else gets the generic fallback so one bad
// row can never block a dispatch batch.
func (r *Renderer) Render(jobType enums.JobType, input Input) Rendered {
	name := input.FirstName
	if name == "" {
		name = "there"
	}

	switch jobType {
	case enums.JobTypeLeadNoBooking1:
		return Rendered{
			Subject: "Your first class is waiting",
			HTML: r.layout(input.Email, fmt.Sprintf(
				`<p>Hi %s,</p><p>You signed up but haven't booked a class yet. Browse this week's schedule and grab a spot — your mat is waiting.</p>`,
				html.EscapeString(name))),
		}
	case enums.JobTypeLeadNoBooking2:
		return Rendered{
			Subject: "Still thinking it over?",
			HTML: r.layout(input.Email, fmt.Sprintf(
				`<p>Hi %s,</p><p>Classes fill up fast. Book your first session this week and see why students keep coming back.</p>`,
				html.EscapeString(name))),
		}
	case enums.JobTypePreClassReminder:
		return Rendered{
			Subject: fmt.Sprintf("Reminder: %s is coming up", r.classTitle(input)),
			HTML: r.layout(input.Email, fmt.Sprintf(
				`<p>Hi %s,</p><p>Your class <strong>%s</strong>%s starts %s. Arrive a few minutes early to settle in.</p>`,
				html.EscapeString(name),
				html.EscapeString(r.classTitle(input)),
				r.instructorClause(input),
				html.EscapeString(r.startsAtClause(input)))),
		}
	case enums.JobTypePostClassFollowup:
		return Rendered{
			Subject: "How was your class?",
			HTML: r.layout(input.Email, fmt.Sprintf(
				`<p>Hi %s,</p><p>Thanks for coming to <strong>%s</strong>. We'd love to see you again — check the schedule for your next session.</p>`,
				html.EscapeString(name),
				html.EscapeString(r.classTitle(input)))),
		}
	case enums.JobTypeRebookNudge:
		return Rendered{
			Subject: fmt.Sprintf("%s just added a new class", r.instructorName(input)),
			HTML: r.layout(input.Email, fmt.Sprintf(
				`<p>Hi %s,</p><p>%s just published <strong>%s</strong>%s. Spots go quickly — book yours now.</p>`,
				html.EscapeString(name),
				html.EscapeString(r.instructorName(input)),
				html.EscapeString(r.classTitle(input)),
				r.startsAtSuffix(input))),
		}
	default:
		return Rendered{
			Subject: "You have an update",
			HTML: r.layout(input.Email, fmt.Sprintf(
				`<p>Hi %s,</p><p>There's something new waiting for you in your account.</p>`,
				html.EscapeString(name))),
		}
	}
}

// layout wraps a body in the shared header/footer with the unsubscribe link.
func (r *Renderer) layout(email, body string) string {
	unsubscribe := fmt.Sprintf("%s/unsubscribe?email=%s", r.baseURL, url.QueryEscape(email))
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
<div style="padding: 24px 0; border-bottom: 1px solid #eee;"><strong>omflow</strong></div>
<div style="padding: 24px 0;">%s</div>
<div style="padding: 16px 0; border-top: 1px solid #eee; font-size: 12px; color: #999;">
<a href="%s">Unsubscribe</a> from these emails.
</div>
</body>
</html>`, body, unsubscribe)
}

func (r *Renderer) classTitle(input Input) string {
	if title, ok := input.Payload["class_title"].(string); ok && title != "" {
		return title
	}
	return "your class"
}

func (r *Renderer) instructorName(input Input) string {
	if instructor, ok := input.Payload["instructor_name"].(string); ok && instructor != "" {
		return instructor
	}
	return "Your instructor"
}

func (r *Renderer) instructorClause(input Input) string {
	if instructor, ok := input.Payload["instructor_name"].(string); ok && instructor != "" {
		return fmt.Sprintf(" with %s", html.EscapeString(instructor))
	}
	return ""
}

func (r *Renderer) startsAtClause(input Input) string {
	if formatted := r.startsAt(input); formatted != "" {
		return "at " + formatted
	}
	return "soon"
}

func (r *Renderer) startsAtSuffix(input Input) string {
	if formatted := r.startsAt(input); formatted != "" {
		return fmt.Sprintf(" starting %s", html.EscapeString(formatted))
	}
	return ""
}

func (r *Renderer) startsAt(input Input) string {
	raw, ok := input.Payload["starts_at"].(string)
	if !ok || raw == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return parsed.Format("Monday, Jan 2 at 3:04 PM")
}
