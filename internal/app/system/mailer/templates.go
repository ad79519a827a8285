// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// SiteName appears in subjects and headers.
const SiteName = "You Lead"

// InvitationEmailData feeds BuildInvitationEmail.
type InvitationEmailData struct {
	TeamName    string
	InviterName string
	ActionURL   string // where the invitee responds
}

// BuildInvitationEmail tells the invitee about a pending team invitation.
func BuildInvitationEmail(to string, data InvitationEmailData) Email {
	lines := []string{
		fmt.Sprintf("%s invited you to join the team %q on %s.", data.InviterName, data.TeamName, SiteName),
		"Sign in to accept or decline the invitation:",
		data.ActionURL,
	}
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("You're invited to join %s on %s", data.TeamName, SiteName),
		TextBody: strings.Join(lines, "\n\n") + "\n",
		HTMLBody: render(layoutData{
			Heading:     "Team invitation",
			Paragraphs:  lines[:2],
			ButtonURL:   data.ActionURL,
			ButtonLabel: "View invitation",
		}),
	}
}

// Meeting notice kinds.
const (
	MeetingScheduledNotice = "scheduled"
	MeetingUpdatedNotice   = "updated"
	MeetingCancelledNotice = "cancelled"
)

// MeetingEmailData feeds BuildMeetingEmail.
type MeetingEmailData struct {
	Kind          string
	Title         string
	OrganizerName string
	Start         time.Time
	End           time.Time
	Link          string
}

// BuildMeetingEmail notifies a participant about a meeting change.
func BuildMeetingEmail(to string, data MeetingEmailData) Email {
	when := fmt.Sprintf("%s – %s UTC",
		data.Start.UTC().Format("Mon Jan 2, 2006 15:04"),
		data.End.UTC().Format("15:04"))

	var subject, intro string
	switch data.Kind {
	case MeetingCancelledNotice:
		subject = "Cancelled: " + data.Title
		intro = fmt.Sprintf("%s cancelled the meeting %q.", data.OrganizerName, data.Title)
	case MeetingUpdatedNotice:
		subject = "Updated: " + data.Title
		intro = fmt.Sprintf("%s updated the meeting %q.", data.OrganizerName, data.Title)
	default:
		subject = "Meeting: " + data.Title
		intro = fmt.Sprintf("%s scheduled the meeting %q.", data.OrganizerName, data.Title)
	}

	paras := []string{intro, "When: " + when}
	text := strings.Join(paras, "\n\n")
	ld := layoutData{Heading: subject, Paragraphs: paras}
	if data.Link != "" && data.Kind != MeetingCancelledNotice {
		text += "\n\nJoin: " + data.Link
		ld.ButtonURL = data.Link
		ld.ButtonLabel = "Join meeting"
	}
	return Email{To: to, Subject: subject, TextBody: text + "\n", HTMLBody: render(ld)}
}

type layoutData struct {
	SiteName    string
	Heading     string
	Paragraphs  []string
	ButtonURL   string
	ButtonLabel string
}

var layout = template.Must(template.New("layout").Parse(layoutHTML))

func render(d layoutData) string {
	d.SiteName = SiteName
	var buf bytes.Buffer
	_ = layout.Execute(&buf, d)
	return buf.String()
}

const layoutHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Heading}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 16px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 22px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <h2 style="margin: 0 0 16px; font-size: 18px; color: #111827;">{{.Heading}}</h2>
              {{range .Paragraphs}}<p style="margin: 0 0 16px; font-size: 15px; color: #374151; line-height: 1.5;">{{.}}</p>
              {{end}}{{if .ButtonURL}}<p style="text-align: center; margin: 24px 0 0;">
                <a href="{{.ButtonURL}}" style="display: inline-block; padding: 12px 28px; background-color: #4f46e5; color: #ffffff; text-decoration: none; border-radius: 6px;">{{.ButtonLabel}}</a>
              </p>{{end}}
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
