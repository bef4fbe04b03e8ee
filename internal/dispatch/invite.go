package dispatch

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/jonathan/interview-dispatch/internal/mailer"
	"github.com/jonathan/interview-dispatch/internal/types"
)

// DefaultFrom is the sender used when none is configured.
var DefaultFrom = mailer.Address{Email: "recruitment@weekday.com", Name: "Weekday Recruiting"}

// DefaultTeam signs the invitation.
const DefaultTeam = "Weekday Team"

const textBody = `Hi {{.CandidateName}},

You have been shortlisted for the {{.RoundName}} round for the {{.Role}} role.

{{if .Link}}Please schedule your interview here: {{.Link}}{{else}}Our team will reach out shortly with a link to schedule your interview.{{end}}

Best,
{{.Team}}`

const htmlBody = `<p>Hi <b>{{.CandidateName}}</b>,</p>` +
	`<p>You have been shortlisted for the <b>{{.RoundName}}</b> round for the <b>{{.Role}}</b> role.</p>` +
	`{{if .Link}}<p>Please schedule your interview here: <a href="{{.Link}}">{{.Link}}</a></p>` +
	`{{else}}<p>Our team will reach out shortly with a link to schedule your interview.</p>{{end}}` +
	`<p>Best,<br>{{.Team}}</p>`

var (
	textTmpl = texttemplate.Must(texttemplate.New("text").Parse(textBody))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlBody))
)

type inviteData struct {
	CandidateName string
	RoundName     string
	Role          string
	Link          string
	Team          string
}

// Subject returns the invitation subject for a role and round.
func Subject(role, round string) string {
	return fmt.Sprintf("Interview Invitation: %s - %s", role, round)
}

// BuildInvitation renders the invitation email for one trigger.
func BuildInvitation(t types.Trigger, from mailer.Address, team string) (mailer.Message, error) {
	if team == "" {
		team = DefaultTeam
	}
	data := inviteData{
		CandidateName: t.CandidateName,
		RoundName:     t.RoundName,
		Role:          t.Role,
		Link:          t.ResolvedLink,
		Team:          team,
	}

	var text, html strings.Builder
	if err := textTmpl.Execute(&text, data); err != nil {
		return mailer.Message{}, fmt.Errorf("failed to render text body: %w", err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return mailer.Message{}, fmt.Errorf("failed to render html body: %w", err)
	}

	return mailer.Message{
		From:    from,
		To:      []mailer.Address{{Email: t.Email, Name: t.CandidateName}},
		Subject: Subject(t.Role, t.RoundName),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
