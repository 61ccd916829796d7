// internal/message/render.go
//
// Notification email rendering.  Every field is visitor input, so the HTML
// body goes through html/template escaping and then a bluemonday UGC policy
// before it leaves the process.
package message

import (
	"bytes"
	htmltpl "html/template"
	"strings"
	texttpl "text/template"

	"github.com/microcosm-cc/bluemonday"

	"github.com/yanizio/neurion/internal/store"
)

var htmlPolicy = bluemonday.UGCPolicy()

const htmlBody = `<h2>New contact request</h2>
<table>
<tr><th align="left">Name</th><td>{{.FirstName}} {{.LastName}}</td></tr>
<tr><th align="left">Email</th><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
{{with .Phone}}<tr><th align="left">Phone</th><td>{{.}}</td></tr>{{end}}
<tr><th align="left">Company</th><td>{{.CompanyName}}</td></tr>
{{with .ServiceInterest}}<tr><th align="left">Service</th><td>{{.}}</td></tr>{{end}}
{{with .Budget}}<tr><th align="left">Budget</th><td>{{.}}</td></tr>{{end}}
</table>
<p>{{.ProjectDetails}}</p>
<p><small>{{.ID}} at {{.CreatedAt.Format "2006-01-02 15:04 MST"}}</small></p>`

const textBody = `New contact request

Name:    {{.FirstName}} {{.LastName}}
Email:   {{.Email}}
{{with .Phone}}Phone:   {{.}}
{{end}}Company: {{.CompanyName}}
{{with .ServiceInterest}}Service: {{.}}
{{end}}{{with .Budget}}Budget:  {{.}}
{{end}}
{{.ProjectDetails}}

{{.ID}} at {{.CreatedAt.Format "2006-01-02 15:04 MST"}}
`

var (
	htmlTmpl = htmltpl.Must(htmltpl.New("html").Parse(htmlBody))
	textTmpl = texttpl.Must(texttpl.New("text").Parse(textBody))
)

// view dereferences the optional fields so templates can test them with
// `with`.
type view struct {
	store.Record
	Phone           string
	ServiceInterest string
	Budget          string
}

func newView(rec store.Record) view {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	return view{
		Record:          rec,
		Phone:           deref(rec.Phone),
		ServiceInterest: deref(rec.ServiceInterest),
		Budget:          deref(rec.Budget),
	}
}

// RenderEmail builds the team notification for rec.  From and To are left
// for the caller.
func RenderEmail(rec store.Record) (Email, error) {
	v := newView(rec)

	var hb, tb bytes.Buffer
	if err := htmlTmpl.Execute(&hb, v); err != nil {
		return Email{}, err
	}
	if err := textTmpl.Execute(&tb, v); err != nil {
		return Email{}, err
	}

	name := strings.TrimSpace(rec.FirstName + " " + rec.LastName)
	return Email{
		Subject: "New contact request from " + name + " (" + rec.CompanyName + ")",
		Text:    tb.String(),
		HTML:    htmlPolicy.Sanitize(hb.String()),
	}, nil
}
