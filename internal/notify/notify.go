// Package notify builds the messages sent to the community's Discord channels and DMs.
// Every event kind is one entry in a template table, so lifecycle code only names the
// kind and fills Data.
package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/spec-kit/staff-service/internal/domain"
)

// Kind identifies a message template.
type Kind string

const (
	KindApplicationResult  Kind = "application_result"
	KindOnboardingGuide    Kind = "onboarding_guide"
	KindStrikeAdded        Kind = "strike_added"
	KindNoteAdded          Kind = "note_added"
	KindFired              Kind = "fired"
	KindFiringPrompt       Kind = "firing_prompt"
	KindPunishmentPrompt   Kind = "punishment_prompt"
	KindPromptResolved     Kind = "prompt_resolved"
	KindProbationCompleted Kind = "probation_completed"
	KindRankChanged        Kind = "rank_changed"
	KindStrikeRemoved      Kind = "strike_removed"
	KindStaffTransferred   Kind = "staff_transferred"
	KindStaffRemoved       Kind = "staff_removed"
	KindReportCreated      Kind = "report_created"
)

const (
	ColorInfo    = 0x4A90E2
	ColorSuccess = 0x2ECC71
	ColorWarning = 0xF1C40F
	ColorDanger  = 0xE74C3C
)

// Data carries every value a template may reference. Unused fields stay zero.
type Data struct {
	TargetID       string             `json:"target_id,omitempty"`
	TargetName     string             `json:"target_name,omitempty"`
	ActorID        string             `json:"actor_id,omitempty"`
	TeamName       string             `json:"team_name,omitempty"`
	TypeName       string             `json:"type_name,omitempty"`
	Status         string             `json:"status,omitempty"`
	Reason         string             `json:"reason,omitempty"`
	Text           string             `json:"text,omitempty"`
	Rank           string             `json:"rank,omitempty"`
	StrikeCount    int                `json:"strike_count,omitempty"`
	Threshold      int                `json:"threshold,omitempty"`
	Strikes        []domain.Note      `json:"strikes,omitempty"`
	ProbationEnd   *time.Time         `json:"probation_end,omitempty"`
	RequestID      string             `json:"request_id,omitempty"`
	RequestKind    string             `json:"request_kind,omitempty"`
	ReportID       string             `json:"report_id,omitempty"`
	ReportedPlayer string             `json:"reported_player,omitempty"`
	Category       string             `json:"category,omitempty"`
	Punishment     *domain.Punishment `json:"punishment,omitempty"`
}

// Field is a labelled value rendered below the message body.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Message is the transport-neutral result of Build.
type Message struct {
	Title  string  `json:"title"`
	Body   string  `json:"body"`
	Color  int     `json:"color"`
	Fields []Field `json:"fields,omitempty"`
}

type layout struct {
	title  string
	body   string
	color  func(Data) int
	fields func(Data) []Field
}

func fixed(c int) func(Data) int { return func(Data) int { return c } }

func byStatus(d Data) int {
	switch d.Status {
	case string(domain.ApplicationStatusApproved):
		return ColorSuccess
	case string(domain.ApplicationStatusRejected):
		return ColorDanger
	}
	return ColorInfo
}

var layouts = map[Kind]layout{
	KindApplicationResult: {
		title: `Application {{.Status | title}}`,
		body:  `<@{{.TargetID}}>'s **{{.TypeName}}** application was {{.Status}}{{if .TeamName}} and assigned to **{{.TeamName}}**{{end}}.`,
		color: byStatus,
	},
	KindOnboardingGuide: {
		title: `New trainee in {{or .TeamName "your team"}}`,
		body: `<@{{.TargetID}}> ({{.TargetName}}) joined your team as a trainee.
Probation ends {{date .ProbationEnd}}.

1. Welcome them in the team channel.
2. Walk them through the rules and report handling.
3. Log progress with notes; strikes are reserved for rule breaches.`,
		color: fixed(ColorInfo),
	},
	KindStrikeAdded: {
		title: `Strike {{.StrikeCount}}/{{.Threshold}}`,
		body:  `You received a strike from <@{{.ActorID}}>.`,
		color: fixed(ColorWarning),
		fields: func(d Data) []Field {
			return []Field{{Name: "Reason", Value: orDash(d.Reason)}}
		},
	},
	KindNoteAdded: {
		title: `Note added`,
		body:  `<@{{.ActorID}}> added a note to <@{{.TargetID}}>: {{.Text}}`,
		color: fixed(ColorInfo),
	},
	KindFired: {
		title: `Removed from staff`,
		body: `You have been removed from the staff team{{if .Reason}}: {{.Reason}}{{end}}.
{{if .Strikes}}
Strike history:
{{range $i, $s := .Strikes}}{{inc $i}}. {{$s.Text}} ({{date $s.CreatedAt}})
{{end}}{{end}}`,
		color: fixed(ColorDanger),
	},
	KindFiringPrompt: {
		title: `Firing request`,
		body: `<@{{.TargetID}}> reached {{.StrikeCount}} strikes. Requested by <@{{.ActorID}}>.
{{range $i, $s := .Strikes}}{{inc $i}}. {{$s.Text}} by <@{{$s.Author}}>
{{end}}`,
		color: fixed(ColorDanger),
		fields: func(d Data) []Field {
			return []Field{{Name: "Request", Value: d.RequestID, Inline: true}}
		},
	},
	KindPunishmentPrompt: {
		title: `Punishment request`,
		body:  `<@{{.ActorID}}> requests a **{{with .Punishment}}{{.Type}}{{end}}** for **{{.ReportedPlayer}}**{{with .Punishment}}{{if .DurationHours}} ({{.DurationHours}}h){{end}}{{end}}.`,
		color: fixed(ColorWarning),
		fields: func(d Data) []Field {
			reason := ""
			if d.Punishment != nil {
				reason = d.Punishment.Reason
			}
			return []Field{
				{Name: "Report", Value: d.ReportID, Inline: true},
				{Name: "Category", Value: orDash(d.Category), Inline: true},
				{Name: "Reason", Value: orDash(reason)},
			}
		},
	},
	KindPromptResolved: {
		title: `{{.RequestKind | title}} request {{.Status}}`,
		body:  `Request for <@{{.TargetID}}> was {{.Status}} by <@{{.ActorID}}>.`,
		color: byStatus,
	},
	KindProbationCompleted: {
		title: `Probation completed`,
		body:  `<@{{.TargetID}}> completed probation and is now full staff.`,
		color: fixed(ColorSuccess),
	},
	KindRankChanged: {
		title: `Rank changed`,
		body:  `<@{{.TargetID}}> is now **{{.Rank}}** (by <@{{.ActorID}}>).`,
		color: fixed(ColorSuccess),
	},
	KindStrikeRemoved: {
		title: `Strike removed`,
		body:  `A strike was removed from <@{{.TargetID}}> by <@{{.ActorID}}>. Strikes: {{.StrikeCount}}.`,
		color: fixed(ColorInfo),
	},
	KindStaffTransferred: {
		title: `Staff transferred`,
		body:  `<@{{.TargetID}}> was moved to **{{.TeamName}}** by <@{{.ActorID}}>.`,
		color: fixed(ColorInfo),
	},
	KindStaffRemoved: {
		title: `Staff removed`,
		body:  `<@{{.TargetID}}> was removed from staff by <@{{.ActorID}}>{{if .Reason}}: {{.Reason}}{{end}}.`,
		color: fixed(ColorDanger),
	},
	KindReportCreated: {
		title: `New report: {{.Category}}`,
		body:  `<@{{.ActorID}}> reported **{{.ReportedPlayer}}**.`,
		color: fixed(ColorWarning),
		fields: func(d Data) []Field {
			return []Field{
				{Name: "Report", Value: d.ReportID, Inline: true},
				{Name: "Description", Value: orDash(d.Text)},
			}
		},
	},
}

var funcs = template.FuncMap{
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"inc": func(i int) int { return i + 1 },
	"date": func(v any) string {
		switch t := v.(type) {
		case time.Time:
			return t.UTC().Format("2006-01-02 15:04 MST")
		case *time.Time:
			if t != nil {
				return t.UTC().Format("2006-01-02 15:04 MST")
			}
		}
		return "-"
	},
}

type compiled struct {
	title  *template.Template
	body   *template.Template
	color  func(Data) int
	fields func(Data) []Field
}

var templates = compile()

func compile() map[Kind]compiled {
	out := make(map[Kind]compiled, len(layouts))
	for kind, s := range layouts {
		out[kind] = compiled{
			title:  template.Must(template.New(string(kind) + ".title").Funcs(funcs).Parse(s.title)),
			body:   template.Must(template.New(string(kind) + ".body").Funcs(funcs).Parse(s.body)),
			color:  s.color,
			fields: s.fields,
		}
	}
	return out
}

// Kinds lists every kind Build understands.
func Kinds() []Kind {
	out := make([]Kind, 0, len(layouts))
	for k := range layouts {
		out = append(out, k)
	}
	return out
}

// Build renders the message for kind.
func Build(kind Kind, data Data) (Message, error) {
	tpl, ok := templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown message kind %q", kind)
	}
	title, err := render(tpl.title, data)
	if err != nil {
		return Message{}, err
	}
	body, err := render(tpl.body, data)
	if err != nil {
		return Message{}, err
	}
	msg := Message{Title: title, Body: strings.TrimSpace(body), Color: tpl.color(data)}
	if tpl.fields != nil {
		msg.Fields = tpl.fields(data)
	}
	return msg, nil
}

func render(t *template.Template, data Data) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
