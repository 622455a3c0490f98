package viewer

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sells-group/carte/internal/antenna"
	"github.com/sells-group/carte/internal/project"
)

// MarkerKind tells project markers from office markers.
type MarkerKind string

// Marker kinds.
const (
	KindProject MarkerKind = "project"
	KindOffice  MarkerKind = "office"
)

// MarkerRef identifies the selected marker. Index is the project's position
// in the loaded collection, or the office's position in antenna.Offices.
type MarkerRef struct {
	Kind  MarkerKind `json:"kind"`
	Index int        `json:"index"`
}

// Row is one label/value line of the detail panel.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Panel is the fully built content of the open detail panel.
type Panel struct {
	Ref   MarkerRef `json:"ref"`
	Title string    `json:"title"`
	Rows  []Row     `json:"rows"`
}

type panelField struct {
	label string
	keys  []string
	euro  bool
}

var projectFields = []panelField{
	{label: "Antenne", keys: []string{"Antenne", "antenne"}},
	{label: "Ville", keys: []string{"Ville", "ville"}},
	{label: "Type de projet", keys: []string{"Type de projet", "type"}},
	{label: "Montant", keys: []string{"Montant", "montant"}, euro: true},
	{label: "Client", keys: []string{"Client", "client"}},
	{label: "Thématique", keys: []string{"Thématique", "thematique"}},
	{label: "Résumé", keys: []string{"Résumé", "resume"}},
	{label: "Adresse", keys: []string{"Adresse", "adresse"}},
	{label: "Programme", keys: []string{"Programme", "programme"}},
}

// appendRow adds a row unless the trimmed value is empty.
func appendRow(rows []Row, label, value string) []Row {
	if v := strings.TrimSpace(value); v != "" {
		return append(rows, Row{Label: label, Value: v})
	}
	return rows
}

// ProjectPanel builds the panel of the project at index.
func ProjectPanel(index int, p project.Project) *Panel {
	rows := make([]Row, 0, len(projectFields))
	for _, f := range projectFields {
		v, ok := p.Lookup(f.keys...)
		if !ok {
			continue
		}
		if f.euro {
			v = FormatEuro(v)
		}
		rows = appendRow(rows, f.label, v)
	}
	return &Panel{
		Ref:   MarkerRef{Kind: KindProject, Index: index},
		Title: p.Name(),
		Rows:  rows,
	}
}

// OfficePanel builds the panel of the office at index.
func OfficePanel(index int, o antenna.Office) *Panel {
	var rows []Row
	rows = appendRow(rows, "Type", o.KindLabel())
	rows = appendRow(rows, "Antenne", o.Antenna)
	rows = appendRow(rows, "Adresse", o.Address)
	return &Panel{
		Ref:   MarkerRef{Kind: KindOffice, Index: index},
		Title: o.Title(),
		Rows:  rows,
	}
}

var frPrinter = message.NewPrinter(language.French)

// FormatEuro renders an amount the French way ("1 234,50 €"). Spaces and the
// euro sign are ignored and a decimal comma is accepted. Text that is not a
// number comes back unchanged.
func FormatEuro(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	cleaned := strings.Join(strings.Fields(s), "")
	cleaned = strings.ReplaceAll(cleaned, "€", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	n := 0.0
	if cleaned != "" {
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return s
		}
		n = f
	}
	return frPrinter.Sprint(number.Decimal(n, number.Scale(2))) + "\u00a0€"
}
