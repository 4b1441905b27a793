package prompt

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/bedrockhome/agent/pkg/errorsx"
)

// SupportedLanguages lists the language codes the composer can localize.
var SupportedLanguages = []string{"en", "de", "fr", "es"}

const (
	placeholderPersona = "<persona>"
	placeholderDate    = "<current_date>"
	placeholderDevices = "<devices>"
)

// DefaultTemplate is used when the configuration supplies no prompt text.
const DefaultTemplate = "<persona>\n<current_date>\nDevices:\n<devices>"

var personaByLanguage = map[string]string{
	"en": "You are 'Al', a helpful AI Assistant that controls the devices in a house. Complete the following task as instructed with the information provided only.",
	"de": "Du bist 'Al', ein hilfreicher KI-Assistent, der die Geraete in einem Haus steuert. Fuehren Sie die folgende Aufgabe gemaess den Anweisungen durch.",
	"fr": "Vous etes 'Al', un assistant IA utile qui controle les appareils d'une maison. Effectuez la tache suivante comme indique.",
	"es": "Eres 'Al', un util asistente de IA que controla los dispositivos de una casa. Complete la siguiente tarea segun las instrucciones.",
}

var weekdayNames = map[string][]string{
	"de": {"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"},
	"fr": {"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"},
	"es": {"domingo", "lunes", "martes", "miercoles", "jueves", "viernes", "sabado"},
}

var monthNames = map[string][]string{
	"de": {"Januar", "Februar", "Maerz", "April", "Mai", "Juni", "Juli", "August", "September", "Oktober", "November", "Dezember"},
	"fr": {"janvier", "fevrier", "mars", "avril", "mai", "juin", "juillet", "aout", "septembre", "octobre", "novembre", "decembre"},
	"es": {"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
}

// Composer renders the final system prompt for one language.
type Composer struct {
	language string
	now      func() time.Time
}

// NewComposer validates the language code and builds a composer.
func NewComposer(language string) (*Composer, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	if _, ok := personaByLanguage[lang]; !ok {
		return nil, errorsx.NewConfigError("selected_language", "unsupported language %q (supported: %s)", language, strings.Join(SupportedLanguages, ", "))
	}
	return &Composer{language: lang, now: time.Now}, nil
}

// Compose substitutes <persona>, <current_date> and <devices> into the
// raw template, then runs one pass through Go's template engine so user
// templates may carry their own logic. Template failures surface as a
// PromptRenderError; the caller must show them to the end user.
func (c *Composer) Compose(raw string, devices []Device) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = DefaultTemplate
	}
	out := raw
	out = strings.ReplaceAll(out, placeholderPersona, personaByLanguage[c.language])
	out = strings.ReplaceAll(out, placeholderDate, c.currentDateLine())
	out = strings.ReplaceAll(out, placeholderDevices, RenderDevices(devices))

	tmpl, err := template.New("prompt").Parse(out)
	if err != nil {
		return "", errorsx.NewPromptRenderError(err)
	}
	var sb strings.Builder
	data := struct {
		Devices  []Device
		Language string
	}{Devices: devices, Language: c.language}
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", errorsx.NewPromptRenderError(err)
	}
	return sb.String(), nil
}

func (c *Composer) currentDateLine() string {
	now := c.now()
	switch c.language {
	case "de":
		return fmt.Sprintf("Die aktuelle Uhrzeit und das aktuelle Datum sind %s %s, %d %s %d.",
			now.Format("15:04"), weekdayNames["de"][now.Weekday()], now.Day(), monthNames["de"][now.Month()-1], now.Year())
	case "fr":
		return fmt.Sprintf("L'heure et la date actuelles sont %s %s, %d %s %d.",
			now.Format("15:04"), weekdayNames["fr"][now.Weekday()], now.Day(), monthNames["fr"][now.Month()-1], now.Year())
	case "es":
		return fmt.Sprintf("La hora y fecha actuales son %s %s, %d de %s de %d.",
			now.Format("15:04"), weekdayNames["es"][now.Weekday()], now.Day(), monthNames["es"][now.Month()-1], now.Year())
	default:
		return "The current time and date is " + now.Format("03:04 PM on Monday January 02, 2006")
	}
}

// RenderDevices serializes device snapshots grouped by area, preserving
// the order devices were listed in. Devices without an area are grouped
// under "Other".
func RenderDevices(devices []Device) string {
	type group struct {
		name  string
		lines []string
	}
	var groups []*group
	index := make(map[string]*group)

	for _, d := range devices {
		area := d.Area
		if area == "" {
			area = "Other"
		}
		g, ok := index[area]
		if !ok {
			g = &group{name: area}
			index[area] = g
			groups = append(groups, g)
		}
		line := fmt.Sprintf("  - %s (%s, state=%s", d.Name, d.EntityID, d.State)
		if len(d.Attributes) > 0 {
			line += ", " + strings.Join(d.Attributes, ", ")
		}
		line += ")"
		g.lines = append(g.lines, line)
	}

	var sb strings.Builder
	for i, g := range groups {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(g.name)
		sb.WriteString(":\n")
		sb.WriteString(strings.Join(g.lines, "\n"))
	}
	return sb.String()
}
