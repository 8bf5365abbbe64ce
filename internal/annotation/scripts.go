package annotation

import "strings"

// Engine call shapes. $KEY, $DB_PORT and $DB_HOST are substituted by the engine.
const (
	cropCallTemplate   = `$$(<"keli img-crop-to-key [*] $KEY --x1 %d --y1 %d --width %d --height %d --to-key %s_key --db-port $DB_PORT --db-host $DB_HOST">),`
	ocrCallTemplate    = `$$(<"keli img-ocr-fan-in [*] %s_key --to-key %s_ocr --db-port $DB_PORT --db-host $DB_HOST">),`
	rulingCallTemplate = `($$(<"keli src-ruling-str [*] --db-port $DB_PORT --db-host $DB_HOST  --ruling-string '%s'">),)`
)

// ScriptBundle is the generated script text for a session
type ScriptBundle struct {
	Regions string
	Rules   string
}

// BuildScripts generates region and rule scripts either for the default page only or
// for every page in session order.
func BuildScripts(s *Session, singlePageOnly bool) ScriptBundle {
	if singlePageOnly {
		p := s.DefaultPage()
		if p == nil {
			return ScriptBundle{}
		}
		return ScriptBundle{
			Regions: p.Scripts(),
			Rules:   p.Rules.Script(true, false),
		}
	}

	var regions, rules strings.Builder
	for _, p := range s.Pages() {
		regions.WriteString(p.Scripts())
		regions.WriteString("\n")
		rules.WriteString(p.Rules.Script(true, false))
	}
	return ScriptBundle{Regions: regions.String(), Rules: rules.String()}
}

// Text joins both parts the way they are shown to the user
func (b ScriptBundle) Text() string {
	return b.Regions + "\n" + b.Rules
}

// Empty reports whether nothing was generated
func (b ScriptBundle) Empty() bool {
	return b.Regions == "" && b.Rules == ""
}
