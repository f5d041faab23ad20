package template

import (
	"fmt"
	"strings"
)

// ClinicNamePlaceholder is replaced with the tenant's display name in prompts
// and greetings.
const ClinicNamePlaceholder = "{{clinic_name}}"

// Personalize returns a copy of t with voice applied to every member and
// prompts rewritten for the tenant. The first member's greeting always names
// the clinic, even when the template's greeting has no placeholder.
func Personalize(t *Template, voice Voice, displayName string) *Template {
	out := t.Clone()
	for i := range out.Members {
		v := voice
		out.Members[i].Voice = &v
		out.Members[i].SystemPrompt = strings.ReplaceAll(out.Members[i].SystemPrompt, ClinicNamePlaceholder, displayName)
		out.Members[i].FirstMessage = strings.ReplaceAll(out.Members[i].FirstMessage, ClinicNamePlaceholder, displayName)
	}

	if len(out.Members) > 0 && displayName != "" {
		first := &out.Members[0]
		if !strings.Contains(first.FirstMessage, displayName) {
			first.FirstMessage = fmt.Sprintf("Thank you for calling %s, how can I help you today?", displayName)
		}
	}
	return out
}
