package insight

import (
	_ "embed"
	"strings"
	"text/template"
)

var (
	//go:embed prompt.tmpl
	promptTemplateText string

	promptTemplate = template.Must(template.New("prompt").
			Funcs(template.FuncMap{"ordinal": func(i int) int { return i + 1 }}).
			Parse(promptTemplateText))
)

// PromptInput fills the prompt template slots.
type PromptInput struct {
	Question string
	Context  []string
}

// ComposePrompt renders the executive briefing prompt for a question and its
// retrieved excerpts. Output depends only on the inputs.
func ComposePrompt(question string, excerpts []string) (string, error) {
	var out strings.Builder
	err := promptTemplate.Execute(&out, PromptInput{
		Question: strings.TrimSpace(question),
		Context:  excerpts,
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
