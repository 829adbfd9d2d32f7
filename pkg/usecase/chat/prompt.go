package chat

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/system.md
var systemPromptRaw string

var systemPromptTmpl = template.Must(template.New("system").Funcs(template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}).Parse(systemPromptRaw))

// NoAnswer is the reply when nothing can answer the question
const NoAnswer = "I don't have enough information to answer this."

func buildSystemPrompt(req model.ChatRequest, tools []model.ToolDescriptor) (string, error) {
	var crops []string
	for _, c := range req.Crops {
		if c = strings.TrimSpace(c); c != "" {
			crops = append(crops, c)
		}
	}

	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, map[string]any{
		"Tools": tools,
		"City":  strings.TrimSpace(req.City),
		"Crops": crops,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute system prompt template")
	}

	return buf.String(), nil
}
