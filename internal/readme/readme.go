// Package readme renders a resolved model as a Markdown README.
package readme

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/stevehiehn/skewer/internal/model"
)

var ExampleSuite = strings.TrimSpace(`
This example is part of a [suite of examples][examples] showing the
different ways you can use [Skupper][website] to connect services
across cloud providers, data centers, and edge sites.

[website]: https://skupper.io/
[examples]: https://skupper.io/examples/index.html
`)

var AboutThisExample = strings.TrimSpace(`
This example was produced using [Skewer][skewer], a library for
documenting and testing Skupper examples.

[skewer]: https://github.com/skupperproject/skewer

Skewer provides utility functions for generating the README and
running the example steps.  Use the ` + "`skewer`" + ` command in the project
root to see what is available.

To quickly stand up the example using Minikube, try the
` + "`skewer run-minikube`" + ` command.
`)

var (
	nonAnchorChars   = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s-]`)
	anchorSeparators = regexp.MustCompile(`[\s_-]+`)
)

// Anchor returns the link fragment for a heading. Letters outside ASCII
// are kept as they are.
func Anchor(heading string) string {
	s := nonAnchorChars.ReplaceAllString(heading, "")
	s = anchorSeparators.ReplaceAllString(s, "-")
	return strings.ToLower(strings.Trim(s, "-"))
}

type writer struct {
	lines []string
}

func (w *writer) add(lines ...string) {
	w.lines = append(w.lines, lines...)
}

func (w *writer) tocEntry(title string, present bool) {
	if present {
		w.add(fmt.Sprintf("* [%s](#%s)", title, Anchor(title)))
	}
}

func (w *writer) section(heading, text string) {
	if text == "" {
		return
	}
	w.add("## "+heading, "", strings.TrimSpace(text), "")
}

func (w *writer) String() string {
	return strings.TrimSpace(strings.Join(w.lines, "\n")) + "\n"
}

// Generate renders m. It is a pure function of the model.
func Generate(m *model.Model) string {
	w := &writer{}

	w.add("# "+m.Title, "")
	if m.GitHubActionsURL != "" {
		w.add(fmt.Sprintf("[![main](%s/badge.svg)](%s)", m.GitHubActionsURL, m.GitHubActionsURL), "")
	}
	if m.Subtitle != "" {
		w.add("#### "+m.Subtitle, "")
	}
	w.add(ExampleSuite, "", "#### Contents", "")

	w.tocEntry("Overview", m.Overview != "")
	w.tocEntry("Prerequisites", m.Prerequisites != "")
	for _, step := range m.Steps {
		w.tocEntry(step.Heading(), true)
	}
	w.tocEntry("Summary", m.Summary != "")
	w.tocEntry("Next steps", m.NextSteps != "")
	w.tocEntry("About this example", true)
	w.add("")

	w.section("Overview", m.Overview)
	w.section("Prerequisites", m.Prerequisites)
	for _, step := range m.Steps {
		w.section(step.Heading(), stepText(m, step))
	}
	w.section("Summary", m.Summary)
	w.section("Next steps", m.NextSteps)
	w.section("About this example", AboutThisExample)

	return w.String()
}

func stepText(m *model.Model, step *model.Step) string {
	w := &writer{}

	if step.Preamble != "" {
		w.add(strings.TrimSpace(step.Preamble), "")
	}

	for _, sc := range step.CommandList() {
		title := sc.Site
		if site, ok := m.Site(sc.Site); ok {
			title = site.DisplayTitle()
		}

		var outputs []string
		w.add(fmt.Sprintf("_**Console for %s:**_", title), "", "~~~ shell")
		for _, cmd := range sc.Commands {
			if !cmd.Documented() {
				continue
			}
			run, ok := cmd.Run()
			if !ok {
				continue
			}
			w.add(run.Script)
			if run.HasOutput {
				outputs = append(outputs, fmt.Sprintf("$ %s\n%s", run.Script, strings.TrimSpace(run.Output)))
			}
		}
		w.add("~~~", "")

		if len(outputs) > 0 {
			w.add("_Sample output:_", "", "~~~ console", strings.Join(outputs, "\n\n"), "~~~", "")
		}
	}

	if step.Postamble != "" {
		w.add(strings.TrimSpace(step.Postamble))
	}

	return strings.TrimSpace(strings.Join(w.lines, "\n"))
}

// WriteFile renders m to path, replacing any existing content.
func WriteFile(path string, m *model.Model) error {
	if err := os.WriteFile(path, []byte(Generate(m)), 0o644); err != nil {
		return fmt.Errorf("writing readme: %w", err)
	}
	return nil
}

// RenderHTML converts README Markdown to an HTML fragment.
func RenderHTML(source []byte) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	var buf bytes.Buffer
	if err := md.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
