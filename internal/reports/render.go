package reports

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	emailTmpl     *template.Template
	emailTmplOnce sync.Once
	emailTmplErr  error
)

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	blockCloseRe = regexp.MustCompile(`(?i)</(h[1-6]|p|li|ul|ol|div)>|<br\s*/?>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	h2OpenRe     = regexp.MustCompile(`(?i)<h2[\s>]`)
)

type emailData struct {
	BarName      string
	WeekStart    string
	WeekEnd      string
	Sample       bool
	Cards        []template.HTML
	DashboardURL string
	SettingsURL  string
}

func loadEmailTemplate() (*template.Template, error) {
	emailTmplOnce.Do(func() {
		emailTmpl, emailTmplErr = template.ParseFS(templateFS, "templates/weekly_report.html")
	})
	return emailTmpl, emailTmplErr
}

// renderEmail wraps the model's report HTML in the branded layout, one card
// per h2 section.
func renderEmail(data emailData, reportHTML string) (string, error) {
	tmpl, err := loadEmailTemplate()
	if err != nil {
		return "", fmt.Errorf("parse email template: %w", err)
	}
	data.Cards = splitSections(reportHTML)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template: %w", err)
	}
	return buf.String(), nil
}

// splitSections cuts report HTML before every <h2>. Sections are emitted
// unescaped.
func splitSections(reportHTML string) []template.HTML {
	src := strings.TrimSpace(reportHTML)
	cuts := []int{0}
	for _, loc := range h2OpenRe.FindAllStringIndex(src, -1) {
		if loc[0] > 0 {
			cuts = append(cuts, loc[0])
		}
	}
	cuts = append(cuts, len(src))

	var cards []template.HTML
	for i := 0; i+1 < len(cuts); i++ {
		if chunk := strings.TrimSpace(src[cuts[i]:cuts[i+1]]); chunk != "" {
			cards = append(cards, template.HTML(chunk))
		}
	}
	return cards
}

// StripTags turns report HTML into readable plain text.
func StripTags(s string) string {
	s = blockCloseRe.ReplaceAllString(s, "$0\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
