package browser

import (
	"errors"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// Boilerplate stripped before readability scoring.
var strippedSelectors = []string{
	"script", "style", "noscript", "template",
	"nav", "header", "footer", "aside",
	"form", "iframe", "svg",
}

// Preferred content roots, in order. The first non-trivial match wins.
var contentSelectors = []string{
	"article",
	"main",
	"[role=main]",
	"#content",
	".post-content",
	".article-body",
}

const minContentRunes = 140

// ExtractReadableText reduces a rendered HTML document to the readable
// article text, expressed as markdown so structure survives narration.
func ExtractReadableText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	for _, selector := range strippedSelectors {
		doc.Find(selector).Remove()
	}

	converter := md.NewConverter("", true, nil)

	for _, selector := range contentSelectors {
		selection := doc.Find(selector).First()
		if selection.Length() == 0 {
			continue
		}
		if text := normalizeExtracted(converter.Convert(selection)); len([]rune(text)) >= minContentRunes {
			return text, nil
		}
	}

	body := doc.Find("body").First()
	if body.Length() == 0 {
		return "", errors.New("document has no body")
	}
	text := normalizeExtracted(converter.Convert(body))
	if text == "" {
		return "", errors.New("no readable content")
	}
	return text, nil
}

func normalizeExtracted(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blank = 0
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
