package chapters

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// boilerplate tokens the exchange appends to page titles.
var titleNoise = []string{
	"- HKEXnews",
	"HKEXnews",
	"Listed Company Information",
	"披露易",
}

// ExtractCompanyName pulls the issuing company's name out of the decoded
// index page. It tries the structured spots first (a heading or the title
// element) and falls back to readability's title extraction; an empty
// string means the caller should substitute a placeholder.
func ExtractCompanyName(rawURL, text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err == nil {
		for _, sel := range []string{"h1", "td.company", "title"} {
			if name := cleanCompanyName(doc.Find(sel).First().Text()); name != "" {
				return name
			}
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(text), u)
	if err != nil {
		return ""
	}
	return cleanCompanyName(article.Title)
}

func cleanCompanyName(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")
	for _, noise := range titleNoise {
		name = strings.TrimSpace(strings.TrimSuffix(name, noise))
		name = strings.TrimSpace(strings.TrimSuffix(name, "-"))
	}
	return strings.TrimSpace(name)
}
