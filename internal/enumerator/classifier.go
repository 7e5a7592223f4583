package enumerator

import (
	"strings"

	"github.com/nao1215/recongraph/internal/catalog"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
)

// Classifier detects soft-404 pages: responses with status 200 whose content
// says the requested profile does not exist.
//
// Matching is case-insensitive using Unicode case folding. The heuristics are
// inherited from the catalog data as-is; the classifier does not try to
// correct their false positives or negatives.
type Classifier struct {
	indicators      []string
	fakeTitles      []string
	authWallMarkers []string
	siteIndicators  map[string][]string
}

// NewClassifier builds a Classifier from the catalog heuristics.
func NewClassifier(c *catalog.Catalog) *Classifier {
	cl := &Classifier{
		indicators:      foldAll(c.Indicators),
		fakeTitles:      foldAll(c.FakeSuccessTitles),
		authWallMarkers: foldAll(c.AuthWallMarkers),
		siteIndicators:  make(map[string][]string),
	}
	for _, e := range c.Entries {
		if len(e.Indicators) > 0 {
			cl.siteIndicators[e.Name] = foldAll(e.Indicators)
		}
	}
	return cl
}

// IsSoftNotFound reports whether body is a soft-404 page using the generic
// heuristics only.
func (c *Classifier) IsSoftNotFound(body string) bool {
	return c.IsSoftNotFoundFor("", body)
}

// IsSoftNotFoundFor reports whether body is a soft-404 page for the named
// site. It returns true when:
//   - any generic or site-specific indicator appears in the body or the title
//   - the title exactly equals a known fake-success title
//   - the title contains an auth-wall marker such as "sign in"
//
// Malformed markup never causes an error; a page without a title is treated
// as having an empty title.
func (c *Classifier) IsSoftNotFoundFor(site, body string) bool {
	foldedBody := fold(body)
	title := fold(PageTitle(body))

	for _, marker := range c.authWallMarkers {
		if strings.Contains(title, marker) {
			return true
		}
	}
	for _, fake := range c.fakeTitles {
		if title == fake {
			return true
		}
	}

	if containsAny(foldedBody, title, c.indicators) {
		return true
	}
	return containsAny(foldedBody, title, c.siteIndicators[site])
}

// containsAny reports whether any phrase appears in body or title.
func containsAny(body, title string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(body, phrase) || strings.Contains(title, phrase) {
			return true
		}
	}
	return false
}

// PageTitle returns the trimmed text of the first <title> element of an HTML
// document, or "" if the document has none.
//
// Design decision: We use the golang.org/x/net/html tokenizer rather than a
// full parse because only the title is needed and the tokenizer tolerates
// arbitrary malformed markup without building a tree.
func PageTitle(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))
	inTitle := false
	var sb strings.Builder

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a read error; either way the title is whatever we have.
			return strings.TrimSpace(sb.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				sb.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if inTitle && string(name) == "title" {
				return strings.TrimSpace(sb.String())
			}
		}
	}
}

// fold returns the case-folded form of s.
// A new Caser is created per call because Casers are stateful and the
// classifier is shared by every probe goroutine.
func fold(s string) string {
	return cases.Fold().String(s)
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, fold(s))
		}
	}
	return out
}
