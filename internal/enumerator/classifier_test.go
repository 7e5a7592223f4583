package enumerator

import (
	"testing"

	"github.com/nao1215/recongraph/internal/catalog"
)

// testCatalog returns a small catalog with the heuristics the tests rely on.
func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Entries: []catalog.Entry{
			{Name: "Reddit", URLTemplate: "https://reddit.example/user/{}", Indicators: []string{"Nobody on Reddit goes by that name"}},
			{Name: "GitHub", URLTemplate: "https://github.example/{}"},
		},
		Indicators:        []string{"Page Not Found", "user not found"},
		FakeSuccessTitles: []string{"Instagram", "Patreon logo"},
		AuthWallMarkers:   []string{"sign in"},
		UserAgents:        []string{"test-agent"},
	}
}

func TestPageTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "simple title", body: "<html><head><title>Hello</title></head></html>", want: "Hello"},
		{name: "trimmed", body: "<title>\n  alice - Profile \n</title>", want: "alice - Profile"},
		{name: "entities decoded", body: "<title>Tom &amp; Jerry</title>", want: "Tom & Jerry"},
		{name: "uppercase tag", body: "<TITLE>Shout</TITLE>", want: "Shout"},
		{name: "no title", body: "<html><body>nothing</body></html>", want: ""},
		{name: "empty body", body: "", want: ""},
		{name: "unterminated title", body: "<title>Broken", want: "Broken"},
		{name: "not html", body: "{\"json\": true}", want: ""},
		{name: "first title wins", body: "<title>One</title><title>Two</title>", want: "One"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := PageTitle(tt.body); got != tt.want {
				t.Errorf("PageTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifierIsSoftNotFound(t *testing.T) {
	t.Parallel()

	cl := NewClassifier(testCatalog())

	tests := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "real profile",
			body: "<html><title>alice (Alice Liddell)</title><body>alice's repositories</body></html>",
			want: false,
		},
		{
			name: "indicator in body, any case",
			body: "<html><title>Oops</title><body>PAGE NOT FOUND for alice</body></html>",
			want: true,
		},
		{
			name: "indicator in title",
			body: "<html><title>User Not Found</title><body>alice</body></html>",
			want: true,
		},
		{
			name: "fake success title Instagram regardless of body",
			body: "<html><title>Instagram</title><body>alice has 300 followers</body></html>",
			want: true,
		},
		{
			name: "fake success title is matched case-insensitively",
			body: "<title>  instagram </title>alice",
			want: true,
		},
		{
			name: "title containing instagram is not an exact match",
			body: "<title>alice (@alice) • Instagram photos and videos</title>alice",
			want: false,
		},
		{
			name: "patreon logo title",
			body: "<title>Patreon logo</title>alice",
			want: true,
		},
		{
			name: "sign in title any case",
			body: "<html><title>Please SIGN IN to continue</title><body>alice</body></html>",
			want: true,
		},
		{
			name: "sign in in body only is not an auth wall",
			body: "<html><title>alice</title><body>sign in to follow alice</body></html>",
			want: false,
		},
		{
			name: "malformed markup does not panic",
			body: "<html><title>alice<<<>>></body",
			want: false,
		},
		{
			name: "site-specific indicator ignored without site",
			body: "<title>reddit</title>nobody on reddit goes by that name",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := cl.IsSoftNotFound(tt.body); got != tt.want {
				t.Errorf("IsSoftNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifierSiteIndicators(t *testing.T) {
	t.Parallel()

	cl := NewClassifier(testCatalog())
	body := "<title>reddit</title>Sorry, nobody on Reddit goes by that name."

	if !cl.IsSoftNotFoundFor("Reddit", body) {
		t.Error("expected site-specific indicator to match for Reddit")
	}
	if cl.IsSoftNotFoundFor("GitHub", body) {
		t.Error("site-specific indicator must not apply to other sites")
	}
}

func TestClassifierEmptyHeuristics(t *testing.T) {
	t.Parallel()

	cl := NewClassifier(&catalog.Catalog{})
	if cl.IsSoftNotFound("<title>Instagram</title>page not found") {
		t.Error("classifier without heuristics must never report soft-404")
	}
}
