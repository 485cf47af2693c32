//go:build unit

package render

import (
	"strings"
	"testing"
)

func TestUnescapeAnchors(t *testing.T) {
	t.Run("restores escaped anchors", func(t *testing.T) {
		in := `before &lt;a href="/wiki/dragon-lore"&gt;Dragon Lore&lt;/a&gt; after`
		got := UnescapeAnchors(in)
		want := `before <a href="/wiki/dragon-lore">Dragon Lore</a> after`
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("leaves other escaped markup alone", func(t *testing.T) {
		in := `&lt;script&gt;alert(1)&lt;/script&gt; and &lt;b&gt;bold&lt;/b&gt;`
		if got := UnescapeAnchors(in); got != in {
			t.Errorf("non-anchor markup must stay escaped, got %q", got)
		}
	})

	t.Run("strips inline handlers and javascript urls", func(t *testing.T) {
		in := `&lt;a href="https://x.test" onclick="steal()"&gt;x&lt;/a&gt;` +
			`&lt;a href='javascript:alert(1)'&gt;y&lt;/a&gt;`
		got := UnescapeAnchors(in)
		if strings.Contains(got, "onclick") {
			t.Errorf("onclick must be stripped, got %q", got)
		}
		if strings.Contains(strings.ToLower(got), "javascript:") {
			t.Errorf("javascript: must be neutralized, got %q", got)
		}
	})
}

func TestRenderSanitizes(t *testing.T) {
	p := New()

	t.Run("drops scripts and handlers", func(t *testing.T) {
		got := p.Render(`<p onclick="x()">hi</p><script>alert(1)</script>`)
		if strings.Contains(got, "script") || strings.Contains(got, "onclick") {
			t.Errorf("script content must not survive, got %q", got)
		}
		if !strings.Contains(got, "<p") || !strings.Contains(got, "hi") {
			t.Errorf("allowed markup must survive, got %q", got)
		}
	})

	t.Run("keeps allowlisted formatting", func(t *testing.T) {
		in := `<h2>Title</h2><ul><li><strong>a</strong></li></ul>`
		got := p.Render(in)
		for _, tag := range []string{"<h2>", "<ul>", "<li>", "<strong>"} {
			if !strings.Contains(got, tag) {
				t.Errorf("expected %s to survive, got %q", tag, got)
			}
		}
	})
}

func TestTransformImageAnchors(t *testing.T) {
	got, err := Transform(`<p><a href="https://cdn.test/map.png">the map</a></p>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "<a") {
		t.Errorf("image anchor must be replaced, got %q", got)
	}
	for _, want := range []string{`src="https://cdn.test/map.png"`, `alt="the map"`, `loading="lazy"`, `decoding="async"`} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in output, got %q", want, got)
		}
	}

	// An anchor that already wraps an image stays an anchor.
	got, err = Transform(`<a href="https://cdn.test/full.png"><img src="https://cdn.test/thumb.png"/></a>`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "<a") {
		t.Errorf("anchor wrapping an image must be kept, got %q", got)
	}
}

func TestTransformBareImageURLs(t *testing.T) {
	got, err := Transform(`<p>see https://cdn.test/a.jpg here</p>`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `<img src="https://cdn.test/a.jpg"`) {
		t.Errorf("bare image url must become an img, got %q", got)
	}
	if !strings.Contains(got, "see ") || !strings.Contains(got, " here") {
		t.Errorf("surrounding text must be preserved, got %q", got)
	}

	// URLs inside anchors are left to the anchor pass.
	got, err = Transform(`<a href="https://x.test">https://cdn.test/a.jpg</a>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "<img") {
		t.Errorf("url inside an anchor must not be materialized, got %q", got)
	}
}

func TestTransformAnchorRel(t *testing.T) {
	got, err := Transform(`<a href="https://x.test" target="_blank" rel="noopener">x</a>`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("explicit target must be kept, got %q", got)
	}
	if !strings.Contains(got, "noreferrer") {
		t.Errorf("noreferrer must be merged into rel, got %q", got)
	}
	if strings.Count(got, "noopener") != 1 {
		t.Errorf("noopener must not be duplicated, got %q", got)
	}

	got, err = Transform(`<a href="https://x.test">x</a>`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `target="_self"`) {
		t.Errorf("missing target must default to _self, got %q", got)
	}
}

func TestTransformSectionSeparators(t *testing.T) {
	got, err := Transform(`<h2>One</h2><p>a</p><h2>Two</h2>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(got, "<hr") != 2 {
		t.Errorf("each h2 must be followed by a separator, got %q", got)
	}
	if !strings.Contains(got, "</h2><hr") {
		t.Errorf("separator must directly follow the heading, got %q", got)
	}
}
