package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeArticle(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write article: %v", err)
	}
}

func TestLoadWikiDir(t *testing.T) {
	t.Run("Loads markdown and text articles", func(t *testing.T) {
		dir := t.TempDir()
		writeArticle(t, dir, "Johnny_Silverhand.md", "# Johnny Silverhand\n\nRockerboy turned terrorist.")
		writeArticle(t, dir, "arasaka tower.txt", "The tower dominates the corpo plaza.")
		writeArticle(t, dir, "ignored.json", "{}")

		passages, err := LoadWikiDir(dir)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(passages) != 2 {
			t.Fatalf("expected 2 passages, got %d", len(passages))
		}

		// sorted by ID: wiki:arasaka-tower before wiki:johnny-silverhand
		if passages[0].ID != "wiki:arasaka-tower" {
			t.Errorf("passages[0].ID = %q, want %q", passages[0].ID, "wiki:arasaka-tower")
		}
		if passages[1].ID != "wiki:johnny-silverhand" {
			t.Errorf("passages[1].ID = %q, want %q", passages[1].ID, "wiki:johnny-silverhand")
		}

		for _, p := range passages {
			if p.Source != SourceWiki {
				t.Errorf("passage %q source = %q, want wiki", p.ID, p.Source)
			}
			if len(p.Embedding) != 0 {
				t.Errorf("passage %q should not carry an embedding", p.ID)
			}
		}
	})

	t.Run("Title from heading when present", func(t *testing.T) {
		dir := t.TempDir()
		writeArticle(t, dir, "afterlife.md", "# The Afterlife\n\nA merc bar in Watson.")

		passages, err := LoadWikiDir(dir)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if passages[0].Title != "The Afterlife" {
			t.Errorf("Title = %q, want %q", passages[0].Title, "The Afterlife")
		}
	})

	t.Run("Title from filename without heading", func(t *testing.T) {
		dir := t.TempDir()
		writeArticle(t, dir, "night_city-districts.txt", "Watson, Westbrook, City Center.")

		passages, err := LoadWikiDir(dir)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if passages[0].Title != "night city districts" {
			t.Errorf("Title = %q, want %q", passages[0].Title, "night city districts")
		}
	})

	t.Run("Colliding article names rejected at load time", func(t *testing.T) {
		dir := t.TempDir()
		writeArticle(t, dir, "Foo Bar.md", "# Foo Bar\n\nOne article.")
		writeArticle(t, dir, "foo_bar.md", "# Foo Bar Again\n\nAnother article.")

		_, err := LoadWikiDir(dir)
		if !errors.Is(err, ErrDuplicateID) {
			t.Errorf("expected ErrDuplicateID, got %v", err)
		}
	})

	t.Run("Empty directory is an error", func(t *testing.T) {
		_, err := LoadWikiDir(t.TempDir())
		if !errors.Is(err, ErrEmptyWiki) {
			t.Errorf("expected ErrEmptyWiki, got %v", err)
		}
	})

	t.Run("Missing directory is an error", func(t *testing.T) {
		_, err := LoadWikiDir(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrReadWiki) {
			t.Errorf("expected ErrReadWiki, got %v", err)
		}
	})
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Johnny_Silverhand.md", "johnny-silverhand"},
		{"arasaka tower.txt", "arasaka-tower"},
		{"lore/characters/judy.md", "lore-characters-judy"},
		{"lore/judy.md", "lore-judy"},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	// same file name in different directories must not collide
	if slugify("gangs/judy.md") == slugify("fixers/judy.md") {
		t.Error("directory component lost from slug")
	}
}

func TestLoadWiki_SourceDetection(t *testing.T) {
	cases := []struct {
		source string
		remote bool
	}{
		{"https://github.com/user/nc-wiki", true},
		{"http://example.com/wiki.git", true},
		{"git@github.com:user/nc-wiki.git", true},
		{"ssh://git@example.com/wiki", true},
		{"./wiki", false},
		{"/data/wiki", false},
	}
	for _, tc := range cases {
		if got := isRemoteURL(tc.source); got != tc.remote {
			t.Errorf("isRemoteURL(%q) = %v, want %v", tc.source, got, tc.remote)
		}
	}
}

func TestLoadWiki_RemoteClone(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network clone in short mode")
	}
	url := os.Getenv("CHOOM_TEST_WIKI_URL")
	if url == "" {
		t.Skip("CHOOM_TEST_WIKI_URL not set")
	}

	passages, err := LoadWiki(url)
	if err != nil {
		t.Fatalf("clone failed: %v", err)
	}
	if len(passages) == 0 {
		t.Error("expected at least one article from the wiki mirror")
	}
}
