package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/util"
	gogit "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/storage/memory"
)

// Common errors for wiki loading
var (
	ErrEmptyWiki  = errors.New("wiki source contains no articles")
	ErrCloneWiki  = errors.New("failed to clone wiki mirror")
	ErrReadWiki   = errors.New("failed to read wiki source")
	ErrEmptyTitle = errors.New("article title cannot be empty")
)

// LoadWiki loads wiki articles from a local directory or, when the source
// looks like a remote URL, from an in-memory clone of a git mirror. Each
// .md/.txt file becomes one wiki-sourced passage without an embedding.
func LoadWiki(source string) ([]Passage, error) {
	if isRemoteURL(source) {
		return loadWikiRepo(source)
	}
	return LoadWikiDir(source)
}

// LoadWikiDir reads wiki articles from a directory on disk.
func LoadWikiDir(dir string) ([]Passage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadWiki, err)
	}

	var passages []Passage
	for _, entry := range entries {
		if entry.IsDir() || !isArticleFile(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReadWiki, err)
		}
		passages = append(passages, newArticle(entry.Name(), entry.Name(), string(data)))
	}

	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyWiki, dir)
	}
	if err := checkArticleIDs(passages); err != nil {
		return nil, err
	}
	sortArticles(passages)
	return passages, nil
}

// loadWikiRepo clones a wiki git mirror into memory and reads its articles
// from the checkout.
func loadWikiRepo(url string) ([]Passage, error) {
	fs := memfs.New()
	_, err := gogit.Clone(memory.NewStorage(), fs, &gogit.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCloneWiki, err)
	}

	var passages []Passage
	if err := walkArticles(fs, "/", &passages); err != nil {
		return nil, err
	}
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyWiki, url)
	}
	if err := checkArticleIDs(passages); err != nil {
		return nil, err
	}
	sortArticles(passages)
	return passages, nil
}

func walkArticles(fs billy.Filesystem, dir string, passages *[]Passage) error {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadWiki, err)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if entry.Name() == ".git" {
				continue
			}
			if err := walkArticles(fs, path, passages); err != nil {
				return err
			}
			continue
		}
		if !isArticleFile(entry.Name()) {
			continue
		}
		data, err := util.ReadFile(fs, path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReadWiki, err)
		}
		// slug carries the repo-relative path so same-named files in
		// different directories stay distinct
		*passages = append(*passages, newArticle(strings.TrimPrefix(path, "/"), entry.Name(), string(data)))
	}
	return nil
}

// newArticle builds a wiki passage. The ID slug derives from slugPath, the
// title from the first markdown heading when present, otherwise from the
// file name.
func newArticle(slugPath, filename, content string) Passage {
	title := titleFromContent(content)
	if title == "" {
		title = titleFromFilename(filename)
	}
	return Passage{
		ID:     "wiki:" + slugify(slugPath),
		Title:  title,
		Text:   strings.TrimSpace(content),
		Source: SourceWiki,
	}
}

// checkArticleIDs fails fast when two article files slugify to the same
// passage ID, e.g. "Foo Bar.md" next to "foo_bar.md". Catching the collision
// here keeps it out of the index, where it would poison every later query.
func checkArticleIDs(passages []Passage) error {
	seen := make(map[string]string, len(passages))
	for _, p := range passages {
		if prev, ok := seen[p.ID]; ok {
			return fmt.Errorf("%w: articles %q and %q both map to %s", ErrDuplicateID, prev, p.Title, p.ID)
		}
		seen[p.ID] = p.Title
	}
	return nil
}

func titleFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
		return ""
	}
	return ""
}

func titleFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return strings.ReplaceAll(strings.ReplaceAll(base, "_", " "), "-", " ")
}

func slugify(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	base = strings.ToLower(base)
	for _, old := range []string{" ", "_", "/"} {
		base = strings.ReplaceAll(base, old, "-")
	}
	return base
}

func isArticleFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".txt":
		return true
	}
	return false
}

func isRemoteURL(source string) bool {
	return strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasPrefix(source, "ssh://")
}

// sortArticles orders articles by ID so the corpus build order does not
// depend on directory listing order.
func sortArticles(passages []Passage) {
	sort.Slice(passages, func(i, j int) bool { return passages[i].ID < passages[j].ID })
}
