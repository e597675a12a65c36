// Package verify runs post-build checks over a distribution tree: every HTML
// file must still parse after minification, and local href/src references must
// resolve to files that were actually packaged.
package verify

import (
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Problem is one finding against a packaged file.
type Problem struct {
	File   string // path relative to the verified root
	Detail string
}

// Report summarizes one verification run.
type Report struct {
	FilesChecked int
	Problems     []Problem
}

// OK reports whether the tree passed without findings.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

// Tree verifies every .html file under root.
func Tree(root string) (*Report, error) {
	report := &Report{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return rerr
		}
		report.FilesChecked++
		problems, ferr := checkFile(root, path)
		if ferr != nil {
			report.Problems = append(report.Problems, Problem{File: rel, Detail: ferr.Error()})
			return nil
		}
		for _, p := range problems {
			report.Problems = append(report.Problems, Problem{File: rel, Detail: p})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk distribution tree: %w", err)
	}
	return report, nil
}

func checkFile(root, path string) ([]string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open html file: %w", err)
	}
	defer func() {
		_ = file.Close() // Ignore close errors on read-only operation
	}()
	return checkReader(root, filepath.Dir(path), file)
}

func checkReader(root, dir string, r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var problems []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, ref := range elementRefs(n) {
				if missing := localRefMissing(root, dir, ref); missing != "" {
					problems = append(problems, missing)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return problems, nil
}

// elementRefs returns the link-bearing attribute values of one element.
func elementRefs(n *html.Node) []string {
	var attr string
	switch n.Data {
	case "a", "link":
		attr = "href"
	case "img", "script":
		attr = "src"
	default:
		return nil
	}
	for _, a := range n.Attr {
		if a.Key == attr && a.Val != "" {
			return []string{a.Val}
		}
	}
	return nil
}

// localRefMissing reports a finding string when ref points at a local file
// that does not exist in the tree. External and fragment links are ignored.
func localRefMissing(root, dir, ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return ""
	}
	target := filepath.Join(dir, filepath.FromSlash(u.Path))
	if strings.HasPrefix(u.Path, "/") {
		target = filepath.Join(root, filepath.FromSlash(u.Path))
	}
	if _, err := os.Stat(target); err != nil {
		return fmt.Sprintf("broken local reference %q", ref)
	}
	return ""
}
