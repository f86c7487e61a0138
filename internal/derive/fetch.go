package derive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bindcc-build/bindcc/internal/msg"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

var depShortcuts = map[string]string{
	"gh:": "https://github.com/",
	"gl:": "https://gitlab.com/",
	"bb:": "https://bitbucket.org/",
	"sr:": "https://sr.ht/",
	"cb:": "https://codeberg.org/",
}

const gitPrefix = "git:"

var (
	errIllegalDep = errors.New("empty or illegal dependency string")
)

// fetchDependency materializes a header dependency into toWhere and returns
// the directory holding it. Local paths are returned as-is, without copying.
func fetchDependency(dep string, toWhere string) (string, error) {
	if dep == "" {
		return "", errIllegalDep
	}

	// check for `git:` prefix, e.g. git:https://github.com/unicode-org/icu.git
	if strings.HasPrefix(dep, gitPrefix) {
		return cloneGitRepo(dep[len(gitPrefix):], toWhere)
	}

	// check for shortcut prefix, e.g. gh:nlohmann/json
	for shortcut, url := range depShortcuts {
		if strings.HasPrefix(dep, shortcut) {
			return cloneGitRepo(url+dep[len(shortcut):], toWhere)
		}
	}

	// if it's a URL, it should be an archive
	if isURL(dep) {
		return downloadAndExtractArchive(dep, toWhere)
	}

	// otherwise it's a path
	return dep, nil
}

func isURL(maybeURL string) bool {
	u, err := url.Parse(maybeURL)
	return err == nil && u.Scheme != "" && u.Host != ""
}

type gitURL struct {
	cleanURL    string
	branch      string
	commitOrTag string
}

// someone/something@master#0.1.0
// someone/something@feature-branch#12345abc
// someone/something#12345abc
func parseGitURL(rawURL string) (res gitURL) {
	parts := strings.SplitN(rawURL, "#", 2)
	baseURL := parts[0]
	if len(parts) == 2 {
		res.commitOrTag = parts[1]
	}

	parts = strings.SplitN(baseURL, "@", 2)
	res.cleanURL = parts[0]
	if len(parts) == 2 {
		res.branch = parts[1]
	}

	if !strings.HasSuffix(res.cleanURL, ".git") {
		res.cleanURL += ".git"
	}

	return
}

// cloneGitRepo clones a Git remote into the specified directory
func cloneGitRepo(url, toWhere string) (string, error) {
	parsedURL := parseGitURL(url)

	cloneOptions := &git.CloneOptions{
		URL:               parsedURL.cleanURL,
		Progress:          &msg.IndentWriter{Indent: "  ", W: os.Stderr},
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	}

	if parsedURL.commitOrTag == "" {
		cloneOptions.Depth = 1 // we can do a shallow clone of the latest commit
	}

	if parsedURL.branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(parsedURL.branch)
		cloneOptions.SingleBranch = true
	}

	repo, err := git.PlainClone(toWhere, cloneOptions)
	if err != nil {
		return toWhere, err
	}

	if parsedURL.commitOrTag != "" {
		w, err := repo.Worktree()
		if err != nil {
			return toWhere, fmt.Errorf("could not get worktree: %w", err)
		}

		revision := parsedURL.commitOrTag
		hash, err := repo.ResolveRevision(plumbing.Revision(revision))
		if err != nil {
			return toWhere, fmt.Errorf("could not resolve revision `%s`: %w", revision, err)
		}

		err = w.Checkout(&git.CheckoutOptions{
			Hash:  *hash,
			Force: true,
		})
		if err != nil {
			return toWhere, fmt.Errorf("failed to checkout `%s`: %w", revision, err)
		}
	}

	return toWhere, nil
}

// downloadAndExtractArchive fetches a zip or tar.gz archive over HTTP and
// unpacks it into toWhere.
func downloadAndExtractArchive(rawURL, toWhere string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	resp, err := http.Get(rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}

	if err := os.MkdirAll(toWhere, 0755); err != nil {
		return "", err
	}

	pb := msg.NewProgressBar(resp.ContentLength, 2, os.Stderr)
	body := io.TeeReader(resp.Body, pb)

	switch {
	case strings.HasSuffix(u.Path, ".zip"):
		err = extractZip(body, toWhere)
	case strings.HasSuffix(u.Path, ".tar.gz") || strings.HasSuffix(u.Path, ".tgz"):
		err = extractTarGz(body, toWhere)
	default:
		err = fmt.Errorf("unsupported archive format: %s", u.Path)
	}
	pb.Finish()

	if err != nil {
		return "", err
	}
	return toWhere, nil
}

// extractZip spools the archive to a temp file (zip needs random access) and
// unpacks it.
func extractZip(r io.Reader, toWhere string) error {
	tmp, err := os.CreateTemp("", "bindcc-dep-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(tmp, size)
	if err != nil {
		return err
	}

	for _, f := range zr.File {
		dst, err := safeJoin(toWhere, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dst, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.Create(dst)
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func extractTarGz(r io.Reader, toWhere string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		dst, err := safeJoin(toWhere, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dst, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
				return err
			}
			out, err := os.Create(dst)
			if err != nil {
				return err
			}
			_, err = io.Copy(out, tr)
			out.Close()
			if err != nil {
				return err
			}
		default:
			// symlinks, devices etc. have no business in a header archive
		}
	}

	return nil
}

// safeJoin rejects archive entries that would escape the destination.
func safeJoin(dir, name string) (string, error) {
	dst := filepath.Join(dir, filepath.FromSlash(name))
	clean := filepath.Clean(dir)
	if dst != clean && !strings.HasPrefix(dst, clean+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination directory", name)
	}
	return dst, nil
}
