package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extract writes every entry of the archive under dir using password and
// returns the paths it created. Entry names that would escape dir are
// rejected.
func (a *Archive) Extract(password, dir string) ([]string, error) {
	zr, err := a.reader()
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var written []string
	for _, f := range zr.File {
		target, err := safeJoin(root, f.Name)
		if err != nil {
			return written, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return written, fmt.Errorf("extract %s: %w", f.Name, err)
			}
			continue
		}
		if f.IsEncrypted() {
			f.SetPassword(password)
		}
		if err := extractFile(f.Open, target); err != nil {
			return written, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		written = append(written, target)
	}
	return written, nil
}

func extractFile(open func() (io.ReadCloser, error), target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	rc, err := open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func safeJoin(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("extract %s: absolute entry path", name)
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("extract %s: entry escapes destination", name)
	}
	return target, nil
}
