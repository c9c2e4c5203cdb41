package unit

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	rice "github.com/GeertJohan/go.rice"
)

// Source lists the unit source files of an application as slash-separated
// paths relative to the application root.
type Source interface {
	Files() ([]string, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func() ([]string, error)

// Files calls f.
func (f SourceFunc) Files() ([]string, error) { return f() }

// FS lists every regular file of fsys. Use it with os.DirFS or an embed.FS.
func FS(fsys fs.FS) Source {
	return SourceFunc(func() ([]string, error) {
		var files []string
		err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				files = append(files, p)
			}
			return nil
		})
		return files, err
	})
}

// Dir lists the files below a directory on disk.
func Dir(dir string) Source { return FS(os.DirFS(dir)) }

// RiceBox lists the files of a go.rice box, embedded or on disk.
func RiceBox(box *rice.Box) Source {
	return SourceFunc(func() ([]string, error) {
		var files []string
		err := box.Walk("", func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				files = append(files, strings.TrimPrefix(filepath.ToSlash(p), "/"))
			}
			return nil
		})
		return files, err
	})
}
