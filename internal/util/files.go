package util

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ArchiveDirectory zips every regular file under dirPath into dest. Entry
// names are relative to dirPath.
func ArchiveDirectory(dirPath, dest string) (string, error) {
	paths := make([]string, 0)
	err := filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return "", err
	}
	archive, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if err := writeArchive(archive, dirPath, paths); err != nil {
		_ = archive.Close()
		return "", err
	}
	if err := archive.Close(); err != nil {
		return "", err
	}
	return archive.Name(), nil
}

func writeArchive(w io.Writer, dirPath string, paths []string) error {
	zw := zip.NewWriter(w)
	for _, p := range paths {
		name, err := filepath.Rel(dirPath, p)
		if err != nil {
			return err
		}
		if err := copyToArchive(zw, p, filepath.ToSlash(name)); err != nil {
			return err
		}
	}
	return zw.Close()
}

func copyToArchive(zw *zip.Writer, p, name string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	zf, err := zw.Create(name)
	if err != nil {
		return err
	}

	if _, err := io.Copy(zf, f); err != nil {
		return err
	}
	return nil
}
