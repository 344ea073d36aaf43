package remoteexec

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
)

// writeTarArchive streams a gzip-compressed tar of the named files (paths
// relative to dir) to w, preserving their relative layout so the remote
// "tar -xzf -" unpacks them back into place.
func writeTarArchive(w io.Writer, dir string, fileList []string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	for _, rel := range fileList {
		full := filepath.Join(dir, rel)
		info, err := os.Stat(full)
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		f, err := os.Open(full)
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(tw, f)
		f.Close()
		if copyErr != nil {
			return copyErr
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}
