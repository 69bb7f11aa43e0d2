package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/al3-renewal-pipeline/internal/domain/shared"
)

// ExtractedFile is one ZIP member carrying transaction data, with its
// contents fully read into memory.
type ExtractedFile struct {
	Name    string
	Content string
}

// Extractor unpacks uploaded ZIP archives and keeps only the members whose
// extension marks them as transaction data files.
type Extractor struct {
	maxArchiveBytes int64
	maxMemberBytes  int64
}

// NewExtractor caps the whole archive and each decompressed member. The
// archive cap is also enforced at upload; it is re-checked here because the
// payload arrives via the data store, not the request path. Zero disables a
// cap.
func NewExtractor(maxArchiveBytes, maxMemberBytes int64) *Extractor {
	return &Extractor{maxArchiveBytes: maxArchiveBytes, maxMemberBytes: maxMemberBytes}
}

// dataFile reports whether a member name carries transaction data. The
// comparison is case-insensitive; carriers ship both FEED.AL3 and feed.al3.
func dataFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".al3", ".dat":
		return true
	}
	return false
}

// Extract unpacks the archive and returns its data files in archive order.
// Directories, non-data members (manifests, readme files), and anything a
// carrier tool nests under subdirectories are skipped rather than failed.
// An unreadable archive returns shared.ErrMalformedArchive; a member
// larger than the configured cap returns shared.ErrArchiveTooLarge.
func (e *Extractor) Extract(payload []byte) ([]ExtractedFile, error) {
	if e.maxArchiveBytes > 0 && int64(len(payload)) > e.maxArchiveBytes {
		return nil, fmt.Errorf("%w: archive is %d bytes", shared.ErrArchiveTooLarge, len(payload))
	}

	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedArchive, err)
	}

	var files []ExtractedFile
	for _, member := range reader.File {
		if member.FileInfo().IsDir() || !dataFile(member.Name) {
			continue
		}
		if e.maxMemberBytes > 0 && member.UncompressedSize64 > uint64(e.maxMemberBytes) {
			return nil, fmt.Errorf("%w: member %q declares %d bytes",
				shared.ErrArchiveTooLarge, member.Name, member.UncompressedSize64)
		}

		content, err := e.readMember(member)
		if err != nil {
			return nil, err
		}
		files = append(files, ExtractedFile{Name: path.Base(member.Name), Content: content})
	}
	return files, nil
}

// readMember decompresses one member under a hard byte cap. The cap is
// enforced on decompressed output, not the declared size, so a lying
// header cannot expand past it.
func (e *Extractor) readMember(member *zip.File) (string, error) {
	rc, err := member.Open()
	if err != nil {
		return "", fmt.Errorf("%w: member %q: %v", shared.ErrMalformedArchive, member.Name, err)
	}
	defer rc.Close()

	limit := e.maxMemberBytes
	if limit <= 0 {
		limit = int64(1) << 62
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return "", fmt.Errorf("%w: member %q: %v", shared.ErrMalformedArchive, member.Name, err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: member %q decompresses past %d bytes",
			shared.ErrArchiveTooLarge, member.Name, limit)
	}
	return string(data), nil
}
