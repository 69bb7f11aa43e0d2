package shared

import "errors"

// ErrMalformedArchive marks a batch-level fatal extraction failure: the
// uploaded payload is not a readable ZIP archive. Callers wrap it with
// detail and match with errors.Is.
var ErrMalformedArchive = errors.New("malformed archive")

// ErrArchiveTooLarge marks an archive or archive member exceeding the
// configured size cap. Treated the same as a malformed archive upstream.
var ErrArchiveTooLarge = errors.New("archive exceeds size limit")
