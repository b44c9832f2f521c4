package archive

import (
	"compress/flate"
	"errors"
	"fmt"
	"io"

	"github.com/yeka/zip"
)

// Verifier checks candidates against one archive. A Verifier keeps its own
// parsed entries and must not be shared between goroutines; create one per
// worker with Archive.Verifier.
type Verifier struct {
	archive *Archive
	files   []*zip.File
	// checked counts the entries with a password check in their header
	// (AES). ZipCrypto entries are only judged by their data.
	checked int
	open    []io.ReadCloser
}

// Verifier returns a new independent verifier over the archive bytes.
func (a *Archive) Verifier() (*Verifier, error) {
	zr, err := a.reader()
	if err != nil {
		return nil, err
	}
	v := &Verifier{archive: a, files: encryptedFiles(zr)}
	for _, f := range v.files {
		if schemeOf(f) != SchemeZipCrypto {
			v.checked++
		}
	}
	return v, nil
}

// Verify decrypts every encrypted entry with password and streams it through
// its integrity check without writing anything to disk.
//
// All entries are opened first, which runs their password checks, and only
// then is any data read. It returns nil when all entries decrypt cleanly,
// ErrWrongPassword when the password is rejected, and an error wrapping
// ErrFatalArchive otherwise. See ErrIntegrity for a password that passes
// the checks but not the data.
func (v *Verifier) Verify(password string) error {
	if v.archive.closed.Load() {
		return fmt.Errorf("%w: %w", ErrFatalArchive, ErrClosed)
	}
	defer v.closeOpen()

	passed := 0
	for _, f := range v.files {
		f.SetPassword(password)
		rc, err := f.Open()
		if err != nil {
			return v.classify(f.Name, err, passed)
		}
		v.open = append(v.open, rc)
		if schemeOf(f) != SchemeZipCrypto {
			passed++
		}
	}

	for i, rc := range v.open {
		if _, err := io.Copy(io.Discard, rc); err != nil {
			return v.classify(v.files[i].Name, err, passed)
		}
	}
	return nil
}

func (v *Verifier) closeOpen() {
	for i, rc := range v.open {
		rc.Close()
		v.open[i] = nil
	}
	v.open = v.open[:0]
}

// classify separates a rejected password from a broken archive. passed is
// the number of AES password checks the candidate got through.
func (v *Verifier) classify(name string, err error, passed int) error {
	var corrupt flate.CorruptInputError
	switch {
	case errors.Is(err, zip.ErrPassword):
		return ErrWrongPassword
	case errors.Is(err, zip.ErrAuthentication),
		errors.Is(err, zip.ErrChecksum),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &corrupt):
		switch {
		case passed >= 2:
			return fmt.Errorf("%w: %s: %w: %w", ErrFatalArchive, name, ErrIntegrity, err)
		case passed == 1:
			return fmt.Errorf("%w: %s: %w", ErrWrongPassword, name, ErrIntegrity)
		default:
			return ErrWrongPassword
		}
	default:
		return fmt.Errorf("%w: %s: %w", ErrFatalArchive, name, err)
	}
}
