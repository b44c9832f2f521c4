// Package archive opens password-protected ZIP archives and checks password
// candidates against them.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/yeka/zip"
)

var (
	// ErrArchiveUnavailable means the archive is missing, unreadable, or not a
	// ZIP with encrypted entries.
	ErrArchiveUnavailable = errors.New("archive unavailable")
	// ErrWrongPassword is the expected result of verifying a wrong candidate.
	ErrWrongPassword = errors.New("wrong password")
	// ErrFatalArchive means verification failed for a reason other than the
	// password, such as a corrupt entry header or an I/O failure.
	ErrFatalArchive = errors.New("fatal archive error")
	// ErrClosed is wrapped in ErrFatalArchive when a closed archive is used.
	ErrClosed = errors.New("archive closed")
	// ErrIntegrity marks a candidate that passed the password check of every
	// AES entry but whose decrypted data failed authentication, CRC or
	// decompression. With two or more AES entries it is wrapped in
	// ErrFatalArchive; with one it is wrapped in ErrWrongPassword, since
	// about one wrong password in 65536 gets that far.
	ErrIntegrity = errors.New("entry data failed integrity check")
)

// Scheme names the encryption used by an archive's entries.
type Scheme string

const (
	SchemeZipCrypto Scheme = "ZipCrypto"
	SchemeAES128    Scheme = "AES-128"
	SchemeAES192    Scheme = "AES-192"
	SchemeAES256    Scheme = "AES-256"
	SchemeMixed     Scheme = "mixed"
)

// winzipAESExtraID tags the WinZip AES extra field (APPNOTE 4.6.x, AE-x).
const winzipAESExtraID = 0x9901

// Archive is an encrypted ZIP held in memory for the duration of a search.
type Archive struct {
	path    string
	data    []byte
	scheme  Scheme
	entries int
	closed  atomic.Bool
}

// Open reads the archive at path into memory.
func Open(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveUnavailable, err)
	}
	return Load(path, data)
}

// Load parses an archive that is already in memory. name is only used in
// messages.
func Load(name string, data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchiveUnavailable, name, err)
	}

	a := &Archive{path: name, data: data}
	for _, f := range encryptedFiles(zr) {
		s := schemeOf(f)
		switch {
		case a.scheme == "":
			a.scheme = s
		case a.scheme != s:
			a.scheme = SchemeMixed
		}
		a.entries++
	}
	if a.entries == 0 {
		return nil, fmt.Errorf("%w: %s: no encrypted entries", ErrArchiveUnavailable, name)
	}
	return a, nil
}

func (a *Archive) Path() string { return a.path }

func (a *Archive) Scheme() Scheme { return a.scheme }

// Entries is the number of encrypted file entries.
func (a *Archive) Entries() int { return a.entries }

// Close releases the archive bytes. Verifiers created earlier fail with
// ErrClosed afterwards.
func (a *Archive) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	a.data = nil
	return nil
}

func (a *Archive) reader() (*zip.Reader, error) {
	if a.closed.Load() {
		return nil, fmt.Errorf("%w: %w", ErrFatalArchive, ErrClosed)
	}
	zr, err := zip.NewReader(bytes.NewReader(a.data), int64(len(a.data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFatalArchive, a.path, err)
	}
	return zr, nil
}

func encryptedFiles(zr *zip.Reader) []*zip.File {
	var files []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !f.IsEncrypted() {
			continue
		}
		files = append(files, f)
	}
	return files
}

func schemeOf(f *zip.File) Scheme {
	extra := f.Extra
	for len(extra) >= 4 {
		tag := binary.LittleEndian.Uint16(extra[0:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		extra = extra[4:]
		if size > len(extra) {
			break
		}
		// version(2) vendor(2) strength(1) method(2)
		if tag == winzipAESExtraID && size >= 5 {
			switch extra[4] {
			case 1:
				return SchemeAES128
			case 2:
				return SchemeAES192
			case 3:
				return SchemeAES256
			}
		}
		extra = extra[size:]
	}
	return SchemeZipCrypto
}
