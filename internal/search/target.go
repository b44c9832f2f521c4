package search

import "zipcrack/internal/archive"

// Verifier checks one candidate. Verify returns nil on success and
// archive.ErrWrongPassword for an ordinary miss; any other error ends the
// search.
type Verifier interface {
	Verify(password string) error
}

// Target is what candidates are checked against. Each worker gets its own
// Verifier from NewVerifier.
type Target interface {
	NewVerifier() (Verifier, error)
	Close() error
}

type archiveTarget struct {
	*archive.Archive
}

func (t archiveTarget) NewVerifier() (Verifier, error) {
	v, err := t.Verifier()
	if err != nil {
		return nil, err
	}
	return v, nil
}

func openArchive(path string) (Target, error) {
	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	return archiveTarget{a}, nil
}
