// Package testutil builds password-protected ZIP fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	aeszip "github.com/alexmullins/zip"
	"github.com/yeka/zip"
)

// Entry is one file stored in a fixture archive. Names ending in "/" are
// written as plain directory entries.
type Entry struct {
	Name string
	Body string
}

// DefaultEntries is a small archive body with two files and a directory.
// The first entry is always a file.
func DefaultEntries() []Entry {
	return []Entry{
		{Name: "notes.md", Body: "# notes\nnothing to see here\n"},
		{Name: "docs/"},
		{Name: "docs/secret.txt", Body: strings.Repeat("the eagle lands at dawn\n", 64)},
	}
}

// WriteAES256 writes a WinZip AES-256 archive, the format pyzipper and 7-Zip
// produce, into dir and returns its path.
func WriteAES256(t testing.TB, dir, name, password string, entries ...Entry) string {
	t.Helper()
	if len(entries) == 0 {
		entries = DefaultEntries()
	}

	var buf bytes.Buffer
	w := aeszip.NewWriter(&buf)
	for _, e := range entries {
		if strings.HasSuffix(e.Name, "/") {
			if _, err := w.Create(e.Name); err != nil {
				t.Fatalf("create dir %s: %v", e.Name, err)
			}
			continue
		}
		fw, err := w.Encrypt(e.Name, password)
		if err != nil {
			t.Fatalf("encrypt %s: %v", e.Name, err)
		}
		if _, err := fw.Write([]byte(e.Body)); err != nil {
			t.Fatalf("write %s: %v", e.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return writeFile(t, dir, name, buf.Bytes())
}

// WriteEncrypted writes an archive using the given yeka/zip encryption
// method, e.g. zip.StandardEncryption for legacy ZipCrypto.
func WriteEncrypted(t testing.TB, dir, name, password string, method zip.EncryptionMethod, entries ...Entry) string {
	t.Helper()
	if len(entries) == 0 {
		entries = DefaultEntries()
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		if strings.HasSuffix(e.Name, "/") {
			if _, err := w.Create(e.Name); err != nil {
				t.Fatalf("create dir %s: %v", e.Name, err)
			}
			continue
		}
		fw, err := w.Encrypt(e.Name, password, method)
		if err != nil {
			t.Fatalf("encrypt %s: %v", e.Name, err)
		}
		if _, err := fw.Write([]byte(e.Body)); err != nil {
			t.Fatalf("write %s: %v", e.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return writeFile(t, dir, name, buf.Bytes())
}

// WritePlain writes an archive without any encryption.
func WritePlain(t testing.TB, dir, name string, entries ...Entry) string {
	t.Helper()
	if len(entries) == 0 {
		entries = DefaultEntries()
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		fw, err := w.Create(e.Name)
		if err != nil {
			t.Fatalf("create %s: %v", e.Name, err)
		}
		if _, err := fw.Write([]byte(e.Body)); err != nil {
			t.Fatalf("write %s: %v", e.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return writeFile(t, dir, name, buf.Bytes())
}

// CorruptLocalHeader overwrites the signature of the first local file header
// while leaving the central directory intact, so the archive still opens but
// its first entry can no longer be read.
func CorruptLocalHeader(t testing.TB, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		t.Fatalf("%s does not start with a local file header", path)
	}
	copy(data, "XXXX")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// AESDataOffset is where ciphertext starts inside an AES-256 entry's data:
// after the 16-byte salt and the 2-byte password verifier.
const AESDataOffset = 16 + 2

// CorruptEntryData flips one byte at offset into the data of the first
// entry, leaving every header intact.
func CorruptEntryData(t testing.TB, path string, offset int) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(data) < 30 || !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		t.Fatalf("%s does not start with a local file header", path)
	}
	nameLen := int(binary.LittleEndian.Uint16(data[26:28]))
	extraLen := int(binary.LittleEndian.Uint16(data[28:30]))
	pos := 30 + nameLen + extraLen + offset
	if pos >= len(data) {
		t.Fatalf("offset %d is past the end of %s", offset, path)
	}
	data[pos] ^= 0xff
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Noise returns size bytes of deterministic text that barely compresses,
// so an entry's ciphertext is long enough to damage.
func Noise(seed uint64, size int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	r := rand.New(rand.NewPCG(seed, seed))
	b := make([]byte, size)
	for i := range b {
		b[i] = letters[r.IntN(len(letters))]
	}
	return string(b)
}

func writeFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
