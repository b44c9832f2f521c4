package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeka/zip"

	"zipcrack/internal/testutil"
)

func TestOpen_AES256(t *testing.T) {
	path := testutil.WriteAES256(t, t.TempDir(), "secret.zip", "abcd")

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, path, a.Path())
	assert.Equal(t, SchemeAES256, a.Scheme())
	assert.Equal(t, 2, a.Entries())
}

func TestOpen_Unavailable(t *testing.T) {
	dir := t.TempDir()

	notZip := filepath.Join(dir, "notes.zip")
	require.NoError(t, os.WriteFile(notZip, []byte("definitely not a zip"), 0o600))

	cases := map[string]string{
		"missing":      filepath.Join(dir, "missing.zip"),
		"directory":    dir,
		"not a zip":    notZip,
		"no encrypted": testutil.WritePlain(t, dir, "plain.zip"),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Open(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrArchiveUnavailable)
		})
	}
}

func TestVerify_CorrectAndWrong(t *testing.T) {
	a, err := Open(testutil.WriteAES256(t, t.TempDir(), "secret.zip", "abcd"))
	require.NoError(t, err)
	defer a.Close()

	v, err := a.Verifier()
	require.NoError(t, err)

	// Repeated attempts on the same verifier must not change the verdict.
	for range 3 {
		assert.NoError(t, v.Verify("abcd"))
		assert.ErrorIs(t, v.Verify("abce"), ErrWrongPassword)
		assert.ErrorIs(t, v.Verify(""), ErrWrongPassword)
		assert.ErrorIs(t, v.Verify("ABCD"), ErrWrongPassword)
	}
}

func TestVerify_NoFalsePositives(t *testing.T) {
	a, err := Open(testutil.WriteAES256(t, t.TempDir(), "secret.zip", "zz"))
	require.NoError(t, err)
	defer a.Close()

	v, err := a.Verifier()
	require.NoError(t, err)

	letters := "abcdefghijklmnopqrstuvwxyz"
	accepted := 0
	for _, x := range letters {
		for _, y := range letters {
			pwd := string([]rune{x, y})
			err := v.Verify(pwd)
			if err == nil {
				accepted++
				assert.Equal(t, "zz", pwd)
				continue
			}
			require.ErrorIs(t, err, ErrWrongPassword, "candidate %q", pwd)
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestVerify_OtherSchemes(t *testing.T) {
	cases := []struct {
		method zip.EncryptionMethod
		scheme Scheme
	}{
		{zip.AES128Encryption, SchemeAES128},
		{zip.AES192Encryption, SchemeAES192},
		{zip.AES256Encryption, SchemeAES256},
		{zip.StandardEncryption, SchemeZipCrypto},
	}
	for _, tc := range cases {
		t.Run(string(tc.scheme), func(t *testing.T) {
			path := testutil.WriteEncrypted(t, t.TempDir(), "secret.zip", "hunter2", tc.method)
			a, err := Open(path)
			require.NoError(t, err)
			defer a.Close()
			assert.Equal(t, tc.scheme, a.Scheme())

			v, err := a.Verifier()
			require.NoError(t, err)
			assert.NoError(t, v.Verify("hunter2"))
			assert.ErrorIs(t, v.Verify("hunter3"), ErrWrongPassword)
		})
	}
}

func TestVerify_CorruptArchiveIsFatal(t *testing.T) {
	path := testutil.WriteAES256(t, t.TempDir(), "secret.zip", "abcd")
	testutil.CorruptLocalHeader(t, path)

	a, err := Open(path)
	require.NoError(t, err, "central directory is intact")
	defer a.Close()

	v, err := a.Verifier()
	require.NoError(t, err)

	for _, pwd := range []string{"abcd", "wrong"} {
		err := v.Verify(pwd)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFatalArchive)
		assert.NotErrorIs(t, err, ErrWrongPassword)
	}
}

func corruptedAES(t *testing.T, entries int) *Verifier {
	t.Helper()
	var files []testutil.Entry
	for i := range entries {
		files = append(files, testutil.Entry{
			Name: fmt.Sprintf("part%d.txt", i),
			Body: testutil.Noise(uint64(i+1), 2048),
		})
	}
	path := testutil.WriteAES256(t, t.TempDir(), "secret.zip", "letmein", files...)
	testutil.CorruptEntryData(t, path, testutil.AESDataOffset+5)

	a, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	v, err := a.Verifier()
	require.NoError(t, err)
	return v
}

func TestVerify_CorruptCiphertext(t *testing.T) {
	v := corruptedAES(t, 2)

	err := v.Verify("letmein")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatalArchive)
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.NotErrorIs(t, err, ErrWrongPassword)

	assert.ErrorIs(t, v.Verify("letmeout"), ErrWrongPassword)
}

func TestVerify_CorruptCiphertextSingleEntry(t *testing.T) {
	v := corruptedAES(t, 1)

	// One 2-byte check cannot tell corruption from a lucky wrong password.
	err := v.Verify("letmein")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.NotErrorIs(t, err, ErrFatalArchive)
}

func TestVerify_Closed(t *testing.T) {
	a, err := Open(testutil.WriteAES256(t, t.TempDir(), "secret.zip", "abcd"))
	require.NoError(t, err)

	v, err := a.Verifier()
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	err = v.Verify("abcd")
	assert.ErrorIs(t, err, ErrFatalArchive)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = a.Verifier()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestVerify_ConcurrentVerifiers(t *testing.T) {
	a, err := Open(testutil.WriteAES256(t, t.TempDir(), "secret.zip", "abcd"))
	require.NoError(t, err)
	defer a.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		v, err := a.Verifier()
		require.NoError(t, err)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range 20 {
				if i%2 == 0 {
					if err := v.Verify("abcd"); err != nil {
						errs <- err
						return
					}
				} else if err := v.Verify("nope"); err != ErrWrongPassword {
					errs <- err
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent verify: %v", err)
	}
}

func TestExtract(t *testing.T) {
	a, err := Open(testutil.WriteAES256(t, t.TempDir(), "secret.zip", "abcd"))
	require.NoError(t, err)
	defer a.Close()

	out := filepath.Join(t.TempDir(), "out")
	written, err := a.Extract("abcd", out)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	for _, e := range testutil.DefaultEntries() {
		if e.Body == "" {
			assert.DirExists(t, filepath.Join(out, filepath.FromSlash(e.Name)))
			continue
		}
		got, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(e.Name)))
		require.NoError(t, err)
		assert.Equal(t, e.Body, string(got))
	}
}

func TestExtract_WrongPassword(t *testing.T) {
	a, err := Open(testutil.WriteAES256(t, t.TempDir(), "secret.zip", "abcd"))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Extract("nope", t.TempDir())
	assert.Error(t, err)
}

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()

	p, err := safeJoin(root, "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b.txt"), p)

	for _, bad := range []string{"../evil.txt", "a/../../evil.txt", "/etc/passwd"} {
		_, err := safeJoin(root, bad)
		assert.Error(t, err, bad)
	}
}
