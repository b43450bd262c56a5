package upload

import (
	"crypto/rand"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/foldertree"
)

const base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"

// sanitizeFilename takes the basename of name, replaces reserved/control
// characters with '_', and rejects anything that reduces to empty, ".", or
// "..".
func sanitizeFilename(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", cerrors.New(cerrors.CodeValidation, "filename is required")
	}
	base := filepath.Base(name)
	cleaned := foldertree.SanitizeName(base)
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "", cerrors.New(cerrors.CodeValidation, "filename is invalid after sanitization")
	}
	return cleaned, nil
}

// resolveMimeType returns provided if set, else derives one from filename's
// extension, defaulting to the generic octet-stream type.
func resolveMimeType(provided, filename string) string {
	if provided != "" {
		return provided
	}
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		if idx := strings.IndexByte(t, ';'); idx >= 0 {
			t = t[:idx]
		}
		return t
	}
	return "application/octet-stream"
}

// generateStorageKey builds the opaque storage key
// "<userId>_<unixMillis>_<random6>.<ext>" for a newly completed upload.
func generateStorageKey(userID, originalName string, unixMillis int64) string {
	return userID + "_" + strconv.FormatInt(unixMillis, 10) + "_" + randomBase36(6) + filepath.Ext(originalName)
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		for i := range buf {
			buf[i] = '0'
		}
		return string(buf)
	}
	for i, b := range raw {
		buf[i] = base36Chars[int(b)%len(base36Chars)]
	}
	return string(buf)
}
