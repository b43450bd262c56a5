package download

import (
	"strconv"
	"strings"

	"github.com/vaultfs/vaultfs/internal/cerrors"
)

// ByteRange is an inclusive [Start, End] byte range resolved against a
// known object size.
type ByteRange struct {
	Start int64
	End   int64
}

// ParseRange parses an HTTP Range header value of the form "bytes=a-b",
// "bytes=a-" (to end), or "bytes=-n" (suffix, last n bytes), resolving it
// against size. Returns ok=false if header is empty (no range requested).
func ParseRange(header string, size int64) (ByteRange, bool, error) {
	if header == "" {
		return ByteRange{}, false, nil
	}
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return ByteRange{}, false, cerrors.New(cerrors.CodeInvalidRange, "malformed range header")
	}
	spec := strings.TrimPrefix(header, prefix)
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return ByteRange{}, false, cerrors.New(cerrors.CodeInvalidRange, "malformed range header")
	}
	startStr, endStr := spec[:dash], spec[dash+1:]

	var start, end int64
	switch {
	case startStr == "" && endStr == "":
		return ByteRange{}, false, cerrors.New(cerrors.CodeInvalidRange, "malformed range header")
	case startStr == "":
		// Suffix range: last n bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return ByteRange{}, false, cerrors.New(cerrors.CodeInvalidRange, "malformed range header")
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
	default:
		s, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || s < 0 {
			return ByteRange{}, false, cerrors.New(cerrors.CodeInvalidRange, "malformed range header")
		}
		start = s
		if endStr == "" {
			end = size - 1
		} else {
			e, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil {
				return ByteRange{}, false, cerrors.New(cerrors.CodeInvalidRange, "malformed range header")
			}
			end = e
		}
	}

	if start > end || start < 0 || end >= size {
		return ByteRange{}, false, cerrors.New(cerrors.CodeInvalidRange, "unsatisfiable range")
	}
	return ByteRange{Start: start, End: end}, true, nil
}
