package services

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/uploadbroker/internal/server/models"
	"github.com/google/uuid"
)

// UploadPrefix is the top-level folder of every key the broker issues.
const UploadPrefix = "uploads"

// NewStorageKey builds an object key of the form
//
//	uploads/<owner>/<unix-millis>-<random>-<base>[.<ext>]
//
// The random part carries 64 bits from a v4 UUID, so keys minted in the
// same millisecond for the same file and owner still differ. Base and
// extension are split on the last dot; a name without an extension (no
// dot, a leading dot only, or a trailing dot) produces a key with no
// trailing dot.
func NewStorageKey(fileName, ownerID string) string {
	return newStorageKey(fileName, ownerID, time.Now())
}

func newStorageKey(fileName, ownerID string, now time.Time) string {
	owner := OwnerSegment(ownerID)

	base, ext := splitExt(path.Base(strings.ReplaceAll(fileName, "\\", "/")))
	base = strings.TrimRight(sanitize(base), ".")
	if base == "" {
		base = "file"
	}

	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]

	key := fmt.Sprintf("%s/%s/%d-%s-%s", UploadPrefix, owner, now.UnixMilli(), random, base)
	if ext = sanitize(ext); ext != "" {
		key += "." + ext
	}
	return key
}

// OwnerSegment is the owner as it appears in keys and on the session
// record: sanitised, or DefaultOwner when nothing usable is left.
func OwnerSegment(ownerID string) string {
	if owner := sanitize(ownerID); owner != "" {
		return owner
	}
	return models.DefaultOwner
}

// splitExt splits on the last dot. Trailing dots never form an extension
// and are dropped from the base.
func splitExt(name string) (string, string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	if i == len(name)-1 {
		return strings.TrimRight(name, "."), ""
	}
	return name[:i], name[i+1:]
}

// sanitize keeps [A-Za-z0-9._-] and replaces everything else with '_'.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." || s == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
