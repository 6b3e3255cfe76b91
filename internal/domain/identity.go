package domain

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Unknown é o rótulo de faces que não casam com ninguém da galeria
const Unknown = "Unknown"

// ImageExtensions lists the reference image extensions, lower-cased.
var ImageExtensions = []string{".jpg", ".jpeg", ".png"}

// IsImageExtension reports whether ext (with the leading dot) is accepted
// as a reference image. Matching ignores case.
func IsImageExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// IdentityFromFilename derives the identity from a reference file name.
// The second value is false for files that are not reference images.
func IdentityFromFilename(filename string) (string, bool) {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	if !IsImageExtension(ext) {
		return "", false
	}
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		return "", false
	}
	return norm.NFC.String(stem), true
}

// NormalizeName cleans a user supplied identity name so that it can be used
// as a file stem and as the ledger key.
func NormalizeName(raw string) (string, error) {
	name := norm.NFC.String(strings.TrimSpace(raw))

	switch {
	case name == "":
		return "", ErrInvalidName.WithMessage("name is required")
	case strings.EqualFold(name, Unknown):
		return "", ErrInvalidName.WithMessage("name \"Unknown\" is reserved")
	case strings.HasPrefix(name, "."):
		return "", ErrInvalidName.WithMessage("name must not start with a dot")
	case strings.ContainsAny(name, `/\`):
		return "", ErrInvalidName.WithMessage("name must not contain path separators")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return "", ErrInvalidName.WithMessage("name must not contain control characters")
		}
	}
	return name, nil
}
