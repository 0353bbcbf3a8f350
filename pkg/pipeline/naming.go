package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// VariantFileName returns the file name of a width-tiered variant: <base>-<width>w.<ext>
func VariantFileName(base string, width int, ext string) string {
	return fmt.Sprintf("%s-%dw.%s", base, width, ext)
}

// FullFileName returns the file name of the full-size variant: <base>.<ext>
func FullFileName(base, ext string) string {
	return base + "." + ext
}

// BaseName strips the extension from a file name
func BaseName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// IsSourceImage reports whether name looks like a JPEG original (.jpg or .jpeg, any case)
func IsSourceImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

// ParseVariantFileName splits a generated file name back into its base and tier width.
// Full-size names return width 0. ok is false when name does not carry ext.
func ParseVariantFileName(name, ext string) (base string, width int, ok bool) {
	suffix := "." + ext
	if !strings.HasSuffix(name, suffix) {
		return "", 0, false
	}
	stem := strings.TrimSuffix(name, suffix)
	if stem == "" {
		return "", 0, false
	}

	dash := strings.LastIndex(stem, "-")
	if dash <= 0 || !strings.HasSuffix(stem, "w") {
		return stem, 0, true
	}
	w, err := strconv.Atoi(stem[dash+1 : len(stem)-1])
	if err != nil || w <= 0 {
		return stem, 0, true
	}
	return stem[:dash], w, true
}

// SrcSet builds a srcset attribute value for base, listing only the tiers the
// variant generator produces for a source of sourceWidth pixels.
// urlPrefix is joined to each file name verbatim (e.g. "/images/").
func SrcSet(urlPrefix, base, ext string, tiers []int, sourceWidth int) string {
	parts := make([]string, 0, len(tiers))
	for _, t := range tiers {
		if t > sourceWidth {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s%s %dw", urlPrefix, VariantFileName(base, t, ext), t))
	}
	return strings.Join(parts, ", ")
}
