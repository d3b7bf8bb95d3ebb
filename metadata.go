package imagesweep

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/bep/imagemeta"
)

// Rights holds the copyright and licensing fields found in a downloaded
// image's EXIF, IPTC and XMP blocks. Re-encoding drops these blocks, so
// they are captured from the raw body and reported on the URLResult.
type Rights struct {
	Copyright string // EXIF Copyright or IPTC CopyrightNotice
	Artist    string // EXIF Artist, IPTC Byline or XMP dc:creator
	Credit    string // IPTC Credit
	Source    string // IPTC Source
	License   string // XMP license URL
	Terms     string // XMP UsageTerms, WebStatement or dc:rights
	Marked    bool   // xmpRights:Marked
}

// String renders the non-empty fields as "key=value" pairs.
func (r *Rights) String() string {
	if r == nil {
		return ""
	}
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("copyright", r.Copyright)
	add("artist", r.Artist)
	add("credit", r.Credit)
	add("source", r.Source)
	add("license", r.License)
	add("terms", r.Terms)
	if r.Marked {
		parts = append(parts, "marked=true")
	}
	return strings.Join(parts, " ")
}

// rightsTags maps (source, tag-name) → true for every tag we read.
var rightsTags = map[imagemeta.Source]map[string]bool{
	imagemeta.EXIF: {
		"Copyright": true,
		"Artist":    true,
	},
	imagemeta.IPTC: {
		"CopyrightNotice": true,
		"Credit":          true,
		"Byline":          true,
		"Source":          true,
	},
	imagemeta.XMP: {
		"WebStatement": true,
		"UsageTerms":   true,
		"License":      true,
		"Marked":       true,
		"Rights":       true,
		"Creator":      true,
	},
}

// ExtractRights parses rights metadata from raw image bytes.
// Returns nil when nothing relevant is present or the data can't be parsed.
func ExtractRights(data []byte) *Rights {
	if len(data) == 0 {
		return nil
	}

	format, ok := metaFormat(data)
	if !ok {
		return nil
	}

	r := &Rights{}
	found := false
	_, err := imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: format,
		Sources:     imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return rightsTags[ti.Source][ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if r.apply(ti) {
				found = true
			}
			return nil
		},
	})
	if err != nil || !found {
		return nil
	}
	return r
}

// metaFormat sniffs the container formats the metadata decoder reads.
func metaFormat(data []byte) (format imagemeta.ImageFormat, ok bool) {
	switch mediaType(http.DetectContentType(data)) {
	case "image/jpeg":
		return imagemeta.JPEG, true
	case "image/png":
		return imagemeta.PNG, true
	case "image/webp":
		return imagemeta.WebP, true
	}
	if len(data) >= 4 && (string(data[:4]) == "II*\x00" || string(data[:4]) == "MM\x00*") {
		return imagemeta.TIFF, true
	}
	return format, false
}

// apply copies one tag into r, keeping the first non-empty value per field.
// It reports whether the tag filled anything.
func (r *Rights) apply(ti imagemeta.TagInfo) bool {
	set := func(dst *string) bool {
		if *dst != "" {
			return false
		}
		s := tagString(ti.Value)
		*dst = s
		return s != ""
	}

	switch ti.Tag {
	case "Copyright", "CopyrightNotice":
		return set(&r.Copyright)
	case "Artist", "Byline", "Creator":
		return set(&r.Artist)
	case "Credit":
		return set(&r.Credit)
	case "Source":
		return set(&r.Source)
	case "License":
		return set(&r.License)
	case "UsageTerms", "WebStatement", "Rights":
		return set(&r.Terms)
	case "Marked":
		if b, ok := ti.Value.(bool); ok && b {
			r.Marked = true
			return true
		}
	}
	return false
}

// tagString extracts a string from a tag value.
// XMP values may be string or []string (from altList/seqList).
func tagString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []string:
		if len(val) > 0 {
			return strings.TrimSpace(val[0])
		}
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
