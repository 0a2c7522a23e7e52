package media

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type mimeGroup string

const (
	mimeGroupImages mimeGroup = "images"
	mimeGroupPDFs   mimeGroup = "pdfs"
)

var mimeGroupNames = map[mimeGroup]string{
	mimeGroupImages: "PNG, JPEG, WebP or GIF images",
	mimeGroupPDFs:   "PDF documents",
}

var mimeGroupTypes = map[mimeGroup][]string{
	mimeGroupImages: {"image/png", "image/jpeg", "image/webp", "image/gif"},
	mimeGroupPDFs:   {"application/pdf"},
}

var allowedMimeGroupsByKind = map[Kind][]mimeGroup{
	KindLogo:         {mimeGroupImages},
	KindBrief:        {mimeGroupPDFs, mimeGroupImages},
	KindPaymentProof: {mimeGroupImages, mimeGroupPDFs},
}

// matchGroup returns the group the sniffed type belongs to among those allowed for kind.
func matchGroup(kind Kind, detected *mimetype.MIME) (mimeGroup, bool) {
	if detected == nil {
		return "", false
	}
	for _, group := range allowedMimeGroupsByKind[kind] {
		for _, candidate := range mimeGroupTypes[group] {
			if detected.Is(candidate) {
				return group, true
			}
		}
	}
	return "", false
}

func allowedMimeDescription(kind Kind) string {
	var names []string
	for _, group := range allowedMimeGroupsByKind[kind] {
		names = append(names, mimeGroupNames[group])
	}
	switch len(names) {
	case 0:
		return "no file types"
	case 1:
		return names[0]
	default:
		return fmt.Sprintf("%s or %s", strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
	}
}
