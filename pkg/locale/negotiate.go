package locale

import (
	"net/http"

	"golang.org/x/text/language"
)

// Negotiator picks the response locale for a request.
type Negotiator struct {
	supported []string
	matcher   language.Matcher
	fallback  string
}

func NewNegotiator(fallback string, supported ...string) *Negotiator {
	if len(supported) == 0 {
		supported = []string{fallback}
	}
	tags := make([]language.Tag, 0, len(supported))
	codes := make([]string, 0, len(supported))
	for _, code := range supported {
		tags = append(tags, language.Make(code))
		codes = append(codes, normalize(code))
	}
	return &Negotiator{
		supported: codes,
		matcher:   language.NewMatcher(tags),
		fallback:  normalize(fallback),
	}
}

func (n *Negotiator) Fallback() string {
	return n.fallback
}

// FromRequest honours ?locale= first, then Accept-Language.
func (n *Negotiator) FromRequest(r *http.Request) string {
	if r == nil {
		return n.fallback
	}
	if q := normalize(r.URL.Query().Get("locale")); q != "" {
		for _, code := range n.supported {
			if code == q {
				return code
			}
		}
	}
	return n.FromHeader(r.Header.Get("Accept-Language"))
}

func (n *Negotiator) FromHeader(header string) string {
	if header == "" {
		return n.fallback
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return n.fallback
	}
	_, idx, conf := n.matcher.Match(tags...)
	if conf == language.No {
		return n.fallback
	}
	return n.supported[idx]
}
