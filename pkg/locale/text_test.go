package locale

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFallsBackToDefaultThenEmpty(t *testing.T) {
	name := Text{"fr": "Pack Pro", "en": "Pro Pack"}

	assert.Equal(t, "Pro Pack", name.Resolve("en", "fr"))
	assert.Equal(t, "Pro Pack", name.Resolve("en-US", "fr"))
	assert.Equal(t, "Pack Pro", name.Resolve("ar", "fr"))
	assert.Equal(t, "", name.Resolve("ar", "es"))
	assert.Equal(t, "", Text(nil).Resolve("fr", "fr"))
}

func TestResolveSkipsBlankTranslation(t *testing.T) {
	name := Text{"fr": "Carte avis", "en": ""}
	assert.Equal(t, "Carte avis", name.Resolve("en", "fr"))
}

func TestTextScanValueRoundTrip(t *testing.T) {
	original := Text{"fr": "Carte NFC", "ar": "بطاقة"}
	raw, err := original.Value()
	require.NoError(t, err)

	var scanned Text
	require.NoError(t, scanned.Scan(raw))
	assert.Equal(t, original, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
	assert.Error(t, scanned.Scan(42))
}

func TestNegotiatorPrefersQueryThenHeader(t *testing.T) {
	n := NewNegotiator("fr", "fr", "en", "ar")

	req := httptest.NewRequest("GET", "/api/v1/packs?locale=ar", nil)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	assert.Equal(t, "ar", n.FromRequest(req))

	req = httptest.NewRequest("GET", "/api/v1/packs", nil)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	assert.Equal(t, "en", n.FromRequest(req))

	req = httptest.NewRequest("GET", "/api/v1/packs?locale=de", nil)
	assert.Equal(t, "fr", n.FromRequest(req))
}
