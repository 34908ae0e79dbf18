package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLink_Expired(t *testing.T) {
	now := time.Unix(1000, 0)
	at := func(v int64) *int64 { return &v }

	require.False(t, (&Link{}).Expired(now))
	require.False(t, (&Link{Expiration: at(1000)}).Expired(now))
	require.True(t, (&Link{Expiration: at(999)}).Expired(now))
}

func TestLink_ClickLimit(t *testing.T) {
	zero, five := int64(0), int64(5)

	_, ok := (&Link{}).ClickLimit()
	require.False(t, ok)

	_, ok = (&Link{ExpirationClicks: &zero}).ClickLimit()
	require.False(t, ok)

	n, ok := (&Link{ExpirationClicks: &five}).ClickLimit()
	require.True(t, ok)
	require.Equal(t, int64(5), n)
}

func TestLink_UTMParams(t *testing.T) {
	l := &Link{UTMSource: "news", UTMContent: "hero"}
	require.Equal(t, map[string]string{"utm_source": "news", "utm_content": "hero"}, l.UTMParams())
	require.Empty(t, (&Link{}).UTMParams())
}

func TestLinkKey(t *testing.T) {
	require.Equal(t, "link:abc", LinkKey("abc"))

	slug, ok := SlugFromKey("link:abc")
	require.True(t, ok)
	require.Equal(t, "abc", slug)

	_, ok = SlugFromKey("other:abc")
	require.False(t, ok)
}
