package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViews(t *testing.T) {
	cases := map[string]int64{
		"1.5K":    1500,
		"2M":      2000000,
		"12,345":  12345,
		"garbage": 0,
		"":        0,
		"N/A":     0,
		"3.2b":    3200000000,
		" 999 ":   999,
		"BLANK":   0,
	}
	for in, want := range cases {
		assert.Equal(t, want, Views(in), "Views(%q)", in)
	}
}

func TestViewsRejectsNonFinite(t *testing.T) {
	for _, in := range []string{"NaNK", "nanm", "InfM", "+infB", "1e300B", "9.3e9B"} {
		assert.Zero(t, Views(in), "Views(%q)", in)
	}
	assert.Equal(t, int64(9_000_000_000_000_000_000), Views("9e9B"))
}

func TestSubscribers(t *testing.T) {
	assert.Equal(t, int64(12000), Subscribers("12,000"))
	assert.Equal(t, int64(12000), Subscribers("구독자 12,000명"))
	assert.Equal(t, int64(0), Subscribers("0"))
	assert.Equal(t, int64(-1), Subscribers("구독자 정보 없음"))
	assert.Equal(t, int64(-1), Subscribers(NoData))
	assert.Equal(t, int64(-1), Subscribers(""))
	assert.Equal(t, int64(-1), Subscribers("hidden"))
}

func TestVideoIDPrefersHref(t *testing.T) {
	id, ok := VideoID("https://playboard.co/video/abcDEF12345?period=1", "https://i.ytimg.com/vi/zzzzzzzzzzz/hq.jpg")
	assert.True(t, ok)
	assert.Equal(t, "abcDEF12345", id)
}

func TestVideoIDFallsBackToThumbnail(t *testing.T) {
	id, ok := VideoID("/channel/UCxyz", "https://i.ytimg.com/vi/Q1w2E3r4T5y/hqdefault.jpg")
	assert.True(t, ok)
	assert.Equal(t, "Q1w2E3r4T5y", id)

	id, ok = VideoID("", "https://i.ytimg.com/vi/Q1w2E3r4T5y_live/hqdefault.jpg")
	assert.True(t, ok)
	assert.Equal(t, "Q1w2E3r4T5y", id)
}

func TestVideoIDRejectsOddLengths(t *testing.T) {
	_, ok := VideoID("/video/short", "")
	assert.False(t, ok)
	_, ok = VideoID("/video/waytoolongtobeavideoid", "https://i.ytimg.com/vi/abc/x.jpg")
	assert.False(t, ok)
}

func TestWatchURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=abcDEF12345", WatchURL("abcDEF12345"))
	assert.Empty(t, WatchURL(""))
}

func TestThumbnail(t *testing.T) {
	assert.Equal(t, "https://i.ytimg.com/vi/x/1.jpg", Thumbnail("//i.ytimg.com/vi/x/1.jpg"))
	assert.Equal(t, "https://cdn/x.jpg", Thumbnail("https://cdn/x.jpg"))
	assert.Empty(t, Thumbnail("data:image/png;base64,xx"))
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("A", "Chan"), Fingerprint("A", "Chan"))
	assert.Equal(t, Fingerprint("Hello, World!", "X"), Fingerprint("helloworld", "X"))
	assert.Equal(t, Fingerprint("A", "Chan"), Fingerprint("A", "CHAN"))
	assert.NotEqual(t, Fingerprint("A", "Chan"), Fingerprint("A", "Chan!"))
	assert.Equal(t, Fingerprint("오늘의 영상!!", "채널"), Fingerprint("오늘의영상", "채널"))
	assert.Len(t, Fingerprint("x", "y"), 64)
}
