package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testChannelID = "UCp6pmlkI1WbrZFOWlXtOwCQ"
	testVideoID   = "dQw4w9WgXcQ"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00"},
		{59, "0:00:59"},
		{60, "0:01:00"},
		{125, "0:02:05"},
		{190, "0:03:10"},
		{3599, "0:59:59"},
		{3600, "1:00:00"},
		{3661, "1:01:01"},
		{3661.999, "1:01:01"},
		{100 * 3600, "100:00:00"},
		{-5, "0:00:00"},
		{math.NaN(), "0:00:00"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTime(tt.in))
		})
	}
}

func TestFormatTimeFieldsInRange(t *testing.T) {
	for s := 0; s < 3*3600; s += 37 {
		parts := strings.Split(FormatTime(float64(s)), ":")
		require.Len(t, parts, 3)
		assert.Len(t, parts[1], 2)
		assert.Len(t, parts[2], 2)
		h, _ := strconv.Atoi(parts[0])
		m, _ := strconv.Atoi(parts[1])
		sec, _ := strconv.Atoi(parts[2])
		assert.True(t, m >= 0 && m <= 59, "minutes out of range for %d", s)
		assert.True(t, sec >= 0 && sec <= 59, "seconds out of range for %d", s)
		assert.Equal(t, s, h*3600+m*60+sec)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:02:05", FormatDuration(125*time.Second+900*time.Millisecond))
}

func TestValidIDs(t *testing.T) {
	assert.True(t, ValidChannelID(testChannelID))
	assert.True(t, ValidChannelID("UC-_aaaaaaaaaaaaaaaaaaaa"))
	assert.False(t, ValidChannelID("UCshort"))
	assert.False(t, ValidChannelID("XXp6pmlkI1WbrZFOWlXtOwCQ"))
	assert.False(t, ValidChannelID(testChannelID+"a"))
	assert.False(t, ValidChannelID("UCp6pmlkI1WbrZFOWlXtOw!Q"))

	assert.True(t, ValidVideoID(testVideoID))
	assert.False(t, ValidVideoID("short"))
	assert.False(t, ValidVideoID("dQw4w9WgXcQQ"))
	assert.False(t, ValidVideoID("dQw4w9WgX/Q"))
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{
			name:   "valid",
			header: "name=argon&displayName=Argon&provider=youtube&providerId=" + testChannelID,
		},
		{
			name:   "malformed extra pair",
			header: "name=%zz&displayName=Argon&provider=youtube&providerId=" + testChannelID,
		},
		{
			name:    "provider missing",
			header:  "providerId=" + testChannelID,
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "twitch",
			header:  "provider=twitch&providerId=12345",
			wantErr: ErrUnsupportedProvider,
		},
		{
			name:    "id missing",
			header:  "provider=youtube",
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "id malformed",
			header:  "provider=youtube&providerId=UC123",
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "garbage",
			header:  "%zz",
			wantErr: ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := ParseChannel(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testChannelID, ch.ProviderID)
			assert.Equal(t, "Argon", ch.DisplayName)
		})
	}
}

func TestParseUser(t *testing.T) {
	u, err := ParseUser("name=alice&displayName=Alice%20B&provider=youtube&userLevel=owner")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", u.DisplayName)
	assert.Equal(t, "owner", u.UserLevel)

	_, err = ParseUser("name=alice")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ParseUser("displayName=%20%20")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	u, err = ParseUser("displayName=Alice&name=al%zz")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.DisplayName)
}

func TestEncodeRoundTrip(t *testing.T) {
	header := EncodeChannel(Channel{DisplayName: "Argon & co", Provider: ProviderYouTube, ProviderID: testChannelID})
	ch, err := ParseChannel(header)
	require.NoError(t, err)
	assert.Equal(t, "Argon & co", ch.DisplayName)

	u, err := ParseUser(EncodeUser(User{DisplayName: "a=b&c"}))
	require.NoError(t, err)
	assert.Equal(t, "a=b&c", u.DisplayName)
}

func TestDecodeLivestream(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	raw, err := Livestream{VideoID: testVideoID, StartTime: start}.Encode()
	require.NoError(t, err)

	ls, err := DecodeLivestream(raw)
	require.NoError(t, err)
	assert.Equal(t, testVideoID, ls.VideoID)
	assert.True(t, ls.StartTime.Equal(start))

	for _, bad := range []string{
		`not json`,
		`{"videoId":"short","startTime":"2026-05-01T12:00:00Z"}`,
		`{"videoId":"dQw4w9WgXcQ"}`,
		`{"videoId":"dQw4w9WgXcQ","startTime":"yesterday"}`,
	} {
		_, err := DecodeLivestream([]byte(bad))
		assert.ErrorIs(t, err, ErrDataCorruption, bad)
	}
}

func TestElapsed(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ls := Livestream{VideoID: testVideoID, StartTime: start}

	assert.Equal(t, int64(125), ls.Elapsed(start.Add(125*time.Second+999*time.Millisecond)))
	assert.Equal(t, int64(0), ls.Elapsed(start.Add(-time.Minute)))
}

func TestBookmarkLink(t *testing.T) {
	b := Bookmark{Username: "Alice", SecondsSinceStart: 125}
	assert.Equal(t, "https://youtube.com/watch?v=dQw4w9WgXcQ&t=125", b.Link(testVideoID))
	assert.Equal(t, "0:02:05", b.Formatted())
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(fmt.Errorf("%w: x", ErrInvalidRequest)))
	assert.True(t, IsClientError(ErrUnsupportedProvider))
	assert.True(t, IsClientError(ErrChannelNotAllowed))
	assert.True(t, IsClientError(ErrStreamNotLive))
	assert.False(t, IsClientError(ErrUpstream))
	assert.False(t, IsClientError(ErrDataCorruption))
	assert.False(t, IsClientError(errors.New("boom")))
}
