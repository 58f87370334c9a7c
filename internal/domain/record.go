package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// ProviderYouTube is the only provider bookmarks can be created for.
const ProviderYouTube = "youtube"

// Record is a decoded Nightbot header: an ampersand-delimited key=value list.
type Record map[string]string

// ParseRecord decodes s. Malformed pairs are skipped and the rest kept, so
// input with nothing decodable yields an empty record, which every caller
// then rejects for its missing fields.
func ParseRecord(s string) Record {
	// ParseQuery keeps every well-formed pair alongside the first error.
	values, _ := url.ParseQuery(s)
	rec := make(Record, len(values))
	for k, v := range values {
		if len(v) > 0 {
			rec[k] = v[0]
		}
	}
	return rec
}

// Channel is the Nightbot-Channel header.
type Channel struct {
	Name        string
	DisplayName string
	Provider    string
	ProviderID  string
}

// User is the Nightbot-User header.
type User struct {
	Name        string
	DisplayName string
	Provider    string
	ProviderID  string
	UserLevel   string
}

func ChannelFromRecord(r Record) Channel {
	return Channel{
		Name:        r["name"],
		DisplayName: r["displayName"],
		Provider:    r["provider"],
		ProviderID:  r["providerId"],
	}
}

func UserFromRecord(r Record) User {
	return User{
		Name:        r["name"],
		DisplayName: r["displayName"],
		Provider:    r["provider"],
		ProviderID:  r["providerId"],
		UserLevel:   r["userLevel"],
	}
}

// ParseChannel decodes and validates a channel header.
// Checks run in a fixed order: missing provider, foreign provider, bad id.
func ParseChannel(s string) (Channel, error) {
	ch := ChannelFromRecord(ParseRecord(s))
	switch {
	case ch.Provider == "":
		return ch, fmt.Errorf("%w: channel provider is missing", ErrInvalidRequest)
	case ch.Provider != ProviderYouTube:
		return ch, fmt.Errorf("%w: %q", ErrUnsupportedProvider, ch.Provider)
	case ch.ProviderID == "":
		return ch, fmt.Errorf("%w: channel id is missing", ErrInvalidRequest)
	case !ValidChannelID(ch.ProviderID):
		return ch, fmt.Errorf("%w: malformed channel id %q", ErrInvalidRequest, ch.ProviderID)
	}
	return ch, nil
}

// ParseUser decodes and validates a user header.
func ParseUser(s string) (User, error) {
	u := UserFromRecord(ParseRecord(s))
	u.DisplayName = strings.TrimSpace(u.DisplayName)
	if u.DisplayName == "" {
		return u, fmt.Errorf("%w: user display name is missing", ErrInvalidRequest)
	}
	return u, nil
}

// EncodeChannel builds a Nightbot-Channel header value.
func EncodeChannel(c Channel) string {
	v := url.Values{}
	setIf(v, "name", c.Name)
	setIf(v, "displayName", c.DisplayName)
	setIf(v, "provider", c.Provider)
	setIf(v, "providerId", c.ProviderID)
	return v.Encode()
}

// EncodeUser builds a Nightbot-User header value.
func EncodeUser(u User) string {
	v := url.Values{}
	setIf(v, "name", u.Name)
	setIf(v, "displayName", u.DisplayName)
	setIf(v, "provider", u.Provider)
	setIf(v, "providerId", u.ProviderID)
	setIf(v, "userLevel", u.UserLevel)
	return v.Encode()
}

func setIf(v url.Values, key, val string) {
	if val != "" {
		v.Set(key, val)
	}
}
