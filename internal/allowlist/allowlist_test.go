package allowlist

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	argon = "UCp6pmlkI1WbrZFOWlXtOwCQ"
	neon  = "UCaaaaaaaaaaaaaaaaaaaaaa"
	xenon = "UCbbbbbbbbbbbbbbbbbbbbbb"
)

func TestDisabledAllowsEverything(t *testing.T) {
	l := New(nil, false)
	assert.False(t, l.Enabled())
	assert.True(t, l.Allowed(argon))
	assert.True(t, l.Allowed("anything"))
}

func TestStaticChannels(t *testing.T) {
	l := New([]string{argon}, false)
	assert.True(t, l.Enabled())
	assert.True(t, l.Allowed(argon))
	assert.False(t, l.Allowed(neon))
	assert.Equal(t, 1, l.Len())
}

func TestFileSourceDeniesUntilLoaded(t *testing.T) {
	l := New(nil, true)
	assert.True(t, l.Enabled())
	assert.False(t, l.Allowed(argon))
	assert.True(t, l.LastReload().IsZero())

	l.Replace(map[string]string{argon: "Argon"})
	assert.True(t, l.Allowed(argon))
	assert.False(t, l.LastReload().IsZero())
}

func TestReplaceSwapsFileChannelsOnly(t *testing.T) {
	l := New([]string{argon}, true)
	l.Replace(map[string]string{neon: "Neon", argon: "Argon"})
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []string{argon, neon}, l.Channels())

	l.Replace(map[string]string{xenon: "Xenon"})
	assert.True(t, l.Allowed(argon), "static channels survive reloads")
	assert.False(t, l.Allowed(neon))
	assert.True(t, l.Allowed(xenon))
}

func TestReplaceCopiesInput(t *testing.T) {
	l := New(nil, true)
	in := map[string]string{argon: "Argon"}
	l.Replace(in)
	delete(in, argon)
	assert.True(t, l.Allowed(argon))
}

func TestConcurrentAccess(t *testing.T) {
	l := New(nil, true)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Replace(map[string]string{argon: "Argon"})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = l.Allowed(argon)
				_ = l.Len()
			}
		}()
	}
	wg.Wait()
	assert.True(t, l.Allowed(argon))
}
