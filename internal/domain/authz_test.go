package domain

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateDefaultsAllow(t *testing.T) {
	record := NewRecord("1", nil)
	var g Gate

	assert.True(t, g.IsVisible(&record))
	assert.True(t, g.IsAuthorized(&record))
	assert.False(t, g.ShouldBeHidden(&record))
	assert.False(t, g.ShouldBeDisabled(&record))
}

func TestGateNilRecordAllows(t *testing.T) {
	deny := Allow(func(*Record) bool { return false })
	g := Gate{Visible: deny, Authorize: deny}
	assert.True(t, g.IsVisible(nil))
	assert.True(t, g.IsAuthorized(nil))
	assert.False(t, Gate{Hidden: true}.IsVisible(nil))
}

func TestGateVisibilityDependsOnRecord(t *testing.T) {
	draft := NewRecord("1", map[string]any{"status": "draft"})
	published := NewRecord("2", map[string]any{"status": "published"})
	g := Gate{Visible: Allow(func(r *Record) bool { return r.Attributes["status"] == "draft" })}

	assert.True(t, g.IsVisible(&draft))
	assert.False(t, g.IsVisible(&published))
	assert.False(t, g.ShouldBeHidden(&draft))
	assert.True(t, g.ShouldBeHidden(&published))
	assert.False(t, g.ShouldBeDisabled(&published), "an invisible element is hidden, not disabled")
	assert.NoError(t, g.Check(&draft))
	assert.ErrorIs(t, g.Check(&published), ErrNotAuthorized)
}

func TestGateVisibilityFailsClosed(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	record := NewRecord("7", nil)

	failing := Gate{Logger: logger, Visible: func(*Record) (bool, error) {
		return true, errors.New("lookup timed out")
	}}
	assert.False(t, failing.IsVisible(&record))
	assert.True(t, failing.ShouldBeHidden(&record))
	assert.Contains(t, buf.String(), "[authz] visibility check failed for record 7")

	buf.Reset()
	panicking := Gate{Logger: logger, Visible: func(*Record) (bool, error) {
		panic("nil policy")
	}}
	assert.False(t, panicking.IsVisible(&record))
	assert.ErrorIs(t, panicking.Check(&record), ErrNotAuthorized)
	assert.Contains(t, buf.String(), "nil policy")
}

func TestGateFailsClosed(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	record := NewRecord("42", nil)

	failing := Gate{Logger: logger, Authorize: func(*Record) (bool, error) {
		return true, errors.New("policy backend down")
	}}
	assert.False(t, failing.IsAuthorized(&record))
	assert.Contains(t, buf.String(), "[authz]")
	assert.Contains(t, buf.String(), "policy backend down")

	buf.Reset()
	panicking := Gate{Logger: logger, Authorize: func(*Record) (bool, error) {
		panic("boom")
	}}
	assert.False(t, panicking.IsAuthorized(&record))
	assert.Contains(t, buf.String(), "boom")
}

func TestGateHideVersusDisable(t *testing.T) {
	record := NewRecord("1", nil)
	deny := Allow(func(*Record) bool { return false })

	disabling := Gate{Authorize: deny}
	assert.False(t, disabling.ShouldBeHidden(&record))
	assert.True(t, disabling.ShouldBeDisabled(&record))

	hiding := Gate{Authorize: deny, HideWhenUnauthorized: true}
	assert.True(t, hiding.ShouldBeHidden(&record))
	assert.False(t, hiding.ShouldBeDisabled(&record))

	invisible := Gate{Hidden: true}
	assert.True(t, invisible.ShouldBeHidden(&record))
	assert.False(t, invisible.ShouldBeDisabled(&record))
	assert.ErrorIs(t, invisible.Check(&record), ErrNotAuthorized)
}
