package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/wavenc/internal/conf"
	"github.com/tphakala/wavenc/internal/errors"
)

func newTestHub(t *testing.T) (*sentry.Hub, *mockTransport) {
	t.Helper()
	transport := &mockTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Transport: transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	require.NoError(t, err)
	return sentry.NewHub(client, sentry.NewScope()), transport
}

func TestReportErrorTagsAndFilters(t *testing.T) {
	hub, transport := newTestHub(t)
	reporter := NewSentryReporter(hub, true)
	require.True(t, reporter.IsEnabled())

	ee := errors.Newf("encoder exited on /home/user/song.wav").
		Component("codec").
		Category(errors.CategoryCodec).
		Context("operation", "encode").
		Context("code", -100).
		Context("destination", "/home/user/out/song.mp3").
		Build()

	reporter.ReportError(ee)
	assert.True(t, ee.IsReported())

	events := transport.Events()
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, "codec", event.Tags["component"])
	assert.Equal(t, "codec", event.Tags["category"])
	assert.Equal(t, "encode", event.Extra["operation"])
	assert.NotContains(t, event.Extra, "destination")
	assert.Equal(t, []string{"codec", "codec", "-100"}, event.Fingerprint)
	require.NotEmpty(t, event.Exception)
	assert.NotContains(t, event.Exception[len(event.Exception)-1].Value, "/home/user")

	// already reported errors are not sent twice
	reporter.ReportError(ee)
	assert.Len(t, transport.Events(), 1)
}

func TestReporterDisabled(t *testing.T) {
	hub, transport := newTestHub(t)
	reporter := NewSentryReporter(hub, false)
	assert.False(t, reporter.IsEnabled())

	reporter.ReportError(errors.Newf("boom").Category(errors.CategorySystem).Build())
	assert.Empty(t, transport.Events())

	assert.False(t, NewSentryReporter(nil, true).IsEnabled())
}

func TestInitDisabledClearsReporter(t *testing.T) {
	hub, _ := newTestHub(t)
	errors.SetTelemetryReporter(NewSentryReporter(hub, true))
	t.Cleanup(func() { errors.SetTelemetryReporter(nil) })

	settings := &conf.Settings{}
	require.NoError(t, Init(settings, "test"))
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestApplyPrivacyFilters(t *testing.T) {
	event := &sentry.Event{
		ServerName: "host-1",
		User:       sentry.User{ID: "42"},
		Message:    "cannot open C:\\music\\a.wav now",
		Tags:       map[string]string{"hostname": "host-1", "component": "wave"},
		Extra:      map[string]any{"operation": "read", "source": "/tmp/a.wav"},
		Contexts:   map[string]sentry.Context{"device": {}, "application": {}},
	}

	out := applyPrivacyFilters(event)
	assert.Empty(t, out.ServerName)
	assert.True(t, out.User.IsEmpty())
	assert.Equal(t, "cannot open [path] now", out.Message)
	assert.NotContains(t, out.Tags, "hostname")
	assert.Equal(t, "wave", out.Tags["component"])
	assert.Equal(t, map[string]any{"operation": "read"}, out.Extra)
	assert.NotContains(t, out.Contexts, "device")
	assert.Contains(t, out.Contexts, "application")
}

func TestScrubPaths(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain message", "plain message"},
		{"open /a/b.wav: no such file", "open [path] no such file"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scrubPaths(tt.in))
	}
}
