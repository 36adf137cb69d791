package resolution

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-resolution/pkg/activity"
	"github.com/sirupsen/logrus"
)

func TestDeprecationMessage(t *testing.T) {
	cases := []struct {
		name string
		opts DeprecationOptions
		want string
	}{
		{
			name: "bare",
			want: "feature is deprecated.",
		},
		{
			name: "full",
			opts: DeprecationOptions{
				Since:       "6.6",
				Version:     "6.8",
				Plugin:      "Gutenberg",
				Alternative: "other",
				Link:        "https://example.com",
				Hint:        "soon",
			},
			want: "feature is deprecated since version 6.6 and will be removed from Gutenberg in version 6.8. Please use other instead. See: https://example.com Note: soon",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeprecationMessage("feature", tc.opts); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestDeprecationNotifierLogsOncePerMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	capture := &activity.CaptureHook{}

	notifier := NewDeprecationNotifier(
		WithDeprecationLogger(logger),
		WithDeprecationHooks(activity.Hooks{capture}),
	)

	if !notifier.Notify(context.Background(), "a", DeprecationOptions{}) {
		t.Fatalf("expected first notice to be emitted")
	}
	if notifier.Notify(context.Background(), "a", DeprecationOptions{}) {
		t.Fatalf("expected repeated notice to be suppressed")
	}
	if !notifier.Notify(context.Background(), "b", DeprecationOptions{}) {
		t.Fatalf("expected distinct notice to be emitted")
	}

	if got := strings.Count(buf.String(), "is deprecated"); got != 2 {
		t.Fatalf("expected 2 log lines, got %d:\n%s", got, buf.String())
	}
	if !strings.Contains(buf.String(), "level=warning") {
		t.Fatalf("expected warn level, got %s", buf.String())
	}
	if len(capture.Events()) != 2 {
		t.Fatalf("expected 2 events, got %d", len(capture.Events()))
	}

	notifier.Reset()
	if !notifier.Notify(context.Background(), "a", DeprecationOptions{}) {
		t.Fatalf("expected notice after reset")
	}
}

func TestDeprecatedWithNilNotifier(t *testing.T) {
	restore := SetDeprecationNotifier(nil)
	defer restore()

	Deprecated("feature", DeprecationOptions{})
}
