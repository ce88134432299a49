package browser

import (
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
)

func TestNavigationOwnsIdleEvent(t *testing.T) {
	nav := navigation{frame: "main", loader: "L2"}

	tests := []struct {
		name string
		ev   lifecycleIdle
		want bool
	}{
		{"main frame new document", lifecycleIdle{frame: "main", loader: "L2"}, true},
		{"main frame previous document", lifecycleIdle{frame: "main", loader: "L1"}, false},
		{"iframe", lifecycleIdle{frame: "child", loader: "L2"}, false},
		{"iframe without loader", lifecycleIdle{frame: "child"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nav.owns(tt.ev))
		})
	}
}

func TestNavigationSameDocumentAcceptsMainFrame(t *testing.T) {
	nav := navigation{frame: cdp.FrameID("main")}

	assert.True(t, nav.owns(lifecycleIdle{frame: "main", loader: "any"}))
	assert.False(t, nav.owns(lifecycleIdle{frame: "child", loader: "any"}))
}

func TestDrainIdleEmptiesQueuedEvents(t *testing.T) {
	p := &chromePage{idle: make(chan lifecycleIdle, 8)}
	p.idle <- lifecycleIdle{frame: "main", loader: "old"}
	p.idle <- lifecycleIdle{frame: "child", loader: "old"}

	p.drainIdle()

	assert.Empty(t, p.idle)
}

func TestProbeScriptQuotesSelector(t *testing.T) {
	js := probeScript(`[data-e2e="browse-video"] video`)

	assert.Contains(t, js, `document.querySelector("[data-e2e=\"browse-video\"] video")`)
	assert.NotContains(t, js, "__SELECTOR__")
}
