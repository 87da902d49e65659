package framework

import (
	"fmt"
	"testing"

	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestAggregator_ConcurrentEdits(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := New(&widget.Framework{ID: "fw-concurrent"})
	_, err := a.AddSection(widget.SectionDraft{ClientID: "s1", Title: ptr("Shared")})
	require.NoError(t, err)

	const workers, perWorker = 8, 10
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := 0; j < perWorker; j++ {
				w, err := a.AddWidget("s1", textDraft(fmt.Sprintf("w-%d-%d", i, j), "t"))
				if err != nil {
					return err
				}
				if err := a.ReorderWidget(w.ClientID, j); err != nil {
					return err
				}
				if j%3 == 0 {
					a.SetWidgetError(w.ClientID, fmt.Errorf("note %d", j))
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	f := snapshot(t, a)
	sec, ok := f.Section("s1")
	require.True(t, ok)
	assert.Len(t, sec.Widgets, workers*perWorker)
	assertStrictOrders(t, f)
	assert.True(t, a.Validate().OK())
}
