package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryFirst(t *testing.T) {
	ctx := context.Background()
	page := NewFakePage()
	second := &FakeElement{Name: "second"}
	page.Add("button.more", second)

	tests := []struct {
		name      string
		selectors []string
		wantFound bool
	}{
		{name: "falls through to later selector", selectors: []string{"button.missing", "button.more"}, wantFound: true},
		{name: "nothing matches", selectors: []string{"a", "b"}, wantFound: false},
		{name: "no selectors", selectors: nil, wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, found, err := QueryFirst(ctx, page, tt.selectors)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Same(t, second, el)
			}
		})
	}
}

func TestFakeElement_ClickMutatesPage(t *testing.T) {
	ctx := context.Background()
	page := NewFakePage()
	card := &FakeElement{Name: "card"}
	accept := &FakeElement{Name: "accept", OnClick: func(p *FakePage) { p.Remove(card) }}
	card.Children = map[string][]*FakeElement{"button.accept": {accept}}
	page.Add("li.card", card)

	el, found, err := card.Query(ctx, "button.accept")
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, el.Click(ctx))

	remaining, err := page.QueryAll(ctx, "li.card")
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Equal(t, []string{"click accept"}, page.History())
}

func TestBox_Center(t *testing.T) {
	assert.Equal(t, Point{X: 60, Y: 45}, Box{X: 10, Y: 20, Width: 100, Height: 50}.Center())
}

func TestWaitFor(t *testing.T) {
	ctx := context.Background()
	page := NewFakePage()
	dialog := &FakeElement{Name: "dialog"}

	_, found, err := WaitFor(ctx, page, "div[role='alertdialog']", 150*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, found)

	go func() {
		time.Sleep(120 * time.Millisecond)
		page.Add("div[role='alertdialog']", dialog)
	}()
	el, found, err := WaitFor(ctx, page, "div[role='alertdialog']", 2*time.Second)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Same(t, dialog, el)
}
