package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDrainClears(t *testing.T) {
	q := NewQueue(5)
	q.Notify(Info("File uploaded", "cv.pdf has been uploaded successfully"))
	q.Notify(Destructive("Missing information", "Please fill in all required fields"))

	got := q.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, VariantDefault, got[0].Variant)
	assert.Equal(t, VariantDestructive, got[1].Variant)
	assert.False(t, got[0].At.IsZero())

	assert.Empty(t, q.Drain())
	assert.Equal(t, 0, q.Len())
}

func TestQueueDropsOldest(t *testing.T) {
	q := NewQueue(2)
	q.Notify(Info("one", ""))
	q.Notify(Info("two", ""))
	q.Notify(Info("three", ""))

	got := q.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Title)
	assert.Equal(t, "three", got[1].Title)
}

func TestFuncAdapter(t *testing.T) {
	var seen []string
	n := Func(func(n Notification) { seen = append(seen, n.Title) })
	n.Notify(Info("hello", ""))
	Discard.Notify(Info("ignored", ""))
	assert.Equal(t, []string{"hello"}, seen)
}
