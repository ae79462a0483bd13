package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModal_EveryCloseReleasesOnce(t *testing.T) {
	t.Parallel()
	for _, reason := range []CloseReason{Backdrop, CloseButton, Escape, Unmount} {
		t.Run(reason.String(), func(t *testing.T) {
			t.Parallel()
			var transitions []bool
			lock := NewScrollLock(func(l bool) { transitions = append(transitions, l) })
			m := NewModal(lock)

			m.Open()
			require.True(t, m.IsOpen())
			require.True(t, lock.Locked())

			require.True(t, m.Close(reason))
			require.False(t, m.Close(Unmount))
			require.False(t, lock.Locked())
			require.Equal(t, reason, m.ClosedBy())
			require.Equal(t, []bool{true, false}, transitions)
		})
	}
}

func TestScrollLock_RefCounted(t *testing.T) {
	t.Parallel()
	lock := NewScrollLock(nil)
	a := NewModal(lock)
	b := NewModal(lock)

	a.Open()
	a.Open()
	b.Open()
	a.Close(Escape)
	require.True(t, lock.Locked())
	b.Close(Backdrop)
	require.False(t, lock.Locked())

	release := lock.Acquire()
	release()
	release()
	require.False(t, lock.Locked())
}

func TestModal_CloseWithoutOpen(t *testing.T) {
	t.Parallel()
	lock := NewScrollLock(nil)
	m := NewModal(lock)
	require.False(t, m.Close(Unmount))
	require.False(t, lock.Locked())
	require.Equal(t, CloseReason(0), m.ClosedBy())
}

func TestKeyCloses(t *testing.T) {
	t.Parallel()
	r, ok := KeyCloses("Escape")
	require.True(t, ok)
	require.Equal(t, Escape, r)
	_, ok = KeyCloses("Enter")
	require.False(t, ok)
}
