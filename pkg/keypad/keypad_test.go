package keypad

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	tests := []struct {
		row, col int
		want     Key
	}{
		{0, 0, '1'},
		{0, 3, KeyA},
		{1, 3, KeyB},
		{2, 3, KeyC},
		{3, 0, KeyStar},
		{3, 1, '0'},
		{3, 2, KeyPound},
		{3, 3, KeyD},
		{4, 0, None},
		{0, -1, None},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, At(tt.row, tt.col), "At(%d,%d)", tt.row, tt.col)
	}

	r, c, ok := Position('8')
	require.True(t, ok)
	assert.Equal(t, 2, r)
	assert.Equal(t, 1, c)

	_, _, ok = Position('x')
	assert.False(t, ok)
}

func TestKeyClasses(t *testing.T) {
	assert.True(t, Key('0').IsDigit())
	assert.True(t, Key('9').IsDigit())
	assert.False(t, KeyA.IsDigit())
	assert.True(t, KeyD.IsLetter())
	assert.False(t, KeyStar.IsLetter())
	assert.Equal(t, "none", None.String())
	assert.Equal(t, "#", KeyPound.String())
}

func TestScanner_EveryKey(t *testing.T) {
	m := NewMock()
	s := NewScanner(m, time.Microsecond)

	assert.False(t, s.Pressed())
	assert.Equal(t, None, s.Scan())

	for r := range Rows {
		for c := range Columns {
			k := At(r, c)
			m.Press(k)
			assert.True(t, s.Pressed(), "key %s", k)
			assert.Equal(t, k, s.Scan(), "key %s", k)
			m.Release(k)
		}
	}
	assert.False(t, s.Pressed())
}

func TestScanner_MultiKeyResolvesRowMajor(t *testing.T) {
	m := NewMock()
	s := NewScanner(m, time.Microsecond)

	m.Press('9')
	m.Press('5')
	m.Press(KeyD)
	assert.Equal(t, Key('5'), s.Scan(), "row 1 precedes rows 2 and 3")

	m.Release('5')
	m.Press('7') // same row as 9, earlier column
	assert.Equal(t, Key('7'), s.Scan())
}

func TestReader_RequiresRelease(t *testing.T) {
	m := NewMock()
	r := NewReader(NewScanner(m, time.Microsecond), time.Millisecond)

	// A key held before WaitKey starts must not be accepted.
	m.Press('5')

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got := make(chan Key, 1)
	go func() {
		k, _ := r.WaitKey(ctx)
		got <- k
	}()

	select {
	case k := <-got:
		t.Fatalf("WaitKey returned %s while the previous key was still held", k)
	case <-time.After(30 * time.Millisecond):
	}

	m.Release('5')
	time.Sleep(10 * time.Millisecond)
	m.Press('7')

	select {
	case k := <-got:
		assert.Equal(t, Key('7'), k)
	case <-time.After(time.Second):
		t.Fatal("WaitKey did not return")
	}
}

func TestReader_TryKey(t *testing.T) {
	m := NewMock()
	r := NewReader(NewScanner(m, time.Microsecond), time.Millisecond)
	ctx := context.Background()

	k, err := r.TryKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, None, k)

	m.Tap(KeyC, 20*time.Millisecond)
	start := time.Now()
	k, err = r.TryKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, KeyC, k)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond, "TryKey waits for the release")
}

func TestReader_WaitLetterSkipsDisabled(t *testing.T) {
	m := NewMock()
	r := NewReader(NewScanner(m, time.Microsecond), time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got := make(chan Key, 1)
	go func() {
		k, _ := r.WaitLetter(ctx, KeyC, KeyD)
		got <- k
	}()
	time.Sleep(20 * time.Millisecond)

	for _, k := range []Key{KeyC, '1'} {
		m.Press(k)
		time.Sleep(15 * time.Millisecond)
		m.Release(k)
		time.Sleep(15 * time.Millisecond)
	}
	m.Press(KeyB)

	select {
	case k := <-got:
		assert.Equal(t, KeyB, k)
	case <-time.After(time.Second):
		t.Fatal("WaitLetter did not return")
	}
}

func TestReader_Cancel(t *testing.T) {
	m := NewMock()
	r := NewReader(NewScanner(m, time.Microsecond), time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.WaitKey(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScript(t *testing.T) {
	s := NewScript('1', KeyB)
	s.TypeString("9A")
	assert.Equal(t, 4, s.Pending())

	ctx := context.Background()
	k, err := s.WaitKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, Key('1'), k)

	k, err = s.WaitLetter(ctx, KeyA)
	require.NoError(t, err)
	assert.Equal(t, KeyB, k)

	// '9' is not a letter and A is disabled: both consumed, nothing left.
	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.WaitLetter(cctx, KeyA)
	assert.Error(t, err)
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, None, s.Poll())
}

func TestMock_OnChange(t *testing.T) {
	m := NewMock()
	var events []string
	m.OnChange(func(k Key, pressed bool) {
		if pressed {
			events = append(events, "+"+k.String())
		} else {
			events = append(events, "-"+k.String())
		}
	})
	m.Press('3')
	m.Release('3')
	m.Press('x') // not on the pad
	assert.Equal(t, []string{"+3", "-3"}, events)
}
