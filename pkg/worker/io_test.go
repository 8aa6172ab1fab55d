package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineSourceReadsUntilEOF(t *testing.T) {
	src := NewLineSource(strings.NewReader("flora hello\nquit\n"), nil, "")
	ctx := context.Background()

	got, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "flora hello", got)

	got, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "quit", got)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineSourceFlushDropsEarlierInput(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewLineSource(pr, nil, "")
	src.once.Do(src.start)

	// One chunk, as when several lines are typed while nobody listens.
	_, err := pw.Write([]byte("flora one\nflora two\nflora three\n"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return src.pending() == 3 }, 2*time.Second, time.Millisecond)

	src.Flush()
	_, err = pw.Write([]byte("flora four\n"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	got, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "flora four", got)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineSourcePromptsOncePerRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	var prompt bytes.Buffer
	src := NewLineSource(pr, &prompt, "YOU: ")

	waitBriefly := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		defer cancel()
		_, err := src.Next(ctx)
		return err
	}

	assert.ErrorIs(t, waitBriefly(), context.DeadlineExceeded)
	assert.ErrorIs(t, waitBriefly(), context.DeadlineExceeded)
	assert.Equal(t, "YOU: ", prompt.String())

	_, err := pw.Write([]byte("flora hi\n"))
	require.NoError(t, err)
	got, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "flora hi", got)

	assert.ErrorIs(t, waitBriefly(), context.DeadlineExceeded)
	assert.Equal(t, "YOU: YOU: ", prompt.String())
}

func TestLineSourceHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewLineSource(pr, nil, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The reader goroutine stays attached; closing the pipe ends it.
	pw.Close()
	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestChanSourceFlushDropsEarlierInput(t *testing.T) {
	src := NewChanSource(4)
	require.True(t, src.Submit("old"))
	src.Flush()
	require.True(t, src.Submit("new"))
	src.Close()

	got, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", got)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.False(t, src.Submit("late"))
}

func TestChanSourceFull(t *testing.T) {
	src := NewChanSource(1)
	assert.True(t, src.Submit("a"))
	assert.False(t, src.Submit("b"))
}

func TestWriterSinkPrefixes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriterSink(&buf, "FLORA: ").Emit(context.Background(), "Hello."))
	assert.Equal(t, "FLORA: Hello.\n", buf.String())
}

func TestMultiSinkReturnsFirstError(t *testing.T) {
	var got []string
	boom := errors.New("speaker offline")
	m := MultiSink{
		SinkFunc(func(context.Context, string) error { return boom }),
		SinkFunc(func(_ context.Context, s string) error { got = append(got, s); return nil }),
	}
	assert.ErrorIs(t, m.Emit(context.Background(), "hi"), boom)
	assert.Equal(t, []string{"hi"}, got)
}

func TestCommandSinkSubstitutesText(t *testing.T) {
	if _, err := NewCommandSink(nil); err == nil {
		t.Fatal("expected error for empty command")
	}
	sink, err := NewCommandSink([]string{"sh", "-c", `test "$0" = "say hello"`, "say {text}"})
	require.NoError(t, err)
	require.NoError(t, sink.Emit(context.Background(), "hello"))
	assert.Error(t, sink.Emit(context.Background(), "goodbye"))
}

func TestCommandSourceNormalisesOutput(t *testing.T) {
	src, err := NewCommandSource([]string{"sh", "-c", "echo '  Flora WHAT time '"})
	require.NoError(t, err)
	got, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "flora what time", got)
}
