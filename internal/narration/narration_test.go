package narration

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairytale/internal/openai"
)

type fakeSpeaker struct {
	got   openai.SpeechParams
	audio []byte
	err   error
}

func (f *fakeSpeaker) Speech(ctx context.Context, p openai.SpeechParams) ([]byte, error) {
	f.got = p
	return f.audio, f.err
}

type fakeS3 struct {
	s3iface.S3API
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	return &s3.PutObjectOutput{}, f.err
}

func newTestSynthesizer(t *testing.T, speaker Speaker) (*Synthesizer, string) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/static/audio/")
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	s := NewSynthesizer(speaker, store, Options{}, logger)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s, dir
}

func TestSynthesize_WritesFile(t *testing.T) {
	speaker := &fakeSpeaker{audio: []byte("ID3-mp3")}
	s, dir := newTestSynthesizer(t, speaker)

	n := s.Synthesize(context.Background(), "민아는 길을 건넜어요.", 2, "민아")
	require.NoError(t, n.Err)
	assert.Regexp(t, regexp.MustCompile(`^/static/audio/scene_2_민아_1700000000_[0-9a-f]{8}\.mp3$`), n.Reference)
	assert.False(t, n.Degraded())

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(n.Reference, "/static/audio/")))
	require.NoError(t, err)
	assert.Equal(t, "ID3-mp3", string(data))

	assert.Equal(t, "tts-1", speaker.got.Model)
	assert.Equal(t, "alloy", speaker.got.Voice)
}

func TestSynthesize_SameSecondDoesNotCollide(t *testing.T) {
	s, dir := newTestSynthesizer(t, &fakeSpeaker{audio: []byte("x")})

	a := s.Synthesize(context.Background(), "one", 1, "Mina")
	b := s.Synthesize(context.Background(), "two", 1, "Mina")
	require.NoError(t, a.Err)
	require.NoError(t, b.Err)
	assert.NotEqual(t, a.Reference, b.Reference)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSynthesize_FailureIsSwallowed(t *testing.T) {
	s, dir := newTestSynthesizer(t, &fakeSpeaker{err: errors.New("quota exceeded")})

	n := s.Synthesize(context.Background(), "text", 1, "Mina")
	assert.Empty(t, n.Reference)
	assert.Error(t, n.Err)
	assert.True(t, n.Degraded())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSynthesize_EmptyText(t *testing.T) {
	speaker := &fakeSpeaker{audio: []byte("x")}
	s, _ := newTestSynthesizer(t, speaker)

	n := s.Synthesize(context.Background(), "   ", 1, "Mina")
	assert.ErrorIs(t, n.Err, ErrEmptyText)
	assert.Empty(t, speaker.got.Input)
}

func TestGenerate_ReturnsError(t *testing.T) {
	s, _ := newTestSynthesizer(t, &fakeSpeaker{audio: []byte("x")})
	ref, err := s.Generate(context.Background(), "hello", 3)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^/static/audio/scene_3_[0-9a-f-]{8}\.mp3$`), ref)

	s2, _ := newTestSynthesizer(t, &fakeSpeaker{err: errors.New("boom")})
	_, err = s2.Generate(context.Background(), "hello", 3)
	assert.Error(t, err)
}

func TestS3Store_Save(t *testing.T) {
	client := &fakeS3{}
	store := NewS3Store(client, "story-audio", "/audio/", "")

	ref, err := store.Save(context.Background(), "scene_1.mp3", []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "https://story-audio.s3.amazonaws.com/audio/scene_1.mp3", ref)
	assert.Equal(t, "audio/scene_1.mp3", aws.StringValue(client.input.Key))
	assert.Equal(t, int64(3), aws.Int64Value(client.input.ContentLength))
	assert.Equal(t, "abc", string(client.body))

	cdn := NewS3Store(client, "b", "", "https://cdn.example.com/")
	ref, err = cdn.Save(context.Background(), "a.mp3", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.mp3", ref)

	client.err = errors.New("access denied")
	_, err = store.Save(context.Background(), "b.mp3", []byte("x"))
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"민아", "민아"},
		{"Mina Kim", "Mina_Kim"},
		{"../etc/pass", "etc_pass"},
		{"  ", "child"},
		{"a/b\\c", "a_b_c"},
		{"jo-hn_doe 2", "jo_hn_doe_2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), tt.in)
	}
}
