package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/gallery/internal/catalog"
	"github.com/snappy-loop/gallery/internal/config"
	"github.com/snappy-loop/gallery/internal/llm"
	"github.com/snappy-loop/gallery/internal/models"
	"github.com/snappy-loop/gallery/internal/playback"
	"github.com/snappy-loop/gallery/internal/session"
	"github.com/snappy-loop/gallery/internal/tasks"
	"github.com/snappy-loop/gallery/internal/viewstate"
	"github.com/snappy-loop/gallery/internal/wav"
)

type fakeWriter struct{ text string }

func (f *fakeWriter) GenerateStory(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.text, nil
}

// fakeSpeech returns pcm, or blocks until cancelled when block is set.
type fakeSpeech struct {
	pcm   []byte
	mime  string
	err   error
	block bool
	calls int
	mu    sync.Mutex
}

func (f *fakeSpeech) GenerateSpeech(ctx context.Context, text string) (*llm.Speech, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Speech{PCM: f.pcm, MIMEType: f.mime, Model: "tts", Voice: "Fenrir"}, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []*models.Event
}

func (f *fakeEvents) PublishEvent(_ context.Context, ev *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeCovers struct{ err error }

func (f *fakeCovers) GenerateCoverImage(context.Context, string) (*llm.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Image{Data: bytes.NewReader([]byte("png")), Size: 3, MimeType: "image/png"}, nil
}

type fakeCoverStorage struct{ uploaded map[string]int64 }

func (f *fakeCoverStorage) Upload(_ context.Context, key string, data io.Reader, _ string, n int64) error {
	if f.uploaded == nil {
		f.uploaded = map[string]int64{}
	}
	f.uploaded[key] = n
	return nil
}

func (f *fakeCoverStorage) PublicURL(key string) string { return "https://cdn.example/" + key }

type fixture struct {
	svc     *GalleryService
	stories *catalog.MemoryStore
	speech  *fakeSpeech
	events  *fakeEvents
	media   *playback.MemoryStore
	refs    *playback.Registry
	tasks   *tasks.Registry
	manager *session.Manager
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stories: catalog.NewMemoryStore(),
		speech:  &fakeSpeech{pcm: []byte{0, 1, 2, 3}, mime: "audio/L16;codec=pcm;rate=24000"},
		events:  &fakeEvents{},
		media:   playback.NewMemoryStore(""),
		tasks:   tasks.NewRegistry(),
		cfg: &config.Config{
			MaxPromptLength:   500,
			MaxNarrationChars: 5000,
			RequestTimeout:    time.Minute,
			PlaceholderImage:  "placeholder.jpg",
		},
	}
	f.refs = playback.NewRegistry(f.media, time.Minute)
	f.manager = session.NewManager(f.tasks, f.refs, time.Hour)
	f.svc = NewGalleryService(Deps{
		Stories:    f.stories,
		Writer:     &fakeWriter{text: "ฝุ่นบางๆ บนบันได"},
		Speech:     f.speech,
		Events:     f.events,
		Sessions:   f.manager,
		Tasks:      f.tasks,
		References: f.refs,
	}, f.cfg)
	if err := catalog.EnsureSeeded(context.Background(), f.stories); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.tasks.Close)
	return f
}

func (f *fixture) wait(t *testing.T, id *uuid.UUID) {
	t.Helper()
	if id == nil {
		t.Fatal("request not accepted")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.tasks.Wait(ctx, *id); err != nil {
		t.Fatalf("task did not finish: %v", err)
	}
}

// openStory creates a session with the first catalog story open.
func (f *fixture) openStory(t *testing.T) (uuid.UUID, *models.Story) {
	t.Helper()
	stories, _ := f.svc.ListStories(context.Background(), 1)
	snap := f.manager.Create()
	if _, err := f.manager.Dispatch(context.Background(), snap.ID, viewstate.Action{Type: viewstate.ActionSelectStory, StoryID: &stories[0].ID}); err != nil {
		t.Fatal(err)
	}
	return snap.ID, stories[0]
}

func TestCreateStory(t *testing.T) {
	f := newFixture(t)

	story, err := f.svc.CreateStory(context.Background(), "  ชิงช้าในสวนร้าง ")
	if err != nil {
		t.Fatal(err)
	}
	if story.Title != GeneratedTitle || story.Location != GeneratedLocation || story.Date != GeneratedDate ||
		story.Fact != GeneratedFact || story.Mood != models.MoodArtificial || !story.Generated {
		t.Errorf("generated metadata wrong: %+v", story)
	}
	if story.Subtitle != "ชิงช้าในสวนร้าง" || story.Fiction != "ฝุ่นบางๆ บนบันได" || story.Image != "placeholder.jpg" {
		t.Errorf("story = %+v", story)
	}

	list, _ := f.svc.ListStories(context.Background(), 0)
	if len(list) != 11 || list[0].ID != story.ID {
		t.Errorf("new story not first of %d", len(list))
	}
	if got := f.events.types(); len(got) != 1 || got[0] != models.EventStoryCreated {
		t.Errorf("events = %v", got)
	}
}

func TestCreateStory_Validation(t *testing.T) {
	f := newFixture(t)
	for _, prompt := range []string{"", "   ", strings.Repeat("ก", 501)} {
		if _, err := f.svc.CreateStory(context.Background(), prompt); !errors.Is(err, ErrValidation) {
			t.Errorf("prompt of %d runes: err = %v", len(prompt), err)
		}
	}
}

func TestCreateStory_Covers(t *testing.T) {
	tests := []struct {
		name    string
		covers  *fakeCovers
		enabled bool
		want    string
	}{
		{"disabled", &fakeCovers{}, false, "placeholder.jpg"},
		{"generated", &fakeCovers{}, true, "https://cdn.example/covers/"},
		{"generation fails", &fakeCovers{err: errors.New("quota")}, true, "placeholder.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cfg.GenerateCovers = tt.enabled
			f.svc.deps.Covers = tt.covers
			f.svc.deps.CoverStorage = &fakeCoverStorage{}

			story, err := f.svc.CreateStory(context.Background(), "rusty bicycle")
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(story.Image, tt.want) {
				t.Errorf("image = %q, want prefix %q", story.Image, tt.want)
			}
		})
	}
}

func TestStartStoryGeneration(t *testing.T) {
	f := newFixture(t)
	snap := f.manager.Create()
	f.manager.Dispatch(context.Background(), snap.ID, viewstate.Action{Type: viewstate.ActionOpenCreate})

	res, err := f.svc.StartStoryGeneration(context.Background(), snap.ID, "ตู้ไปรษณีย์")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Accepted || !res.State.GeneratingStory {
		t.Fatalf("result = %+v", res)
	}
	f.wait(t, res.RequestID)

	got, _ := f.manager.Get(snap.ID)
	if got.State.GeneratingStory || got.State.CreateOpen || got.State.SelectedStoryID == nil {
		t.Fatalf("state = %+v", got.State)
	}
	story, err := f.svc.GetStory(context.Background(), *got.State.SelectedStoryID)
	if err != nil || story.Subtitle != "ตู้ไปรษณีย์" {
		t.Errorf("opened story = %+v, %v", story, err)
	}
	if got.State.ActiveTab != viewstate.TabFiction {
		t.Errorf("tab = %q", got.State.ActiveTab)
	}
}

func TestStartNarration(t *testing.T) {
	f := newFixture(t)
	sid, _ := f.openStory(t)

	res, err := f.svc.StartNarration(context.Background(), sid, nil)
	if err != nil {
		t.Fatal(err)
	}
	f.wait(t, res.RequestID)

	got, _ := f.manager.Get(sid)
	n := got.State.Narration
	if n.Status != viewstate.NarrationPlaying || n.ReferenceID == nil || n.URL != playback.MediaPath(*n.ReferenceID) {
		t.Fatalf("narration = %+v", n)
	}

	data, mime, ok := f.media.Get(*n.ReferenceID)
	if !ok || mime != wav.MIMEType {
		t.Fatalf("container not stored")
	}
	h, err := wav.ParseHeader(data)
	if err != nil || h.DataSize != 4 || h.SampleRate != 24000 || h.ChunkSize != 40 {
		t.Errorf("header = %+v, %v", h, err)
	}
	if types := f.events.types(); len(types) != 1 || types[0] != models.EventNarrationReady {
		t.Errorf("events = %v", types)
	}

	// Pressing the control again stops playback and releases the reference.
	stop, err := f.svc.StartNarration(context.Background(), sid, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stop.Accepted || stop.State.Narration.Status != viewstate.NarrationIdle {
		t.Errorf("toggle result = %+v", stop)
	}
	if f.refs.Len() != 0 {
		t.Errorf("%d references still held", f.refs.Len())
	}
}

func TestStartNarration_DuplicateIgnored(t *testing.T) {
	f := newFixture(t)
	f.speech.block = true
	sid, _ := f.openStory(t)

	first, _ := f.svc.StartNarration(context.Background(), sid, nil)
	second, err := f.svc.StartNarration(context.Background(), sid, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Accepted || second.Accepted {
		t.Errorf("accepted = %v, %v", first.Accepted, second.Accepted)
	}
	f.tasks.Cancel(*first.RequestID)
	f.wait(t, first.RequestID)
}

func TestStartNarration_ClosingStoryCancels(t *testing.T) {
	f := newFixture(t)
	f.speech.block = true
	sid, _ := f.openStory(t)

	res, _ := f.svc.StartNarration(context.Background(), sid, nil)
	if _, err := f.manager.Dispatch(context.Background(), sid, viewstate.Action{Type: viewstate.ActionCloseStory}); err != nil {
		t.Fatal(err)
	}
	f.wait(t, res.RequestID)

	got, _ := f.manager.Get(sid)
	if got.State.Narration.Status != viewstate.NarrationIdle || f.refs.Len() != 0 {
		t.Errorf("narration = %+v, refs = %d", got.State.Narration, f.refs.Len())
	}
}

func TestStartNarration_ProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.speech.err = llm.ErrNoAudio
	sid, _ := f.openStory(t)

	res, _ := f.svc.StartNarration(context.Background(), sid, nil)
	f.wait(t, res.RequestID)

	got, _ := f.manager.Get(sid)
	if got.State.Narration.Status != viewstate.NarrationIdle || got.State.Narration.Error != narrationUnavailable {
		t.Errorf("narration = %+v", got.State.Narration)
	}
}

func TestStartNarration_MalformedSpeech(t *testing.T) {
	f := newFixture(t)
	f.speech.pcm = []byte{1, 2, 3} // odd length for 16-bit mono
	sid, _ := f.openStory(t)

	res, _ := f.svc.StartNarration(context.Background(), sid, nil)
	f.wait(t, res.RequestID)

	got, _ := f.manager.Get(sid)
	if got.State.Narration.Error != narrationUnavailable || f.refs.Len() != 0 {
		t.Errorf("narration = %+v", got.State.Narration)
	}
}

func TestStartNarration_Validation(t *testing.T) {
	f := newFixture(t)
	sid, _ := f.openStory(t)

	other := uuid.New()
	if _, err := f.svc.StartNarration(context.Background(), sid, &models.NarrationRequest{StoryID: &other}); !errors.Is(err, ErrValidation) {
		t.Errorf("other story: err = %v", err)
	}
	long := &models.NarrationRequest{Text: strings.Repeat("x", 5001)}
	if _, err := f.svc.StartNarration(context.Background(), sid, long); !errors.Is(err, ErrValidation) {
		t.Errorf("long text: err = %v", err)
	}
	if _, err := f.svc.StartNarration(context.Background(), uuid.New(), nil); !NotFound(err) {
		t.Errorf("unknown session: err = %v", err)
	}
}

func TestNarrate(t *testing.T) {
	f := newFixture(t)
	ref, err := f.svc.Narrate(context.Background(), uuid.New(), "เสียงลมผ่านหน้าต่าง")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Size != 48 || ref.MIMEType != wav.MIMEType {
		t.Errorf("ref = %+v", ref)
	}
	if _, err := f.svc.Narrate(context.Background(), uuid.New(), " "); !errors.Is(err, ErrValidation) {
		t.Errorf("empty text: err = %v", err)
	}
}

func TestNarrate_SameOwnerKeepsEarlierReferences(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()

	first, err := f.svc.Narrate(context.Background(), owner, "first")
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.Narrate(context.Background(), owner, "second")
	if err != nil {
		t.Fatal(err)
	}

	for _, ref := range []*playback.Reference{first, second} {
		if _, ok := f.refs.Lookup(ref.ID); !ok {
			t.Errorf("reference %s released before expiry", ref.ID)
		}
		if _, _, ok := f.media.Get(ref.ID); !ok {
			t.Errorf("object of %s deleted before expiry", ref.ID)
		}
	}
	if f.refs.Len() != 2 {
		t.Errorf("Len = %d, want 2", f.refs.Len())
	}
}

func TestNarrate_ContainerPassesThrough(t *testing.T) {
	f := newFixture(t)
	wrapped, err := wav.EncodePCM([]byte{0, 1, 2, 3}, wav.DefaultFormat)
	if err != nil {
		t.Fatal(err)
	}
	f.speech.pcm = wrapped
	f.speech.mime = "audio/wav"

	ref, err := f.svc.Narrate(context.Background(), uuid.New(), "already wrapped")
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	data, mime, ok := f.media.Get(ref.ID)
	if !ok || mime != "audio/wav" || !bytes.Equal(data, wrapped) {
		t.Errorf("stored %d bytes as %q, want the provider container unchanged", len(data), mime)
	}

	f.speech.mime = "text/plain"
	if _, err := f.svc.Narrate(context.Background(), uuid.New(), "not audio"); err == nil {
		t.Error("expected non-audio output to fail")
	}
}

func TestEncodeBase64(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.EncodeBase64("AAECAw==", "audio/L16;codec=pcm;rate=16000")
	if err != nil {
		t.Fatal(err)
	}
	h, _ := wav.ParseHeader(out)
	if h.SampleRate != 16000 || len(out) != 48 {
		t.Errorf("header = %+v, len %d", h, len(out))
	}

	if _, err := f.svc.EncodeBase64("AAE", ""); !errors.Is(err, wav.ErrMalformedInput) {
		t.Errorf("malformed: err = %v", err)
	}
	if _, err := f.svc.EncodeBase64("AAECAw==", "audio/mpeg"); !errors.Is(err, wav.ErrInvalidFormat) {
		t.Errorf("mpeg: err = %v", err)
	}
}
