package clips

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakePlatform struct {
	mu       sync.Mutex
	guilds   []string
	channels map[string][]Channel
	messages map[string][]string
	nextID   int
	creates  int

	listErr   map[string]error
	readErr   map[string]error
	deleteErr map[string]error
	panicOn   string

	// sendStarted and sendGate, when set, hold SendMessage until the gate closes.
	sendStarted chan string
	sendGate    chan struct{}
}

func newFakePlatform(guilds ...string) *fakePlatform {
	return &fakePlatform{
		guilds:    guilds,
		channels:  map[string][]Channel{},
		messages:  map[string][]string{},
		listErr:   map[string]error{},
		readErr:   map[string]error{},
		deleteErr: map[string]error{},
	}
}

func (f *fakePlatform) add(guildID string, c Channel) Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		f.nextID++
		c.ID = fmt.Sprintf("ch-%d", f.nextID)
	}
	f.channels[guildID] = append(f.channels[guildID], c)
	return c
}

func (f *fakePlatform) GuildIDs() []string { return f.guilds }

func (f *fakePlatform) Channels(_ context.Context, guildID string) ([]Channel, error) {
	if guildID == f.panicOn {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[guildID]; err != nil {
		return nil, err
	}
	return append([]Channel(nil), f.channels[guildID]...), nil
}

func (f *fakePlatform) CreateChannel(_ context.Context, guildID, name string, kind ChannelKind, parentID string) (Channel, error) {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	return f.add(guildID, Channel{Name: name, Kind: kind, ParentID: parentID}), nil
}

func (f *fakePlatform) SendMessage(_ context.Context, channelID, content string) error {
	if f.sendGate != nil {
		f.sendStarted <- channelID
		<-f.sendGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[channelID] = append(f.messages[channelID], content)
	return nil
}

func (f *fakePlatform) HasMessages(_ context.Context, channelID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr[channelID]; err != nil {
		return false, err
	}
	return len(f.messages[channelID]) > 0, nil
}

func (f *fakePlatform) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[channelID]; err != nil {
		return err
	}
	for g, chs := range f.channels {
		kept := chs[:0]
		for _, c := range chs {
			if c.ID != channelID {
				kept = append(kept, c)
			}
		}
		f.channels[g] = kept
	}
	return nil
}

func (f *fakePlatform) named(guildID, name string) (Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.channels[guildID] {
		if c.Name == name {
			return c, true
		}
	}
	return Channel{}, false
}

func TestIsClipMessage(t *testing.T) {
	cases := map[string]bool{
		"look https://clips.twitch.tv/FunnyClip": true,
		"https://www.twitch.tv/somechannel":      false,
		"":                                       false,
	}
	for in, want := range cases {
		if got := IsClipMessage(in); got != want {
			t.Errorf("IsClipMessage(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEditChannelName(t *testing.T) {
	d := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	if got := EditChannelName(d); got != "clips-edit-2024-05-01" {
		t.Errorf("EditChannelName = %q", got)
	}
}

func TestDetectedRoundTrip(t *testing.T) {
	msg := DetectedMessage("https://clips.twitch.tv/abc")
	clip, ok := ClipFromDetected(msg)
	if !ok || clip != "https://clips.twitch.tv/abc" {
		t.Fatalf("ClipFromDetected = %q, %v", clip, ok)
	}
	if _, ok := ClipFromDetected("something else"); ok {
		t.Error("expected no clip in unrelated message")
	}
}

func TestMoveToEditCreatesCategoryAndChannel(t *testing.T) {
	p := newFakePlatform("g1")
	tr := NewTriage(p, "CLIPS EDIT")
	tr.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	name, err := tr.MoveToEdit(context.Background(), "g1", "https://clips.twitch.tv/abc")
	if err != nil {
		t.Fatalf("MoveToEdit error: %v", err)
	}
	if name != "clips-edit-2024-05-01" {
		t.Errorf("name = %q", name)
	}
	cat, ok := p.named("g1", "CLIPS EDIT")
	if !ok || cat.Kind != KindCategory {
		t.Fatalf("category not created: %+v", cat)
	}
	ch, ok := p.named("g1", name)
	if !ok || ch.ParentID != cat.ID || ch.Kind != KindText {
		t.Fatalf("edit channel not created under category: %+v", ch)
	}
	if got := p.messages[ch.ID]; len(got) != 1 || got[0] != "🎬 https://clips.twitch.tv/abc" {
		t.Errorf("messages = %v", got)
	}
}

func TestMoveToEditReusesExisting(t *testing.T) {
	p := newFakePlatform("g1")
	cat := p.add("g1", Channel{Name: "CLIPS EDIT", Kind: KindCategory})
	p.add("g1", Channel{Name: "clips-edit-2024-05-01", Kind: KindText, ParentID: cat.ID})

	tr := NewTriage(p, "CLIPS EDIT")
	tr.Now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := tr.MoveToEdit(context.Background(), "g1", "https://clips.twitch.tv/x"); err != nil {
		t.Fatal(err)
	}
	if p.creates != 0 {
		t.Errorf("creates = %d, want 0", p.creates)
	}
}

func TestMoveToEditConcurrentCreatesOnce(t *testing.T) {
	p := newFakePlatform("g1")
	tr := NewTriage(p, "CLIPS EDIT")
	tr.Now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := tr.MoveToEdit(context.Background(), "g1", fmt.Sprintf("https://clips.twitch.tv/%d", i)); err != nil {
				t.Errorf("MoveToEdit: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if p.creates != 2 {
		t.Errorf("creates = %d, want 2 (category + channel)", p.creates)
	}
}

func TestSweepWaitsForInFlightMove(t *testing.T) {
	p := newFakePlatform("g1")
	p.sendStarted = make(chan string, 1)
	p.sendGate = make(chan struct{})
	tr := NewTriage(p, "CLIPS EDIT")
	tr.Now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	sw := &Sweeper{Platform: p, Category: "CLIPS EDIT", Locks: tr.Locks}

	moved := make(chan error, 1)
	go func() {
		_, err := tr.MoveToEdit(context.Background(), "g1", "https://clips.twitch.tv/x")
		moved <- err
	}()
	<-p.sendStarted // today's channel exists and is still empty

	swept := make(chan int, 1)
	go func() { swept <- sw.SweepOnce(context.Background()) }()
	select {
	case n := <-swept:
		t.Fatalf("sweep finished during a move, deleted %d", n)
	case <-time.After(50 * time.Millisecond):
	}

	close(p.sendGate)
	if err := <-moved; err != nil {
		t.Fatalf("MoveToEdit: %v", err)
	}
	if n := <-swept; n != 0 {
		t.Errorf("deleted = %d, want 0", n)
	}
	if _, ok := p.named("g1", "clips-edit-2024-05-01"); !ok {
		t.Error("edit channel was removed")
	}
}

func TestMoveToEditListError(t *testing.T) {
	p := newFakePlatform("g1")
	p.listErr["g1"] = errors.New("forbidden")
	tr := NewTriage(p, "CLIPS EDIT")
	if _, err := tr.MoveToEdit(context.Background(), "g1", "u"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSweepOnceDeletesOnlyEmptyEditChannels(t *testing.T) {
	p := newFakePlatform("g1")
	cat := p.add("g1", Channel{Name: "CLIPS EDIT", Kind: KindCategory})
	empty := p.add("g1", Channel{Name: "clips-edit-2024-05-01", Kind: KindText, ParentID: cat.ID})
	full := p.add("g1", Channel{Name: "clips-edit-2024-05-02", Kind: KindText, ParentID: cat.ID})
	outside := p.add("g1", Channel{Name: "general", Kind: KindText})
	p.messages[full.ID] = []string{"🎬 clip"}

	s := &Sweeper{Platform: p, Category: "CLIPS EDIT"}
	if got := s.SweepOnce(context.Background()); got != 1 {
		t.Fatalf("deleted = %d, want 1", got)
	}
	if _, ok := p.named("g1", empty.Name); ok {
		t.Error("empty channel still present")
	}
	for _, c := range []Channel{full, outside, cat} {
		if _, ok := p.named("g1", c.Name); !ok {
			t.Errorf("%s should be kept", c.Name)
		}
	}
}

func TestSweepOnceIsolatesFailures(t *testing.T) {
	p := newFakePlatform("bad", "g1")
	p.listErr["bad"] = errors.New("no access")
	cat := p.add("g1", Channel{Name: "CLIPS EDIT", Kind: KindCategory})
	broken := p.add("g1", Channel{Name: "clips-edit-a", Kind: KindText, ParentID: cat.ID})
	stuck := p.add("g1", Channel{Name: "clips-edit-b", Kind: KindText, ParentID: cat.ID})
	p.add("g1", Channel{Name: "clips-edit-c", Kind: KindText, ParentID: cat.ID})
	p.readErr[broken.ID] = errors.New("read failed")
	p.deleteErr[stuck.ID] = errors.New("delete failed")

	s := &Sweeper{Platform: p, Category: "CLIPS EDIT"}
	if got := s.SweepOnce(context.Background()); got != 1 {
		t.Fatalf("deleted = %d, want 1", got)
	}
	if _, ok := p.named("g1", "clips-edit-c"); ok {
		t.Error("clips-edit-c should have been deleted")
	}
}

func TestStartRecoversPanicAndStops(t *testing.T) {
	p := newFakePlatform("g1")
	p.panicOn = "g1"
	s := &Sweeper{Platform: p, Category: "CLIPS EDIT", Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
