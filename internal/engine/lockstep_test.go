package engine

import (
	"bytes"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/j-jorge/bim-sub001/internal/client"
	"github.com/j-jorge/bim-sub001/internal/contest"
	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/infrastructure/storage"
	"github.com/j-jorge/bim-sub001/internal/network"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/pkg/api"
)

// memoryTimelines записывает партии в память.
type memoryTimelines struct {
	buffers map[uint32]*bytes.Buffer
}

func (m *memoryTimelines) Open(channel uint32, fp domain.Fingerprint) (*storage.TimelineWriter, error) {
	buf := &bytes.Buffer{}
	m.buffers[channel] = buf
	return storage.NewTimelineWriter(buf, fp)
}

type lockstepRun struct {
	s         *scheduler.Scheduler
	net       *network.Loopback
	sv        *Service
	timelines *memoryTimelines
	sessions  []*client.Session
	conns     []*network.LoopbackConn
}

func newLockstepRun(t *testing.T, cfg Config, players int, seed uint64) *lockstepRun {
	t.Helper()
	r := &lockstepRun{
		s:         scheduler.NewManual(epoch),
		timelines: &memoryTimelines{buffers: make(map[uint32]*bytes.Buffer)},
	}
	r.net = network.NewLoopback(r.s, seed)
	r.net.Jitter = 25 * time.Millisecond
	r.net.DropRate = 0.05
	r.net.DuplicateRate = 0.05

	r.sv = NewServiceWithTimelines(cfg, r.s, r.net, r.timelines)
	r.net.SetServer(r.sv)
	r.sv.Start()

	for i := 0; i < players; i++ {
		var sess *client.Session
		conn := r.net.Connect(func(e api.Envelope) { sess.Deliver(e) })
		sess = client.NewSession(r.s, conn, 0)
		r.sessions = append(r.sessions, sess)
		r.conns = append(r.conns, conn)
		sess.Start()
	}
	return r
}

// play двигает часы тиками, меняя ввод игроков случайным образом.
func (r *lockstepRun) play(d time.Duration, rng *rand.Rand) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += domain.TickInterval {
		for _, sess := range r.sessions {
			if rng.IntN(10) == 0 {
				sess.SetMovement(domain.Movement(rng.IntN(int(domain.MaxMovement) + 1)))
			}
			if rng.IntN(40) == 0 {
				sess.DropBomb()
			}
		}
		r.s.Advance(domain.TickInterval)
	}
}

// replay проигрывает первые ticks тиков записи на новой партии.
func replay(t *testing.T, tl *storage.Timeline, ticks uint32) []byte {
	t.Helper()
	c := contest.New(tl.Fingerprint)
	for i := 0; i < int(ticks); i++ {
		if err := tl.LoadTick(i, c); err != nil {
			t.Fatalf("LoadTick(%d): %v", i, err)
		}
		c.Tick()
	}
	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot(): %v", err)
	}
	return snap
}

func TestLockstep_ClientsAgreeWithTheServer(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3} {
		r := newLockstepRun(t, NewConfig(), 2, seed)
		r.play(6*time.Second, rand.New(rand.NewPCG(seed, 99)))

		for i, sess := range r.sessions {
			if st := sess.State(); st != client.SessionPlaying && st != client.SessionFinished {
				t.Fatalf("seed %d: session %d state = %s", seed, i, st)
			}
		}

		// Подтвержденные состояния снимаются до закрытия сервиса.
		confirmed := make([]uint32, len(r.sessions))
		archives := make([][]byte, len(r.sessions))
		for i, sess := range r.sessions {
			confirmed[i] = sess.Runner().ConfirmedTick()
			archives[i] = bytes.Clone(sess.Runner().ConfirmedArchive().Bytes())
		}
		r.sv.Close()

		if len(r.timelines.buffers) != 1 {
			t.Fatalf("seed %d: %d timelines recorded", seed, len(r.timelines.buffers))
		}
		var tl *storage.Timeline
		for _, buf := range r.timelines.buffers {
			var err error
			if tl, err = storage.LoadTimeline(buf); err != nil {
				t.Fatalf("seed %d: LoadTimeline(): %v", seed, err)
			}
		}

		for i := range r.sessions {
			if confirmed[i] < 100 {
				t.Errorf("seed %d: session %d confirmed only %d ticks", seed, i, confirmed[i])
			}
			if int(confirmed[i]) > tl.TickCount() {
				t.Fatalf("seed %d: session %d confirmed %d of %d recorded ticks",
					seed, i, confirmed[i], tl.TickCount())
			}
			if !bytes.Equal(archives[i], replay(t, tl, confirmed[i])) {
				t.Errorf("seed %d: session %d diverged from the recording at tick %d", seed, i, confirmed[i])
			}
		}
	}
}

func TestLockstep_SilentPlayerIsDroppedAndLoses(t *testing.T) {
	cfg := NewConfig()
	cfg.InactivityDelay = 2 * time.Second
	r := newLockstepRun(t, cfg, 2, 5)

	// 1. Партия идет
	r.s.Advance(time.Second)
	if r.sessions[1].State() != client.SessionPlaying {
		t.Fatalf("session 1 state = %s", r.sessions[1].State())
	}

	// 2. Второй игрок замолкает, но остается подключенным
	r.conns[1].Muted = true
	r.s.Advance(cfg.InactivityDelay + 2*time.Second)

	if st := r.sessions[0].State(); st != client.SessionFinished {
		t.Fatalf("session 0 state = %s", st)
	}
	res := r.sessions[0].Result()
	if !res.HasAWinner() || res.WinningPlayer() != 0 {
		t.Errorf("result = %s, want player 0 to win", res)
	}
}
