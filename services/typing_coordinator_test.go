package services

import (
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"localchat/infrastructure/storage"

	"github.com/stretchr/testify/require"
)

// gatedTypingRepository stores like the real one, then holds a gated Add
// until released.
type gatedTypingRepository struct {
	storage.TypingRepository
	gate    atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (r *gatedTypingRepository) Add(name string, at time.Time) error {
	err := r.TypingRepository.Add(name, at)
	if r.gate.Load() {
		close(r.entered)
		<-r.release
	}
	return err
}

func TestTypingCoordinator_RestartingResetsDebounce(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	coordinator := NewTypingCoordinator(f.typing, f.clock, 2*time.Second, slog.Default())

	req.NoError(coordinator.Start("A"))
	f.clock.Advance(1500 * time.Millisecond)
	req.NoError(coordinator.Start("A"))

	// 2.9s after the first call, 1.4s after the second
	f.clock.Advance(1400 * time.Millisecond)
	typing, err := coordinator.Peers("")
	req.NoError(err)
	req.Equal([]string{"A"}, typing)

	// 3.6s after the first call the re-armed timer has fired
	f.clock.Advance(700 * time.Millisecond)
	req.Eventually(func() bool {
		typing, err := coordinator.Peers("")
		return err == nil && len(typing) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestTypingCoordinator_StopRemovesAndDisarms(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	coordinator := NewTypingCoordinator(f.typing, f.clock, 2*time.Second, slog.Default())

	req.NoError(coordinator.Start("A"))
	req.NoError(coordinator.Stop("A"))

	typing, err := coordinator.Peers("")
	req.NoError(err)
	req.Empty(typing)

	// Starting again after the old timer's deadline keeps the name
	req.NoError(coordinator.Start("A"))
	f.clock.Advance(1500 * time.Millisecond)
	typing, err = coordinator.Peers("")
	req.NoError(err)
	req.Equal([]string{"A"}, typing)
}

func TestTypingCoordinator_PeersExcludesSelf(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	mine := NewTypingCoordinator(f.typing, f.clock, 2*time.Second, slog.Default())
	theirs := NewTypingCoordinator(f.typing, f.clock, 2*time.Second, slog.Default())

	req.NoError(theirs.Start("Bob"))
	f.clock.Advance(100 * time.Millisecond)
	req.NoError(mine.Start("Amy"))
	f.clock.Advance(100 * time.Millisecond)
	req.NoError(theirs.Start("Cid"))

	peers, err := mine.Peers("Amy")
	req.NoError(err)
	req.Equal([]string{"Bob", "Cid"}, peers)

	all, err := mine.Peers("")
	req.NoError(err)
	req.Equal([]string{"Bob", "Amy", "Cid"}, all)
}

func TestTypingCoordinator_ExpiryDuringRestartKeepsName(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	repo := &gatedTypingRepository{
		TypingRepository: f.typing,
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	coordinator := NewTypingCoordinator(repo, f.clock, 2*time.Second, slog.Default())

	req.NoError(coordinator.Start("A"))

	repo.gate.Store(true)
	restarted := make(chan error, 1)
	go func() { restarted <- coordinator.Start("A") }()
	<-repo.entered

	// The first timer fires while the restart is still writing
	f.clock.Advance(2 * time.Second)
	close(repo.release)
	req.NoError(<-restarted)

	req.Never(func() bool {
		typing, err := coordinator.Peers("")
		return err != nil || len(typing) == 0
	}, 300*time.Millisecond, 10*time.Millisecond)
}
