package main

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticWords struct {
	words []string
	loads int
}

func (w *staticWords) Load() []string {
	w.loads++

	return append([]string(nil), w.words...)
}

func newTestSession(t *testing.T, mode Mode, pool ...string) *Session {
	t.Helper()

	return newSession(mode, &staticWords{words: pool}, rand.New(rand.NewPCG(1, 2)))
}

func join(t *testing.T, s *Session, names ...string) {
	t.Helper()

	for _, name := range names {
		_, err := s.addPlayer(name)
		require.NoError(t, err)
	}
}

func TestAddPlayer(t *testing.T) {
	s := newTestSession(t, ModeManual)

	alice, err := s.addPlayer("  Alice ")
	require.NoError(t, err)
	assert.Equal(t, PlayerView{ID: 1, Name: "Alice"}, alice)

	bob, err := s.addPlayer("Bob")
	require.NoError(t, err)
	assert.Equal(t, 2, bob.ID)

	before := s.playerViews()

	_, err = s.addPlayer("Alice")
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = s.addPlayer("\tAlice  ")
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = s.addPlayer("   ")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = s.addPlayer("")
	assert.ErrorIs(t, err, ErrInvalidName)

	assert.Empty(t, cmp.Diff(before, s.playerViews()))
}

func TestAddPlayerNamesAreCaseSensitive(t *testing.T) {
	s := newTestSession(t, ModeManual)

	join(t, s, "alice", "Alice", "ALICE")

	assert.Len(t, s.players, 3)
}

func TestRemovePlayer(t *testing.T) {
	s := newTestSession(t, ModeManual)
	join(t, s, "Alice", "Bob", "Carol")

	_, err := s.addWord("Alice", "sushi")
	require.NoError(t, err)
	_, err = s.addWord("Bob", "pizza")
	require.NoError(t, err)

	assert.True(t, s.removePlayer(" Alice "))
	assert.Equal(t, []string{"pizza"}, s.words)
	assert.Equal(t, []PlayerView{
		{ID: 2, Name: "Bob", HasWord: true},
		{ID: 3, Name: "Carol"},
	}, s.playerViews())

	assert.False(t, s.removePlayer("Alice"))
	assert.False(t, s.removePlayer("Dave"))
	assert.Len(t, s.players, 2)
}

func TestAddWord(t *testing.T) {
	s := newTestSession(t, ModeManual)
	join(t, s, "Alice")

	tests := []struct {
		name    string
		player  string
		word    string
		want    string
		wantErr error
	}{
		{name: "missing name", player: " ", word: "sushi", wantErr: ErrMissingField},
		{name: "missing word", player: "Alice", word: "  ", wantErr: ErrMissingField},
		{name: "unknown player", player: "Bob", word: "sushi", wantErr: ErrPlayerNotFound},
		{name: "first word", player: " Alice", word: " sushi ", want: "sushi"},
		{name: "second word", player: "Alice", word: "pizza", wantErr: ErrWordAlreadyAssigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.addWord(tt.player, tt.word)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "sushi", s.players[0].Word)
	assert.Equal(t, []string{"sushi"}, s.words)
}

func TestStartGameFailuresLeaveStateUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) *Session
		wantErr error
	}{
		{
			name: "empty roster",
			setup: func(t *testing.T) *Session {
				return newTestSession(t, ModeManual)
			},
			wantErr: ErrNotEnoughPlayers,
		},
		{
			name: "single player",
			setup: func(t *testing.T) *Session {
				s := newTestSession(t, ModeManual)
				join(t, s, "Alice")
				_, err := s.addWord("Alice", "sushi")
				require.NoError(t, err)
				return s
			},
			wantErr: ErrNotEnoughPlayers,
		},
		{
			name: "manual without words",
			setup: func(t *testing.T) *Session {
				s := newTestSession(t, ModeManual, "apple")
				join(t, s, "Alice", "Bob")
				return s
			},
			wantErr: ErrNoWordsAvailable,
		},
		{
			name: "automatic with empty pool",
			setup: func(t *testing.T) *Session {
				s := newTestSession(t, ModeAutomatic)
				join(t, s, "Alice", "Bob")
				_, err := s.addWord("Alice", "sushi")
				require.NoError(t, err)
				return s
			},
			wantErr: ErrEmptyWordPool,
		},
		{
			name: "already started",
			setup: func(t *testing.T) *Session {
				s := newTestSession(t, ModeAutomatic, "apple")
				join(t, s, "Alice", "Bob")
				_, err := s.startGame()
				require.NoError(t, err)
				return s
			},
			wantErr: ErrAlreadyStarted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.setup(t)

			status := s.status()
			players := s.playerViews()
			impostor := s.impostorName

			_, err := s.startGame()
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, status, s.status())
			assert.Empty(t, cmp.Diff(players, s.playerViews()))
			assert.Equal(t, impostor, s.impostorName)
		})
	}
}

func TestStartGameEmptyRoster(t *testing.T) {
	s := newTestSession(t, ModeManual)

	_, err := s.startGame()
	require.ErrorIs(t, err, ErrNotEnoughPlayers)

	assert.Empty(t, s.players)
	assert.False(t, s.started)
}

func TestStartGameOnlySubmittedWordIsDrawn(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		s := newSession(ModeManual, nil, rand.New(rand.NewPCG(seed, seed+1)))
		join(t, s, "Alice", "Bob")

		_, err := s.addWord("Alice", "sushi")
		require.NoError(t, err)

		round, err := s.startGame()
		require.NoError(t, err)

		assert.Equal(t, "sushi", round.CommonWord)
		assert.Equal(t, 2, round.TotalPlayers)
		assert.Contains(t, []string{"Alice", "Bob"}, round.ImpostorName)
		assert.Contains(t, []string{"Alice", "Bob"}, round.StarterPlayer)
		assert.True(t, s.started)
	}
}

func TestStartGameAutomaticDrawsFromPool(t *testing.T) {
	pool := []string{"apple", "river", "castle"}
	s := newTestSession(t, ModeAutomatic, pool...)
	join(t, s, "Alice", "Bob", "Carol")

	_, err := s.addWord("Alice", "sushi")
	require.NoError(t, err)

	round, err := s.startGame()
	require.NoError(t, err)

	assert.Contains(t, pool, round.CommonWord)
}

func TestStartGameDrawsAreIndependent(t *testing.T) {
	starters := map[string]bool{}
	impostors := map[string]bool{}
	coincided := false

	for seed := uint64(0); seed < 200; seed++ {
		s := newSession(ModeAutomatic, &staticWords{words: []string{"apple"}}, rand.New(rand.NewPCG(seed, 7)))
		join(t, s, "Alice", "Bob", "Carol")

		round, err := s.startGame()
		require.NoError(t, err)

		starters[round.StarterPlayer] = true
		impostors[round.ImpostorName] = true
		if round.StarterPlayer == round.ImpostorName {
			coincided = true
		}
	}

	assert.Len(t, starters, 3)
	assert.Len(t, impostors, 3)
	assert.True(t, coincided, "starter and impostor should sometimes be the same player")
}

func TestGetPlayerState(t *testing.T) {
	s := newTestSession(t, ModeManual)
	join(t, s, "Alice", "Bob", "Carol")

	_, err := s.getPlayerState("Alice")
	require.ErrorIs(t, err, ErrNotStarted)

	_, err = s.addWord("Bob", "sushi")
	require.NoError(t, err)

	round, err := s.startGame()
	require.NoError(t, err)

	for _, p := range s.players {
		state, err := s.getPlayerState(p.Name)
		require.NoError(t, err)

		if p.Name == round.ImpostorName {
			assert.Equal(t, PlayerState{Role: RoleImpostor}, state)
		} else {
			assert.Equal(t, PlayerState{Role: RolePlayer, Word: "sushi"}, state)
		}
	}

	_, err = s.getPlayerState("Dave")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestRemoveWords(t *testing.T) {
	s := newTestSession(t, ModeManual)
	join(t, s, "Alice", "Bob")

	_, err := s.addWord("Alice", "sushi")
	require.NoError(t, err)
	_, err = s.startGame()
	require.NoError(t, err)

	before := s.playerViews()
	s.removeWords()

	for _, name := range []string{"Alice", "Bob"} {
		_, err := s.getPlayerState(name)
		assert.ErrorIs(t, err, ErrNotStarted)
	}

	after := s.playerViews()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Name, after[i].Name)
		assert.False(t, after[i].HasWord)
	}

	assert.Empty(t, s.words)
	assert.Equal(t, Status{PlayerCount: 2, Mode: ModeManual}, s.status())

	_, err = s.addWord("Alice", "pizza")
	assert.NoError(t, err)
}

func TestReset(t *testing.T) {
	source := &staticWords{words: []string{"apple"}}
	s := newSession(ModeManual, source, rand.New(rand.NewPCG(3, 4)))
	require.Equal(t, 1, source.loads)

	join(t, s, "Alice", "Bob")
	mode := string(ModeAutomatic)
	s.setSettings(SettingsUpdate{Mode: &mode})
	_, err := s.startGame()
	require.NoError(t, err)

	source.words = []string{"river", "castle"}
	s.reset()

	assert.Equal(t, 2, source.loads)
	assert.Empty(t, s.players)
	assert.Empty(t, s.words)
	assert.Equal(t, []string{"river", "castle"}, s.wordPool)
	assert.Equal(t, Status{Mode: ModeManual}, s.status())
	assert.Empty(t, s.impostorName)

	p, err := s.addPlayer("Carol")
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)
}

func TestReorderPlayers(t *testing.T) {
	s := newTestSession(t, ModeManual)
	join(t, s, "Alice", "Bob", "Carol")

	_, err := s.addWord("Bob", "sushi")
	require.NoError(t, err)

	views, err := s.reorderPlayers([]string{"Carol", "Alice", "Bob"})
	require.NoError(t, err)

	want := []PlayerView{
		{ID: 3, Name: "Carol"},
		{ID: 1, Name: "Alice"},
		{ID: 2, Name: "Bob", HasWord: true},
	}
	assert.Empty(t, cmp.Diff(want, views))
	assert.Equal(t, "sushi", s.players[2].Word)

	invalid := [][]string{
		{"Carol", "Alice"},
		{"Carol", "Alice", "Dave"},
		{"Carol", "Carol", "Bob"},
		{"Carol", "Alice", "Bob", "Dave"},
		nil,
	}
	for _, order := range invalid {
		_, err := s.reorderPlayers(order)
		assert.ErrorIs(t, err, ErrInvalidOrder, "order %v", order)
		assert.Empty(t, cmp.Diff(want, s.playerViews()))
	}
}

func TestSetSettings(t *testing.T) {
	s := newTestSession(t, ModeManual)

	mode := " Automatic "
	assert.Equal(t, Settings{Mode: ModeAutomatic}, s.setSettings(SettingsUpdate{Mode: &mode}))

	bogus := "chaos"
	assert.Equal(t, Settings{Mode: ModeAutomatic}, s.setSettings(SettingsUpdate{Mode: &bogus}))

	assert.Equal(t, Settings{Mode: ModeAutomatic}, s.setSettings(SettingsUpdate{}))

	manual := "manual"
	assert.Equal(t, Settings{Mode: ModeManual}, s.setSettings(SettingsUpdate{Mode: &manual}))
}

func TestStatus(t *testing.T) {
	s := newTestSession(t, ModeManual)
	join(t, s, "Alice", "Bob")

	_, err := s.addWord("Alice", "sushi")
	require.NoError(t, err)

	round, err := s.startGame()
	require.NoError(t, err)

	st := s.status()
	assert.True(t, st.Started)
	assert.Equal(t, 2, st.PlayerCount)
	assert.Equal(t, 1, st.WordsCount)
	assert.True(t, st.HasCommonWord)
	require.NotNil(t, st.StarterPlayer)
	assert.Equal(t, round.StarterPlayer, *st.StarterPlayer)
	assert.Equal(t, ModeManual, st.Mode)
}
