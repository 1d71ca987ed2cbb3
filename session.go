/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"math/rand/v2"
	"strings"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidName         = errors.New("a name is required")
	ErrMissingField        = errors.New("name and word are required")
	ErrDuplicateName       = errors.New("a player with that name is already in the game")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrWordAlreadyAssigned = errors.New("that player has already submitted a word")
	ErrNotEnoughPlayers    = errors.New("at least 2 players are needed to start")
	ErrAlreadyStarted      = errors.New("the round has already started")
	ErrNoWordsAvailable    = errors.New("no player has submitted a word yet")
	ErrEmptyWordPool       = errors.New("the word list is empty")
	ErrNotStarted          = errors.New("the round has not started yet")
	ErrInvalidOrder        = errors.New("the order must list every current player exactly once")
)

type Mode string

const (
	ModeManual    Mode = "manual"    // common word drawn from player submissions
	ModeAutomatic Mode = "automatic" // common word drawn from the word pool
)

func parseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeManual:
		return ModeManual, true
	case ModeAutomatic:
		return ModeAutomatic, true
	}

	return "", false
}

// Player is a roster entry. An empty Word means nothing was submitted.
type Player struct {
	ID   int
	Name string
	Word string
}

func (p *Player) view() PlayerView {
	return PlayerView{
		ID:      p.ID,
		Name:    p.Name,
		HasWord: p.Word != "",
	}
}

// PlayerView is the only form of a player that leaves the process.
type PlayerView struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	HasWord bool   `json:"hasWord"`
}

// RoundSummary is the outcome of startGame. ImpostorName never serializes.
type RoundSummary struct {
	StarterPlayer string `json:"starterPlayer"`
	CommonWord    string `json:"commonWord"`
	TotalPlayers  int    `json:"totalPlayers"`
	ImpostorName  string `json:"-"`
}

const (
	RoleImpostor = "impostor"
	RolePlayer   = "player"
)

type PlayerState struct {
	Role string `json:"role"`
	Word string `json:"word,omitempty"`
}

type Settings struct {
	Mode Mode `json:"mode"`
}

// SettingsUpdate carries optional fields; nil means "leave as is".
type SettingsUpdate struct {
	Mode *string `json:"mode,omitempty"`
}

type Status struct {
	Started       bool    `json:"started"`
	PlayerCount   int     `json:"playerCount"`
	WordsCount    int     `json:"wordsCount"`
	HasCommonWord bool    `json:"hasCommonWord"`
	StarterPlayer *string `json:"starterPlayer"`
	Mode          Mode    `json:"mode"`
}

// WordSource supplies the automatic-mode word pool.
type WordSource interface {
	Load() []string
}

// Session is the state of the one live game. It is not safe for concurrent
// use; the hub goroutine owns it.
type Session struct {
	players       []*Player
	words         []string
	mode          Mode
	wordPool      []string
	started       bool
	commonWord    string
	starterPlayer string
	impostorName  string

	defaultMode Mode
	source      WordSource
	rng         *rand.Rand
}

func newSession(defaultMode Mode, source WordSource, rng *rand.Rand) *Session {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s := &Session{
		defaultMode: defaultMode,
		source:      source,
		rng:         rng,
	}
	s.reset()

	return s
}

func (s *Session) find(name string) (int, *Player) {
	for i, p := range s.players {
		if p.Name == name {
			return i, p
		}
	}

	return -1, nil
}

func (s *Session) addPlayer(name string) (PlayerView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PlayerView{}, ErrInvalidName
	}

	if _, p := s.find(name); p != nil {
		return PlayerView{}, ErrDuplicateName
	}

	p := &Player{
		ID:   len(s.players) + 1,
		Name: name,
	}
	s.players = append(s.players, p)

	return p.view(), nil
}

func (s *Session) removePlayer(name string) bool {
	i, p := s.find(strings.TrimSpace(name))
	if p == nil {
		return false
	}

	if p.Word != "" {
		for j, w := range s.words {
			if w == p.Word {
				s.words = append(s.words[:j], s.words[j+1:]...)
				break
			}
		}
	}

	s.players = append(s.players[:i], s.players[i+1:]...)

	return true
}

func (s *Session) addWord(name, word string) (string, error) {
	name = strings.TrimSpace(name)
	word = strings.TrimSpace(word)
	if name == "" || word == "" {
		return "", ErrMissingField
	}

	_, p := s.find(name)
	if p == nil {
		return "", ErrPlayerNotFound
	}

	if p.Word != "" {
		return "", ErrWordAlreadyAssigned
	}

	p.Word = word
	s.words = append(s.words, word)

	return word, nil
}

// startGame commits a round. Starter and impostor are drawn independently
// over the whole roster and may be the same player.
func (s *Session) startGame() (RoundSummary, error) {
	if len(s.players) < 2 {
		return RoundSummary{}, ErrNotEnoughPlayers
	}

	if s.started {
		return RoundSummary{}, ErrAlreadyStarted
	}

	var candidates []string
	switch s.mode {
	case ModeAutomatic:
		if len(s.wordPool) == 0 {
			return RoundSummary{}, ErrEmptyWordPool
		}
		candidates = s.wordPool
	default:
		for _, p := range s.players {
			if p.Word != "" {
				candidates = append(candidates, p.Word)
			}
		}
		if len(candidates) == 0 {
			return RoundSummary{}, ErrNoWordsAvailable
		}
	}

	commonWord := candidates[s.rng.IntN(len(candidates))]
	starter := s.players[s.rng.IntN(len(s.players))].Name
	impostor := s.players[s.rng.IntN(len(s.players))].Name

	s.commonWord = commonWord
	s.starterPlayer = starter
	s.impostorName = impostor
	s.started = true

	return RoundSummary{
		StarterPlayer: starter,
		CommonWord:    commonWord,
		TotalPlayers:  len(s.players),
		ImpostorName:  impostor,
	}, nil
}

func (s *Session) getPlayerState(name string) (PlayerState, error) {
	if !s.started {
		return PlayerState{}, ErrNotStarted
	}

	_, p := s.find(strings.TrimSpace(name))
	if p == nil {
		return PlayerState{}, ErrPlayerNotFound
	}

	if p.Name == s.impostorName {
		return PlayerState{Role: RoleImpostor}, nil
	}

	return PlayerState{Role: RolePlayer, Word: s.commonWord}, nil
}

// removeWords ends the round and clears every submission, keeping the roster.
func (s *Session) removeWords() {
	s.commonWord = ""
	s.starterPlayer = ""
	s.impostorName = ""
	s.words = nil
	s.started = false

	for _, p := range s.players {
		p.Word = ""
	}
}

// reset returns the session to its initial form and reloads the word pool.
func (s *Session) reset() {
	var pool []string
	if s.source != nil {
		pool = s.source.Load()
	}

	s.players = nil
	s.removeWords()
	s.mode = s.defaultMode
	s.wordPool = pool
}

func (s *Session) reorderPlayers(names []string) ([]PlayerView, error) {
	if len(names) != len(s.players) {
		return nil, ErrInvalidOrder
	}

	byName := make(map[string]*Player, len(s.players))
	for _, p := range s.players {
		byName[p.Name] = p
	}

	ordered := make([]*Player, 0, len(names))
	for _, name := range names {
		p, ok := byName[strings.TrimSpace(name)]
		if !ok {
			return nil, ErrInvalidOrder
		}
		delete(byName, p.Name)
		ordered = append(ordered, p)
	}

	s.players = ordered

	return s.playerViews(), nil
}

func (s *Session) setSettings(update SettingsUpdate) Settings {
	if update.Mode != nil {
		if mode, ok := parseMode(*update.Mode); ok {
			s.mode = mode
		}
	}

	return s.settings()
}

func (s *Session) settings() Settings {
	return Settings{Mode: s.mode}
}

func (s *Session) playerViews() []PlayerView {
	views := make([]PlayerView, 0, len(s.players))
	for _, p := range s.players {
		views = append(views, p.view())
	}

	return views
}

func (s *Session) status() Status {
	st := Status{
		Started:       s.started,
		PlayerCount:   len(s.players),
		WordsCount:    len(s.words),
		HasCommonWord: s.commonWord != "",
		Mode:          s.mode,
	}
	if s.starterPlayer != "" {
		starter := s.starterPlayer
		st.StarterPlayer = &starter
	}

	return st
}
