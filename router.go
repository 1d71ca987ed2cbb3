/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrRateLimited  = errors.New("rate limited")
)

// ClientMessage is one request from a client. Requests without an id get
// no ack.
type ClientMessage struct {
	ID    json.RawMessage `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (m ClientMessage) wantsAck() bool {
	id := bytes.TrimSpace(m.ID)

	return len(id) > 0 && !bytes.Equal(id, []byte("null"))
}

// Ack answers a single request on the requester's connection only.
type Ack map[string]any

func success(id json.RawMessage, fields Ack) Ack {
	ack := Ack{
		"event":   EventAck,
		"id":      id,
		"success": true,
	}
	for k, v := range fields {
		ack[k] = v
	}

	return ack
}

func failure(id json.RawMessage, err error) Ack {
	return Ack{
		"event":   EventAck,
		"id":      id,
		"success": false,
		"error":   err.Error(),
	}
}

// reply is what one operation produces: fields for the requester, events
// for everyone, and the player name the requester acted as, if any.
// claim names an existing player the requester may take over when its
// connection does not act as anyone yet.
type reply struct {
	fields Ack
	events []Event
	bind   string
	unbind string
	claim  string
}

// outcome is a routed request: the ack for the requester plus the events
// to fan out.
type outcome struct {
	ack    Ack
	events []Event
	bind   string
	unbind string
	claim  string
	err    error
}

type handlerFunc func(s *Session, data json.RawMessage) (reply, error)

var handlers = map[string]handlerFunc{
	"join":           handleJoin,
	"leave":          handleLeave,
	"addWord":        handleAddWord,
	"getPlayers":     handleGetPlayers,
	"startGame":      handleStartGame,
	"reorderPlayers": handleReorderPlayers,
	"updateSettings": handleUpdateSettings,
	"resetGame":      handleResetGame,
	"resetWords":     handleResetWords,
	"getPlayerState": handleGetPlayerState,
	"getGameStatus":  handleGetGameStatus,
}

// route runs one request against the session. Nothing is broadcast for a
// failed request.
func route(s *Session, msg ClientMessage) outcome {
	handler, ok := handlers[msg.Event]
	if !ok {
		return outcome{ack: failure(msg.ID, ErrUnknownEvent), err: ErrUnknownEvent}
	}

	r, err := handler(s, msg.Data)
	if err != nil {
		return outcome{
			ack:   failure(msg.ID, err),
			claim: strings.TrimSpace(r.claim),
			err:   err,
		}
	}

	return outcome{
		ack:    success(msg.ID, r.fields),
		events: r.events,
		bind:   strings.TrimSpace(r.bind),
		unbind: strings.TrimSpace(r.unbind),
		claim:  strings.TrimSpace(r.claim),
	}
}

func empty(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)

	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

// decodeName accepts either "name" or {"name": "name"}.
func decodeName(data json.RawMessage) (string, error) {
	if empty(data) {
		return "", nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		return name, nil
	}

	var wrapped struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return "", ErrInvalidInput
	}

	return wrapped.Name, nil
}

// decodeOrder accepts either ["a", "b"] or {"order": ["a", "b"]}.
func decodeOrder(data json.RawMessage) ([]string, error) {
	if empty(data) {
		return nil, ErrInvalidOrder
	}

	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		return names, nil
	}

	var wrapped struct {
		Order []string `json:"order"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, ErrInvalidInput
	}

	return wrapped.Order, nil
}

func handleJoin(s *Session, data json.RawMessage) (reply, error) {
	name, err := decodeName(data)
	if err != nil {
		return reply{}, err
	}

	p, err := s.addPlayer(name)
	if errors.Is(err, ErrDuplicateName) {
		// A reconnecting client joins again under its old name.
		return reply{claim: name}, err
	}
	if err != nil {
		return reply{}, err
	}

	return reply{
		fields: Ack{"player": p},
		events: []Event{playersUpdated(s)},
		bind:   p.Name,
	}, nil
}

func handleLeave(s *Session, data json.RawMessage) (reply, error) {
	name, err := decodeName(data)
	if err != nil {
		return reply{}, err
	}

	if !s.removePlayer(name) {
		return reply{fields: Ack{"removed": false}}, nil
	}

	return reply{
		fields: Ack{"removed": true},
		events: []Event{playersUpdated(s)},
		unbind: name,
	}, nil
}

func handleAddWord(s *Session, data json.RawMessage) (reply, error) {
	var req struct {
		Name string `json:"name"`
		Word string `json:"word"`
	}
	if !empty(data) {
		if err := json.Unmarshal(data, &req); err != nil {
			return reply{}, ErrInvalidInput
		}
	}

	word, err := s.addWord(req.Name, req.Word)
	if err != nil {
		return reply{}, err
	}

	return reply{
		fields: Ack{"word": word},
		events: []Event{playersUpdated(s)},
		bind:   req.Name,
	}, nil
}

func handleGetPlayers(s *Session, _ json.RawMessage) (reply, error) {
	return reply{fields: Ack{"players": s.playerViews()}}, nil
}

func handleStartGame(s *Session, _ json.RawMessage) (reply, error) {
	round, err := s.startGame()
	if err != nil {
		return reply{}, err
	}

	return reply{
		fields: Ack{"result": announce(round)},
		events: []Event{gameStarted(round)},
	}, nil
}

func handleReorderPlayers(s *Session, data json.RawMessage) (reply, error) {
	names, err := decodeOrder(data)
	if err != nil {
		return reply{}, err
	}

	views, err := s.reorderPlayers(names)
	if err != nil {
		return reply{}, err
	}

	return reply{
		fields: Ack{"players": views},
		events: []Event{playersUpdated(s)},
	}, nil
}

func handleUpdateSettings(s *Session, data json.RawMessage) (reply, error) {
	var update SettingsUpdate
	if !empty(data) {
		if err := json.Unmarshal(data, &update); err != nil {
			return reply{}, ErrInvalidInput
		}
	}

	before := s.settings()
	after := s.setSettings(update)

	r := reply{fields: Ack{"settings": after}}
	if after != before {
		r.events = []Event{settingsUpdated(after)}
	}

	return r, nil
}

func handleResetGame(s *Session, _ json.RawMessage) (reply, error) {
	before := s.settings()
	s.reset()

	events := []Event{gameReset(msgGameReset), playersUpdated(s)}
	if after := s.settings(); after != before {
		events = append(events, settingsUpdated(after))
	}

	return reply{
		fields: Ack{"message": msgGameReset},
		events: events,
	}, nil
}

func handleResetWords(s *Session, _ json.RawMessage) (reply, error) {
	s.removeWords()

	return reply{
		fields: Ack{"message": msgWordsRemoved},
		events: []Event{gameReset(msgWordsRemoved), playersUpdated(s)},
	}, nil
}

func handleGetPlayerState(s *Session, data json.RawMessage) (reply, error) {
	name, err := decodeName(data)
	if err != nil {
		return reply{}, err
	}

	state, err := s.getPlayerState(name)
	if err != nil {
		return reply{}, err
	}

	return reply{
		fields: Ack{"state": state},
		claim:  name,
	}, nil
}

func handleGetGameStatus(s *Session, _ json.RawMessage) (reply, error) {
	return reply{fields: Ack{"status": s.status()}}, nil
}
