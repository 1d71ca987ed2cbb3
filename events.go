/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Broadcast event names
const (
	EventPlayersUpdated  = "playersUpdated"
	EventGameStarted     = "gameStarted"
	EventGameReset       = "gameReset"
	EventSettingsUpdated = "settingsUpdated"
	EventAck             = "ack"
)

const (
	msgGameStarted  = "Game started"
	msgGameReset    = "Game reset"
	msgWordsRemoved = "Words removed and round reset"
)

// Event is pushed to every connected client.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// RoundAnnouncement is the public part of a RoundSummary.
type RoundAnnouncement struct {
	Message       string `json:"message"`
	StarterPlayer string `json:"starterPlayer"`
	CommonWord    string `json:"commonWord"`
	TotalPlayers  int    `json:"totalPlayers"`
}

type ResetNotice struct {
	Message string `json:"message"`
}

func announce(round RoundSummary) RoundAnnouncement {
	return RoundAnnouncement{
		Message:       msgGameStarted,
		StarterPlayer: round.StarterPlayer,
		CommonWord:    round.CommonWord,
		TotalPlayers:  round.TotalPlayers,
	}
}

func playersUpdated(s *Session) Event {
	return Event{Event: EventPlayersUpdated, Data: s.playerViews()}
}

func gameStarted(round RoundSummary) Event {
	return Event{Event: EventGameStarted, Data: announce(round)}
}

func gameReset(message string) Event {
	return Event{Event: EventGameReset, Data: ResetNotice{Message: message}}
}

func settingsUpdated(settings Settings) Event {
	return Event{Event: EventSettingsUpdated, Data: settings}
}
