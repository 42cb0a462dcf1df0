package game

import (
	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

// Apply is the single transition function. It merges one event into the
// state and returns the one-shot effects to run. Merge rules are idempotent
// and order-tolerant: a push and an in-flight REST response for the same
// data converge to the same displayed state in either arrival order.
func Apply(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {

	case RoomEntered:
		next := NewState(s.Me)
		next.Phase = PhaseJoining
		next.roomID = ev.RoomID
		next.Role = ev.Role
		// Everything is reloaded over REST before any push is trusted.
		return next, []Effect{
			PersistRoom{RoomID: ev.RoomID, Role: ev.Role},
			FetchRoom{},
			FetchSession{},
		}

	case RoomSnapshot:
		// Stale snapshots — wrong room, or delivered after a terminal
		// transition — are ignored outright. This is what makes a duplicate
		// "you are gone" snapshot a no-op.
		if s.Phase == PhaseNoRoom || ev.Room.ID != s.roomID {
			return s, nil
		}
		// Removal detection: I was in the previous snapshot and am absent
		// from this one. Fires the side effects exactly once, because the
		// state it leaves behind can never match this condition again.
		if s.Room != nil && s.Room.HasUser(s.Me.ID) && !ev.Room.HasUser(s.Me.ID) {
			return s.leaveRoom(), []Effect{
				Disconnect{},
				ClearRoomSlots{},
				NavigateToLobby{Notice: "You were removed from the room"},
			}
		}
		// The snapshot replaces room and players wholesale; only the
		// embedded session goes through the anti-flicker merge.
		room := ev.Room
		merged := mergeSession(s.Session, room.GameSession)
		room.GameSession = merged
		s.Room = &room
		return s.applySession(merged)

	case SessionLoaded:
		if s.Phase == PhaseNoRoom {
			return s, nil
		}
		gs := ev.Session
		return s.applySession(mergeSession(s.Session, &gs))

	case GameStarted:
		if s.Phase == PhaseNoRoom {
			return s, nil
		}
		gs := ev.Session
		var effects []Effect
		if s.startedSessionID != gs.ID {
			// The push delivered the session itself: stage it durably so the
			// round view can pick it up once even across a hard navigation.
			effects = append(effects, StageHandoff{Session: gs})
		}
		next, more := s.applySession(mergeSession(s.Session, &gs))
		return next, append(effects, more...)

	case ScoresLoaded:
		s.Scores = ev.Scores
		sub := copyBoolMap(s.Submitted)
		for _, row := range ev.Scores {
			if !row.HasSubmission() {
				continue
			}
			sub[row.PlayerID] = true
			if row.UserID == s.Me.ID {
				// Authoritative "I already submitted" — survives a reload
				// where client memory is gone.
				s.HasSubmitted = true
			}
		}
		s.Submitted = sub
		if s.Phase == PhaseInRound && s.AllSubmitted() {
			s.Phase = PhaseRoundResults
			s.ResultsVisible = true
		}
		return s, nil

	case PlayerSubmitted:
		if s.Phase != PhaseInRound && s.Phase != PhaseRoundResults {
			return s, nil
		}
		sub := copyBoolMap(s.Submitted)
		sub[ev.PlayerID] = true
		s.Submitted = sub
		if ev.AllSubmitted && s.Phase != PhaseRoundResults {
			s.Phase = PhaseRoundResults
			s.ResultsVisible = true
		}
		return s, []Effect{FetchScores{}}

	case RoundAdvancing:
		if s.Phase == PhaseNoRoom {
			return s, nil
		}
		s.Countdown = ev.SecondsLeft
		if ev.SecondsLeft <= 0 {
			// The backend's countdown ran out: re-sync shortly. Advancing is
			// never decided client-side.
			return s, []Effect{ScheduleRefresh{After: countdownRefreshDelay}}
		}
		return s, nil

	case PlayerRemoved:
		if s.Phase == PhaseNoRoom {
			return s, nil
		}
		me, ok := s.MyPlayer()
		if ev.UserID == s.Me.ID || (ok && ev.PlayerID == me.ID) {
			return s.leaveRoom(), []Effect{
				Disconnect{},
				ClearRoomSlots{},
				NavigateToLobby{Notice: "You were removed from the room"},
			}
		}
		// Someone else: the authoritative snapshot follows, fetch it.
		return s, []Effect{FetchRoom{}}

	case RoomDeleted:
		if s.Phase == PhaseNoRoom {
			return s, nil
		}
		return s.leaveRoom(), []Effect{
			Disconnect{},
			ClearRoomSlots{},
			NavigateToLobby{Notice: "The room was deleted by the host"},
		}

	case AnswerEdited:
		if s.Phase != PhaseInRound || s.HasSubmitted {
			return s, nil
		}
		answers := copyStringMap(s.Answers)
		answers[ev.Category] = ev.Text
		s.Answers = answers
		errs := copyStringMap(s.ValidationErrors)
		if msg := domain.ValidateAnswer(ev.Text, s.Letter()); msg != "" {
			errs[ev.Category] = msg
		} else {
			// Cleared automatically once the input is valid or empty.
			delete(errs, ev.Category)
		}
		s.ValidationErrors = errs
		return s, nil

	case SubmitRequested:
		if s.Phase != PhaseInRound || s.HasSubmitted {
			return s, nil
		}
		errs := make(map[string]string)
		for category, text := range s.Answers {
			if msg := domain.ValidateAnswer(text, s.Letter()); msg != "" {
				errs[category] = msg
			}
		}
		if len(errs) > 0 {
			// Validation blocks the submit action only, never keystrokes.
			s.ValidationErrors = errs
			return s, nil
		}
		return s, []Effect{SubmitAnswers{Answers: copyStringMap(s.Answers)}}

	case SubmitAccepted:
		if s.Phase == PhaseNoRoom {
			return s, nil
		}
		s.HasSubmitted = true
		if me, ok := s.MyPlayer(); ok {
			sub := copyBoolMap(s.Submitted)
			sub[me.ID] = true
			s.Submitted = sub
		}
		return s, []Effect{FetchScores{}}

	case SubmitFailed:
		if s.Phase == PhaseNoRoom {
			return s, nil
		}
		// Authoritative reject: state stays exactly as it was.
		return s, []Effect{ShowNotice{Text: ev.Message}}

	case TimerExpired:
		if s.Phase != PhaseInRound || s.AutoSubmitted || s.HasSubmitted {
			return s, nil
		}
		// Guarded per round; attempted even if the channel is down — the
		// backend's own signals stay authoritative for the round ending.
		s.AutoSubmitted = true
		return s, []Effect{AutoSubmit{Answers: copyStringMap(s.Answers)}}

	case PreviousScoresExpired:
		s.PreviousRoundScores = nil
		return s, nil

	case RoomLeft:
		return s.leaveRoom(), []Effect{Disconnect{}, ClearRoomSlots{}}
	}

	return s, nil
}

// applySession merges an already anti-flicker-filtered session into state,
// detecting round advances, activation and completion.
func (s State) applySession(gs *domain.GameSession) (State, []Effect) {
	var effects []Effect
	prev := s.Session
	s.Session = gs

	if gs == nil {
		if s.Phase == PhaseJoining {
			s.Phase = s.preGamePhase()
		}
		return s, nil
	}

	// Round advance: keep the finished round's scores visible briefly,
	// reset every per-round transient, and re-sync scores for the new round.
	if prev != nil && prev.Active() && gs.Active() && gs.CurrentRound != prev.CurrentRound {
		s.PreviousRoundScores = s.Scores
		s.Scores = nil
		s = s.resetRound()
		if !gs.IsCompleted {
			s.Phase = PhaseInRound
		}
		effects = append(effects,
			FetchScores{},
			ClearPreviousScores{After: previousScoresWindow},
		)
	}

	switch {
	case gs.IsCompleted:
		if s.Phase != PhaseCompleted {
			s.Phase = PhaseCompleted
			effects = append(effects, FetchScores{IncludeTotals: true})
		}
	case gs.Active():
		if s.startedSessionID != gs.ID {
			// One-shot per activation: redundant snapshots of an already
			// active session must not navigate again.
			s.startedSessionID = gs.ID
			s.Phase = PhaseInRound
			effects = append(effects, NavigateToRound{}, FetchScores{})
		}
	default:
		if s.Phase == PhaseJoining {
			s.Phase = s.preGamePhase()
		}
	}
	return s, effects
}

func (s State) preGamePhase() Phase {
	if s.Role == domain.RoleHost || s.IsHost() {
		return PhaseConfiguring
	}
	return PhaseWaiting
}

// mergeSession implements the anti-flicker rule: repeated room snapshots
// arrive on every membership churn, and must not visibly perturb an
// in-progress round. The held object is retained — reference-stable — iff
// letter mode, resolved letter and selected categories are all unchanged
// and no round/completion transition is being carried.
func mergeSession(held, incoming *domain.GameSession) *domain.GameSession {
	if incoming == nil {
		// Tolerate partial snapshots; an active session is never destroyed
		// by an envelope that simply omits it.
		return held
	}
	if held != nil && held.SameRules(incoming) &&
		held.CurrentRound == incoming.CurrentRound &&
		held.IsCompleted == incoming.IsCompleted {
		return held
	}
	return incoming
}
