package viewstate

import (
	"strings"

	"github.com/google/uuid"
)

// Reduce applies a to s and returns the next state with the effects the
// transition requires. It never mutates s. Unknown or inapplicable actions
// return s unchanged and no effects.
func Reduce(s State, a Action) (State, []Effect) {
	switch a.Type {
	case ActionSelectStory:
		if a.StoryID == nil {
			return s, nil
		}
		return selectStory(s, *a.StoryID)

	case ActionCloseStory:
		if !s.DetailOpen() {
			return s, nil
		}
		next, effects := teardown(s)
		next.SelectedStoryID = nil
		next.ActiveTab = TabFiction
		return next, effects

	case ActionSetTab:
		if a.Tab != TabFiction && a.Tab != TabFact {
			return s, nil
		}
		s.ActiveTab = a.Tab
		return s, nil

	case ActionOpenCreate:
		s.CreateOpen = true
		s.StoryError = ""
		return s, nil

	case ActionCloseCreate:
		var effects []Effect
		if s.StoryRequestID != nil {
			effects = append(effects, Effect{Type: EffectCancelRequest, ID: *s.StoryRequestID})
		}
		s.CreateOpen = false
		s.GeneratingStory = false
		s.StoryRequestID = nil
		return s, effects

	case ActionSetPrompt:
		s.Prompt = a.Prompt
		return s, nil

	case ActionStoryRequested:
		if s.GeneratingStory || a.RequestID == nil || strings.TrimSpace(s.Prompt) == "" {
			return s, nil
		}
		s.GeneratingStory = true
		s.StoryRequestID = copyID(a.RequestID)
		s.StoryError = ""
		return s, nil

	case ActionStoryGenerated:
		if !sameID(s.StoryRequestID, a.RequestID) || a.StoryID == nil {
			return s, nil
		}
		s.GeneratingStory = false
		s.StoryRequestID = nil
		s.CreateOpen = false
		s.Prompt = ""
		return selectStory(s, *a.StoryID)

	case ActionStoryFailed:
		if !sameID(s.StoryRequestID, a.RequestID) {
			return s, nil
		}
		s.GeneratingStory = false
		s.StoryRequestID = nil
		s.StoryError = a.Error
		return s, nil

	case ActionNarrationRequested:
		if !s.DetailOpen() || a.RequestID == nil {
			return s, nil
		}
		switch s.Narration.Status {
		case NarrationPlaying:
			// The narration control toggles: pressing it while playing stops.
			return stopNarration(s)
		case NarrationGenerating:
			return s, nil
		}
		s.Narration = Narration{Status: NarrationGenerating, RequestID: copyID(a.RequestID)}
		return s, nil

	case ActionNarrationReady:
		if a.ReferenceID == nil {
			return s, nil
		}
		if s.Narration.Status != NarrationGenerating || !sameID(s.Narration.RequestID, a.RequestID) {
			// Result of a request the view no longer waits for: release it at once.
			return s, []Effect{{Type: EffectReleaseReference, ID: *a.ReferenceID}}
		}
		var effects []Effect
		if s.Narration.ReferenceID != nil && *s.Narration.ReferenceID != *a.ReferenceID {
			effects = append(effects, Effect{Type: EffectReleaseReference, ID: *s.Narration.ReferenceID})
		}
		s.Narration = Narration{
			Status:      NarrationPlaying,
			ReferenceID: copyID(a.ReferenceID),
			URL:         a.URL,
		}
		return s, effects

	case ActionNarrationFailed:
		if s.Narration.Status != NarrationGenerating || !sameID(s.Narration.RequestID, a.RequestID) {
			return s, nil
		}
		s.Narration = Narration{Status: NarrationIdle, Error: a.Error}
		return s, nil

	case ActionNarrationStopped:
		return stopNarration(s)

	case ActionNarrationEnded:
		if s.Narration.Status != NarrationPlaying {
			return s, nil
		}
		return stopNarration(s)

	case ActionToggleAmbient:
		if !s.DetailOpen() {
			return s, nil
		}
		if s.AmbientPlaying {
			s.AmbientPlaying = false
			return s, []Effect{{Type: EffectStopAmbient}}
		}
		s.AmbientPlaying = true
		return s, nil
	}
	return s, nil
}

// selectStory enters the detail view for id. Switching from another story is
// leaving one detail state and entering another, so scoped audio is torn down.
func selectStory(s State, id uuid.UUID) (State, []Effect) {
	if s.SelectedStoryID != nil && *s.SelectedStoryID == id {
		s.ActiveTab = TabFiction
		return s, nil
	}
	next, effects := teardown(s)
	next.SelectedStoryID = &id
	next.ActiveTab = TabFiction
	return next, effects
}

// teardown cancels the in-flight narration request, releases the current
// reference and stops ambient audio.
func teardown(s State) (State, []Effect) {
	var effects []Effect
	if s.Narration.RequestID != nil {
		effects = append(effects, Effect{Type: EffectCancelRequest, ID: *s.Narration.RequestID})
	}
	if s.Narration.ReferenceID != nil {
		effects = append(effects, Effect{Type: EffectReleaseReference, ID: *s.Narration.ReferenceID})
	}
	if s.AmbientPlaying {
		effects = append(effects, Effect{Type: EffectStopAmbient})
	}
	s.Narration = Narration{Status: NarrationIdle}
	s.AmbientPlaying = false
	return s, effects
}

// stopNarration ends narration whatever its phase, leaving ambient audio alone.
func stopNarration(s State) (State, []Effect) {
	var effects []Effect
	if s.Narration.RequestID != nil {
		effects = append(effects, Effect{Type: EffectCancelRequest, ID: *s.Narration.RequestID})
	}
	if s.Narration.ReferenceID != nil {
		effects = append(effects, Effect{Type: EffectReleaseReference, ID: *s.Narration.ReferenceID})
	}
	s.Narration = Narration{Status: NarrationIdle}
	return s, effects
}

func sameID(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
