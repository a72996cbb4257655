// Package viewstate holds the gallery's view state and the pure transitions over it.
//
// Every cross-cutting rule lives in Reduce: leaving or switching the detail view
// tears down all audio scoped to it, and a new narration supersedes the old one.
// Side effects are returned as Effect values for the caller to execute.
package viewstate

import (
	"github.com/google/uuid"
)

// Tab is the detail view tab.
type Tab string

const (
	TabFiction Tab = "fiction"
	TabFact    Tab = "fact"
)

// NarrationStatus is the narration playback state.
type NarrationStatus string

const (
	NarrationIdle       NarrationStatus = "idle"
	NarrationGenerating NarrationStatus = "generating"
	NarrationPlaying    NarrationStatus = "playing"
)

// Narration tracks the in-flight request and the playback reference in use.
type Narration struct {
	Status      NarrationStatus `json:"status"`
	RequestID   *uuid.UUID      `json:"request_id,omitempty"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"`
	URL         string          `json:"url,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// State is the complete, serialisable view state of one visitor session.
type State struct {
	SelectedStoryID *uuid.UUID `json:"selected_story_id,omitempty"`
	ActiveTab       Tab        `json:"active_tab"`
	CreateOpen      bool       `json:"create_open"`
	Prompt          string     `json:"prompt"`
	GeneratingStory bool       `json:"generating_story"`
	StoryRequestID  *uuid.UUID `json:"story_request_id,omitempty"`
	StoryError      string     `json:"story_error,omitempty"`
	Narration       Narration  `json:"narration"`
	AmbientPlaying  bool       `json:"ambient_playing"`
}

// Initial returns the state of a fresh session: gallery grid, nothing playing.
func Initial() State {
	return State{
		ActiveTab: TabFiction,
		Narration: Narration{Status: NarrationIdle},
	}
}

// DetailOpen reports whether a story is selected.
func (s State) DetailOpen() bool {
	return s.SelectedStoryID != nil
}

// ActionType names a transition.
type ActionType string

const (
	ActionSelectStory        ActionType = "select_story"
	ActionCloseStory         ActionType = "close_story"
	ActionSetTab             ActionType = "set_tab"
	ActionOpenCreate         ActionType = "open_create"
	ActionCloseCreate        ActionType = "close_create"
	ActionSetPrompt          ActionType = "set_prompt"
	ActionStoryRequested     ActionType = "story_requested"
	ActionStoryGenerated     ActionType = "story_generated"
	ActionStoryFailed        ActionType = "story_failed"
	ActionNarrationRequested ActionType = "narration_requested"
	ActionNarrationReady     ActionType = "narration_ready"
	ActionNarrationFailed    ActionType = "narration_failed"
	ActionNarrationStopped   ActionType = "narration_stopped"
	ActionNarrationEnded     ActionType = "narration_ended"
	ActionToggleAmbient      ActionType = "toggle_ambient"
)

// Action is a transition request. Only the fields its Type uses are read.
type Action struct {
	Type        ActionType `json:"type"`
	StoryID     *uuid.UUID `json:"story_id,omitempty"`
	Tab         Tab        `json:"tab,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
	RequestID   *uuid.UUID `json:"request_id,omitempty"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"`
	URL         string     `json:"url,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// EffectType names a side effect the owner of the state must perform.
type EffectType string

const (
	EffectCancelRequest    EffectType = "cancel_request"
	EffectReleaseReference EffectType = "release_reference"
	EffectStopAmbient      EffectType = "stop_ambient"
)

// Effect is a side effect produced by a transition.
type Effect struct {
	Type EffectType `json:"type"`
	ID   uuid.UUID  `json:"id,omitempty"`
}

// ValidAction reports whether t is a known action type.
func ValidAction(t ActionType) bool {
	switch t {
	case ActionSelectStory, ActionCloseStory, ActionSetTab, ActionOpenCreate, ActionCloseCreate,
		ActionSetPrompt, ActionStoryRequested, ActionStoryGenerated, ActionStoryFailed,
		ActionNarrationRequested, ActionNarrationReady, ActionNarrationFailed,
		ActionNarrationStopped, ActionNarrationEnded, ActionToggleAmbient:
		return true
	}
	return false
}
