package activity

import (
	"fmt"
	"strings"
	"time"
)

const (
	VerbResolutionStarted     = "resolution.started"
	VerbResolutionFinished    = "resolution.finished"
	VerbResolutionFailed      = "resolution.failed"
	VerbResolutionInvalidated = "resolution.invalidated"
	VerbDeprecationNotice     = "deprecation.notice"

	ObjectTypeSelector = "selector"
	ObjectTypeStore    = "store"
	ObjectTypeFeature  = "feature"
)

// ResolutionEventInput carries the fields of a dispatched lifecycle action.
// Action holds the action type tag (START_RESOLUTION, FAIL_RESOLUTIONS, ...).
type ResolutionEventInput struct {
	ActorID      string
	TenantID     string
	Channel      string
	Action       string
	SelectorName string
	Args         []any
	ArgsList     [][]any
	Error        any
	Errors       []any
	Metadata     map[string]any
	OccurredAt   time.Time
}

// BuildResolutionEvent maps a lifecycle action onto an activity event. Action
// types outside the vocabulary produce an event without a verb, which Hooks
// drop.
func BuildResolutionEvent(input ResolutionEventInput) Event {
	action := strings.TrimSpace(input.Action)
	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["action"] = action

	if input.Args != nil {
		metadata["args"] = append([]any(nil), input.Args...)
	}
	if input.ArgsList != nil {
		metadata["batch_size"] = len(input.ArgsList)
	}
	if input.Error != nil {
		metadata["error"] = describeError(input.Error)
	}
	if len(input.Errors) > 0 {
		described := make([]string, 0, len(input.Errors))
		for _, err := range input.Errors {
			described = append(described, describeError(err))
		}
		metadata["errors"] = described
	}

	objectType := ObjectTypeSelector
	objectID := strings.TrimSpace(input.SelectorName)
	if objectID == "" {
		objectType = ObjectTypeStore
		objectID = ObjectTypeStore
	}

	return Event{
		Verb:       resolutionVerb(action),
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// DeprecationEventInput describes a deprecation notice.
type DeprecationEventInput struct {
	Feature     string
	Message     string
	Since       string
	Version     string
	Alternative string
	Channel     string
	OccurredAt  time.Time
}

// BuildDeprecationEvent constructs an event for a deprecation notice.
func BuildDeprecationEvent(input DeprecationEventInput) Event {
	metadata := map[string]any{"message": input.Message}
	if input.Since != "" {
		metadata["since"] = input.Since
	}
	if input.Version != "" {
		metadata["version"] = input.Version
	}
	if input.Alternative != "" {
		metadata["alternative"] = input.Alternative
	}
	return Event{
		Verb:       VerbDeprecationNotice,
		ObjectType: ObjectTypeFeature,
		ObjectID:   strings.TrimSpace(input.Feature),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func resolutionVerb(action string) string {
	switch {
	case strings.HasPrefix(action, "START_RESOLUTION"):
		return VerbResolutionStarted
	case strings.HasPrefix(action, "FINISH_RESOLUTION"):
		return VerbResolutionFinished
	case strings.HasPrefix(action, "FAIL_RESOLUTION"):
		return VerbResolutionFailed
	case strings.HasPrefix(action, "INVALIDATE_RESOLUTION"):
		return VerbResolutionInvalidated
	default:
		return ""
	}
}

func describeError(err any) string {
	switch v := err.(type) {
	case nil:
		return ""
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
