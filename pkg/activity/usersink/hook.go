package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-resolution/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook forwards resolution activity to a go-users ActivitySink so lifecycle
// events land in the same audit trail as user activity.
type Hook struct {
	Sink usertypes.ActivitySink
	// Verbs restricts forwarding to the listed verbs. Empty forwards all,
	// which includes the noisy resolution.started.
	Verbs []string
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || !h.forwards(normalized.Verb) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       copyData(normalized.Metadata),
		OccurredAt: normalized.OccurredAt,
	}
	// go-users keys identities by UUID; anything else is kept as data.
	keepRawID(&record, "actor", record.ActorID, normalized.ActorID)
	keepRawID(&record, "tenant", record.TenantID, normalized.TenantID)

	return h.Sink.Log(ctx, record)
}

func (h Hook) forwards(verb string) bool {
	if len(h.Verbs) == 0 {
		return true
	}
	for _, allowed := range h.Verbs {
		if allowed == verb {
			return true
		}
	}
	return false
}

func keepRawID(record *usertypes.ActivityRecord, field string, parsed uuid.UUID, raw string) {
	if parsed != uuid.Nil || raw == "" {
		return
	}
	if record.Data == nil {
		record.Data = map[string]any{}
	}
	record.Data[field] = raw
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func copyData(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
