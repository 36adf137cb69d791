package resolution

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-resolution/internal/hydrate"
)

var actionDecoder = hydrate.NewDecoder[Action](
	hydrate.WithPreHook[Action](normalizeActionType),
	hydrate.WithUseNumber[Action](),
	hydrate.WithDisallowUnknownFields[Action](),
	hydrate.WithPostHook[Action](func(_ hydrate.Context, action *Action) error {
		return action.Validate()
	}),
)

// EncodeAction renders action as JSON using the wire field names
// (type, selectorName, args, argsList, error, errors).
func EncodeAction(action Action) ([]byte, error) {
	raw, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("resolution: encode %s: %w", action.Type, err)
	}
	return raw, nil
}

// DecodeAction parses a JSON action and validates it. Numbers in args decode
// as json.Number so integer ids keep their exact text.
func DecodeAction(raw []byte) (Action, error) {
	return actionDecoder.DecodeBytes(hydrate.Context{Source: "action"}, raw)
}

// DecodeActionMap converts a generic payload, such as one already parsed by a
// transport, into an Action. payload is not modified.
func DecodeActionMap(payload map[string]any) (Action, error) {
	return actionDecoder.Decode(hydrate.Context{Source: "action map"}, payload)
}

// MarshalJSON writes Error and Errors entries that implement error as their
// message, since error values have no JSON form of their own. Other failure
// values are encoded as-is.
func (a Action) MarshalJSON() ([]byte, error) {
	type wire Action
	out := wire(a)
	out.Error = errorText(a.Error)
	if a.Errors != nil {
		out.Errors = make([]any, len(a.Errors))
		for i, err := range a.Errors {
			out.Errors[i] = errorText(err)
		}
	}
	return json.Marshal(out)
}

func errorText(value any) any {
	if err, ok := value.(error); ok && err != nil {
		return err.Error()
	}
	return value
}

func normalizeActionType(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	raw, ok := payload["type"]
	if !ok {
		return nil, fmt.Errorf("%w: missing type", ErrUnknownAction)
	}
	name, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: type must be a string, got %T", ErrUnknownAction, raw)
	}
	payload["type"] = strings.ToUpper(strings.TrimSpace(name))
	return payload, nil
}
