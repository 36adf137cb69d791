package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies where a payload came from so errors can name it.
type Context struct {
	Source string
}

func (c Context) label() string {
	if c.Source == "" {
		return "<unknown>"
	}
	return c.Source
}

// PreHook may rewrite the generic payload before it is decoded. Returning nil
// keeps the current payload.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook inspects or adjusts the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder turns loosely typed payloads (raw JSON or generic maps) into T,
// running hooks around the JSON decoding step.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	useNumber    bool
	strictFields bool
}

// WithPreHook adds a hook run before decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.preHooks = append(d.preHooks, hook)
		}
	}
}

// WithPostHook adds a hook run after decoding.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.postHooks = append(d.postHooks, hook)
		}
	}
}

// WithUseNumber keeps numbers as json.Number instead of float64.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.useNumber = true
	}
}

// WithDisallowUnknownFields rejects payload keys T does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strictFields = true
	}
}

// NewDecoder builds a Decoder.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// DecodeBytes decodes a raw JSON object.
func (d *Decoder[T]) DecodeBytes(ctx Context, raw []byte) (T, error) {
	var zero T
	payload, err := d.parse(raw)
	if err != nil {
		return zero, fmt.Errorf("hydrate: parse %s: %w", ctx.label(), err)
	}
	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is null for %s", ctx.label())
	}
	return d.decode(ctx, payload)
}

// Decode decodes an already parsed payload. The payload is copied before hooks
// run, so the caller's map is never modified.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for %s", ctx.label())
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: copy payload for %s: %w", ctx.label(), err)
	}
	copied, err := d.parse(raw)
	if err != nil {
		return zero, fmt.Errorf("hydrate: copy payload for %s: %w", ctx.label(), err)
	}
	return d.decode(ctx, copied)
}

func (d *Decoder[T]) decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	for _, hook := range d.preHooks {
		next, err := hook(ctx, payload)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx.label(), err)
		}
		if next != nil {
			payload = next
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: marshal payload for %s: %w", ctx.label(), err)
	}
	decoder := d.newJSONDecoder(raw)
	if d.strictFields {
		decoder.DisallowUnknownFields()
	}
	var result T
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("hydrate: decode %s: %w", ctx.label(), err)
	}

	for _, hook := range d.postHooks {
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %s failed: %w", ctx.label(), err)
		}
	}
	return result, nil
}

func (d *Decoder[T]) parse(raw []byte) (map[string]any, error) {
	var payload map[string]any
	if err := d.newJSONDecoder(raw).Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (d *Decoder[T]) newJSONDecoder(raw []byte) *json.Decoder {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	if d.useNumber {
		decoder.UseNumber()
	}
	return decoder
}
