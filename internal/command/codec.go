package command

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed command.schema.json
var schemaSource string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("command.schema.json", schemaSource)
	})
	return schema, schemaErr
}

type envelope struct {
	TargetTick uint64          `json:"target_tick"`
	ActorID    uint64          `json:"actor_id"`
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func (c Command) MarshalJSON() ([]byte, error) {
	if c.Payload == nil {
		return nil, fmt.Errorf("command at tick %d has no payload", c.TargetTick)
	}
	body, err := json.Marshal(c.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		TargetTick: c.TargetTick,
		ActorID:    c.ActorID,
		Kind:       c.Payload.Kind(),
		Payload:    body,
	})
}

func (c *Command) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	p, err := decodePayload(env.Kind, env.Payload)
	if err != nil {
		return err
	}
	c.TargetTick = env.TargetTick
	c.ActorID = env.ActorID
	c.Payload = p
	return nil
}

func decodePayload(k Kind, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch k {
	case KindPlaceStructure:
		p = &PlaceStructure{}
	case KindRemoveStructure:
		p = &RemoveStructure{}
	case KindPlaceConveyor:
		p = &PlaceConveyor{}
	case KindConfigureConveyorIO:
		p = &ConfigureConveyorIO{}
	case KindRotateBuilding:
		p = &RotateBuilding{}
	case KindPinRecipe:
		p = &PinRecipe{}
	case KindStartOreSurvey:
		p = &StartOreSurvey{}
	case KindTriggerWave:
		return TriggerWave{}, nil
	case KindExtract:
		return Extract{}, nil
	default:
		return nil, fmt.Errorf("unknown command kind %q", k)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("%s payload: %w", k, err)
		}
	}
	return deref(p), nil
}

// deref turns the decode target back into the value payload the systems
// switch on.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *PlaceStructure:
		return *v
	case *RemoveStructure:
		return *v
	case *PlaceConveyor:
		return *v
	case *ConfigureConveyorIO:
		return *v
	case *RotateBuilding:
		return *v
	case *PinRecipe:
		return *v
	case *StartOreSurvey:
		return *v
	}
	return p
}

// Validate checks one encoded command against the command schema.
func Validate(line []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile command schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		return fmt.Errorf("parse command: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}
	return nil
}

// ParseLog reads a JSON-lines command log. Every line is schema-validated
// before it is decoded; blank lines are skipped.
func ParseLog(r io.Reader) ([]Command, error) {
	var out []Command
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := Validate(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		var c Command
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read command log: %w", err)
	}
	return out, nil
}

// WriteLog writes commands as JSON lines.
func WriteLog(w io.Writer, cmds []Command) error {
	enc := json.NewEncoder(w)
	for _, c := range cmds {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("write command log: %w", err)
		}
	}
	return nil
}
