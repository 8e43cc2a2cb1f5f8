package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
	"github.com/autopeer-io/dronecontrol/internal/pilot/movement"
)

// Request is the wire form of a command, shared by the MQTT and HTTP ingress.
//
//	{"command": "move_body_velocity", "params": {"right": 1, "seconds": 2}, "interrupt": true}
//
// An empty command with interrupt set only clears the queue.
type Request struct {
	Command   string          `json:"command"`
	Params    json.RawMessage `json:"params,omitempty"`
	Interrupt bool            `json:"interrupt,omitempty"`
}

type takeoffParams struct {
	CheckState *bool `json:"checkState"`
}

// MaxMoveDuration bounds a timed body move.
const MaxMoveDuration = time.Hour

type moveParams struct {
	movement.Velocity
	Seconds float64 `json:"seconds"`
}

type parser func(params json.RawMessage) (Command, error)

func fixed(c Command) parser {
	return func(json.RawMessage) (Command, error) { return c, nil }
}

var parsers = map[string]parser{
	NameTakeoff: func(raw json.RawMessage) (Command, error) {
		var p takeoffParams
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		check := true
		if p.CheckState != nil {
			check = *p.CheckState
		}
		return Takeoff{CheckState: check}, nil
	},
	NameLand:              fixed(Land{}),
	NameReturnHome:        fixed(ReturnHome{}),
	NameHold:              fixed(Hold{}),
	NameKill:              fixed(Kill{}),
	NameStartOffboard:     fixed(StartOffboard{}),
	NameStopOffboard:      fixed(StopOffboard{}),
	NameToggleOffboard:    fixed(ToggleOffboard{}),
	NameToggleTakeoffLand: fixed(ToggleTakeoffLand{}),
	NameSetVelocity: func(raw json.RawMessage) (Command, error) {
		var v movement.Velocity
		if err := decode(raw, &v); err != nil {
			return nil, err
		}
		return SetVelocity{Velocity: v}, nil
	},
	NameMoveBodyVelocity: func(raw json.RawMessage) (Command, error) {
		p := moveParams{Seconds: 1}
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if math.IsNaN(p.Seconds) || math.IsInf(p.Seconds, 0) || p.Seconds < 0 {
			return nil, fmt.Errorf("seconds must be a non-negative number, got %v", p.Seconds)
		}
		if p.Seconds > MaxMoveDuration.Seconds() {
			return nil, fmt.Errorf("seconds must not exceed %v, got %v", MaxMoveDuration.Seconds(), p.Seconds)
		}
		return MoveBodyVelocity{
			Velocity: p.Velocity,
			Duration: time.Duration(p.Seconds * float64(time.Second)),
		}, nil
	},
	NameSetPositionNedYaw: func(raw json.RawMessage) (Command, error) {
		var p core.PositionNedYaw
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, fmt.Errorf("%s needs a position", NameSetPositionNedYaw)
		}
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		return SetPositionNedYaw{Position: p}, nil
	},
}

func init() {
	for _, d := range []movement.Direction{
		movement.YawRight, movement.YawLeft,
		movement.Forward, movement.Backward,
		movement.Right, movement.Left,
		movement.Up, movement.Down,
	} {
		m := Move{Direction: d}
		parsers[m.Name()] = fixed(m)
	}
}

// Parse builds the command called name from its JSON parameters.
func Parse(name string, params json.RawMessage) (Command, error) {
	p, ok := parsers[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", name)
	}
	cmd, err := p(params)
	if err != nil {
		return nil, fmt.Errorf("invalid params for %s: %w", name, err)
	}
	return cmd, nil
}

// Build resolves the request. A pure clear yields a nil Command.
func (r Request) Build() (Command, error) {
	if strings.TrimSpace(r.Command) == "" {
		if !r.Interrupt {
			return nil, errors.New("request names no command")
		}
		return nil, nil
	}
	return Parse(r.Command, r.Params)
}

// Names lists every command Parse accepts, sorted.
func Names() []string {
	names := make([]string, 0, len(parsers))
	for n := range parsers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func decode(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
