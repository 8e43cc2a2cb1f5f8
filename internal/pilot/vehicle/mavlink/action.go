package mavlink

import (
	"context"
	"fmt"
	"math"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
)

// forceDisarm is the ARM_DISARM param2 magic that disarms in flight.
const forceDisarm = 21196

var nan = float32(math.NaN())

func (v *Vehicle) Arm(ctx context.Context) error {
	return v.command(ctx, "arm", common.MAV_CMD_COMPONENT_ARM_DISARM, 1)
}

func (v *Vehicle) Takeoff(ctx context.Context) error {
	return v.command(ctx, "takeoff", common.MAV_CMD_NAV_TAKEOFF, -1, 0, 0, nan, nan, nan, nan)
}

func (v *Vehicle) Land(ctx context.Context) error {
	return v.command(ctx, "land", common.MAV_CMD_NAV_LAND, 0, 0, 0, nan, nan, nan, nan)
}

func (v *Vehicle) ReturnToLaunch(ctx context.Context) error {
	return v.command(ctx, "return_to_launch", common.MAV_CMD_NAV_RETURN_TO_LAUNCH)
}

func (v *Vehicle) Hold(ctx context.Context) error {
	return v.setMode(ctx, "hold", px4Auto, px4AutoLoiter)
}

func (v *Vehicle) Kill(ctx context.Context) error {
	return v.command(ctx, "kill", common.MAV_CMD_COMPONENT_ARM_DISARM, 0, forceDisarm)
}

func (v *Vehicle) setMode(ctx context.Context, action string, mainMode, subMode uint8) error {
	return v.command(ctx, action, common.MAV_CMD_DO_SET_MODE,
		float32(common.MAV_MODE_FLAG_CUSTOM_MODE_ENABLED), float32(mainMode), float32(subMode))
}

// command sends COMMAND_LONG and waits for its ACK, retrying unanswered
// attempts. A refusal is returned as *core.ActionError.
func (v *Vehicle) command(ctx context.Context, action string, cmd common.MAV_CMD, params ...float32) error {
	l, system, component, err := v.session()
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	var p [7]float32
	copy(p[:], params)

	ch := make(chan *common.MessageCommandAck, 1)
	v.mu.Lock()
	v.acks[cmd] = ch
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		if v.acks[cmd] == ch {
			delete(v.acks, cmd)
		}
		v.mu.Unlock()
	}()

	for attempt := 0; attempt < v.attempts; attempt++ {
		msg := &common.MessageCommandLong{
			TargetSystem:    system,
			TargetComponent: component,
			Command:         cmd,
			Confirmation:    uint8(attempt),
			Param1:          p[0],
			Param2:          p[1],
			Param3:          p[2],
			Param4:          p[3],
			Param5:          p[4],
			Param6:          p[5],
			Param7:          p[6],
		}
		if err := l.WriteMessageAll(msg); err != nil {
			return fmt.Errorf("%s: %w", action, err)
		}

		ack, err := v.awaitAck(ctx, ch)
		if err != nil {
			return fmt.Errorf("%s: %w", action, err)
		}
		if ack == nil {
			v.logger.Debug("No acknowledgement", "action", action, "attempt", attempt+1)
			continue
		}
		if ack.Result != common.MAV_RESULT_ACCEPTED {
			return core.Reject(action, resultName(ack.Result))
		}
		return nil
	}
	return core.Reject(action, "TIMEOUT")
}

// awaitAck returns the final ACK, or nil if the attempt timed out.
// IN_PROGRESS acks restart the attempt timer.
func (v *Vehicle) awaitAck(ctx context.Context, ch <-chan *common.MessageCommandAck) (*common.MessageCommandAck, error) {
	timer := v.clock.NewTimer(v.ackTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C():
			return nil, nil
		case ack := <-ch:
			if ack.Result != common.MAV_RESULT_IN_PROGRESS {
				return ack, nil
			}
			timer.Reset(v.ackTimeout)
		}
	}
}
