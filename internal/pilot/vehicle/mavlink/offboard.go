package mavlink

import (
	"context"
	"fmt"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/autopeer-io/dronecontrol/internal/pilot/core"
)

const (
	ignorePosition = common.POSITION_TARGET_TYPEMASK_X_IGNORE |
		common.POSITION_TARGET_TYPEMASK_Y_IGNORE |
		common.POSITION_TARGET_TYPEMASK_Z_IGNORE
	ignoreVelocity = common.POSITION_TARGET_TYPEMASK_VX_IGNORE |
		common.POSITION_TARGET_TYPEMASK_VY_IGNORE |
		common.POSITION_TARGET_TYPEMASK_VZ_IGNORE
	ignoreAccel = common.POSITION_TARGET_TYPEMASK_AX_IGNORE |
		common.POSITION_TARGET_TYPEMASK_AY_IGNORE |
		common.POSITION_TARGET_TYPEMASK_AZ_IGNORE

	velocityMask = ignorePosition | ignoreAccel | common.POSITION_TARGET_TYPEMASK_YAW_IGNORE
	positionMask = ignoreVelocity | ignoreAccel | common.POSITION_TARGET_TYPEMASK_YAW_RATE_IGNORE
)

func (v *Vehicle) SetVelocityBody(ctx context.Context, vel core.VelocityBodyYawspeed) error {
	return v.sendSetpoint("set_velocity_body", &common.MessageSetPositionTargetLocalNed{
		CoordinateFrame: common.MAV_FRAME_BODY_NED,
		TypeMask:        velocityMask,
		Vx:              vel.ForwardMS,
		Vy:              vel.RightMS,
		Vz:              vel.DownMS,
		YawRate:         radians(vel.YawspeedDegS),
	})
}

func (v *Vehicle) SetPositionNed(ctx context.Context, p core.PositionNedYaw) error {
	return v.sendSetpoint("set_position_ned", &common.MessageSetPositionTargetLocalNed{
		CoordinateFrame: common.MAV_FRAME_LOCAL_NED,
		TypeMask:        positionMask,
		X:               p.NorthM,
		Y:               p.EastM,
		Z:               p.DownM,
		Yaw:             radians(p.YawDeg),
	})
}

// StartOffboard switches to offboard mode. PX4 refuses the switch unless
// setpoints are already streaming, so one must have been set.
func (v *Vehicle) StartOffboard(ctx context.Context) error {
	v.mu.Lock()
	has := v.setpoint != nil
	v.mu.Unlock()
	if !has {
		return core.Reject("start_offboard", "NO_SETPOINT_SET")
	}
	return v.setMode(ctx, "start_offboard", px4Offboard, 0)
}

// StopOffboard leaves offboard for hold and stops streaming setpoints.
func (v *Vehicle) StopOffboard(ctx context.Context) error {
	if err := v.setMode(ctx, "stop_offboard", px4Auto, px4AutoLoiter); err != nil {
		return err
	}
	v.mu.Lock()
	v.setpoint = nil
	v.mu.Unlock()
	return nil
}

func (v *Vehicle) IsOffboardActive(ctx context.Context) (bool, error) {
	if v.closed.Load() {
		return false, core.ErrSessionClosed
	}
	mode, _ := v.s.mode.Latest()
	return mode == core.FlightModeOffboard, nil
}

func (v *Vehicle) sendSetpoint(action string, sp *common.MessageSetPositionTargetLocalNed) error {
	l, system, component, err := v.session()
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	sp.TargetSystem = system
	sp.TargetComponent = component
	sp.TimeBootMs = v.bootMillis()

	v.mu.Lock()
	v.setpoint = sp
	v.mu.Unlock()

	if err := l.WriteMessageAll(sp); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

// streamSetpoints repeats the latest setpoint so the autopilot does not
// drop out of offboard.
func (v *Vehicle) streamSetpoints(ctx context.Context) {
	ticker := v.clock.NewTicker(v.setpointPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		v.mu.Lock()
		sp, l := v.setpoint, v.link
		if sp != nil {
			cp := *sp
			cp.TimeBootMs = v.bootMillis()
			sp = &cp
		}
		v.mu.Unlock()

		if sp == nil || l == nil {
			continue
		}
		if err := l.WriteMessageAll(sp); err != nil {
			v.logger.Debug("Setpoint write failed", "error", err)
		}
	}
}
