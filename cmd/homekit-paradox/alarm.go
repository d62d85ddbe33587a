package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	client "github.com/dmoraes/homekit-paradox"
)

// AreaAlarm exposes one alarm area as a homekit security system.
type AreaAlarm struct {
	*accessory.A
	SecuritySystem *service.SecuritySystem

	areaID int
}

func newAreaAlarm(
	info accessory.Info,
	areaID int,
	device *client.Device,
	poller *client.Poller,
	timeout time.Duration,
) *AreaAlarm {
	a := AreaAlarm{areaID: areaID}
	a.A = accessory.New(info, accessory.TypeSecuritySystem)

	a.SecuritySystem = service.NewSecuritySystem()
	a.AddS(a.SecuritySystem.S)

	a.SecuritySystem.SecuritySystemTargetState.SetValueRequestFunc = func(
		value interface{},
		_ *http.Request,
	) (response interface{}, code int) {
		cmd, ok := targetCommand(value.(int))
		if !ok {
			return nil, hap.JsonStatusResourceDoesNotExist
		}
		log.Info("area command", "area", areaID, "command", cmd.String())

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		commandCounter.Inc()
		if err := device.SendAreaCommand(ctx, areaID, cmd, false); err != nil {
			commandErrorCounter.Inc()
			log.Error("could not send command to alarm panel", "area", areaID, "err", err)
			return nil, hap.JsonStatusResourceBusy
		}

		// the module only reflects the new level on the next status
		// fetch, so ask the poller for one right away
		poller.Kick()
		return nil, hap.JsonStatusSuccess
	}

	return &a
}

func targetCommand(state int) (client.ArmCommand, bool) {
	switch state {
	case characteristic.SecuritySystemTargetStateAwayArm:
		return client.CommandArmAway, true
	case characteristic.SecuritySystemTargetStateStayArm,
		characteristic.SecuritySystemTargetStateNightArm:
		return client.CommandArmHome, true
	case characteristic.SecuritySystemTargetStateDisarm:
		return client.CommandDisarm, true
	}
	return 0, false
}

func (a *AreaAlarm) Update(area client.Area) {
	label := strconv.Itoa(area.ID)
	inAlarmGauge.WithLabelValues(label).Set(boolAs[float64](area.InAlarm))

	state := areaState(area)
	if state < 0 {
		return
	}
	areaStateGauge.WithLabelValues(label).Set(float64(state))
	if a.SecuritySystem.SecuritySystemCurrentState.Value() != state {
		err := a.SecuritySystem.SecuritySystemCurrentState.SetValue(state)
		log.Info("set current state", "area", area.ID, "state", state, "err", err)
	}
}
