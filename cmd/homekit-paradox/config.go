package main

import (
	"fmt"
	"time"

	"github.com/brutella/hap/characteristic"
	client "github.com/dmoraes/homekit-paradox"
	"golang.org/x/exp/slices"
)

type Config struct {
	Host         string        `env:"HOST,notEmpty"`
	Port         int           `env:"PORT"          envDefault:"80"`
	Model        string        `env:"MODEL"         envDefault:"HD77"`
	Name         string        `env:"NAME"          envDefault:"Paradox"`
	Password     string        `env:"PASSWORD"      envDefault:"paradox"`
	Username     string        `env:"USERNAME"      envDefault:"master"`
	Usercode     string        `env:"USERCODE"      envDefault:"1234"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	Timeout      time.Duration `env:"TIMEOUT"       envDefault:"10s"`
	Channel      string        `env:"CHANNEL"       envDefault:"Normal"`
	FFmpegArgs   string        `env:"FFMPEG_ARGS"   envDefault:"-pred 1"`
	HiddenAreas  []int         `env:"HIDE_AREAS"`
	Address      string        `env:"LISTEN"        envDefault:":8000"`
}

func (c Config) tier() (client.ChannelTier, error) {
	t := client.ChannelTier(c.Channel)
	if !t.Valid() {
		return "", fmt.Errorf(
			"invalid channel profile %q, must be one of %v",
			c.Channel,
			[]client.ChannelTier{client.TierLow, client.TierNormal, client.TierHigh},
		)
	}
	return t, nil
}

func (c Config) showArea(id int) bool {
	return !slices.Contains(c.HiddenAreas, id)
}

// areaState maps a module area onto a homekit security system state.
// Returns -1 for transitional levels (arming) so the current state is
// left alone until the next poll settles it.
func areaState(area client.Area) int {
	if area.InAlarm {
		return characteristic.SecuritySystemCurrentStateAlarmTriggered
	}
	switch area.ArmingLevel {
	case client.LevelDisarmed:
		return characteristic.SecuritySystemCurrentStateDisarmed
	case client.LevelArmedAway:
		return characteristic.SecuritySystemCurrentStateAwayArm
	case client.LevelArmedHome:
		return characteristic.SecuritySystemCurrentStateStayArm
	}
	return -1
}

func areaName(area client.Area) string {
	if area.Label != "" {
		return area.Label
	}
	return fmt.Sprintf("Area %d", area.ID)
}
