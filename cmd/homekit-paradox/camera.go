package main

import (
	"context"
	"net/http"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	client "github.com/dmoraes/homekit-paradox"
)

func setupRecordingSwitch(device *client.Device, timeout time.Duration) *accessory.Switch {
	a := accessory.NewSwitch(accessory.Info{
		Name:         "Record on Demand",
		Manufacturer: client.Manufacturer,
	})
	a.Switch.On.SetValueRequestFunc = func(value interface{}, _ *http.Request) (response interface{}, code int) {
		v := value.(bool)
		log.Info("record on demand", "enable", v)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		ok, err := device.SetRecording(ctx, v)
		if err != nil {
			log.Error("could not set record on demand", "enable", v, "err", err)
			return nil, hap.JsonStatusResourceBusy
		}
		if !ok {
			log.Error("module refused record on demand", "enable", v)
			return nil, hap.JsonStatusInvalidValueInRequest
		}
		return nil, hap.JsonStatusSuccess
	}
	return a
}

// streamHandler redirects viewers to the stream variant matching the
// configured channel profile.
func streamHandler(
	device *client.Device,
	tier client.ChannelTier,
	timeout time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		uri, err := device.StreamSource(ctx, tier)
		if err != nil {
			http.Error(w, "stream unavailable", http.StatusBadGateway)
			return
		}
		if uri == "" {
			http.Error(w, "no stream for the configured channel profile", http.StatusNotFound)
			return
		}
		http.Redirect(w, r, uri, http.StatusFound)
	}
}
