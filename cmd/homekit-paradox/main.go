package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/caarlos0/env/v11"
	"github.com/cenkalti/backoff/v4"
	logp "github.com/charmbracelet/log"
	client "github.com/dmoraes/homekit-paradox"
	"github.com/dmoraes/homekit-paradox/pdxip"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed index.html
var index []byte

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "homekit",
})

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	log.Info(
		"homekit-paradox",
		"version", version,
		"commit", commit,
		"date", date,
		"info", "Homekit bridge for Paradox IP camera/alarm modules",
	)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(
			"could not parse env",
			"err",
			strings.TrimPrefix(strings.ReplaceAll(err.Error(), "; ", "\n"), "env: ")+"\n",
		)
	}
	tier, err := cfg.tier()
	if err != nil {
		log.Fatal("could not load config", "err", err)
	}

	transport, err := pdxip.NewForModel(cfg.Model, pdxip.Options{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Username: cfg.Username,
		Usercode: cfg.Usercode,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		log.Fatal("could not init module client", "err", err)
	}

	macAddr, err := pdxip.MacAddress(cfg.Host)
	if err != nil {
		log.Warn(
			"could not get the mac address, needs 'cap_net_raw+ep' capabilities",
			"err", err,
		)
	}

	device := client.New(client.Config{
		Name:  cfg.Name,
		Model: cfg.Model,
		MAC:   macAddr,
	}, transport)

	// setup-time auth failures are final, everything else keeps the
	// device around and retries until the module shows up
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0
	if err := backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if err := device.Setup(ctx); err != nil {
			return backoff.Permanent(err)
		}
		if !device.Available() {
			return fmt.Errorf("module %q is not ready", cfg.Name)
		}
		return nil
	}, bo, func(err error, next time.Duration) {
		log.Warn("module not ready, will retry", "in", next, "err", err)
	}); err != nil {
		log.Fatal("could not set up device", "err", err)
	}

	info := device.ModuleInfo()
	log.Info(
		"got module information",
		"manufacturer", info.Manufacturer,
		"model", info.Model,
		"version", info.Version,
		"serial", info.Serial,
		"mac", macAddr,
	)
	if panel, ok := device.PanelInfo(); ok {
		log.Info(
			"got control panel information",
			"name", panel.Name,
			"version", panel.Version,
			"serial", panel.Serial,
		)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), cfg.Timeout)
	areas, err := device.Update(initCtx)
	initCancel()
	if err != nil {
		log.Fatal("could not fetch initial status", "err", err)
	}

	bridge := accessory.NewBridge(accessory.Info{
		Name:         cfg.Name + " Bridge",
		Manufacturer: client.Manufacturer,
		Firmware:     version,
	})

	poller := client.NewPoller(device, cfg.PollInterval)

	var alarms []*AreaAlarm
	for _, area := range areas {
		if !cfg.showArea(area.ID) {
			continue
		}
		a := newAreaAlarm(accessory.Info{
			Name:         areaName(area),
			SerialNumber: fmt.Sprintf("%s-%d", info.Serial, area.ID),
			Manufacturer: client.Manufacturer,
			Model:        info.Model,
			Firmware:     info.Version,
		}, area.ID, device, poller, cfg.Timeout)
		a.Id = uint64(area.ID + 2)
		a.Update(area)
		alarms = append(alarms, a)
	}
	log.Info("loaded areas", "count", len(alarms))

	recBtn := setupRecordingSwitch(device, cfg.Timeout)
	recBtn.Id = 100

	var mu sync.Mutex
	latest := areas

	poller.OnUpdate = func(areas []client.Area) {
		mu.Lock()
		latest = areas
		mu.Unlock()
		availableGauge.Set(boolAs[float64](device.Available()))
		for _, alarm := range alarms {
			if area, ok := findArea(areas, alarm.areaID); ok {
				alarm.Update(area)
			}
		}
	}
	poller.OnError = func(err error) {
		pollErrorCounter.Inc()
		availableGauge.Set(boolAs[float64](device.Available()))
		log.Error("could not update status", "err", err)
	}

	fs := hap.NewFsStore("./db")
	server, err := hap.NewServer(fs, bridge.A, bridgedAccessories(alarms, recBtn)...)
	if err != nil {
		log.Fatal("fail to create server", "error", err)
	}
	server.Addr = cfg.Address
	server.ServeMux().Handle("/metrics", promhttp.Handler())
	server.ServeMux().Handle("/stream", streamHandler(device, tier, cfg.Timeout))
	server.ServeMux().Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		areas := latest
		mu.Unlock()

		type pageArea struct {
			ID      int
			Name    string
			State   string
			InAlarm bool
		}
		var hAreas []pageArea
		for _, area := range areas {
			hAreas = append(hAreas, pageArea{
				ID:      area.ID,
				Name:    areaName(area),
				State:   stateName(area),
				InAlarm: area.InAlarm,
			})
		}

		tpl := template.Must(template.New("index").Parse(string(index)))
		_ = tpl.Execute(w, struct {
			Name       string
			Model      string
			Version    string
			Serial     string
			Available  bool
			Areas      []pageArea
			Tier       client.ChannelTier
			FFmpegArgs string
		}{
			Name:       cfg.Name,
			Model:      info.Model,
			Version:    info.Version,
			Serial:     info.Serial,
			Available:  device.Available(),
			Areas:      hAreas,
			Tier:       tier,
			FFmpegArgs: cfg.FFmpegArgs,
		})
	}))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-c
		log.Info("stopping server")
		signal.Stop(c)
		cancel()
	}()

	go poller.Run(ctx)

	log.Info("starting server", "addr", server.Addr)
	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("failed to close server", "err", err)
	}
}

func bridgedAccessories(alarms []*AreaAlarm, recBtn *accessory.Switch) []*accessory.A {
	result := []*accessory.A{recBtn.A}
	for _, a := range alarms {
		result = append(result, a.A)
	}
	return result
}

func findArea(areas []client.Area, id int) (client.Area, bool) {
	for _, area := range areas {
		if area.ID == id {
			return area, true
		}
	}
	return client.Area{}, false
}

func stateName(area client.Area) string {
	if area.InAlarm {
		return "Alarm Triggered"
	}
	switch area.ArmingLevel {
	case client.LevelDisarmed:
		return "Disarmed"
	case client.LevelArmedAway:
		return "Armed: Away"
	case client.LevelArmedHome:
		return "Armed: Home"
	case client.LevelArming:
		return "Arming"
	}
	return "Unknown"
}

func boolAs[T int | float64](b bool) T {
	if b {
		return 1
	}
	return 0
}
