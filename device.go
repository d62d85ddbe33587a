package paradox

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	logp "github.com/charmbracelet/log"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "paradox",
})

// Config describes one module.
type Config struct {
	// Name is the display name used for the module identity and logs.
	Name string
	// Model is the module model, e.g. "HD77".
	Model string
	// MAC is optional; it is not always discoverable.
	MAC string
}

// Device is the session and command core for a single module. It owns the
// sticky availability flag, the two device identities, and the cached
// stream source. All remote work goes through the Transport.
//
// The host environment may call into a Device from several goroutines at
// once (poll ticker, user commands, stream viewers); the internal mutex
// serializes session transitions so concurrent callers always observe a
// consistent session state.
type Device struct {
	cfg       Config
	transport Transport

	mu           sync.Mutex
	available    bool
	module       Info
	panel        Info
	hasPanel     bool
	streamSource string
}

// New creates a Device around an already configured transport. No network
// I/O happens until Setup.
func New(cfg Config, transport Transport) *Device {
	if cfg.Name == "" {
		cfg.Name = cfg.Model
	}
	return &Device{
		cfg:       cfg,
		transport: transport,
	}
}

// Setup logs into the module and populates both identities.
//
// Transient and unclassified failures are soft: they log, leave the
// device unavailable, and return nil so the host can keep the device
// around and retry later. An auth failure is hard: bad credentials will
// not fix themselves, so Setup returns the error.
func (d *Device) Setup(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := d.transport.Login(ctx)
	if err != nil {
		switch KindOf(err) {
		case KindAuth:
			log.Error(
				"could not connect to device, please verify that the credentials are correct",
				"name", d.cfg.Name,
				"err", err,
			)
			return err
		case KindTransient:
			log.Error("could not connect to device, will retry later", "name", d.cfg.Name, "err", err)
		default:
			log.Error("could not connect to device, unexpected error", "name", d.cfg.Name, "err", err)
		}
		return nil
	}

	d.module = Info{
		Manufacturer: Manufacturer,
		Model:        d.cfg.Model,
		Name:         d.cfg.Name,
		Version:      data.Module.Version,
		Serial:       data.Module.Serial,
		MAC:          d.cfg.MAC,
	}
	d.hasPanel = data.Panel != nil
	if d.hasPanel {
		d.panel = Info{
			Manufacturer: Manufacturer,
			Model:        data.Panel.Model,
			Name:         "Paradox Control Panel",
			Version:      data.Panel.Version,
			Serial:       data.Panel.Serial,
		}
	}
	d.available = true
	return nil
}

// EnsureAuthenticated re-logs-in when the session went stale. It is safe
// to call concurrently: callers serialize on the device mutex and each
// observes the session state left by the previous one.
func (d *Device) EnsureAuthenticated(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureAuthenticated(ctx)
}

// ensureAuthenticated requires d.mu held. A stale session invalidates the
// cached stream source before anything else, so a failed login can never
// leave an old URI behind.
func (d *Device) ensureAuthenticated(ctx context.Context) error {
	if d.transport.IsAuthenticated() {
		return nil
	}
	d.streamSource = ""
	if _, err := d.transport.Login(ctx); err != nil {
		d.noteFailure("could not re-authenticate with device", err)
		return err
	}
	d.available = true
	return nil
}

// noteFailure applies the availability policy for a classified failure
// and logs it. Requires d.mu held.
func (d *Device) noteFailure(msg string, err error) {
	switch KindOf(err) {
	case KindAuth:
		d.available = false
		log.Error(
			msg+", please verify that the credentials are correct",
			"name", d.cfg.Name,
			"err", err,
		)
	case KindTransient:
		log.Error(msg+", will retry later", "name", d.cfg.Name, "err", err)
	default:
		log.Error(msg+", unexpected error", "name", d.cfg.Name, "err", err)
	}
}

// Update fetches a fresh snapshot of all alarm areas.
//
// It intentionally does not call ensureAuthenticated first: the status
// endpoint answers on a stale session. Any failure surfaces as
// ErrUpdateFailed so the poll scheduler can keep its own retry interval;
// there is no retry or backoff in here.
func (d *Device) Update(ctx context.Context) ([]Area, error) {
	areas, err := d.transport.Status(ctx)
	if err != nil {
		d.mu.Lock()
		d.noteFailure("could not fetch alarm panel data from module", err)
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	return areas, nil
}

// SendAreaCommand arms or disarms a single area. The caller decides when
// to refresh status afterwards; the command itself does not.
func (d *Device) SendAreaCommand(ctx context.Context, areaID int, cmd ArmCommand, forceZones bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureAuthenticated(ctx); err != nil {
		return err
	}
	log.Debug("area control", "area", areaID, "command", cmd, "force", forceZones)
	err := d.transport.AreaControl(ctx, []AreaCommand{{
		AreaID:     areaID,
		Command:    cmd,
		ForceZones: forceZones,
	}})
	if err != nil {
		d.noteFailure("could not send command to alarm panel", err)
		return err
	}
	return nil
}

// SetRecording starts or stops record on demand. The module acks the
// HTTP exchange even when it refuses the command, so success is decided
// by the result code alone.
func (d *Device) SetRecording(ctx context.Context, enable bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureAuthenticated(ctx); err != nil {
		return false, err
	}
	action := RecordingStop
	if enable {
		action = RecordingStart
	}
	code, err := d.transport.Recording(ctx, action)
	if err != nil {
		d.noteFailure("could not set record on demand", err)
		return false, err
	}
	return code == RecordingOK, nil
}

// StreamSource resolves the stream URL for the tier. The result is cached
// until the session goes stale; while the cache holds, no manifest is
// fetched. A tier the module does not publish yields an empty source and
// no error.
func (d *Device) StreamSource(ctx context.Context, tier ChannelTier) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureAuthenticated(ctx); err != nil {
		return "", err
	}
	if d.streamSource != "" {
		return d.streamSource, nil
	}

	raw, err := d.transport.Manifest(ctx, tier)
	if err != nil {
		d.noteFailure("could not get stream url from camera", err)
		return "", err
	}
	variants, err := parseManifest(raw)
	if err != nil {
		merr := &Error{Kind: KindUnclassified, Op: "stream source", Err: err}
		d.noteFailure("could not parse camera playlist", merr)
		return "", merr
	}
	uri := selectVariant(variants, tier)
	if uri == "" {
		log.Debug("no playlist variant matches tier", "tier", tier, "bandwidth", tier.Bandwidth())
		return "", nil
	}
	d.streamSource = uri
	return uri, nil
}

// Available reports the sticky last-known-good flag. Once an auth failure
// clears it, only a successful login sets it again.
func (d *Device) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available
}

// Name returns the configured display name.
func (d *Device) Name() string { return d.cfg.Name }

// ModuleInfo returns the module identity populated by Setup.
func (d *Device) ModuleInfo() Info {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.module
}

// PanelInfo returns the control panel identity, if the module has an
// attached alarm panel.
func (d *Device) PanelInfo() (Info, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.panel, d.hasPanel
}
