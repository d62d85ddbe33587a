package paradox

import "context"

// UnitInfo is what the login response reports about a single unit.
type UnitInfo struct {
	Model   string
	Serial  string
	Version string
}

// LoginData is the parsed login response. Panel is nil for camera-only
// modules without an attached control panel.
type LoginData struct {
	Module UnitInfo
	Panel  *UnitInfo
}

// Transport performs the authenticated HTTP calls against the module.
// Implementations return *Error so failures keep their classification;
// bare network errors are still understood (see KindOf).
//
// All calls may block on network I/O and must honor ctx.
type Transport interface {
	// Login authenticates with the stored credentials and starts a fresh
	// session.
	Login(ctx context.Context) (*LoginData, error)

	// IsAuthenticated reports whether the current session is believed
	// valid. The module may still reject it; operations detect that
	// through auth-classified errors.
	IsAuthenticated() bool

	// Status fetches the current state of every alarm area.
	Status(ctx context.Context) ([]Area, error)

	// AreaControl submits one or more area commands.
	AreaControl(ctx context.Context, cmds []AreaCommand) error

	// Recording submits a record-on-demand command and returns the raw
	// result code. A non-nil error means the exchange itself failed; the
	// code is meaningful only when err is nil.
	Recording(ctx context.Context, action RecordingAction) (int, error)

	// Manifest fetches the raw multi-bitrate playlist for the tier.
	Manifest(ctx context.Context, tier ChannelTier) (string, error)
}
