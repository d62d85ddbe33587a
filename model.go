package paradox

// Manufacturer is used for both identities the module reports.
const Manufacturer = "Paradox, Inc"

// Info identifies either the IP module itself or the control panel wired
// behind it. Both come out of the same login response and never change
// for the lifetime of the session.
type Info struct {
	Manufacturer string
	Model        string
	Name         string
	Version      string
	Serial       string
	MAC          string
}

// ArmingLevel values as reported in pingstatus.
const (
	LevelDisarmed  = 0
	LevelArmedAway = 1
	LevelArmedHome = 3
	LevelArming    = 5
)

// Area is one partition of the attached alarm, fresh from the last poll.
// The partition set may change between polls, so consumers look areas up
// by ID instead of by position.
type Area struct {
	ID          int
	Label       string
	ArmingLevel int
	InAlarm     bool
	ReadyToArm  bool
}

// ArmCommand is the module's encoding for area control. The values are
// defined by the module API.
type ArmCommand int

const (
	CommandArmAway ArmCommand = 2
	CommandArmHome ArmCommand = 3
	CommandDisarm  ArmCommand = 6
)

func (c ArmCommand) String() string {
	switch c {
	case CommandArmAway:
		return "arm away"
	case CommandArmHome:
		return "arm home"
	case CommandDisarm:
		return "disarm"
	default:
		return "unknown"
	}
}

// AreaCommand is a single area-control instruction as submitted on the
// wire.
type AreaCommand struct {
	AreaID     int        `json:"AreaID"`
	Command    ArmCommand `json:"AreaCommand"`
	ForceZones bool       `json:"ForceZones"`
}

// RecordingAction is the module's record-on-demand encoding.
type RecordingAction int

const (
	RecordingStart RecordingAction = 3
	RecordingStop  RecordingAction = 4
)

// RecordingOK is the result code the module answers with when a
// record-on-demand command actually took effect. Any other code means
// failure, even when the HTTP exchange itself succeeded.
const RecordingOK = 33816578

// ChannelTier is a named video quality profile. The module publishes one
// playlist variant per tier, keyed by bandwidth.
type ChannelTier string

const (
	TierLow    ChannelTier = "Low"
	TierNormal ChannelTier = "Normal"
	TierHigh   ChannelTier = "High"
)

// Bandwidth is the target bitrate of the tier. Variant selection requires
// an exact match, so these must mirror what the module writes into its
// manifests.
func (t ChannelTier) Bandwidth() int {
	switch t {
	case TierLow:
		return 128000
	case TierNormal:
		return 256000
	case TierHigh:
		return 512000
	default:
		return 0
	}
}

func (t ChannelTier) Valid() bool { return t.Bandwidth() > 0 }
