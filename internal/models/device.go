package models

// Connection modes for the device transport.
const (
	ModeSSH    = ""       // default transport
	ModeTelnet = "telnet" // console server / legacy transport
	ModeSerial = "serial"
)

// ConfirmToken is the literal value action.confirm must carry before any
// device is touched.
const ConfirmToken = "shutdown"

// DeviceConfig holds the connection parameters for one Junos device.
type DeviceConfig struct {
	Host       string
	User       string // defaults to the current OS user
	Password   string // optional; absence implies key-based auth
	KeyPath    string // path to private key file
	PrivateKey []byte // loaded key material, takes precedence over KeyPath
	Port       int    // default 830
	Mode       string // "", "telnet" or "serial"
}

// ActionConfig selects the power operation and its schedule.
type ActionConfig struct {
	Confirm string // must equal ConfirmToken
	Reboot  bool   // true = reboot, false = power off
	InMin   int    // relative delay in minutes, 0 = immediate
	At      string // absolute time yyyymmddhhmm, reboot only
}

// Scheduled reports whether the action leaves the device reachable after
// the command is issued (a future time or a positive delay).
func (a ActionConfig) Scheduled() bool {
	return a.At != "" || a.InMin > 0
}

// ActionResult holds the outcome of a power-off or reboot request.
type ActionResult struct {
	Changed bool   // the device accepted the command
	Reboot  bool   // which operation was issued
	Msg     string // device output for the command
	Error   error
}
