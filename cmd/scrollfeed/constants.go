package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_REL = 0x02
	EV_ABS = 0x03

	SYN_REPORT = 0

	KEY_HOME     = 102
	KEY_UP       = 103
	KEY_PAGEUP   = 104
	KEY_DOWN     = 108
	KEY_PAGEDOWN = 109

	// Relative axis codes
	REL_DIAL         = 0x07
	REL_WHEEL        = 0x08
	REL_WHEEL_HI_RES = 0x0b

	// Multi-touch protocol B
	ABS_MT_SLOT        = 0x2f
	ABS_MT_POSITION_X  = 0x35
	ABS_MT_POSITION_Y  = 0x36
	ABS_MT_TRACKING_ID = 0x39
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// One REL_WHEEL detent is reported as this many REL_WHEEL_HI_RES units.
const hiResUnitsPerDetent = 120

// Daemon defaults
const (
	defaultFrameHz          = 60
	defaultWheelPixels      = 120.0 // feed px per wheel detent
	defaultFetchTimeoutMS   = 10000
	defaultListen           = "127.0.0.1:8088"
	defaultIPCSocket        = "/tmp/scrollfeed.sock"
	defaultMetersPerCard    = 10.0
	defaultCardLifetime     = 1.0  // meters a card stays visible
	defaultNotifyMargin     = 0.5  // meters before the next spawn the notification ends
	defaultMilestoneMeters  = 50.0 // meters between milestone broadcasts
	defaultRandomMinMeters  = 5.0
	defaultRandomMaxMeters  = 15.0
	actionQueueSize         = 64
	broadcastQueueSize      = 256
	snapshotReplyTimeoutSec = 1
)
