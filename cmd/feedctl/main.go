package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// ============================================================================
// feedctl - Command-line IPC Client
// ============================================================================
// This tool sends actions to the scrollfeed daemon via IPC.
//
// Usage:
//   feedctl wheel 240
//   feedctl dial -3
//   feedctl reset
//   feedctl set-value 12
//   feedctl resize 1080
//   feedctl snapshot
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/scrollfeed.sock)
// ============================================================================

// Action types (duplicated from the daemon for a standalone binary)
type Action interface{}

type WheelScroll struct {
	Pixels float64 `json:"pixels"`
}

type DialTurn struct {
	Detents int `json:"detents"`
}

type ResetDistance struct{}

type SetValue struct {
	Value float64 `json:"value"`
}

type Resize struct {
	Height float64 `json:"height"`
}

type RequestSnapshot struct{}

// ActionEnvelope wraps actions for JSON
type ActionEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response. Data is kept raw and printed as-is.
type IPCResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

const ipcTimeout = 3 * time.Second

func main() {
	socketPath := "/tmp/scrollfeed.sock"

	// Parse arguments
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag
	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	action, err := parseCommand(args)
	if errors.Is(err, errHelp) {
		printUsage()
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	resp, err := sendAction(socketPath, action)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.Data) == 0 {
		fmt.Println("ok")
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Data, "", "  "); err != nil {
		fmt.Println(string(resp.Data))
		return
	}
	fmt.Println(pretty.String())
}

var errHelp = errors.New("help requested")

// parseCommand maps a command line onto an action.
func parseCommand(args []string) (Action, error) {
	arg := func(what string) (string, error) {
		if len(args) < 2 {
			return "", fmt.Errorf("%s requires %s", args[0], what)
		}
		return args[1], nil
	}
	float := func(what string) (float64, error) {
		s, err := arg(what)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %v", what, err)
		}
		return v, nil
	}

	switch args[0] {
	case "wheel", "scroll":
		px, err := float("a pixel delta")
		if err != nil {
			return nil, err
		}
		return WheelScroll{Pixels: px}, nil

	case "dial":
		s, err := arg("a detent count")
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid detent count: %v", err)
		}
		return DialTurn{Detents: n}, nil

	case "reset":
		return ResetDistance{}, nil

	case "set-value", "set":
		v, err := float("a value")
		if err != nil {
			return nil, err
		}
		return SetValue{Value: v}, nil

	case "resize":
		h, err := float("a height")
		if err != nil {
			return nil, err
		}
		if h <= 0 {
			return nil, fmt.Errorf("height must be > 0")
		}
		return Resize{Height: h}, nil

	case "snapshot", "status":
		return RequestSnapshot{}, nil

	case "help", "-h", "--help":
		return nil, errHelp

	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func sendAction(socketPath string, action Action) (IPCResponse, error) {
	// Connect to socket
	conn, err := net.DialTimeout("unix", socketPath, ipcTimeout)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ipcTimeout))

	// Marshal action
	data, err := marshalAction(action)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("marshal action: %w", err)
	}

	// Send action (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return IPCResponse{}, fmt.Errorf("send action: %w", err)
	}

	// Read response
	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if response.Status == "error" {
		return response, fmt.Errorf("daemon error: %s", response.Error)
	}

	return response, nil
}

func marshalAction(action Action) ([]byte, error) {
	var env ActionEnvelope

	withData := func(typ string, v any) error {
		env.Type = typ
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %T: %w", v, err)
		}
		env.Data = data
		return nil
	}

	var err error
	switch a := action.(type) {
	case WheelScroll:
		err = withData("wheel", a)
	case DialTurn:
		err = withData("dial", a)
	case SetValue:
		err = withData("set_value", a)
	case Resize:
		err = withData("resize", a)
	case ResetDistance:
		env.Type = "reset_distance"
	case RequestSnapshot:
		env.Type = "snapshot"
	default:
		return nil, fmt.Errorf("unknown action type: %T", action)
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `feedctl - Control the scrollfeed daemon via IPC

Usage:
  feedctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/scrollfeed.sock)

Commands:
  wheel, scroll <px>      Scroll by a pixel delta (negative scrolls back)
  dial <detents>          Turn the dial (negative = counter-clockwise)
  reset                   Zero the signed and absolute distance
  set-value, set <v>      Replace the step value
  resize <px>             Set the viewport height
  snapshot, status        Print the daemon state as JSON
  help, -h, --help        Show this help message

Examples:
  feedctl wheel 600
  feedctl snapshot
  feedctl -socket /run/scrollfeed.sock reset
`)
}
