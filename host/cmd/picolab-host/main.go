package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"picolab/host/instrument"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	fmt.Println("picolab host - logic analyzer / oscilloscope console")
	fmt.Println()

	fmt.Printf("Connecting to %s...\n", *device)
	client, err := instrument.Connect(*device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ident := client.Identity()
	fmt.Printf("Connected: %s %s, %d channels, %d sample buffer\n",
		ident.Name, ident.Version, ident.Channels, ident.BufferCapacity)

	if freq, err := client.ClockFrequency(); err == nil {
		fmt.Printf("Capture clock: %d Hz\n", freq)
	}

	fmt.Println("\nEnter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	// Scales from the most recent scope capture, needed for readout.
	var lastScales []instrument.ChannelScale
	var lastScopeChannels uint8
	var lastScopeSamples uint32

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return

		case "help", "?":
			printHelp()

		case "states":
			states, err := client.LogicStates()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Printf("Inputs: LA4=%d LA3=%d LA2=%d LA1=%d\n",
				states>>3&1, states>>2&1, states>>1&1, states&1)

		case "la":
			if err := runLogicCapture(client, args); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "la_stop":
			if err := client.StopLogicCapture(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "la_progress":
			p, err := client.LogicProgress()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			printProgress(p)

		case "scope":
			scales, channels, samples, err := runScopeCapture(client, args)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			lastScales, lastScopeChannels, lastScopeSamples = scales, channels, samples

		case "scope_status":
			p, err := client.ScopeStatus()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			printProgress(p)

		case "scope_fetch":
			if lastScales == nil {
				fmt.Fprintln(os.Stderr, "Error: no scope capture started")
				continue
			}
			if err := fetchScope(client, lastScales, lastScopeChannels, lastScopeSamples); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "trigger":
			if err := configureTrigger(client, args); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "gain":
			if err := setGain(client, args); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "reset":
			if err := client.Reset(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Println("Device resetting, exiting.")
			return

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", cmd)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  states                           - Read digital input levels")
	fmt.Println("  la <channels> <events> [edge [trig_ch trig_edge]]")
	fmt.Println("                                   - Run a logic capture and print timestamps")
	fmt.Println("                                     edge: any|rising|falling")
	fmt.Println("  la_stop                          - Abort the logic capture in flight")
	fmt.Println("  la_progress                      - Poll logic capture progress")
	fmt.Println("  scope <channels> <samples> <interval_us> - Start an oscilloscope capture")
	fmt.Println("  scope_status                     - Poll oscilloscope progress")
	fmt.Println("  scope_fetch                      - Download and print the last capture")
	fmt.Println("  trigger <ch> <volts> <edge> [timeout_samples] - Arm the scope trigger")
	fmt.Println("  trigger off                      - Disarm the scope trigger")
	fmt.Println("  gain <ch> <1|2|4|5|8|10|16|32>   - Set amplifier gain (CH1/CH2)")
	fmt.Println("  reset                            - Reboot the device")
	fmt.Println("  quit/exit/q                      - Exit the program")
	fmt.Println()
}

func printProgress(p instrument.Progress) {
	state := "running"
	if p.Done {
		state = "done"
	}
	fmt.Printf("Capture %s:", state)
	for i, n := range p.Captured {
		fmt.Printf(" ch%d=%d", i+1, n)
	}
	fmt.Println()
}

func parseEdge(s string) (instrument.Edge, error) {
	switch s {
	case "any":
		return instrument.EdgeAny, nil
	case "rising":
		return instrument.EdgeRising, nil
	case "falling":
		return instrument.EdgeFalling, nil
	case "none", "off":
		return instrument.EdgeNone, nil
	}
	return instrument.EdgeNone, fmt.Errorf("unknown edge %q", s)
}

func runLogicCapture(client *instrument.Client, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: la <channels> <events> [edge [trig_ch trig_edge]]")
	}
	channels, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return err
	}
	events, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return err
	}

	captureEdge := instrument.EdgeAny
	if len(args) > 2 {
		if captureEdge, err = parseEdge(args[2]); err != nil {
			return err
		}
	}

	triggerChannel := instrument.ChannelNone
	triggerEdge := instrument.EdgeNone
	if len(args) > 4 {
		ch, err := strconv.ParseUint(args[3], 10, 8)
		if err != nil || ch < 1 || ch > instrument.ChannelCount {
			return fmt.Errorf("bad trigger channel %q", args[3])
		}
		triggerChannel = instrument.Channel(ch - 1)
		if triggerEdge, err = parseEdge(args[4]); err != nil {
			return err
		}
	}

	if err := client.StartLogicCapture(uint8(channels), uint16(events), captureEdge, triggerChannel, triggerEdge); err != nil {
		return err
	}
	fmt.Println("Capture started, waiting...")

	// Poll until done.
	for {
		time.Sleep(100 * time.Millisecond)
		p, err := client.LogicProgress()
		if err != nil {
			return err
		}
		if *verbose {
			printProgress(p)
		}
		if p.Done {
			break
		}
	}

	capture, err := client.FetchLogicCapture()
	if err != nil {
		return err
	}

	fmt.Printf("Initial states: %04b\n", capture.InitialStates)
	for ch, ts := range capture.Timestamps {
		fmt.Printf("ch%d: %d events\n", ch+1, len(ts))
		for i, t := range ts {
			fmt.Printf("  %4d  %.9fs\n", i, t)
		}
	}
	return nil
}

func runScopeCapture(client *instrument.Client, args []string) ([]instrument.ChannelScale, uint8, uint32, error) {
	if len(args) != 3 {
		return nil, 0, 0, fmt.Errorf("usage: scope <channels> <samples> <interval_us>")
	}
	channels, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return nil, 0, 0, err
	}
	samples, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return nil, 0, 0, err
	}
	intervalUS, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return nil, 0, 0, err
	}

	freq, err := client.ClockFrequency()
	if err != nil {
		return nil, 0, 0, err
	}
	ticks := uint32(intervalUS * float64(freq) / 1e6)

	scales, err := client.StartScopeCapture(uint8(channels), uint16(samples), ticks)
	if err != nil {
		return nil, 0, 0, err
	}
	fmt.Printf("Capture started: %d channels, %d samples, %d ticks/sample\n",
		channels, samples, ticks)
	return scales, uint8(channels), uint32(samples), nil
}

func fetchScope(client *instrument.Client, scales []instrument.ChannelScale, channels uint8, samples uint32) error {
	for ch := uint8(0); ch < channels; ch++ {
		volts, err := client.FetchScopeChannel(instrument.Channel(ch), channels, samples, scales[ch])
		if err != nil {
			return err
		}
		fmt.Printf("ch%d (%d samples):\n", ch+1, len(volts))
		for i, v := range volts {
			fmt.Printf("  %4d  %+.6fV\n", i, v)
		}
	}
	return nil
}

func configureTrigger(client *instrument.Client, args []string) error {
	if len(args) == 1 && (args[0] == "off" || args[0] == "none") {
		return client.ConfigureTrigger(instrument.ChannelNone, 0, instrument.EdgeNone, 0)
	}
	if len(args) < 3 {
		return fmt.Errorf("usage: trigger <ch> <volts> <edge> [timeout_samples] | trigger off")
	}
	ch, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil || ch < 1 || ch > instrument.ChannelCount {
		return fmt.Errorf("bad channel %q", args[0])
	}
	volts, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return err
	}
	edge, err := parseEdge(args[2])
	if err != nil {
		return err
	}
	timeout := uint64(0)
	if len(args) > 3 {
		if timeout, err = strconv.ParseUint(args[3], 10, 32); err != nil {
			return err
		}
	}
	return client.ConfigureTrigger(instrument.Channel(ch-1), volts, edge, uint32(timeout))
}

func setGain(client *instrument.Client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: gain <ch> <1|2|4|5|8|10|16|32>")
	}
	ch, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil || ch < 1 || ch > 2 {
		return fmt.Errorf("gain is only available on CH1 and CH2")
	}
	gains := map[string]instrument.Gain{
		"1": instrument.GainX1, "2": instrument.GainX2, "4": instrument.GainX4,
		"5": instrument.GainX5, "8": instrument.GainX8, "10": instrument.GainX10,
		"16": instrument.GainX16, "32": instrument.GainX32,
	}
	gain, ok := gains[args[1]]
	if !ok {
		return fmt.Errorf("unknown gain %q", args[1])
	}
	return client.SetGain(instrument.Channel(ch-1), gain)
}
