// Command statusled runs the status indicator stack: message bus, pattern
// engine, battery monitor and (optionally) the MQTT bridge, with a small
// interactive shell for driving it by hand.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/shlex"

	"statusled-go/bus"
	"statusled-go/drivers/led"
	"statusled-go/services/battery"
	"statusled-go/services/bridge"
	"statusled-go/services/config"
	"statusled-go/services/indicator"
	"statusled-go/types"
	"statusled-go/x/timex"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config (embedded defaults when empty)")
	noGPIO := flag.Bool("no-gpio", false, "print LED levels instead of driving a GPIO line")
	shell := flag.Bool("shell", true, "run the interactive control shell on stdin")
	flag.Parse()

	if err := run(*configPath, *noGPIO, *shell); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath string, noGPIO, shell bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	b := bus.NewBus(64)
	config.Publish(b.NewConnection("config"), cfg)

	sink, closeSink, err := newSink(cfg.Indicator, noGPIO)
	if err != nil {
		return fmt.Errorf("led: %w", err)
	}
	defer closeSink()

	// Every commanded level is also visible on the bus.
	ledConn := b.NewConnection("led")
	sink = led.Emitting(sink, func(on bool) {
		val := types.LEDValue{TSms: timex.NowMs()}
		if on {
			val.Level = 1
		}
		ledConn.Publish(ledConn.NewMessage(bus.T("indicator", "led", "value"), val, true))
	})

	eng, err := indicator.New(nil, indicator.Clock(), sink)
	if err != nil {
		return err
	}
	if err := indicator.NewService(eng).Start(ctx, b.NewConnection("indicator")); err != nil {
		return err
	}

	mon := battery.New(b.NewConnection("battery"), battery.Config{
		LowPercent:            cfg.Battery.LowPercent,
		CriticalPercent:       cfg.Battery.CriticalPercent,
		FullPercent:           cfg.Battery.FullPercent,
		ChargeThresholdMilliA: cfg.Battery.ChargeThresholdMilliA,
		Period:                cfg.Battery.Period(),
	})
	mon.Start(ctx)
	defer mon.Stop()

	if cfg.Bridge.Enabled {
		go bridge.Start(ctx, b.NewConnection("bridge"))
	}

	eng.PowerOn()

	if !shell {
		<-ctx.Done()
		return nil
	}
	return runShell(ctx, b.NewConnection("shell"), eng, mon)
}

func newSink(cfg config.Indicator, noGPIO bool) (led.Sink, func(), error) {
	if noGPIO {
		return led.Func(func(on bool) {
			if on {
				fmt.Println("LED on")
			} else {
				fmt.Println("LED off")
			}
		}), func() {}, nil
	}
	g, err := led.NewGPIO(cfg.LEDChip, cfg.LEDPin)
	if err != nil {
		return nil, nil, err
	}
	return g, func() { _ = g.Close() }, nil
}

const shellHelp = `commands:
  status <name>          start a pattern (power_on, ble_pairing, ...)
  stop                   stop playback
  battery <pct> <mV> <mA>  inject a battery reading
  simulate low|charging|full
  get                    print indicator and battery state
  quit`

func runShell(ctx context.Context, conn *bus.Connection, eng *indicator.Engine, mon *battery.Monitor) error {
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	fmt.Println(shellHelp)
	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			args, err := shlex.Split(line)
			if err != nil {
				fmt.Println("parse:", err)
				continue
			}
			if len(args) == 0 {
				continue
			}
			if quit := dispatch(conn, eng, mon, args); quit {
				return nil
			}
		}
	}
}

func dispatch(conn *bus.Connection, eng *indicator.Engine, mon *battery.Monitor, args []string) bool {
	switch args[0] {
	case "status":
		if len(args) != 2 {
			fmt.Println("usage: status <name>")
			return false
		}
		conn.Publish(conn.NewMessage(bus.T("indicator", "control", "set"), args[1], false))
	case "stop":
		conn.Publish(conn.NewMessage(bus.T("indicator", "control", "stop"), nil, false))
	case "battery":
		if len(args) != 4 {
			fmt.Println("usage: battery <pct> <mV> <mA>")
			return false
		}
		r, err := parseReading(args[1], args[2], args[3])
		if err != nil {
			fmt.Println("battery:", err)
			return false
		}
		mon.Update(r)
	case "simulate":
		if len(args) != 2 {
			fmt.Println("usage: simulate low|charging|full")
			return false
		}
		switch args[1] {
		case "low":
			mon.SimulateLowBattery()
		case "charging":
			mon.SimulateChargingStart()
		case "full":
			mon.SimulateChargingComplete()
		default:
			fmt.Println("unknown scenario:", args[1])
		}
	case "get":
		snap := mon.Snapshot()
		fmt.Printf("indicator: %s (%s), led %v\n", eng.Current(), eng.Phase(), eng.LEDOn())
		fmt.Printf("battery:   %d%% %dmV %dmA (%s)\n",
			snap.Reading.Percent, snap.Reading.PackMilliV, snap.Reading.ChargeMilli, snap.State)
	case "help":
		fmt.Println(shellHelp)
	case "quit", "exit":
		return true
	default:
		fmt.Println("unknown command:", args[0], "(try help)")
	}
	return false
}

func parseReading(pct, mv, ma string) (types.BatteryReading, error) {
	p, err := strconv.ParseUint(pct, 10, 8)
	if err != nil {
		return types.BatteryReading{}, fmt.Errorf("percent: %w", err)
	}
	v, err := strconv.ParseInt(mv, 10, 32)
	if err != nil {
		return types.BatteryReading{}, fmt.Errorf("millivolts: %w", err)
	}
	a, err := strconv.ParseInt(ma, 10, 32)
	if err != nil {
		return types.BatteryReading{}, fmt.Errorf("milliamps: %w", err)
	}
	return types.BatteryReading{Percent: uint8(p), PackMilliV: int32(v), ChargeMilli: int32(a)}, nil
}
