package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cosanlab/go-trgen/capability"
	"github.com/cosanlab/go-trgen/instr"
	"github.com/cosanlab/go-trgen/internal/emulator"
	"github.com/cosanlab/go-trgen/line"
	"github.com/cosanlab/go-trgen/trgen"
)

// Command flags
var (
	markerA    uint8
	markerB    uint8
	markerGPIO uint8
	lsbFirst   bool
	listenAddr string
	emuMemory  int
	emuEncode  string
)

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(markerCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(emulateCmd)

	markerCmd.Flags().Uint8Var(&markerA, "scanner-a", 0, "Marker value for scanner A lines")
	markerCmd.Flags().Uint8Var(&markerB, "scanner-b", 0, "Marker value for scanner B lines")
	markerCmd.Flags().Uint8Var(&markerGPIO, "gpio", 0, "Marker value for general purpose lines")
	markerCmd.Flags().BoolVar(&lsbFirst, "lsb-first", false, "Map bit 0 to the first line of a group")

	emulateCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:4242", "Listen address")
	emulateCmd.Flags().IntVar(&emuMemory, "memory", line.DefaultMemoryLength, "Instructions per line memory")
	emulateCmd.Flags().StringVar(&emuEncode, "memory-encoding", capability.Direct.Name(), "Memory length encoding: direct or pow2")
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the device capability",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(_ context.Context, client *trgen.Client) error {
			d := client.Connection().Descriptor()
			layout := client.Layout()

			fmt.Printf("Firmware revision: %d\n", d.Revision)
			fmt.Printf("Memory length:     %d instructions\n", d.MemoryLength)
			for _, g := range line.Groups() {
				ids := layout.Lines(g)
				if len(ids) == 0 {
					fmt.Printf("  %-10s -\n", g)
					continue
				}
				fmt.Printf("  %-10s %d lines (%d-%d)\n", g, len(ids), ids[0], ids[len(ids)-1])
			}

			return nil
		})
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger LINE [LINE...]",
	Short: "Pulse one or more lines",
	Example: `  # Pulse line 3
  trgenctl trigger 3

  # Pulse three lines at once
  trgenctl trigger 0 8 18`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseLines(args)
		if err != nil {
			return err
		}

		return withClient(cmd, func(ctx context.Context, client *trgen.Client) error {
			return client.StartTriggerList(ctx, ids...)
		})
	},
}

var markerCmd = &cobra.Command{
	Use:   "marker",
	Short: "Send an 8-bit marker on the scanner and GPIO lines",
	Example: `  # Lines 5 and 7 of scanner A (most significant bit first)
  trgenctl marker --scanner-a 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := trgen.Marker{ScannerA: markerA, ScannerB: markerB, GPIO: markerGPIO}

		return withClient(cmd, func(ctx context.Context, client *trgen.Client) error {
			return client.SendMarker(ctx, m, lsbFirst)
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop every program and reset all lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *trgen.Client) error {
			return client.StopTrigger(ctx)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show status, level and GPIO registers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *trgen.Client) error {
			status, err := client.Status(ctx)
			if err != nil {
				return err
			}
			level, err := client.Level(ctx)
			if err != nil {
				return err
			}
			gpio, err := client.GPIO(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("status: 0x%08X\nlevel:  0x%08X\ngpio:   0x%08X\n", status, level, gpio)

			return nil
		})
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the pulse and reset programs sized for the device",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(_ context.Context, client *trgen.Client) error {
			pulse := client.NewMemory()
			if err := pulse.ProgramDefault(client.Connection().Config().PulseDuration()); err != nil {
				return err
			}

			fmt.Println("pulse:")
			printMemory(pulse.Words())
			fmt.Println("reset:")
			printMemory(client.NewMemory().Words())

			return nil
		})
	},
}

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Serve an emulated device until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, l, err := resolveConfig()
		if err != nil {
			return err
		}

		enc, err := capability.DecoderByName(emuEncode)
		if err != nil {
			return err
		}

		d := capability.Default
		d.MemoryLength = emuMemory

		emu, err := emulator.New(cmd.Context(),
			emulator.WithDescriptor(d),
			emulator.WithMemoryLengthEncoder(enc),
			emulator.WithLogger(l),
		)
		if err != nil {
			return err
		}
		if err := emu.Listen(listenAddr); err != nil {
			return err
		}

		<-cmd.Context().Done()

		return emu.Close()
	},
}

func parseLines(args []string) ([]line.ID, error) {
	ids := make([]line.ID, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseUint(arg, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid line %q: %w", arg, err)
		}
		ids = append(ids, line.ID(v))
	}

	return ids, nil
}

// printMemory prints the instructions up to the end of the program.
func printMemory(words []instr.Word) {
	for i, w := range words {
		fmt.Printf("  %2d  0x%08X  %s\n", i, uint32(w), w)
		if w.Op() == instr.OpEnd {
			if rest := len(words) - i - 1; rest > 0 {
				fmt.Printf("      (%d not-admissible)\n", rest)
			}

			return
		}
	}
}
