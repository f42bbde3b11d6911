// Command bootrun boots a disk image in the real-mode machine model and
// shows what the loader printed through the firmware teletype service.
//
//	bootrun -image boot.iso
//	bootrun -image boot.img -screen
//
// With -screen the teletype stream is fed through a terminal emulator
// and the final 80x25 screen contents are printed instead of the raw
// byte stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/vt"

	"github.com/bootforge/bootforge"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	imagePath := fs.String("image", "", "Disk image to boot")
	screen := fs.Bool("screen", false, "Render output on an emulated 80x25 screen")
	timeout := fs.Duration("timeout", 10*time.Second, "Give up if the machine has not halted")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	if *imagePath == "" {
		fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *screen {
		if err := runScreen(ctx, *imagePath); err != nil {
			slog.Error("Boot failed", "image", *imagePath, "error", err)
			os.Exit(1)
		}
		return
	}

	res, err := bootforge.Boot(ctx, *imagePath, os.Stdout)
	if err != nil {
		slog.Error("Boot failed", "image", *imagePath, "error", err)
		os.Exit(1)
	}
	fmt.Println()
	slog.Info("Machine halted", "instructions", res.Instructions)
}

func runScreen(ctx context.Context, imagePath string) error {
	const cols, rows = 80, 25

	emu := vt.NewSafeEmulator(cols, rows)
	defer emu.Close()

	res, err := bootforge.Boot(ctx, imagePath, emu)
	if err != nil {
		return err
	}

	for y := 0; y < rows; y++ {
		var line strings.Builder
		for x := 0; x < cols; {
			cell := emu.CellAt(x, y)
			if cell == nil {
				line.WriteByte(' ')
				x++
				continue
			}
			line.WriteString(cell.Content)
			x += max(cell.Width, 1)
		}
		text := strings.TrimRight(line.String(), " ")
		if text != "" {
			fmt.Println(text)
		}
	}

	slog.Info("Machine halted", "instructions", res.Instructions)
	return nil
}
