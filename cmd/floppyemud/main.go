package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	fe "github.com/demyanenko-d/floppyemu"
	"github.com/demyanenko-d/floppyemu/disks"
	"github.com/demyanenko-d/floppyemu/storage"
	"github.com/demyanenko-d/floppyemu/utilities/compression"
)

func main() {
	app := cli.App{
		Usage: "Drive the floppy emulator's sector cache from the command line",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Format a blank floppy image",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "geometry", Value: "1.44m", Usage: "720k, 1.2m, or 1.44m"},
				},
				Action: createImage,
			},
			{
				Name:      "mount",
				Usage:     "Mount an image for subsequent read/write/eject commands",
				ArgsUsage: "PATH",
				Action:    mountImage,
			},
			{
				Name:   "eject",
				Usage:  "Flush and eject the currently mounted image",
				Action: ejectImage,
			},
			{
				Name:      "read",
				Usage:     "Read one sector and print it as hex",
				ArgsUsage: "LBA",
				Action:    readSector,
			},
			{
				Name:      "write",
				Usage:     "Write one hex-encoded sector",
				ArgsUsage: "LBA HEX",
				Action:    writeSector,
			},
			{
				Name:      "pack",
				Usage:     "Compress an image for transfer off the SD card",
				ArgsUsage: "PATH OUT",
				Action:    packImage,
			},
			{
				Name:      "unpack",
				Usage:     "Decompress a packed image",
				ArgsUsage: "IN PATH",
				Action:    unpackImage,
			},
			{
				Name:  "serve",
				Usage: "Run the device loop, taking commands from stdin until EOF or `quit`",
				Description: "One line per command: mount PATH, eject, ack, ready, capacity, " +
					"read LBA, write LBA HEX, quit. This is the only place the four-task, " +
					"channel-based device model runs; every other subcommand is a single " +
					"synchronous call for scripting convenience.",
				Action: serveDevice,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("floppyemud: %s", err.Error())
	}
}

func createImage(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return fmt.Errorf("usage: floppyemud create PATH --geometry 720k|1.2m|1.44m")
	}

	g, ok := disks.BySlug(c.String("geometry"))
	if !ok {
		return fmt.Errorf("unknown geometry %q", c.String("geometry"))
	}

	err := storage.CreateBlankImageFile(path, fe.Geometry{
		Name:            g.Name,
		TotalSectors:    fe.LBA(g.TotalSectors),
		MetadataSectors: g.MetadataSectors,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created %s (%s, %d sectors)\n", path, g.Name, g.TotalSectors)
	return nil
}

// withMountedDevice re-mounts the image named in the on-disk session file
// (see session.go) into a fresh device and runs fn against it. Every
// subcommand is its own process, so this is how read/write/eject see the
// same image mount set up by a prior `floppyemud mount` invocation.
func withMountedDevice(fn func(d *device) error) error {
	session, err := loadSession()
	if err != nil {
		return err
	}
	if session.MountedPath == "" {
		return fmt.Errorf("no image mounted; run `floppyemud mount PATH` first")
	}

	d := newDevice(nil)
	if err := d.mgr.Load(session.MountedPath); err != nil {
		return err
	}
	return fn(d)
}

func mountImage(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return fmt.Errorf("usage: floppyemud mount PATH")
	}

	d := newDevice(nil)
	if err := d.mgr.Load(path); err != nil {
		return err
	}

	snap := d.mgr.Snapshot()
	fmt.Printf("mounted %s as %s (%d sectors, %dKB/%dKB preloaded)\n",
		path, snap.Geometry.Name, snap.TotalSectors, snap.LoadedKB, snap.TotalFATKB)
	return saveSession(sessionState{MountedPath: path})
}

func ejectImage(c *cli.Context) error {
	err := withMountedDevice(func(d *device) error {
		return d.mgr.Eject()
	})
	if err != nil {
		return err
	}
	return clearSession()
}

func readSector(c *cli.Context) error {
	lba, err := strconv.ParseUint(c.Args().Get(0), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid LBA: %w", err)
	}

	var out []byte
	err = withMountedDevice(func(d *device) error {
		buf := make([]byte, fe.SectorSize)
		if rerr := d.facade.Read10(fe.LBA(lba), buf); rerr != nil {
			return rerr
		}
		out = buf
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Println(hex.EncodeToString(out))
	return nil
}

func writeSector(c *cli.Context) error {
	lba, err := strconv.ParseUint(c.Args().Get(0), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid LBA: %w", err)
	}

	data, err := hex.DecodeString(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("invalid hex payload: %w", err)
	}
	if len(data) != fe.SectorSize {
		return fmt.Errorf("payload must be exactly %d bytes, got %d", fe.SectorSize, len(data))
	}

	return withMountedDevice(func(d *device) error {
		if werr := d.facade.Write10(fe.LBA(lba), data); werr != nil {
			return werr
		}
		return d.cache.FlushAll()
	})
}

func packImage(c *cli.Context) error {
	srcPath, outPath := c.Args().Get(0), c.Args().Get(1)
	if srcPath == "" || outPath == "" {
		return fmt.Errorf("usage: floppyemud pack PATH OUT")
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	n, err := compression.CompressImage(src, out)
	if err != nil {
		return err
	}
	fmt.Printf("packed %s into %d bytes\n", outPath, n)
	return nil
}

func unpackImage(c *cli.Context) error {
	srcPath, outPath := c.Args().Get(0), c.Args().Get(1)
	if srcPath == "" || outPath == "" {
		return fmt.Errorf("usage: floppyemud unpack IN PATH")
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	n, err := compression.DecompressImage(src, out)
	if err != nil {
		return err
	}
	fmt.Printf("unpacked %s into %d bytes\n", outPath, n)
	return nil
}

func serveDevice(c *cli.Context) error {
	d := newDevice(log.New(os.Stderr, "", log.LstdFlags))
	done := make(chan struct{})
	d.run(done)
	defer close(done)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if want := minArgsFor(fields[0]); len(fields) <= want {
			fmt.Fprintf(os.Stderr, "%s: not enough arguments\n", fields[0])
			continue
		}

		switch fields[0] {
		case "mount":
			cmd := mountCommand(fields[1])
			d.inputCh <- cmd
			if err := <-cmd.reply; err != nil {
				fmt.Fprintln(os.Stderr, err)
			} else {
				fmt.Println("ready")
			}
		case "eject":
			cmd := ejectCommand()
			d.inputCh <- cmd
			<-cmd.reply
			fmt.Println("ejected")
		case "ack":
			cmd := acknowledgeCommand()
			d.inputCh <- cmd
			<-cmd.reply
		case "ready":
			cmd := unitReadyCommand()
			d.usbCh <- cmd
			res := <-cmd.reply
			if res.sense != nil {
				fmt.Printf("not ready, sense (0x%02x,0x%02x)\n", res.sense.ASC, res.sense.ASCQ)
			} else {
				fmt.Println(res.ready)
			}
		case "capacity":
			cmd := capacityCommand()
			d.usbCh <- cmd
			res := <-cmd.reply
			fmt.Printf("%d sectors x %d bytes\n", res.totalSectors, res.bytesPerSector)
		case "read":
			lba, err := strconv.ParseUint(fields[1], 10, 32)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			cmd := readCommand(fe.LBA(lba))
			d.usbCh <- cmd
			res := <-cmd.reply
			if res.err != nil {
				fmt.Fprintln(os.Stderr, res.err)
			} else {
				fmt.Println(hex.EncodeToString(res.data))
			}
		case "write":
			lba, err := strconv.ParseUint(fields[1], 10, 32)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			data, err := hex.DecodeString(fields[2])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			cmd := writeCommand(fe.LBA(lba), data)
			d.usbCh <- cmd
			if res := <-cmd.reply; res.err != nil {
				fmt.Fprintln(os.Stderr, res.err)
			}
		case "quit":
			return nil
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n", fields[0])
		}
	}
	return scanner.Err()
}

// minArgsFor returns the number of arguments a serve command requires
// beyond its name, so the dispatch loop can bounds-check fields before
// indexing into it.
func minArgsFor(command string) int {
	switch command {
	case "mount":
		return 1
	case "read":
		return 1
	case "write":
		return 2
	default:
		return 0
	}
}
