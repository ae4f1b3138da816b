package main

import (
	"log"

	fe "github.com/demyanenko-d/floppyemu"
	"github.com/demyanenko-d/floppyemu/cache"
	"github.com/demyanenko-d/floppyemu/lifecycle"
	"github.com/demyanenko-d/floppyemu/storage"
	"github.com/demyanenko-d/floppyemu/usbfacade"
)

// totalCacheBlocks covers the pinned metadata region plus a comfortable
// data-region working set for a CLI session; the firmware sizes this from
// available SRAM, we just pick a fixed, generous number.
const totalCacheBlocks = 40

// inputCommandKind tags the variant carried by an inputCommand, modeling the
// original firmware's Input-task command enum (MOUNT/EJECT/ACK) without a
// shared mutable struct per command.
type inputCommandKind int

const (
	inputCmdMount inputCommandKind = iota
	inputCmdEject
	inputCmdAcknowledge
)

type inputCommand struct {
	kind  inputCommandKind
	path  string
	reply chan error
}

func mountCommand(path string) inputCommand {
	return inputCommand{kind: inputCmdMount, path: path, reply: make(chan error, 1)}
}

func ejectCommand() inputCommand {
	return inputCommand{kind: inputCmdEject, reply: make(chan error, 1)}
}

func acknowledgeCommand() inputCommand {
	return inputCommand{kind: inputCmdAcknowledge, reply: make(chan error, 1)}
}

// usbCommandKind tags the variant carried by a usbCommand, standing in for
// the Bulk-Only Transport command codes the USB task would decode off the
// wire.
type usbCommandKind int

const (
	usbCmdRead usbCommandKind = iota
	usbCmdWrite
	usbCmdUnitReady
	usbCmdCapacity
)

type usbCommand struct {
	kind  usbCommandKind
	lba   fe.LBA
	data  []byte
	reply chan usbResult
}

type usbResult struct {
	data           []byte
	ready          bool
	sense          *usbfacade.SenseCode
	totalSectors   fe.LBA
	bytesPerSector uint32
	err            error
}

func readCommand(lba fe.LBA) usbCommand {
	return usbCommand{kind: usbCmdRead, lba: lba, reply: make(chan usbResult, 1)}
}

func writeCommand(lba fe.LBA, data []byte) usbCommand {
	return usbCommand{kind: usbCmdWrite, lba: lba, data: data, reply: make(chan usbResult, 1)}
}

func unitReadyCommand() usbCommand {
	return usbCommand{kind: usbCmdUnitReady, reply: make(chan usbResult, 1)}
}

func capacityCommand() usbCommand {
	return usbCommand{kind: usbCmdCapacity, reply: make(chan usbResult, 1)}
}

// uiEvent is what the Storage/Lifecycle task publishes for the UI task to
// render; here that's a log line in place of the OLED.
type uiEvent struct {
	status     fe.Status
	loadedKB   uint32
	totalFATKB uint32
}

// device wires the cache, lifecycle manager, and USB façade together and
// runs the four FreeRTOS-equivalent tasks (Input, Storage/Lifecycle, USB,
// UI) as goroutines communicating over bounded channels — the realization
// of the global task-queue topology as a construction-time handle record
// instead of package-level queues.
type device struct {
	cache  *cache.Cache
	mgr    *lifecycle.Manager
	facade *usbfacade.Facade
	logger *log.Logger

	inputCh   chan inputCommand
	storageCh chan inputCommand
	usbCh     chan usbCommand
	uiCh      chan uiEvent
}

func newDevice(logger *log.Logger) *device {
	if logger == nil {
		logger = log.Default()
	}

	adapter := storage.NewFileAdapter()
	var tick uint64
	now := func() uint64 {
		tick++
		return tick
	}

	d := &device{
		logger:    logger,
		inputCh:   make(chan inputCommand, 4),
		storageCh: make(chan inputCommand, 4),
		usbCh:     make(chan usbCommand, 16),
		uiCh:      make(chan uiEvent, 8),
	}

	d.cache = cache.New(totalCacheBlocks, adapter, now)
	d.mgr = lifecycle.New(d.cache, adapter, d.onProgress, logger)
	d.facade = usbfacade.New(d.mgr)
	return d
}

// onProgress is called by the lifecycle manager mid-preload. It forwards to
// the UI task's channel, dropping the tick if the UI task has fallen
// behind — the next tick supersedes it, so nothing is lost but a stall.
func (d *device) onProgress(loadedKB, totalFATKB uint32) {
	select {
	case d.uiCh <- uiEvent{status: d.mgr.Status(), loadedKB: loadedKB, totalFATKB: totalFATKB}:
	default:
	}
}

// run starts the four tasks as goroutines and returns immediately; each task
// exits once done is closed.
func (d *device) run(done <-chan struct{}) {
	go d.runInputTask(done)
	go d.runStorageTask(done)
	go d.runUSBTask(done)
	go d.runUITask(done)
}

// runInputTask forwards mount/eject/acknowledge requests to the
// Storage/Lifecycle task, mirroring the original firmware's Input task
// handing off to the storage queue rather than touching the image itself.
func (d *device) runInputTask(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case cmd := <-d.inputCh:
			d.storageCh <- cmd
		}
	}
}

func (d *device) runStorageTask(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case cmd := <-d.storageCh:
			switch cmd.kind {
			case inputCmdMount:
				cmd.reply <- d.mgr.Load(cmd.path)
			case inputCmdEject:
				cmd.reply <- d.mgr.Eject()
			case inputCmdAcknowledge:
				d.mgr.Acknowledge()
				cmd.reply <- nil
			}
		}
	}
}

func (d *device) runUSBTask(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case cmd := <-d.usbCh:
			cmd.reply <- d.serveUSB(cmd)
		}
	}
}

func (d *device) serveUSB(cmd usbCommand) usbResult {
	switch cmd.kind {
	case usbCmdRead:
		buf := make([]byte, fe.SectorSize)
		err := d.facade.Read10(cmd.lba, buf)
		return usbResult{data: buf, err: err}
	case usbCmdWrite:
		err := d.facade.Write10(cmd.lba, cmd.data)
		return usbResult{err: err}
	case usbCmdUnitReady:
		ready, sense := d.facade.UnitReady()
		return usbResult{ready: ready, sense: sense}
	case usbCmdCapacity:
		total, bps := d.facade.Capacity()
		return usbResult{totalSectors: total, bytesPerSector: bps}
	default:
		return usbResult{}
	}
}

// runUITask logs every progress tick and status change in place of the
// OLED the firmware would drive from the same events.
func (d *device) runUITask(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev := <-d.uiCh:
			d.logger.Printf("floppyemud: %s: loaded %dKB / %dKB", ev.status, ev.loadedKB, ev.totalFATKB)
		}
	}
}
