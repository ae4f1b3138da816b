// Package floppyemu implements the sector-caching floppy back-end for a
// USB mass-storage floppy emulator: a two-region write-back cache over a
// file-backed disk image, geometry auto-detection, and the status record
// that ties mount/eject lifecycle to the cache and to the USB-facing block
// device surface.
//
// The low-level SD/SPI sequencing, the host FAT filesystem, the USB
// transport and SCSI dispatcher, and the on-device menu/OLED/GPIO stack are
// all external collaborators; this module only implements the core that
// sits between them.
package floppyemu
